package export

import (
	"fmt"
	"path/filepath"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"

	"github.com/rtm0/era5cart/internal/field"
	"github.com/rtm0/era5cart/internal/grid"
)

// NetCDFName is the file written by the netcdf format.
const NetCDFName = "fields.nc"

// netCDF keeps each axis at its own length, so the padded axes are trimmed.
// Quantities are stored as [t][x][y][z], the same nesting as the tables.
func writeNetCDF(dir string, r Result, _ Options) (paths []string, err error) {
	if r.Layout != (field.Tall{}).Name() {
		return nil, fmt.Errorf("netcdf output needs the tall layout, got %q", r.Layout)
	}
	g := r.Grid
	path := filepath.Join(dir, NetCDFName)
	cw, err := cdf.OpenWriter(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := cw.Close(); err == nil {
			err = cerr
		}
	}()

	axes := r.Output.Axes
	times := axes.Trim(3)
	if len(times) == 0 {
		times = make([]float64, g.NT())
	}
	vars := []struct {
		name, units string
		values      []float64
	}{
		{"x", "m", axes.Trim(0)},
		{"y", "m", axes.Trim(1)},
		{"z", "m", axes.Trim(2)},
		{"t", "seconds since 1970-01-01", times},
	}
	for _, a := range vars {
		if err := addVar(cw, a.name, a.values, a.units, a.name); err != nil {
			return nil, err
		}
	}
	if err := addVar(cw, "level", g.Levels, "hPa", "z"); err != nil {
		return nil, err
	}

	units := map[string]string{"u": "m s-1", "v": "m s-1", "w": "m s-1"}
	for _, t := range []field.Table{r.Output.U, r.Output.V, r.Output.W} {
		values, err := reshape(g, t)
		if err != nil {
			return nil, err
		}
		if err := addVar(cw, t.Name, values, units[t.Name], "t", "x", "y", "z"); err != nil {
			return nil, err
		}
	}
	return []string{path}, nil
}

func addVar(cw *cdf.CDFWriter, name string, values any, units string, dims ...string) error {
	attrs, err := util.NewOrderedMap([]string{"units"}, map[string]any{"units": units})
	if err != nil {
		return err
	}
	if err := cw.AddVar(name, api.Variable{Values: values, Dimensions: dims, Attributes: attrs}); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// reshape turns a tall table back into a [t][x][y][z] array.
func reshape(g *grid.Grid, t field.Table) ([][][][]float64, error) {
	if len(t.Columns) != g.NT() {
		return nil, fmt.Errorf("%s: %d timesteps for a grid of %d", t.Name, len(t.Columns), g.NT())
	}
	out := make([][][][]float64, len(t.Columns))
	for ti, c := range t.Columns {
		if len(c.Values) != g.Len() {
			return nil, fmt.Errorf("%s: %d values for %d grid points", c.Name, len(c.Values), g.Len())
		}
		cube := make([][][]float64, g.NX())
		for x := range cube {
			cube[x] = make([][]float64, g.NY())
			for y := range cube[x] {
				cube[x][y] = make([]float64, g.NZ())
			}
		}
		for i, v := range c.Values {
			x, y, z := g.Coords(i)
			cube[x][y][z] = v
		}
		out[ti] = cube
	}
	return out, nil
}
