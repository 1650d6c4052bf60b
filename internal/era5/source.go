package era5

import (
	"fmt"
	"slices"
	"strings"
)

// Source names the netCDF variables of one reanalysis product.
type Source struct {
	Name string

	// Dimension variables
	Lat, Lon, Level, Time string

	// Wind variables on pressure levels
	U, V, W string

	// Native horizontal spacing in metres.
	DX, DY float64
}

var (
	// ERA5 pressure-level data from the Copernicus climate data store.
	ERA5 = Source{
		Name: "era5",
		Lat:  "latitude", Lon: "longitude", Level: "level", Time: "time",
		U: "u", V: "v", W: "w",
		DX: 31000, DY: 31000,
	}
	// MERRA2 assimilated pressure-level data from NASA GMAO.
	MERRA2 = Source{
		Name: "merra2",
		Lat:  "lat", Lon: "lon", Level: "lev", Time: "time",
		U: "U", V: "V", W: "OMEGA",
		DX: 50000, DY: 70000,
	}
)

var sources = []Source{ERA5, MERRA2}

// SourceByName returns the named source preset.
func SourceByName(name string) (Source, error) {
	for _, s := range sources {
		if strings.EqualFold(s.Name, name) {
			return s, nil
		}
	}
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.Name
	}
	slices.Sort(names)
	return Source{}, fmt.Errorf("unknown source %q, want one of %v", name, names)
}

// variables returns the wind variable names in u, v, w order.
func (s Source) variables() []string {
	return []string{s.U, s.V, s.W}
}
