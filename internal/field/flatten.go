package field

import (
	"github.com/rtm0/era5cart/internal/grid"
)

// Transform post-processes a raw value read at the given pressure level
// (hPa) before it is stored.
type Transform func(value, pressure float64) (float64, error)

// Flatten linearises an nx by ny by nz field with x outermost and z
// innermost, matching grid.Grid.Index.
func Flatten(nx, ny, nz int, at func(x, y, z int) float64) []float64 {
	out := make([]float64, 0, nx*ny*nz)
	for x := range nx {
		for y := range ny {
			for z := range nz {
				out = append(out, at(x, y, z))
			}
		}
	}
	return out
}

// checkLevels verifies that levels holds one slice per grid level, each
// shaped like the grid's x and y axes.
func checkLevels(g *grid.Grid, levels []Slice) error {
	if len(levels) != g.NZ() {
		return &ShapeMismatchError{Time: -1, Level: -1, Want: []int{g.NZ()}, Got: []int{len(levels)}}
	}
	for k, s := range levels {
		if s.NX() != g.NX() || s.NY() != g.NY() {
			return &ShapeMismatchError{
				Time:  -1,
				Level: k,
				Want:  []int{g.NX(), g.NY()},
				Got:   []int{s.NX(), s.NY()},
			}
		}
	}
	return nil
}

// FlattenLevels flattens one timestep of per-level slices over g, applying
// tf (if non-nil) to every value. The first transform error is returned.
func FlattenLevels(g *grid.Grid, levels []Slice, tf Transform) ([]float64, error) {
	if err := checkLevels(g, levels); err != nil {
		return nil, err
	}
	var tfErr error
	vals := Flatten(g.NX(), g.NY(), g.NZ(), func(x, y, z int) float64 {
		v := levels[z].At(x, y)
		if tf == nil || tfErr != nil {
			return v
		}
		v, tfErr = tf(v, g.Levels[z])
		return v
	})
	if tfErr != nil {
		return nil, tfErr
	}
	return vals, nil
}
