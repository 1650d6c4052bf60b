// Package grid builds the Cartesian axes of a converted reanalysis region.
//
// The origin (0, 0, 0) sits at the first bounding point. x grows with the
// longitude index, y grows northward and z is the standard-atmosphere
// altitude of each pressure level in metres. Values are always linearised
// with x outermost and z innermost; see Grid.Index.
package grid

import (
	"fmt"

	"github.com/rtm0/era5cart/internal/atmos"
	"github.com/rtm0/era5cart/internal/geo"
)

// Axis returns n coordinates spaced delta apart starting at zero.
func Axis(n int, delta float64) []float64 {
	a := make([]float64, n)
	for i := range a {
		a[i] = float64(i) * delta
	}
	return a
}

// NorthwardYAxis returns the y coordinates for rawRowCount source rows.
// Source rows run north to south while y increases northward, so the first
// raw row gets the largest coordinate and the last raw row gets zero:
// axis[j] = (rawRowCount-1-j)·delta. Field values are not reordered; raw
// row j pairs with axis[j].
func NorthwardYAxis(rawRowCount int, delta float64) []float64 {
	a := make([]float64, rawRowCount)
	for j := range a {
		a[rawRowCount-1-j] = float64(j) * delta
	}
	return a
}

// HeightAxis converts pressure levels in hPa to altitudes in metres, keeping
// the input order.
func HeightAxis(levels []float64) ([]float64, error) {
	z := make([]float64, len(levels))
	for k, p := range levels {
		km, err := atmos.CachedHeight(p)
		if err != nil {
			return nil, fmt.Errorf("level %d: %w", k, err)
		}
		z[k] = km * 1000
	}
	return z, nil
}

// DeltasFromBounds returns haversine-derived x and y spacing for an nx by ny
// grid spanning p1 to p2.
func DeltasFromBounds(p1, p2 geo.Point, rEarth float64, nx, ny int) (dx, dy float64, err error) {
	return geo.CartDeltas(p1, p2, rEarth, ny, nx)
}

// Spec describes the grid to build.
type Spec struct {
	NX, NY int       // longitude and latitude point counts
	DX, DY float64   // metres
	Levels []float64 // hPa, in source order
	Times  []float64 // optional raw timestamps
}

// Grid holds the 1-D coordinate axes. It is immutable once built.
type Grid struct {
	X, Y, Z, T []float64
	Levels     []float64
}

// Build computes the axes described by s.
func Build(s Spec) (*Grid, error) {
	if s.NX <= 0 {
		return nil, &geo.InvalidGridSizeError{Axis: "x", N: s.NX}
	}
	if s.NY <= 0 {
		return nil, &geo.InvalidGridSizeError{Axis: "y", N: s.NY}
	}
	if len(s.Levels) == 0 {
		return nil, &geo.InvalidGridSizeError{Axis: "z", N: 0}
	}
	z, err := HeightAxis(s.Levels)
	if err != nil {
		return nil, err
	}
	g := &Grid{
		X:      Axis(s.NX, s.DX),
		Y:      NorthwardYAxis(s.NY, s.DY),
		Z:      z,
		Levels: append([]float64(nil), s.Levels...),
	}
	if len(s.Times) > 0 {
		g.T = append([]float64(nil), s.Times...)
	}
	return g, nil
}

// NX returns the number of x (longitude) points.
func (g *Grid) NX() int { return len(g.X) }

// NY returns the number of y (latitude) points.
func (g *Grid) NY() int { return len(g.Y) }

// NZ returns the number of pressure levels.
func (g *Grid) NZ() int { return len(g.Z) }

// NT returns the number of timesteps, at least one.
func (g *Grid) NT() int { return max(len(g.T), 1) }

// Len returns the number of spatial grid points.
func (g *Grid) Len() int {
	return len(g.X) * len(g.Y) * len(g.Z)
}

// Index returns the flattened position of grid point (x, y, z).
func (g *Grid) Index(x, y, z int) int {
	return x*(len(g.Y)*len(g.Z)) + y*len(g.Z) + z
}

// Coords is the inverse of Index.
func (g *Grid) Coords(i int) (x, y, z int) {
	nz := len(g.Z)
	nyz := len(g.Y) * nz
	return i / nyz, (i % nyz) / nz, i % nz
}

// Points returns the per-point coordinates in flattening order.
func (g *Grid) Points() (xs, ys, zs []float64) {
	n := g.Len()
	xs = make([]float64, 0, n)
	ys = make([]float64, 0, n)
	zs = make([]float64, 0, n)
	for _, x := range g.X {
		for _, y := range g.Y {
			for _, z := range g.Z {
				xs = append(xs, x)
				ys = append(ys, y)
				zs = append(zs, z)
			}
		}
	}
	return xs, ys, zs
}

// Padded is a set of axes right-padded with zeros to a common length.
// Valid[i] is the number of genuine coordinates at the head of Columns[i];
// everything after it is padding, even when it reads as a real zero.
type Padded struct {
	Columns [][]float64
	Valid   []int
}

// Len returns the common column length.
func (p Padded) Len() int {
	if len(p.Columns) == 0 {
		return 0
	}
	return len(p.Columns[0])
}

// Trim returns column i without its padding.
func (p Padded) Trim(i int) []float64 {
	return p.Columns[i][:p.Valid[i]]
}

// Pad right-pads each axis with zeros to the length of the longest one.
func Pad(axes ...[]float64) Padded {
	largest := 0
	for _, a := range axes {
		largest = max(largest, len(a))
	}
	p := Padded{
		Columns: make([][]float64, len(axes)),
		Valid:   make([]int, len(axes)),
	}
	for i, a := range axes {
		c := make([]float64, largest)
		copy(c, a)
		p.Columns[i] = c
		p.Valid[i] = len(a)
	}
	return p
}

// PadAxes pads the grid's x, y, z and t axes. A grid without timestamps
// contributes an empty t axis.
func (g *Grid) PadAxes() Padded {
	return Pad(g.X, g.Y, g.Z, g.T)
}
