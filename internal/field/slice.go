// Package field flattens per-level wind slices onto a grid and assembles
// the co-indexed tables handed to the serializer.
package field

import (
	"fmt"
)

// Slice is one physical quantity at one (pressure level, timestep),
// addressed by x (longitude index) and y (raw latitude row index).
type Slice struct {
	nx, ny int
	v      []float64
}

// NewSlice returns a zeroed nx by ny slice.
func NewSlice(nx, ny int) Slice {
	return Slice{nx: nx, ny: ny, v: make([]float64, nx*ny)}
}

// SliceFromRows builds a slice from source-ordered rows, where rows[y][x]
// is the value at latitude row y and longitude column x. Ragged rows are a
// shape mismatch.
func SliceFromRows(rows [][]float64) (Slice, error) {
	ny := len(rows)
	if ny == 0 {
		return Slice{}, nil
	}
	nx := len(rows[0])
	s := NewSlice(nx, ny)
	for y, row := range rows {
		if len(row) != nx {
			return Slice{}, fmt.Errorf("row %d: %w", y, &ShapeMismatchError{
				Time: -1, Level: -1, Want: []int{nx}, Got: []int{len(row)},
			})
		}
		for x, v := range row {
			s.v[x*ny+y] = v
		}
	}
	return s, nil
}

// NX returns the number of longitude columns.
func (s Slice) NX() int { return s.nx }

// NY returns the number of latitude rows.
func (s Slice) NY() int { return s.ny }

// At returns the value at longitude column x and latitude row y.
func (s Slice) At(x, y int) float64 {
	return s.v[x*s.ny+y]
}

// Set stores v at longitude column x and latitude row y.
func (s *Slice) Set(x, y int, v float64) {
	s.v[x*s.ny+y] = v
}

// ShapeMismatchError reports field data whose dimensions disagree with the
// grid. Time and Level are -1 when the mismatch is not specific to one.
type ShapeMismatchError struct {
	Quantity    string
	Time, Level int
	Want, Got   []int
}

func (e *ShapeMismatchError) Error() string {
	where := e.Quantity
	if where == "" {
		where = "field"
	}
	if e.Time >= 0 {
		where += fmt.Sprintf(" time %d", e.Time)
	}
	if e.Level >= 0 {
		where += fmt.Sprintf(" level %d", e.Level)
	}
	return fmt.Sprintf("%s: shape %v does not match expected %v", where, e.Got, e.Want)
}
