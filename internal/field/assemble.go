package field

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/rtm0/era5cart/internal/atmos"
	"github.com/rtm0/era5cart/internal/grid"
)

// Quantity is one physical quantity across all timesteps: Data[t][k] is the
// slice at timestep t and pressure level k.
type Quantity struct {
	Name      string
	Data      [][]Slice
	Transform Transform
}

// Strategy lays out the assembled tables.
type Strategy interface {
	// Name identifies the layout in logs and configuration.
	Name() string
	// Coords returns the coordinate table that is row-aligned with the
	// quantity tables.
	Coords(g *grid.Grid) Table
	// Build returns the table for one quantity.
	Build(g *grid.Grid, q Quantity, logger *slog.Logger) (Table, error)
}

// ErrWideMultiTime is returned when the wide layout is given more than one
// timestep.
var ErrWideMultiTime = errors.New("wide layout holds a single timestep")

// Label selects wide-layout column headers.
type Label int

const (
	// LabelPressure names each level column by its pressure value, e.g. "850".
	LabelPressure Label = iota
	// LabelHeight names each level column by its altitude, e.g. "z=1.457".
	LabelHeight
)

func (l Label) column(pressure float64) (string, error) {
	if l != LabelHeight {
		return strconv.FormatFloat(pressure, 'g', -1, 64), nil
	}
	km, err := atmos.CachedHeight(pressure)
	if err != nil {
		return "", err
	}
	return "z=" + strconv.FormatFloat(km, 'g', -1, 64), nil
}

// Wide has one row per (x, y) grid point and one column per pressure level,
// preceded by the x and y coordinates.
type Wide struct {
	Label Label
}

// Name returns "wide".
func (Wide) Name() string { return "wide" }

// Coords returns the x and y columns shared by every wide table.
func (Wide) Coords(g *grid.Grid) Table {
	xs := Flatten(g.NX(), g.NY(), 1, func(x, _, _ int) float64 { return g.X[x] })
	ys := Flatten(g.NX(), g.NY(), 1, func(_, y, _ int) float64 { return g.Y[y] })
	return Table{Name: "coords", Columns: []Column{{"x", xs}, {"y", ys}}}
}

// Build returns one row per (x, y) and one column per level. It needs
// exactly one timestep.
func (w Wide) Build(g *grid.Grid, q Quantity, logger *slog.Logger) (Table, error) {
	if len(q.Data) != 1 {
		return Table{}, fmt.Errorf("%s: %w, got %d", q.Name, ErrWideMultiTime, len(q.Data))
	}
	levels := q.Data[0]
	if err := checkLevels(g, levels); err != nil {
		return Table{}, annotate(err, q.Name, 0)
	}

	t := w.Coords(g)
	t.Name = q.Name
	for k, s := range levels {
		p := g.Levels[k]
		name, err := w.Label.column(p)
		if err != nil {
			return Table{}, fmt.Errorf("%s: %w", q.Name, err)
		}
		var tfErr error
		vals := Flatten(g.NX(), g.NY(), 1, func(x, y, _ int) float64 {
			v := s.At(x, y)
			if q.Transform == nil || tfErr != nil {
				return v
			}
			v, tfErr = q.Transform(v, p)
			return v
		})
		if tfErr != nil {
			return Table{}, fmt.Errorf("%s: %w", q.Name, tfErr)
		}
		t.Columns = append(t.Columns, Column{Name: name, Values: vals})
	}
	logger.Debug("quantity completed", "quantity", q.Name, "layout", w.Name(), "levels", len(levels))
	return t, nil
}

// Tall has one row per (x, y, z) grid point and one column per timestep,
// named by quantity and timestep index ("u0", "u1", ...).
type Tall struct{}

// Name returns "tall".
func (Tall) Name() string { return "tall" }

// Coords returns the per-point x, y and z columns.
func (Tall) Coords(g *grid.Grid) Table {
	xs, ys, zs := g.Points()
	return Table{Name: "coords", Columns: []Column{{"x", xs}, {"y", ys}, {"z", zs}}}
}

// Build returns one column per timestep. The number of timesteps must match
// g.NT().
func (Tall) Build(g *grid.Grid, q Quantity, logger *slog.Logger) (Table, error) {
	if len(q.Data) != g.NT() {
		return Table{}, &ShapeMismatchError{
			Quantity: q.Name, Time: -1, Level: -1,
			Want: []int{g.NT()}, Got: []int{len(q.Data)},
		}
	}
	t := Table{Name: q.Name}
	for ti, levels := range q.Data {
		vals, err := FlattenLevels(g, levels, q.Transform)
		if err != nil {
			return Table{}, annotate(err, q.Name, ti)
		}
		t.Columns = append(t.Columns, Column{Name: q.Name + strconv.Itoa(ti), Values: vals})
		logger.Info("quantity completed", "quantity", q.Name, "time", ti)
	}
	return t, nil
}

func annotate(err error, name string, t int) error {
	var sme *ShapeMismatchError
	if errors.As(err, &sme) {
		sme.Quantity = name
		sme.Time = t
		return err
	}
	return fmt.Errorf("%s time %d: %w", name, t, err)
}

// Input carries the raw per-timestep, per-level slices of each quantity.
type Input struct {
	U, V, W [][]Slice
}

// Output is the result of one conversion. Every table except Axes is
// row-aligned with Coords.
type Output struct {
	Coords  Table
	Axes    grid.Padded
	U, V, W Table
}

type options struct {
	logger   *slog.Logger
	vertical Transform
}

// Option configures Assemble.
type Option func(*options)

// WithLogger reports progress to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithVertical replaces the conversion applied to w. A nil transform stores
// raw omega in Pa/s.
func WithVertical(tf Transform) Option {
	return func(o *options) { o.vertical = tf }
}

// Assemble flattens the input over g using strategy s. The vertical motion
// is converted with OmegaToW unless overridden with WithVertical.
func Assemble(s Strategy, g *grid.Grid, in Input, opts ...Option) (*Output, error) {
	o := options{logger: slog.New(slog.DiscardHandler), vertical: OmegaToW}
	for _, opt := range opts {
		opt(&o)
	}

	out := &Output{Coords: s.Coords(g), Axes: g.PadAxes()}
	quantities := []struct {
		q   Quantity
		dst *Table
	}{
		{Quantity{Name: "u", Data: in.U}, &out.U},
		{Quantity{Name: "v", Data: in.V}, &out.V},
		{Quantity{Name: "w", Data: in.W, Transform: o.vertical}, &out.W},
	}
	for _, qd := range quantities {
		t, err := s.Build(g, qd.q, o.logger)
		if err != nil {
			return nil, err
		}
		*qd.dst = t
	}
	o.logger.Info("assembled", "layout", s.Name(), "rows", out.Coords.Rows(), "timesteps", len(in.U))
	return out, nil
}
