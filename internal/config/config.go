// Package config holds the run configuration of the converter.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/rtm0/era5cart/internal/era5"
	"github.com/rtm0/era5cart/internal/export"
	"github.com/rtm0/era5cart/internal/field"
	"github.com/rtm0/era5cart/internal/geo"
	"github.com/rtm0/era5cart/internal/grid"
)

// Config is one conversion run. Points are [latitude, longitude] in degrees.
type Config struct {
	Source   string     `toml:"source"`
	File     string     `toml:"file"`
	Out      string     `toml:"out"`
	Format   string     `toml:"format"`
	Mode     string     `toml:"mode"`
	Label    string     `toml:"label"`
	Coords   string     `toml:"coords"`
	Levels   []float64  `toml:"levels"`
	Point1   [2]float64 `toml:"point1"`
	Point2   [2]float64 `toml:"point2"`
	Spacing  string     `toml:"spacing"`
	Deltas   []float64  `toml:"deltas"`
	REarth   float64    `toml:"r_earth"`
	Vertical string     `toml:"vertical"`
	Compress bool       `toml:"compress"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Source:   era5.ERA5.Name,
		Out:      ".",
		Format:   "csv",
		Mode:     "tall",
		Label:    "pressure",
		Coords:   "axes",
		Spacing:  "preset",
		REarth:   geo.EarthRadius,
		Vertical: "hydrostatic",
	}
}

// Load reads a TOML file over the defaults. Keys that do not map to a
// Config field are an error.
func Load(path string) (Config, error) {
	c := Default()
	md, err := toml.DecodeFile(path, &c)
	if err != nil {
		return Config{}, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return c, nil
}

// Validate reports every problem with c at once.
func (c Config) Validate() error {
	var errs []error
	if c.File == "" {
		errs = append(errs, errors.New("no input file"))
	}
	if _, err := c.SourcePreset(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Strategy(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.VerticalTransform(); err != nil {
		errs = append(errs, err)
	}
	if !slices.Contains(export.Formats(), strings.ToLower(c.Format)) {
		errs = append(errs, fmt.Errorf("unknown format %q, want one of %v", c.Format, export.Formats()))
	}
	if c.Mode == "wide" && strings.ToLower(c.Format) != "csv" {
		errs = append(errs, fmt.Errorf("format %q needs the tall layout", c.Format))
	}
	if c.Coords != "axes" && c.Coords != "points" {
		errs = append(errs, fmt.Errorf("unknown coordinates layout %q, want axes or points", c.Coords))
	}
	if c.Spacing != "preset" && c.Spacing != "haversine" {
		errs = append(errs, fmt.Errorf("unknown spacing %q, want preset or haversine", c.Spacing))
	}
	if len(c.Deltas) != 0 && (len(c.Deltas) != 2 || c.Deltas[0] <= 0 || c.Deltas[1] <= 0) {
		errs = append(errs, fmt.Errorf("deltas %v: want two positive values [dx, dy]", c.Deltas))
	}
	if c.REarth <= 0 {
		errs = append(errs, fmt.Errorf("r_earth %v must be positive", c.REarth))
	}
	for i, p := range [][2]float64{c.Point1, c.Point2} {
		if p[0] < -90 || p[0] > 90 || p[1] < -180 || p[1] > 360 {
			errs = append(errs, fmt.Errorf("point%d %v is not a valid [lat, lon]", i+1, p))
		}
	}
	return errors.Join(errs...)
}

// SourcePreset returns the named source.
func (c Config) SourcePreset() (era5.Source, error) {
	return era5.SourceByName(c.Source)
}

// Strategy returns the table layout for Mode and Label.
func (c Config) Strategy() (field.Strategy, error) {
	var label field.Label
	switch c.Label {
	case "", "pressure":
		label = field.LabelPressure
	case "height":
		label = field.LabelHeight
	default:
		return nil, fmt.Errorf("unknown label %q, want pressure or height", c.Label)
	}
	switch c.Mode {
	case "", "tall":
		return field.Tall{}, nil
	case "wide":
		return field.Wide{Label: label}, nil
	default:
		return nil, fmt.Errorf("unknown mode %q, want tall or wide", c.Mode)
	}
}

// VerticalTransform returns the transform applied to the vertical wind.
// "none" keeps the source values.
func (c Config) VerticalTransform() (field.Transform, error) {
	switch c.Vertical {
	case "", "hydrostatic":
		return field.OmegaToW, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown vertical transform %q, want hydrostatic or none", c.Vertical)
	}
}

// Points returns the bounding box corners.
func (c Config) Points() (p1, p2 geo.Point) {
	return geo.Point{Lat: c.Point1[0], Lon: c.Point1[1]},
		geo.Point{Lat: c.Point2[0], Lon: c.Point2[1]}
}

// GridDeltas returns the horizontal spacing in metres for an nx by ny grid.
func (c Config) GridDeltas(src era5.Source, nx, ny int) (dx, dy float64, err error) {
	switch {
	case len(c.Deltas) == 2:
		return c.Deltas[0], c.Deltas[1], nil
	case c.Spacing == "haversine":
		p1, p2 := c.Points()
		return grid.DeltasFromBounds(p1, p2, c.REarth, nx, ny)
	default:
		return src.DX, src.DY, nil
	}
}

// ExportOptions returns the writer options.
func (c Config) ExportOptions() export.Options {
	return export.Options{Format: c.Format, Coords: c.Coords, Compress: c.Compress}
}
