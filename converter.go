package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rtm0/era5cart/internal/config"
	"github.com/rtm0/era5cart/internal/era5"
	"github.com/rtm0/era5cart/internal/export"
	"github.com/rtm0/era5cart/internal/field"
	"github.com/rtm0/era5cart/internal/grid"
	"github.com/rtm0/era5cart/internal/log"
)

// floatList is a comma-separated list of numbers.
type floatList []float64

func (l *floatList) String() string {
	s := make([]string, len(*l))
	for i, v := range *l {
		s[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(s, ",")
}

func (l *floatList) Set(v string) error {
	*l = nil
	for _, f := range strings.Split(v, ",") {
		x, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return err
		}
		*l = append(*l, x)
	}
	return nil
}

// cornerFlag sets a bounding box corner from "lat,lon".
type cornerFlag struct{ p *[2]float64 }

func (c cornerFlag) String() string {
	if c.p == nil {
		return ""
	}
	l := floatList(c.p[:])
	return l.String()
}

func (c cornerFlag) Set(v string) error {
	var l floatList
	if err := l.Set(v); err != nil {
		return err
	}
	if len(l) != 2 {
		return errors.New("want lat,lon")
	}
	*c.p = [2]float64(l)
	return nil
}

type flags struct {
	config   string
	logFile  string
	logLevel string
	run      config.Config
	set      map[string]bool
}

func parseFlags(args []string) (*flags, error) {
	f := &flags{run: config.Default(), set: map[string]bool{}}
	c := &f.run
	var levels, deltas floatList

	fs := flag.NewFlagSet("era5cart", flag.ContinueOnError)
	fs.StringVar(&f.config, "config", "", "path to a TOML run file; flags override its values")
	fs.StringVar(&f.logFile, "logfile", "", "write JSON logs to this rotated file instead of stdout")
	fs.StringVar(&f.logLevel, "loglevel", "info", "debug, info, warn or error")
	fs.StringVar(&c.File, "file", c.File, "path to an ERA5 or MERRA-2 pressure-level file in NetCDF format")
	fs.StringVar(&c.Source, "source", c.Source, "source preset: era5 or merra2")
	fs.StringVar(&c.Out, "out", c.Out, "output directory")
	fs.StringVar(&c.Format, "format", c.Format, fmt.Sprintf("output format, one of %v", export.Formats()))
	fs.StringVar(&c.Mode, "mode", c.Mode, "table layout: tall or wide")
	fs.StringVar(&c.Label, "label", c.Label, "wide column headers: pressure or height")
	fs.StringVar(&c.Coords, "coords", c.Coords, "csv coordinates: axes or points")
	fs.StringVar(&c.Spacing, "spacing", c.Spacing, "horizontal spacing: preset or haversine")
	fs.StringVar(&c.Vertical, "vertical", c.Vertical, "vertical wind transform: hydrostatic or none")
	fs.Float64Var(&c.REarth, "rEarth", c.REarth, "earth radius in metres")
	fs.BoolVar(&c.Compress, "compress", c.Compress, "zstd-compress csv files")
	fs.Var(&levels, "levels", "comma-separated pressure levels in hPa (default: all)")
	fs.Var(cornerFlag{&c.Point1}, "point1", "first bounding box corner as lat,lon")
	fs.Var(cornerFlag{&c.Point2}, "point2", "opposite bounding box corner as lat,lon")
	fs.Var(&deltas, "deltas", "explicit dx,dy in metres")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })

	c.Levels = levels
	c.Deltas = deltas
	return f, nil
}

// runConfig loads the run file, if any, and applies the flags set on the
// command line over it.
func (f *flags) runConfig() (config.Config, error) {
	if f.config == "" {
		return f.run, f.run.Validate()
	}
	c, err := config.Load(f.config)
	if err != nil {
		return config.Config{}, err
	}
	r := f.run
	overrides := map[string]func(){
		"file":     func() { c.File = r.File },
		"source":   func() { c.Source = r.Source },
		"out":      func() { c.Out = r.Out },
		"format":   func() { c.Format = r.Format },
		"mode":     func() { c.Mode = r.Mode },
		"label":    func() { c.Label = r.Label },
		"coords":   func() { c.Coords = r.Coords },
		"spacing":  func() { c.Spacing = r.Spacing },
		"vertical": func() { c.Vertical = r.Vertical },
		"rEarth":   func() { c.REarth = r.REarth },
		"compress": func() { c.Compress = r.Compress },
		"levels":   func() { c.Levels = r.Levels },
		"point1":   func() { c.Point1 = r.Point1 },
		"point2":   func() { c.Point2 = r.Point2 },
		"deltas":   func() { c.Deltas = r.Deltas },
	}
	for name := range f.set {
		if o := overrides[name]; o != nil {
			o()
		}
	}
	return c, c.Validate()
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		// The flag set has already printed the error and usage.
		os.Exit(2)
	}
	logger, logCloser, err := log.New(f.logLevel, f.logFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer logCloser.Close()

	c, err := f.runConfig()
	if err != nil {
		logger.Error("Invalid configuration", "err", err)
		logCloser.Close()
		os.Exit(1)
	}
	paths, err := convert(logger, c)
	if err != nil {
		logger.Error("Conversion failed", "err", err)
		logCloser.Close()
		os.Exit(1)
	}
	logger.Info("Conversion done", "files", paths)
}

// convert reads the bounding box from c.File, assembles the tables and
// writes them to c.Out.
func convert(logger *slog.Logger, c config.Config) ([]string, error) {
	src, err := c.SourcePreset()
	if err != nil {
		return nil, err
	}
	strategy, err := c.Strategy()
	if err != nil {
		return nil, err
	}
	vertical, err := c.VerticalTransform()
	if err != nil {
		return nil, err
	}

	p1, p2 := c.Points()
	s, err := era5.NewScanner(c.File, src, p1, p2, c.Levels)
	if err != nil {
		return nil, fmt.Errorf("could not create a %s scanner: %w", src.Name, err)
	}
	defer s.Close()
	logger.Info("Source summary", s.Summary()...)

	la, lo := s.Latitudes(), s.Longitudes()
	logger.Info("Bounding box",
		"north", la[0], "south", la[len(la)-1],
		"west", lo[0], "east", lo[len(lo)-1])

	nx, ny := s.Shape()
	dx, dy, err := c.GridDeltas(src, nx, ny)
	if err != nil {
		return nil, err
	}
	g, err := grid.Build(grid.Spec{
		NX: nx, NY: ny, DX: dx, DY: dy,
		Levels: s.Levels(),
		Times:  s.Timestamps(),
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Grid", "nx", g.NX(), "ny", g.NY(), "nz", g.NZ(), "nt", g.NT(), "dx", dx, "dy", dy)

	var in field.Input
	var scanned float64
	total := float64(g.NT())
	start := time.Now()
	for s.Scan() {
		rec := s.Record()
		in.U = append(in.U, rec.U)
		in.V = append(in.V, rec.V)
		in.W = append(in.W, rec.W)
		scanned++
		percent := fmt.Sprintf("%.2f%%", 100*scanned/total)
		duration := time.Since(start).Round(1 * time.Second)
		logger.Info("progress", "scanned", percent, "in", duration)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}

	out, err := field.Assemble(strategy, g, in, field.WithLogger(logger), field.WithVertical(vertical))
	if err != nil {
		return nil, err
	}
	return export.Write(c.Out, export.Result{Grid: g, Output: out, Layout: strategy.Name()}, c.ExportOptions())
}
