// Package export writes assembled tables for the transport solver.
package export

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/rtm0/era5cart/internal/field"
	"github.com/rtm0/era5cart/internal/grid"
)

// Result is one finished conversion.
type Result struct {
	Grid   *grid.Grid
	Output *field.Output
	Layout string // field.Strategy name
}

// Options control how a Result is written.
type Options struct {
	Format   string // "csv" (default) or "netcdf"
	Coords   string // csv only: "axes" (default) or "points"
	Compress bool   // csv only: zstd-compress every file
}

type writeFunc func(dir string, r Result, o Options) ([]string, error)

var writeFuncs = map[string]writeFunc{
	"":       writeCSV,
	"csv":    writeCSV,
	"netcdf": writeNetCDF,
	"nc":     writeNetCDF,
}

// Formats returns the accepted format names.
func Formats() []string {
	var names []string
	for name := range writeFuncs {
		if name != "" {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Write writes r into dir and returns the paths it created.
func Write(dir string, r Result, o Options) ([]string, error) {
	write := writeFuncs[strings.ToLower(o.Format)]
	if write == nil {
		return nil, fmt.Errorf("writing %q is not supported, want one of %v", o.Format, Formats())
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return write(dir, r, o)
}
