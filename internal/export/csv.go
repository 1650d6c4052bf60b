package export

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/errgroup"

	"github.com/rtm0/era5cart/internal/field"
)

// axesColumns names the padded per-axis coordinate columns.
var axesColumns = []string{"x", "y", "z", "t"}

// coordsTable returns the table written to coords.csv.
func coordsTable(r Result, layout string) (field.Table, error) {
	switch layout {
	case "", "axes":
		t := field.Table{Name: "coords"}
		for i, c := range r.Output.Axes.Columns {
			t.Columns = append(t.Columns, field.Column{Name: axesColumns[i], Values: c})
		}
		return t, nil
	case "points":
		return r.Output.Coords, nil
	default:
		return field.Table{}, fmt.Errorf("unknown coordinates layout %q, want axes or points", layout)
	}
}

func writeCSV(dir string, r Result, o Options) ([]string, error) {
	coords, err := coordsTable(r, o.Coords)
	if err != nil {
		return nil, err
	}
	tables := []field.Table{r.Output.U, r.Output.V, r.Output.W, coords}

	ext := ".csv"
	if o.Compress {
		ext += ".zst"
	}
	paths := make([]string, len(tables))
	var g errgroup.Group
	for i, t := range tables {
		paths[i] = filepath.Join(dir, t.Name+ext)
		g.Go(func() error {
			return writeTableFile(paths[i], t, o.Compress)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func writeTableFile(path string, t field.Table, compress bool) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	bw := bufio.NewWriter(f)
	defer func() {
		if ferr := bw.Flush(); err == nil {
			err = ferr
		}
	}()
	var w io.Writer = bw
	if compress {
		enc, zerr := zstd.NewWriter(bw)
		if zerr != nil {
			return zerr
		}
		defer func() {
			if cerr := enc.Close(); err == nil {
				err = cerr
			}
		}()
		w = enc
	}
	if err := EncodeCSV(w, t); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// EncodeCSV writes t as CSV with a header row of column names. Values are
// plain decimals, never exponent notation.
func EncodeCSV(w io.Writer, t field.Table) error {
	for _, c := range t.Columns {
		if len(c.Values) != t.Rows() {
			return fmt.Errorf("column %q has %d rows, want %d", c.Name, len(c.Values), t.Rows())
		}
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header()); err != nil {
		return err
	}
	rec := make([]string, len(t.Columns))
	for i := range t.Rows() {
		for j, c := range t.Columns {
			rec[j] = strconv.FormatFloat(c.Values[i], 'f', -1, 64)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
