// Package era5 reads pressure-level wind fields from ERA5 and MERRA-2 netCDF
// files, one timestep at a time.
package era5

import (
	"fmt"
	"math"
	"slices"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/rtm0/era5cart/internal/field"
	"github.com/rtm0/era5cart/internal/geo"
)

// levelTolerance is how close, in hPa, a requested level must be to a level
// stored in the file.
const levelTolerance = 1e-3

// coordTolerance is the slack, in degrees, allowed at the bounding box edges
// for coordinates stored as float32.
const coordTolerance = 1e-4

// Scanner retrieves the wind field of a bounding box one timestamp at a time.
type Scanner struct {
	nc  api.Group
	src Source

	la, lo     []float64 // coordinates of the selected region
	laRange    [2]int    // [begin, end) latitude indices
	loRange    [2]int    // [begin, end) longitude indices
	southFirst bool      // file stores latitudes ascending
	levIdx     []int
	levels     []float64
	ts         []float64

	vars    [3]api.VarGetter
	packing [3]packing

	pos int
	rec *Record
	err error
}

// NewScanner opens filePath and selects the points between p1 and p2
// (inclusive) on the given pressure levels. An empty levels selects every
// level in the file in file order.
func NewScanner(filePath string, src Source, p1, p2 geo.Point, levels []float64) (*Scanner, error) {
	nc, err := netcdf.Open(filePath)
	if err != nil {
		return nil, err
	}
	s, err := newScanner(nc, src, p1, p2, levels)
	if err != nil {
		nc.Close()
		return nil, err
	}
	return s, nil
}

func newScanner(nc api.Group, src Source, p1, p2 geo.Point, levels []float64) (*Scanner, error) {
	s := &Scanner{nc: nc, src: src}

	la, err := dimValues(nc, src.Lat)
	if err != nil {
		return nil, err
	}
	lo, err := dimValues(nc, src.Lon)
	if err != nil {
		return nil, err
	}
	if s.laRange, err = span(la, p1.Lat, p2.Lat); err != nil {
		return nil, fmt.Errorf("%s: %w", src.Lat, err)
	}
	if s.loRange, err = span(lo, p1.Lon, p2.Lon); err != nil {
		return nil, fmt.Errorf("%s: %w", src.Lon, err)
	}
	s.la = slices.Clone(la[s.laRange[0]:s.laRange[1]])
	s.lo = slices.Clone(lo[s.loRange[0]:s.loRange[1]])
	if len(s.la) > 1 && s.la[0] < s.la[len(s.la)-1] {
		// Rows are handed out north to south regardless of storage order.
		s.southFirst = true
		slices.Reverse(s.la)
	}

	fileLevels, err := dimValues(nc, src.Level)
	if err != nil {
		return nil, err
	}
	if s.levIdx, err = selectLevels(fileLevels, levels); err != nil {
		return nil, err
	}
	for _, i := range s.levIdx {
		s.levels = append(s.levels, fileLevels[i])
	}

	if s.ts, err = timestamps(nc, src.Time); err != nil {
		return nil, err
	}

	for i, name := range src.variables() {
		vg, err := nc.GetVarGetter(name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if dims := vg.Dimensions(); len(dims) != 4 {
			return nil, fmt.Errorf("%s: want (time, level, lat, lon) dimensions, got %v", name, dims)
		}
		s.vars[i] = vg
		s.packing[i] = packingOf(vg.Attributes())
	}
	return s, nil
}

func dimValues(nc api.Group, dimName string) ([]float64, error) {
	dim, err := nc.GetVarGetter(dimName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dimName, err)
	}
	v, err := dim.Values()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dimName, err)
	}
	return toFloat64s(v)
}

// span returns the contiguous [begin, end) index range of coords that lies
// between a and b inclusive, within coordTolerance.
func span(coords []float64, a, b float64) ([2]int, error) {
	lo, hi := math.Min(a, b), math.Max(a, b)
	r := [2]int{-1, -1}
	for i, c := range coords {
		if c < lo-coordTolerance || c > hi+coordTolerance {
			if r[0] >= 0 && r[1] < 0 {
				r[1] = i
			}
			continue
		}
		if r[0] < 0 {
			r[0] = i
		} else if r[1] >= 0 {
			return r, fmt.Errorf("coordinates between %g and %g are not contiguous", lo, hi)
		}
	}
	if r[0] < 0 {
		return r, fmt.Errorf("no coordinates between %g and %g", lo, hi)
	}
	if r[1] < 0 {
		r[1] = len(coords)
	}
	return r, nil
}

func selectLevels(fileLevels, want []float64) ([]int, error) {
	if len(want) == 0 {
		idx := make([]int, len(fileLevels))
		for i := range idx {
			idx[i] = i
		}
		return idx, nil
	}
	idx := make([]int, len(want))
	for k, p := range want {
		i := slices.IndexFunc(fileLevels, func(l float64) bool {
			return scalar.EqualWithinAbs(l, p, levelTolerance)
		})
		if i < 0 {
			return nil, fmt.Errorf("pressure level %g hPa not found in file levels %v", p, fileLevels)
		}
		idx[k] = i
	}
	return idx, nil
}

func timestamps(nc api.Group, name string) ([]float64, error) {
	vg, err := nc.GetVarGetter(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	v, err := vg.Values()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	raw, err := toFloat64s(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	scale, epoch, err := timeUnits(attrString(vg.Attributes(), "units"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	ts := make([]float64, len(raw))
	for i, t := range raw {
		ts[i] = t*scale + epoch
	}
	return ts, nil
}

// Close closes the scanner.
func (s *Scanner) Close() {
	s.nc.Close()
}

// Summary returns the summary information about the selection suitable for
// logging.
func (s *Scanner) Summary() []any {
	return []any{
		"source", s.src.Name,
		"dims", []string{"ts", "lev", "la", "lo"},
		"metrics", s.src.variables(),
		"tsCnt", len(s.ts),
		"levCnt", len(s.levels),
		"laCnt", len(s.la),
		"loCnt", len(s.lo),
		"totalRecCnt", s.TotalRecCount(),
	}
}

// TotalRecCount returns the number of values the scanner will produce.
func (s *Scanner) TotalRecCount() int {
	return len(s.ts) * len(s.levels) * len(s.la) * len(s.lo) * len(s.vars)
}

// Shape returns the number of selected longitudes and latitudes.
func (s *Scanner) Shape() (nx, ny int) {
	return len(s.lo), len(s.la)
}

// Latitudes returns the selected latitudes, north first.
func (s *Scanner) Latitudes() []float64 { return slices.Clone(s.la) }

// Longitudes returns the selected longitudes.
func (s *Scanner) Longitudes() []float64 { return slices.Clone(s.lo) }

// Levels returns the selected pressure levels in hPa.
func (s *Scanner) Levels() []float64 { return slices.Clone(s.levels) }

// Timestamps returns the time of every record in Unix seconds.
func (s *Scanner) Timestamps() []float64 { return slices.Clone(s.ts) }

// Scan reads all wind fields for the next timestamp.
func (s *Scanner) Scan() bool {
	if s.err != nil || s.pos >= len(s.ts) {
		return false
	}
	rec := &Record{Timestamp: s.ts[s.pos], Levels: s.Levels()}
	dst := []*[]field.Slice{&rec.U, &rec.V, &rec.W}
	for i, vg := range s.vars {
		levels, err := s.scan(vg, s.packing[i])
		if err != nil {
			s.err = fmt.Errorf("%s at time index %d: %w", s.src.variables()[i], s.pos, err)
			return false
		}
		*dst[i] = levels
	}
	s.rec = rec
	s.pos++
	return true
}

func (s *Scanner) scan(vg api.VarGetter, p packing) ([]field.Slice, error) {
	begin := int64(s.pos)
	limit := begin + 1
	v, err := vg.GetSlice(begin, limit)
	if err != nil {
		return nil, err
	}
	data, err := levelGrid(v, s.levIdx, s.laRange, s.loRange)
	if err != nil {
		return nil, err
	}

	out := make([]field.Slice, len(data))
	for k, rows := range data {
		for j, row := range rows {
			for i, raw := range row {
				val, ok := p.unpack(raw)
				if !ok {
					return nil, fmt.Errorf("level %g: missing value at latitude index %d, longitude index %d",
						s.levels[k], s.laRange[0]+j, s.loRange[0]+i)
				}
				row[i] = val
			}
		}
		if s.southFirst {
			slices.Reverse(rows)
		}
		if out[k], err = field.SliceFromRows(rows); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Record returns the record read by the last Scan() operation. The function
// transfers ownership of the record to the caller and subsequent calls
// without prior invocation of Scan() return nil.
func (s *Scanner) Record() *Record {
	rec := s.rec
	s.rec = nil
	return rec
}

// Err returns the error that stopped Scan, if any.
func (s *Scanner) Err() error {
	return s.err
}
