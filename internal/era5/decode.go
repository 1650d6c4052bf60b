package era5

import (
	"fmt"
	"strings"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
)

// toFloat64s converts a 1-D netCDF value slice to float64.
func toFloat64s(v any) ([]float64, error) {
	switch v := v.(type) {
	case []float64:
		return v, nil
	case []float32:
		return convert(v), nil
	case []int32:
		return convert(v), nil
	case []int64:
		return convert(v), nil
	case []int16:
		return convert(v), nil
	default:
		return nil, fmt.Errorf("unsupported 1-D value type %T", v)
	}
}

func convert[T int16 | int32 | int64 | float32](in []T) []float64 {
	out := make([]float64, len(in))
	for i, x := range in {
		out[i] = float64(x)
	}
	return out
}

// levelGrid takes the selected levels and the [begin, end) latitude and
// longitude ranges out of one timestep of a (level, lat, lon) variable and
// converts only that region to float64.
func levelGrid(v any, levIdx []int, la, lo [2]int) ([][][]float64, error) {
	switch v := v.(type) {
	case [][][][]float64:
		return subset(v[0], levIdx, la, lo)
	case [][][][]float32:
		return subset(v[0], levIdx, la, lo)
	case [][][][]int16:
		return subset(v[0], levIdx, la, lo)
	case [][][][]int32:
		return subset(v[0], levIdx, la, lo)
	default:
		return nil, fmt.Errorf("unsupported 4-D value type %T", v)
	}
}

func subset[T int16 | int32 | float32 | float64](in [][][]T, levIdx []int, la, lo [2]int) ([][][]float64, error) {
	out := make([][][]float64, len(levIdx))
	for k, li := range levIdx {
		if li >= len(in) {
			return nil, fmt.Errorf("level index %d out of range %d", li, len(in))
		}
		plane := in[li]
		if la[1] > len(plane) {
			return nil, fmt.Errorf("level index %d: %d latitude rows, want at least %d", li, len(plane), la[1])
		}
		rows := make([][]float64, 0, la[1]-la[0])
		for j := la[0]; j < la[1]; j++ {
			if lo[1] > len(plane[j]) {
				return nil, fmt.Errorf("level index %d: %d longitudes, want at least %d", li, len(plane[j]), lo[1])
			}
			row := make([]float64, lo[1]-lo[0])
			for i := range row {
				row[i] = float64(plane[j][lo[0]+i])
			}
			rows = append(rows, row)
		}
		out[k] = rows
	}
	return out, nil
}

// attrFloat returns a numeric attribute as float64.
func attrFloat(attrs api.AttributeMap, key string) (float64, bool) {
	if attrs == nil {
		return 0, false
	}
	v, ok := attrs.Get(key)
	if !ok {
		return 0, false
	}
	switch v := v.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case []float64:
		if len(v) > 0 {
			return v[0], true
		}
	case []float32:
		if len(v) > 0 {
			return float64(v[0]), true
		}
	case []int16:
		if len(v) > 0 {
			return float64(v[0]), true
		}
	}
	return 0, false
}

// packing describes CF packed storage and missing-value markers of a
// variable.
type packing struct {
	scale, offset float64
	missing       []float64
}

func packingOf(attrs api.AttributeMap) packing {
	p := packing{scale: 1}
	if v, ok := attrFloat(attrs, "scale_factor"); ok {
		p.scale = v
	}
	if v, ok := attrFloat(attrs, "add_offset"); ok {
		p.offset = v
	}
	for _, name := range []string{"_FillValue", "missing_value"} {
		if v, ok := attrFloat(attrs, name); ok {
			p.missing = append(p.missing, v)
		}
	}
	return p
}

// unpack returns the physical value of raw, or false if raw marks a
// missing value.
func (p packing) unpack(raw float64) (float64, bool) {
	for _, m := range p.missing {
		if raw == m {
			return 0, false
		}
	}
	return raw*p.scale + p.offset, true
}

// TZ=UTC date --date="1900-01-01 00:00:00" +%s
const unixSecs1900 = -2208988800

var epochLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.0",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04",
	"2006-01-02",
}

var unitDurations = map[string]float64{
	"seconds": 1,
	"minutes": 60,
	"hours":   3600,
	"days":    86400,
}

// timeUnits parses CF time units such as "hours since 1900-01-01 00:00:00.0"
// into a multiplier to seconds and the epoch in Unix seconds. Empty units
// default to hours since 1900, the ERA5 convention.
func timeUnits(units string) (scale, epoch float64, err error) {
	if units == "" {
		return 3600, unixSecs1900, nil
	}
	unit, since, ok := strings.Cut(units, " since ")
	if !ok {
		return 0, 0, fmt.Errorf("time units %q lack a reference date", units)
	}
	scale, ok = unitDurations[strings.ToLower(strings.TrimSpace(unit))]
	if !ok {
		return 0, 0, fmt.Errorf("unsupported time unit %q", unit)
	}
	since = strings.TrimSpace(since)
	for _, layout := range epochLayouts {
		if t, err := time.ParseInLocation(layout, since, time.UTC); err == nil {
			return scale, float64(t.Unix()), nil
		}
	}
	return 0, 0, fmt.Errorf("unsupported reference date %q", since)
}

func attrString(attrs api.AttributeMap, key string) string {
	if attrs == nil {
		return ""
	}
	if v, ok := attrs.Get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
