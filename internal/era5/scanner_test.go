package era5

import (
	"path/filepath"
	"testing"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtm0/era5cart/internal/field"
	"github.com/rtm0/era5cart/internal/geo"
)

// fieldValue encodes the storage position of a test value.
func fieldValue(q, t, k, j, i int) float32 {
	return float32(q*10000 + t*1000 + k*100 + j*10 + i)
}

// writeTestFile writes a small pressure-level file with two timesteps,
// three levels and a 5x5 horizontal grid.
func writeTestFile(t *testing.T, src Source, lats []float32) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), src.Name+".nc")
	cw, err := cdf.OpenWriter(path)
	require.NoError(t, err)

	lons := []float32{19, 20, 21, 22, 23}
	levels := []int32{1000, 850, 500}
	hours := []int32{1038000, 1038001}

	add := func(name string, values any, dims ...string) {
		require.NoError(t, cw.AddVar(name, api.Variable{Values: values, Dimensions: dims}))
	}
	add(src.Lat, lats, src.Lat)
	add(src.Lon, lons, src.Lon)
	add(src.Level, levels, src.Level)
	add(src.Time, hours, src.Time)

	for q, name := range src.variables() {
		data := make([][][][]float32, len(hours))
		for ti := range data {
			data[ti] = make([][][]float32, len(levels))
			for k := range levels {
				data[ti][k] = make([][]float32, len(lats))
				for j := range lats {
					data[ti][k][j] = make([]float32, len(lons))
					for i := range lons {
						data[ti][k][j][i] = fieldValue(q, ti, k, j, i)
					}
				}
			}
		}
		add(name, data, src.Time, src.Level, src.Lat, src.Lon)
	}
	require.NoError(t, cw.Close())
	return path
}

func TestScannerERA5(t *testing.T) {
	path := writeTestFile(t, ERA5, []float32{11, 10, 9, 8, 7})

	s, err := NewScanner(path, ERA5, geo.Point{Lat: 10, Lon: 20}, geo.Point{Lat: 8, Lon: 22}, []float64{500, 1000})
	require.NoError(t, err)
	defer s.Close()

	nx, ny := s.Shape()
	assert.Equal(t, 3, nx)
	assert.Equal(t, 3, ny)
	assert.Equal(t, []float64{10, 9, 8}, s.Latitudes())
	assert.Equal(t, []float64{20, 21, 22}, s.Longitudes())
	assert.Equal(t, []float64{500, 1000}, s.Levels())
	assert.Equal(t, []float64{1527811200, 1527814800}, s.Timestamps())
	assert.Equal(t, 2*2*3*3*3, s.TotalRecCount())
	assert.Len(t, s.Summary(), 16)

	var recs []*Record
	for s.Scan() {
		recs = append(recs, s.Record())
	}
	require.NoError(t, s.Err())
	require.Len(t, recs, 2)
	assert.Nil(t, s.Record())

	rec := recs[1]
	assert.Equal(t, 1527814800.0, rec.Timestamp)
	for q, levels := range [][]field.Slice{rec.U, rec.V, rec.W} {
		require.Len(t, levels, 2)
		for k, fileLevel := range []int{2, 0} {
			sl := levels[k]
			require.Equal(t, 3, sl.NX())
			require.Equal(t, 3, sl.NY())
			for x := range 3 {
				for y := range 3 {
					// Region starts at latitude index 1 and longitude index 1.
					want := float64(fieldValue(q, 1, fileLevel, y+1, x+1))
					assert.Equal(t, want, sl.At(x, y), "q=%d level=%d x=%d y=%d", q, k, x, y)
				}
			}
		}
	}
}

func TestScannerFlipsAscendingLatitudes(t *testing.T) {
	path := writeTestFile(t, MERRA2, []float32{7, 8, 9, 10, 11})

	s, err := NewScanner(path, MERRA2, geo.Point{Lat: 10, Lon: 20}, geo.Point{Lat: 8, Lon: 21}, nil)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, []float64{10, 9, 8}, s.Latitudes())
	assert.Equal(t, []float64{1000, 850, 500}, s.Levels())

	require.True(t, s.Scan())
	rec := s.Record()
	sl := rec.U[0]
	assert.Equal(t, 2, sl.NX())
	// Latitude 10 is stored at index 3 but comes out as the first row.
	assert.Equal(t, float64(fieldValue(0, 0, 0, 3, 1)), sl.At(0, 0))
	assert.Equal(t, float64(fieldValue(0, 0, 0, 1, 2)), sl.At(1, 2))
}

func TestScannerErrors(t *testing.T) {
	path := writeTestFile(t, ERA5, []float32{11, 10, 9, 8, 7})

	_, err := NewScanner(path, ERA5, geo.Point{Lat: 50, Lon: 20}, geo.Point{Lat: 60, Lon: 22}, nil)
	assert.ErrorContains(t, err, "no coordinates")

	_, err = NewScanner(path, ERA5, geo.Point{Lat: 10, Lon: 20}, geo.Point{Lat: 8, Lon: 22}, []float64{700})
	assert.ErrorContains(t, err, "700")

	_, err = NewScanner(path, MERRA2, geo.Point{Lat: 10, Lon: 20}, geo.Point{Lat: 8, Lon: 22}, nil)
	assert.Error(t, err)

	_, err = NewScanner(filepath.Join(t.TempDir(), "missing.nc"), ERA5, geo.Point{}, geo.Point{}, nil)
	assert.Error(t, err)
}

func TestSourceByName(t *testing.T) {
	s, err := SourceByName("MERRA2")
	require.NoError(t, err)
	assert.Equal(t, "OMEGA", s.W)

	_, err = SourceByName("gfs")
	assert.ErrorContains(t, err, "era5")
}

func widen(v ...float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

func TestSpan(t *testing.T) {
	testCases := []struct {
		name   string
		coords []float64
		a, b   float64
		want   [2]int
		err    bool
	}{
		{"descending", []float64{11, 10, 9, 8, 7}, 10, 8, [2]int{1, 4}, false},
		{"ascending reversed bounds", []float64{7, 8, 9, 10}, 10, 8, [2]int{1, 4}, false},
		{"single point", []float64{0, 0.25, 0.5}, 0.25, 0.25, [2]int{1, 2}, false},
		{"empty", []float64{1, 2}, 5, 6, [2]int{}, true},
		{"gap", []float64{1, 5, 2}, 1, 2, [2]int{}, true},
		{"widened float32 edges", widen(10.3, 10.2, 10.1, 10.0), 10.1, 10.3, [2]int{0, 3}, false},
		{"near miss", []float64{10.3, 10.2, 10.1, 10.0}, 10.11, 10.19, [2]int{}, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := span(tc.coords, tc.a, tc.b)
			if tc.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestTimeUnits(t *testing.T) {
	testCases := []struct {
		units        string
		scale, epoch float64
	}{
		{"", 3600, unixSecs1900},
		{"hours since 1900-01-01 00:00:00.0", 3600, unixSecs1900},
		{"seconds since 1970-01-01", 1, 0},
		{"minutes since 2018-06-01 00:00:00", 60, 1527811200},
		{"days since 1970-01-02T00:00:00Z", 86400, 86400},
	}
	for _, tc := range testCases {
		scale, epoch, err := timeUnits(tc.units)
		require.NoError(t, err, tc.units)
		assert.Equal(t, tc.scale, scale, tc.units)
		assert.Equal(t, tc.epoch, epoch, tc.units)
	}

	for _, bad := range []string{"hours", "fortnights since 1970-01-01", "hours since yesterday"} {
		_, _, err := timeUnits(bad)
		assert.Error(t, err, bad)
	}
}

// attrs is a minimal api.AttributeMap.
type attrs map[string]any

func (a attrs) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	return keys
}

func (a attrs) Get(key string) (any, bool) {
	v, ok := a[key]
	return v, ok
}

func (a attrs) GetType(key string) (string, bool)   { return "", false }
func (a attrs) GetGoType(key string) (string, bool) { return "", false }

func TestPacking(t *testing.T) {
	p := packingOf(attrs{
		"scale_factor":  float64(0.5),
		"add_offset":    float32(10),
		"_FillValue":    int16(-32767),
		"missing_value": []float64{-9999},
	})
	v, ok := p.unpack(4)
	assert.True(t, ok)
	assert.Equal(t, 12.0, v)

	_, ok = p.unpack(-32767)
	assert.False(t, ok)
	_, ok = p.unpack(-9999)
	assert.False(t, ok)

	plain := packingOf(nil)
	v, ok = plain.unpack(3.25)
	assert.True(t, ok)
	assert.Equal(t, 3.25, v)
}

func TestConvertErrors(t *testing.T) {
	_, err := toFloat64s([]string{"a"})
	assert.Error(t, err)
	_, err = levelGrid([][]float32{{1}}, []int{0}, [2]int{0, 1}, [2]int{0, 1})
	assert.Error(t, err)
}

func TestLevelGridSubset(t *testing.T) {
	// Two levels of a 3x4 plane; value 100·k + 10·j + i.
	in := make([][][][]int16, 1)
	in[0] = make([][][]int16, 2)
	for k := range 2 {
		in[0][k] = make([][]int16, 3)
		for j := range 3 {
			in[0][k][j] = make([]int16, 4)
			for i := range 4 {
				in[0][k][j][i] = int16(100*k + 10*j + i)
			}
		}
	}

	got, err := levelGrid(in, []int{1}, [2]int{1, 3}, [2]int{2, 4})
	require.NoError(t, err)
	assert.Equal(t, [][][]float64{{{112, 113}, {122, 123}}}, got)

	_, err = levelGrid(in, []int{2}, [2]int{0, 1}, [2]int{0, 1})
	assert.ErrorContains(t, err, "out of range")
	_, err = levelGrid(in, []int{0}, [2]int{0, 4}, [2]int{0, 1})
	assert.ErrorContains(t, err, "latitude")
	_, err = levelGrid(in, []int{0}, [2]int{0, 1}, [2]int{0, 5})
	assert.ErrorContains(t, err, "longitudes")
}
