// Package geo computes great-circle distances on a spherical earth and the
// horizontal grid spacing they imply.
package geo

import (
	"fmt"
	"math"
)

// EarthRadius is the default spherical earth radius in metres.
const EarthRadius = 6367470.0

// Point is a latitude/longitude pair in degrees. Longitudes may follow
// either the [0, 360] or the [-180, 180] convention as long as both
// points of a pair agree.
type Point struct {
	Lat, Lon float64
}

func (p Point) String() string {
	return fmt.Sprintf("(%g, %g)", p.Lat, p.Lon)
}

// Hav returns the haversine of an angle given in degrees.
func Hav(theta float64) float64 {
	s := math.Sin(theta * math.Pi / 360)
	return s * s
}

// GreatCircle returns the haversine distance between p1 and p2 in the units
// of rEarth.
func GreatCircle(p1, p2 Point, rEarth float64) float64 {
	lat1 := p1.Lat * math.Pi / 180
	lat2 := p2.Lat * math.Pi / 180
	h := Hav(p2.Lat-p1.Lat) + math.Cos(lat1)*math.Cos(lat2)*Hav(p2.Lon-p1.Lon)
	// Rounding can push h a hair past 1 for antipodal points.
	h = math.Min(h, 1)
	return 2 * rEarth * math.Asin(math.Sqrt(h))
}

// InvalidGridSizeError reports a grid dimension that is not positive.
type InvalidGridSizeError struct {
	Axis string
	N    int
}

func (e *InvalidGridSizeError) Error() string {
	return fmt.Sprintf("invalid grid size %d along %s: must be positive", e.N, e.Axis)
}

// CartDeltas returns the x (east) and y (north) spacing of an nLat by nLong
// grid spanning p1 to p2. Each distance is measured along one axis with the
// other coordinate held at zero, so dy follows a meridian and dx the equator.
func CartDeltas(p1, p2 Point, rEarth float64, nLat, nLong int) (dx, dy float64, err error) {
	if nLat <= 0 {
		return 0, 0, &InvalidGridSizeError{Axis: "latitude", N: nLat}
	}
	if nLong <= 0 {
		return 0, 0, &InvalidGridSizeError{Axis: "longitude", N: nLong}
	}
	gy := GreatCircle(Point{Lat: p1.Lat}, Point{Lat: p2.Lat}, rEarth)
	gx := GreatCircle(Point{Lon: p1.Lon}, Point{Lon: p2.Lon}, rEarth)
	return gx / float64(nLong), gy / float64(nLat), nil
}
