package era5

import "github.com/rtm0/era5cart/internal/field"

// Record is the wind field of the scanned region at a single timestep.
// U, V and W hold one slice per selected pressure level in level order.
type Record struct {
	// Dimensions
	Timestamp float64 // seconds since the Unix epoch
	Levels    []float64

	// Metrics
	U []field.Slice // eastward wind, m/s
	V []field.Slice // northward wind, m/s
	W []field.Slice // vertical motion (omega), Pa/s
}
