package atmos

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Reanalysis products ship a few dozen pressure levels at most.
const cacheSize = 256

var heights *lru.Cache[float64, float64]

func init() {
	var err error
	if heights, err = lru.New[float64, float64](cacheSize); err != nil {
		panic(err)
	}
}

// CachedHeight is Height memoized process-wide. Failed lookups are not
// cached.
func CachedHeight(pressure float64) (float64, error) {
	if h, ok := heights.Get(pressure); ok {
		return h, nil
	}
	h, err := Height(pressure)
	if err != nil {
		return 0, err
	}
	heights.Add(pressure, h)
	return h, nil
}
