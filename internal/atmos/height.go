// Package atmos converts isobaric pressure levels to geometric altitude using
// the International Standard Atmosphere.
package atmos

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats/scalar"
)

// Physical constants used by the barometric formula.
const (
	Gravity   = 9.8067 // m/s²
	GasConst  = 8.3145 // J/(mol·K)
	MolarMass = 0.0290 // kg/mol
)

// BaseTolerance is the absolute distance in hPa within which a pressure is
// treated as equal to a layer base pressure. Matching pressures return the
// tabulated base height without evaluating the formula.
const BaseTolerance = 1e-6

// layer describes one piece of the piecewise standard atmosphere.
type layer struct {
	pressure    float64 // hPa at the base of the layer
	height      float64 // m
	temperature float64 // K
	lapse       float64 // K/m
}

var layers = [...]layer{
	{1013.25, 0, 288.15, -0.0065},
	{226.321, 11000, 216.65, 0},
	{54.7489, 20000, 216.65, 0.001},
	{8.68019, 32000, 228.65, 0.0028},
	{1.10906, 47000, 270.65, 0},
	{0.66939, 51000, 270.65, -0.0028},
	{0.03956, 71000, 214.65, -0.002},
}

// basePressures returns the layer base pressures in hPa, highest first.
func basePressures() []float64 {
	p := make([]float64, len(layers))
	for i, l := range layers {
		p[i] = l.pressure
	}
	return p
}

// baseHeights returns the layer base heights in km, matching basePressures.
func baseHeights() []float64 {
	h := make([]float64, len(layers))
	for i, l := range layers {
		h[i] = l.height / 1000
	}
	return h
}

// OutOfRangeError is returned for pressures the layer table cannot place.
type OutOfRangeError struct {
	Pressure float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("pressure %g hPa is outside the standard atmosphere (0, %g]", e.Pressure, layers[0].pressure)
}

// findLayer returns the index of the layer containing pressure and whether
// pressure sits on that layer's base.
func findLayer(pressure float64) (int, bool, error) {
	if math.IsNaN(pressure) || pressure <= 0 {
		return 0, false, &OutOfRangeError{Pressure: pressure}
	}
	for b, l := range layers {
		if scalar.EqualWithinAbs(pressure, l.pressure, BaseTolerance) {
			return b, true, nil
		}
	}
	last := len(layers) - 1
	for b := 0; b < last; b++ {
		if pressure < layers[b].pressure && pressure > layers[b+1].pressure {
			return b, false, nil
		}
	}
	if pressure < layers[last].pressure {
		return last, false, nil
	}
	return 0, false, &OutOfRangeError{Pressure: pressure}
}

// Height returns the altitude in km of the given isobaric pressure in hPa.
func Height(pressure float64) (float64, error) {
	b, onBase, err := findLayer(pressure)
	if err != nil {
		return 0, err
	}
	l := layers[b]
	if onBase {
		return l.height / 1000, nil
	}

	var h float64
	if l.lapse != 0 {
		exponent := GasConst * l.lapse / (Gravity * MolarMass)
		denom := math.Pow(pressure/l.pressure, exponent)
		h = l.height + (l.temperature/denom-l.temperature)/l.lapse
	} else {
		scale := GasConst * l.temperature / (-Gravity * MolarMass)
		h = l.height + scale*math.Log(pressure/l.pressure)
	}
	return h / 1000, nil
}

// Temperature returns the standard atmosphere temperature in K at the given
// pressure in hPa.
func Temperature(pressure float64) (float64, error) {
	b, _, err := findLayer(pressure)
	if err != nil {
		return 0, err
	}
	h, err := Height(pressure)
	if err != nil {
		return 0, err
	}
	l := layers[b]
	return l.temperature + l.lapse*(h*1000-l.height), nil
}
