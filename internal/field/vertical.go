package field

import "github.com/rtm0/era5cart/internal/atmos"

// DryAirGasConst is the specific gas constant of dry air in J/(kg·K).
const DryAirGasConst = 287.05

// OmegaToW converts vertical motion omega (Pa/s, positive downward) into
// vertical velocity w (m/s, positive upward) with the hydrostatic
// approximation w = -ω/(ρg), taking the air density from the standard
// atmosphere at the level. Pressures outside the standard atmosphere return
// *atmos.OutOfRangeError.
func OmegaToW(omega, pressure float64) (float64, error) {
	t, err := atmos.Temperature(pressure)
	if err != nil {
		return 0, err
	}
	rho := pressure * 100 / (DryAirGasConst * t)
	return -omega / (rho * atmos.Gravity), nil
}
