package growth

import (
	"math"

	"github.com/couchcryptid/farm-sim-service/internal/domain"
)

const (
	tempMargin     = 10.0 // °C outside the optimal range before the fit hits zero
	humidityMargin = 30.0 // % outside the optimal range before the fit hits zero
	tempWeight     = 0.6
	humidityWeight = 0.4
)

// StressFactor scores how well obs suits crop, in [0, 1] where 1 is optimal.
// Temperature fit weighs 0.6 and humidity fit 0.4; each fit is 1 inside the
// optimal range and decays linearly to 0 across its margin.
func StressFactor(obs domain.Observation, crop domain.CropProfile) float64 {
	return fit(obs.Temperature, crop.OptimalTemp, tempMargin)*tempWeight +
		fit(obs.Humidity, crop.OptimalHumidity, humidityMargin)*humidityWeight
}

func fit(v float64, r domain.Range, margin float64) float64 {
	switch {
	case v < r.Min:
		return math.Max(0, 1-(r.Min-v)/margin)
	case v > r.Max:
		return math.Max(0, 1-(v-r.Max)/margin)
	default:
		return 1
	}
}
