package weather

import (
	"fmt"
	"time"

	"github.com/couchcryptid/farm-sim-service/internal/domain"
)

// TemperatureConfig shapes the daily temperature distribution (°C).
type TemperatureConfig struct {
	Min      float64 `yaml:"min"`
	Max      float64 `yaml:"max"`
	Mean     float64 `yaml:"mean"`
	StdDev   float64 `yaml:"stdDev"`
	Seasonal bool    `yaml:"seasonal"`
}

// HumidityConfig shapes relative humidity (%). Correlation is applied per
// degree above the temperature mean; a negative value dries out hot days.
type HumidityConfig struct {
	Min         float64 `yaml:"min"`
	Max         float64 `yaml:"max"`
	Mean        float64 `yaml:"mean"`
	StdDev      float64 `yaml:"stdDev"`
	Correlation float64 `yaml:"correlation"`
}

// PrecipitationConfig shapes rainfall (mm).
type PrecipitationConfig struct {
	Probability float64 `yaml:"probability"`
	MeanAmount  float64 `yaml:"meanAmount"`
	MaxAmount   float64 `yaml:"maxAmount"`
	Seasonal    bool    `yaml:"seasonal"`
}

// Config holds every generator parameter. Start from DefaultConfig and
// override individual fields.
type Config struct {
	Temperature   TemperatureConfig   `yaml:"temperature"`
	Humidity      HumidityConfig      `yaml:"humidity"`
	Precipitation PrecipitationConfig `yaml:"precipitation"`
	StartDate     time.Time           `yaml:"-"`
	TimeStep      domain.TimeStep     `yaml:"-"`
}

// DefaultConfig returns a temperate Mediterranean climate starting on 2023-01-01.
func DefaultConfig() Config {
	return Config{
		Temperature: TemperatureConfig{
			Min:      -5,
			Max:      40,
			Mean:     18,
			StdDev:   8,
			Seasonal: true,
		},
		Humidity: HumidityConfig{
			Min:         20,
			Max:         100,
			Mean:        65,
			StdDev:      15,
			Correlation: -0.7,
		},
		Precipitation: PrecipitationConfig{
			Probability: 0.3,
			MeanAmount:  5,
			MaxAmount:   50,
			Seasonal:    true,
		},
		StartDate: time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC),
		TimeStep:  domain.StepDay,
	}
}

// Validate rejects configurations the sampler cannot honor.
func (c Config) Validate() error {
	switch {
	case c.Temperature.Min > c.Temperature.Max:
		return fmt.Errorf("%w: temperature min %g > max %g", domain.ErrInvalidArgument, c.Temperature.Min, c.Temperature.Max)
	case c.Temperature.StdDev < 0:
		return fmt.Errorf("%w: temperature stdDev must not be negative", domain.ErrInvalidArgument)
	case c.Humidity.Min > c.Humidity.Max:
		return fmt.Errorf("%w: humidity min %g > max %g", domain.ErrInvalidArgument, c.Humidity.Min, c.Humidity.Max)
	case c.Humidity.Min < 0 || c.Humidity.Max > 100:
		return fmt.Errorf("%w: humidity bounds must lie within [0, 100]", domain.ErrInvalidArgument)
	case c.Humidity.StdDev < 0:
		return fmt.Errorf("%w: humidity stdDev must not be negative", domain.ErrInvalidArgument)
	case c.Precipitation.Probability < 0 || c.Precipitation.Probability > 1:
		return fmt.Errorf("%w: rain probability %g outside [0, 1]", domain.ErrInvalidArgument, c.Precipitation.Probability)
	case c.Precipitation.MeanAmount < 0 || c.Precipitation.MaxAmount < 0:
		return fmt.Errorf("%w: rain amounts must not be negative", domain.ErrInvalidArgument)
	case c.StartDate.IsZero():
		return fmt.Errorf("%w: start date is required", domain.ErrInvalidArgument)
	}
	if _, err := domain.ParseTimeStep(string(c.TimeStep)); err != nil {
		return err
	}
	return nil
}
