package growth

import (
	"fmt"

	"github.com/couchcryptid/farm-sim-service/internal/domain"
)

// Params are the stochastic knobs shared by every field.
type Params struct {
	PestProbability        float64 `yaml:"pestProbability"`
	DiseaseProbability     float64 `yaml:"diseaseProbability"`
	RandomVariation        float64 `yaml:"randomVariation"`    // ± fraction applied to expected yield
	HarvestProbability     float64 `yaml:"harvestProbability"` // daily chance a ready field is harvested
	HumidDiseaseThreshold  float64 `yaml:"humidDiseaseThreshold"`
	HumidDiseaseMultiplier float64 `yaml:"humidDiseaseMultiplier"`
}

// Config is the crop catalog, the field catalog, and the simulation parameters.
type Config struct {
	Crops  []domain.CropProfile     `yaml:"crops"`
	Fields []domain.FieldDefinition `yaml:"fields"`
	Params Params                   `yaml:"params"`
}

// DefaultParams returns the parameters used when nothing is overridden.
func DefaultParams() Params {
	return Params{
		PestProbability:        0.15,
		DiseaseProbability:     0.1,
		RandomVariation:        0.1,
		HarvestProbability:     0.8,
		HumidDiseaseThreshold:  80,
		HumidDiseaseMultiplier: 1.5,
	}
}

// DefaultCrops returns the three-crop Mediterranean catalog.
func DefaultCrops() []domain.CropProfile {
	return []domain.CropProfile{
		{
			Name:            "Pomodori",
			GrowthDays:      80,
			OptimalTemp:     domain.Range{Min: 20, Max: 32},
			OptimalHumidity: domain.Range{Min: 60, Max: 90},
			WaterNeeds:      600,
			YieldPerHectare: 35,
			PricePerTon:     450,
			CostPerHectare:  3500,
		},
		{
			Name:            "Olivo",
			GrowthDays:      210,
			OptimalTemp:     domain.Range{Min: 10, Max: 35},
			OptimalHumidity: domain.Range{Min: 40, Max: 70},
			WaterNeeds:      450,
			YieldPerHectare: 4.5,
			PricePerTon:     1200,
			CostPerHectare:  3500,
		},
		{
			Name:            "Vite",
			GrowthDays:      180,
			OptimalTemp:     domain.Range{Min: 12, Max: 28},
			OptimalHumidity: domain.Range{Min: 40, Max: 70},
			WaterNeeds:      300,
			YieldPerHectare: 12,
			PricePerTon:     800,
			CostPerHectare:  4500,
		},
	}
}

// DefaultFields returns one field per default crop.
func DefaultFields() []domain.FieldDefinition {
	return []domain.FieldDefinition{
		{ID: 1, Name: "Campo 1", Size: 5, CropIndex: 0},
		{ID: 2, Name: "Campo 2", Size: 8, CropIndex: 1},
		{ID: 3, Name: "Campo 3", Size: 12, CropIndex: 2},
	}
}

// DefaultConfig returns the default catalogs and parameters.
func DefaultConfig() Config {
	return Config{
		Crops:  DefaultCrops(),
		Fields: DefaultFields(),
		Params: DefaultParams(),
	}
}

// Validate checks the catalogs and parameters. Nothing is constructed until
// this passes, so a rejected config never leaves partial state behind.
func (c Config) Validate() error {
	if len(c.Crops) == 0 {
		return fmt.Errorf("%w: crop catalog is empty", domain.ErrInvalidArgument)
	}
	for i, crop := range c.Crops {
		if err := validateCrop(crop); err != nil {
			return fmt.Errorf("crop %d (%s): %w", i, crop.Name, err)
		}
	}

	if len(c.Fields) == 0 {
		return fmt.Errorf("%w: field catalog is empty", domain.ErrInvalidArgument)
	}
	seen := make(map[int]struct{}, len(c.Fields))
	for _, f := range c.Fields {
		if _, dup := seen[f.ID]; dup {
			return fmt.Errorf("%w: duplicate field id %d", domain.ErrInvalidArgument, f.ID)
		}
		seen[f.ID] = struct{}{}
		if f.Size <= 0 {
			return fmt.Errorf("%w: field %d area must be positive, got %g", domain.ErrInvalidArgument, f.ID, f.Size)
		}
		if f.CropIndex < 0 || f.CropIndex >= len(c.Crops) {
			return fmt.Errorf("%w: field %d references unknown crop index %d", domain.ErrInvalidArgument, f.ID, f.CropIndex)
		}
	}

	return c.Params.validate()
}

func validateCrop(c domain.CropProfile) error {
	switch {
	case c.GrowthDays < 1:
		return fmt.Errorf("%w: growthDays must be at least 1", domain.ErrInvalidArgument)
	case c.OptimalTemp.Min > c.OptimalTemp.Max:
		return fmt.Errorf("%w: optimal temperature range is inverted", domain.ErrInvalidArgument)
	case c.OptimalHumidity.Min > c.OptimalHumidity.Max:
		return fmt.Errorf("%w: optimal humidity range is inverted", domain.ErrInvalidArgument)
	case c.WaterNeeds <= 0:
		return fmt.Errorf("%w: waterNeeds must be positive", domain.ErrInvalidArgument)
	case c.YieldPerHectare <= 0:
		return fmt.Errorf("%w: yieldPerHectare must be positive", domain.ErrInvalidArgument)
	case c.PricePerTon < 0 || c.CostPerHectare < 0:
		return fmt.Errorf("%w: prices and costs must not be negative", domain.ErrInvalidArgument)
	}
	return nil
}

func (p Params) validate() error {
	probs := []struct {
		name string
		v    float64
	}{
		{"pest probability", p.PestProbability},
		{"disease probability", p.DiseaseProbability},
		{"harvest probability", p.HarvestProbability},
		{"random variation", p.RandomVariation},
	}
	for _, pr := range probs {
		if pr.v < 0 || pr.v > 1 {
			return fmt.Errorf("%w: %s %g outside [0, 1]", domain.ErrInvalidArgument, pr.name, pr.v)
		}
	}
	if p.HumidDiseaseMultiplier < 0 {
		return fmt.Errorf("%w: humid disease multiplier must not be negative", domain.ErrInvalidArgument)
	}
	return nil
}
