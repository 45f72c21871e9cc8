package domain

import "time"

// Status is a field's lifecycle state within one crop cycle.
type Status string

const (
	StatusUnplanted      Status = "non piantato"
	StatusGrowing        Status = "in crescita"
	StatusReadyToHarvest Status = "pronto per il raccolto"
	StatusHarvested      Status = "raccolto"
)

// Valid reports whether s is one of the four lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusUnplanted, StatusGrowing, StatusReadyToHarvest, StatusHarvested:
		return true
	}
	return false
}

// Range is an inclusive [Min, Max] interval.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// CropProfile is static reference data for one crop.
type CropProfile struct {
	Name            string  `json:"name" yaml:"name"`
	GrowthDays      int     `json:"growthDays" yaml:"growthDays"`
	OptimalTemp     Range   `json:"optimalTemp" yaml:"optimalTemp"`
	OptimalHumidity Range   `json:"optimalHumidity" yaml:"optimalHumidity"`
	WaterNeeds      float64 `json:"waterNeeds" yaml:"waterNeeds"`           // mm per season
	YieldPerHectare float64 `json:"yieldPerHectare" yaml:"yieldPerHectare"` // t/ha at full health
	PricePerTon     float64 `json:"pricePerTon" yaml:"pricePerTon"`
	CostPerHectare  float64 `json:"costPerHectare" yaml:"costPerHectare"`
}

// FieldDefinition is one catalog entry: a physical field and the crop planted on it.
type FieldDefinition struct {
	ID        int     `json:"id" yaml:"id"`
	Name      string  `json:"name" yaml:"name"`
	Size      float64 `json:"size" yaml:"size"` // hectares
	CropIndex int     `json:"cropIndex" yaml:"cropIndex"`
}

// FieldState is the mutable state of one field. Owned by the growth engine.
type FieldState struct {
	FieldID       int
	FieldName     string
	Area          float64
	CropIndex     int
	PlantingDate  *time.Time
	HarvestDate   *time.Time
	GrowthStage   float64
	HealthStatus  float64
	WaterReceived float64
	ExpectedYield float64
	ActualYield   float64
	Status        Status
}

// FieldSnapshot is the per-field view written into each day's record. The
// trailing fields carry enough state to rebuild a FieldState on restart.
type FieldSnapshot struct {
	FieldID       int        `json:"fieldId"`
	FieldName     string     `json:"fieldName"`
	CropName      string     `json:"cropName"`
	Status        Status     `json:"status"`
	GrowthStage   float64    `json:"growthStage"`
	HealthStatus  float64    `json:"healthStatus"`
	ExpectedYield float64    `json:"expectedYield"`
	PlantingDate  *time.Time `json:"plantingDate,omitempty"`
	HarvestDate   *time.Time `json:"harvestDate,omitempty"`
	WaterReceived float64    `json:"waterReceived"`
	ActualYield   float64    `json:"actualYield,omitempty"`
}

// HarvestEvent is emitted once per field per crop cycle, when a ready field is harvested.
type HarvestEvent struct {
	FieldID         int       `json:"fieldId"`
	FieldName       string    `json:"fieldName"`
	CropName        string    `json:"cropName"`
	HarvestDate     time.Time `json:"harvestDate"`
	AreaHarvested   float64   `json:"areaHarvested"`
	YieldPerHectare float64   `json:"yieldPerHectare"`
	TotalYield      float64   `json:"totalYield"`
	Efficiency      float64   `json:"efficiency"` // % of theoretical optimum
	Revenue         float64   `json:"revenue"`
	Costs           float64   `json:"costs"`
	Profit          float64   `json:"profit"`
	// WaterEfficiency is tons per mm received; nil when the field got no water.
	WaterEfficiency *float64 `json:"waterEfficiency"`
	HealthAtHarvest float64  `json:"healthAtHarvest"`
}
