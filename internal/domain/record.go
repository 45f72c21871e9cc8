package domain

import "time"

// DateLayout is the calendar-day format used for the "date" key.
const DateLayout = "2006-01-02"

// Observation is one generated weather reading. Immutable once produced.
type Observation struct {
	Timestamp     time.Time `json:"timestamp"`
	Date          string    `json:"date"`
	Temperature   float64   `json:"temperature"`   // °C
	Humidity      float64   `json:"humidity"`      // %
	Precipitation float64   `json:"precipitation"` // mm
}

// ProductionStats aggregates all fields after one simulated day.
type ProductionStats struct {
	TotalFields         int     `json:"totalFields"`
	FieldsPlanted       int     `json:"fieldsPlanted"`
	FieldsHarvested     int     `json:"fieldsHarvested"`
	AverageHealth       float64 `json:"averageHealth"`
	TotalExpectedYield  float64 `json:"totalExpectedYield"`
	TotalHarvestedToday float64 `json:"totalHarvestedToday"`
	ProfitToday         float64 `json:"profitToday"`
}

// ProductionDay is the growth engine's output for one observation.
type ProductionDay struct {
	Timestamp time.Time       `json:"timestamp"`
	Date      string          `json:"date"`
	Fields    []FieldSnapshot `json:"fields"`
	Harvests  []HarvestEvent  `json:"harvests"`
	Stats     ProductionStats `json:"stats"`
}

// Record is the unit appended to history, persisted, and published.
type Record struct {
	Timestamp     time.Time     `json:"timestamp"`
	Date          string        `json:"date"`
	Environmental Observation   `json:"environmental"`
	Production    ProductionDay `json:"production"`
}
