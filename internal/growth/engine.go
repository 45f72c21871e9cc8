// Package growth advances every cultivated field by one day per weather
// observation: health, growth stage, expected yield, and harvest.
//
// Each field runs a one-way lifecycle per crop cycle:
//
//	non piantato -> in crescita -> pronto per il raccolto -> raccolto
//
// Harvested fields stay frozen until Reset; nothing re-plants automatically.
package growth

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/couchcryptid/farm-sim-service/internal/domain"
	"github.com/couchcryptid/farm-sim-service/internal/rng"
)

// Engine owns the state of every field. It is not safe for concurrent use.
type Engine struct {
	cfg    Config
	src    *rand.PCG
	rand   *rand.Rand
	fields []domain.FieldState
}

// New validates cfg and returns an engine with every field unplanted.
func New(cfg Config, src *rand.PCG) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("%w: random source is required", domain.ErrInvalidArgument)
	}
	e := &Engine{
		cfg:  cfg,
		src:  src,
		rand: rand.New(src),
	}
	e.Reset()
	return e, nil
}

// Reset returns every field to unplanted, discarding the current cycle.
func (e *Engine) Reset() {
	e.fields = make([]domain.FieldState, len(e.cfg.Fields))
	for i, def := range e.cfg.Fields {
		e.fields[i] = domain.FieldState{
			FieldID:      def.ID,
			FieldName:    def.Name,
			Area:         def.Size,
			CropIndex:    def.CropIndex,
			HealthStatus: 100,
			Status:       domain.StatusUnplanted,
		}
	}
}

// Fields returns a copy of the field states in declaration order.
func (e *Engine) Fields() []domain.FieldState {
	out := make([]domain.FieldState, len(e.fields))
	copy(out, e.fields)
	return out
}

// Clone returns an independent engine with the same field states and RNG
// position. Simulating on the clone never touches the original.
func (e *Engine) Clone() *Engine {
	src := rng.Clone(e.src)
	return &Engine{
		cfg:    e.cfg,
		src:    src,
		rand:   rand.New(src),
		fields: e.Fields(),
	}
}

// SimulateDay advances every field by one day under obs and returns the
// post-update snapshots, any harvests, and the day's aggregates.
func (e *Engine) SimulateDay(obs domain.Observation) domain.ProductionDay {
	harvests := make([]domain.HarvestEvent, 0)
	for i := range e.fields {
		if ev, ok := e.advance(&e.fields[i], obs); ok {
			harvests = append(harvests, ev)
		}
	}

	snapshots := make([]domain.FieldSnapshot, len(e.fields))
	for i, f := range e.fields {
		snapshots[i] = e.snapshot(f)
	}

	return domain.ProductionDay{
		Timestamp: obs.Timestamp,
		Date:      obs.Date,
		Fields:    snapshots,
		Harvests:  harvests,
		Stats:     aggregate(e.fields, harvests),
	}
}

// advance runs one day of the lifecycle for f. It reports a harvest event
// when the field was harvested today.
func (e *Engine) advance(f *domain.FieldState, obs domain.Observation) (domain.HarvestEvent, bool) {
	crop := e.cfg.Crops[f.CropIndex]

	switch f.Status {
	case domain.StatusHarvested:
		return domain.HarvestEvent{}, false

	case domain.StatusReadyToHarvest:
		f.WaterReceived += obs.Precipitation
		f.ExpectedYield = e.expectedYield(f, crop)
		if e.rand.Float64() >= e.cfg.Params.HarvestProbability {
			return domain.HarvestEvent{}, false
		}
		return e.harvest(f, crop, obs.Timestamp), true

	case domain.StatusUnplanted:
		plant(f, crop, obs.Timestamp)
	}

	e.grow(f, crop, obs)
	return domain.HarvestEvent{}, false
}

func plant(f *domain.FieldState, crop domain.CropProfile, date time.Time) {
	planted := date
	due := date.AddDate(0, 0, crop.GrowthDays)
	f.PlantingDate = &planted
	f.HarvestDate = &due
	f.Status = domain.StatusGrowing
	f.GrowthStage = 0
	f.HealthStatus = 100
	f.WaterReceived = 0
	f.ActualYield = 0
	f.ExpectedYield = crop.YieldPerHectare * f.Area
}

// grow is the daily update of a growing field.
func (e *Engine) grow(f *domain.FieldState, crop domain.CropProfile, obs domain.Observation) {
	p := e.cfg.Params
	stress := StressFactor(obs, crop)

	delta := -(1 - stress) * 2
	if e.rand.Float64() < p.PestProbability {
		delta -= e.rand.Float64() * 5
	}
	disease := p.DiseaseProbability
	if obs.Humidity > p.HumidDiseaseThreshold {
		disease *= p.HumidDiseaseMultiplier
	}
	if e.rand.Float64() < disease {
		delta -= e.rand.Float64() * 8
	}
	delta += stress
	f.HealthStatus = domain.Clamp(f.HealthStatus+delta, 0, 100)

	increment := (100 / float64(crop.GrowthDays)) * (f.HealthStatus / 100) * stress
	f.GrowthStage = domain.Clamp(f.GrowthStage+increment, 0, 100)

	f.WaterReceived += obs.Precipitation
	f.ExpectedYield = e.expectedYield(f, crop)

	// Tolerate accumulated float error when growthDays does not divide 100.
	if f.GrowthStage >= 100-1e-9 {
		f.GrowthStage = 100
		f.Status = domain.StatusReadyToHarvest
	}
}

func (e *Engine) expectedYield(f *domain.FieldState, crop domain.CropProfile) float64 {
	water := math.Min(1, f.WaterReceived/crop.WaterNeeds)
	health := f.HealthStatus / 100
	variation := 1 + (e.rand.Float64()*2-1)*e.cfg.Params.RandomVariation
	return crop.YieldPerHectare * f.Area * (water*0.4 + health*0.6) * variation
}

func (e *Engine) harvest(f *domain.FieldState, crop domain.CropProfile, date time.Time) domain.HarvestEvent {
	actual := f.ExpectedYield * (0.95 + e.rand.Float64()*0.1)
	revenue := actual * crop.PricePerTon
	costs := f.Area * crop.CostPerHectare
	optimal := crop.YieldPerHectare * f.Area

	var waterEfficiency *float64
	if f.WaterReceived > 0 {
		we := domain.Round(actual/f.WaterReceived, 3)
		waterEfficiency = &we
	}

	f.Status = domain.StatusHarvested
	f.ActualYield = domain.Round(actual, 2)

	return domain.HarvestEvent{
		FieldID:         f.FieldID,
		FieldName:       f.FieldName,
		CropName:        crop.Name,
		HarvestDate:     date,
		AreaHarvested:   f.Area,
		YieldPerHectare: domain.Round(actual/f.Area, 2),
		TotalYield:      domain.Round(actual, 2),
		Efficiency:      domain.Round(actual/optimal*100, 2),
		Revenue:         domain.Round(revenue, 2),
		Costs:           domain.Round(costs, 2),
		Profit:          domain.Round(revenue-costs, 2),
		WaterEfficiency: waterEfficiency,
		HealthAtHarvest: domain.Round(f.HealthStatus, 1),
	}
}

func (e *Engine) snapshot(f domain.FieldState) domain.FieldSnapshot {
	return domain.FieldSnapshot{
		FieldID:       f.FieldID,
		FieldName:     f.FieldName,
		CropName:      e.cfg.Crops[f.CropIndex].Name,
		Status:        f.Status,
		GrowthStage:   domain.Round(f.GrowthStage, 1),
		HealthStatus:  domain.Round(f.HealthStatus, 1),
		ExpectedYield: domain.Round(f.ExpectedYield, 2),
		PlantingDate:  f.PlantingDate,
		HarvestDate:   f.HarvestDate,
		WaterReceived: domain.Round(f.WaterReceived, 1),
		ActualYield:   f.ActualYield,
	}
}

func aggregate(fields []domain.FieldState, harvests []domain.HarvestEvent) domain.ProductionStats {
	stats := domain.ProductionStats{TotalFields: len(fields)}
	var health, expected float64
	for _, f := range fields {
		if f.Status != domain.StatusUnplanted {
			stats.FieldsPlanted++
		}
		if f.Status == domain.StatusHarvested {
			stats.FieldsHarvested++
		}
		health += f.HealthStatus
		expected += f.ExpectedYield
	}
	if len(fields) > 0 {
		stats.AverageHealth = domain.Round(health/float64(len(fields)), 1)
	}
	stats.TotalExpectedYield = domain.Round(expected, 2)

	var yield, profit float64
	for _, h := range harvests {
		yield += h.TotalYield
		profit += h.Profit
	}
	stats.TotalHarvestedToday = domain.Round(yield, 2)
	stats.ProfitToday = domain.Round(profit, 2)
	return stats
}
