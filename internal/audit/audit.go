// Package audit checks a simulation history for the invariants every record
// sequence must satisfy: calendar ordering, weather bounds, field bounds,
// lifecycle transitions, harvest uniqueness, and aggregate consistency.
package audit

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/couchcryptid/farm-sim-service/internal/domain"
)

// Options parameterize the checks that depend on configuration.
type Options struct {
	Step     domain.TimeStep
	Humidity domain.Range
}

// DefaultOptions matches the default weather configuration.
func DefaultOptions() Options {
	return Options{
		Step:     domain.StepDay,
		Humidity: domain.Range{Min: 0, Max: 100},
	}
}

// Phase collects the violations found by one group of checks.
type Phase struct {
	Name   string
	Errors []string
}

func (p *Phase) errorf(format string, args ...any) {
	p.Errors = append(p.Errors, fmt.Sprintf(format, args...))
}

// Passed reports whether the phase found no violations.
func (p *Phase) Passed() bool { return len(p.Errors) == 0 }

// Report is the outcome of Check.
type Report struct {
	Records int
	Phases  []*Phase
}

// Passed reports whether every phase passed.
func (r Report) Passed() bool {
	for _, p := range r.Phases {
		if !p.Passed() {
			return false
		}
	}
	return true
}

// Err returns nil when every phase passed, otherwise one error per failing
// phase carrying its first violation.
func (r Report) Err() error {
	var errs []error
	for _, p := range r.Phases {
		if !p.Passed() {
			errs = append(errs, fmt.Errorf("%s: %s (%d violations)", p.Name, p.Errors[0], len(p.Errors)))
		}
	}
	return errors.Join(errs...)
}

// Check runs every phase over history.
func Check(history []domain.Record, opts Options) Report {
	return Report{
		Records: len(history),
		Phases: []*Phase{
			checkChronology(history, opts.Step),
			checkWeather(history, opts.Humidity),
			checkFields(history),
			checkLifecycle(history),
			checkAggregates(history),
		},
	}
}

func checkChronology(history []domain.Record, step domain.TimeStep) *Phase {
	p := &Phase{Name: "chronology"}
	for i, rec := range history {
		if rec.Date != rec.Timestamp.Format(domain.DateLayout) {
			p.errorf("record %d: date %q does not match timestamp %s", i, rec.Date, rec.Timestamp.Format(time.RFC3339))
		}
		if !rec.Environmental.Timestamp.Equal(rec.Timestamp) || !rec.Production.Timestamp.Equal(rec.Timestamp) {
			p.errorf("record %d: environmental and production timestamps differ from record timestamp", i)
		}
		if i == 0 {
			continue
		}
		want := step.Advance(history[i-1].Timestamp)
		if !rec.Timestamp.Equal(want) {
			p.errorf("record %d: timestamp %s, want %s", i, rec.Timestamp, want)
		}
	}
	return p
}

func checkWeather(history []domain.Record, humidity domain.Range) *Phase {
	p := &Phase{Name: "weather bounds"}
	for i, rec := range history {
		env := rec.Environmental
		if !humidity.Contains(env.Humidity) {
			p.errorf("record %d (%s): humidity %g outside [%g, %g]", i, rec.Date, env.Humidity, humidity.Min, humidity.Max)
		}
		if env.Precipitation < 0 {
			p.errorf("record %d (%s): negative precipitation %g", i, rec.Date, env.Precipitation)
		}
	}
	return p
}

func checkFields(history []domain.Record) *Phase {
	p := &Phase{Name: "field bounds"}
	for i, rec := range history {
		for _, f := range rec.Production.Fields {
			if !f.Status.Valid() {
				p.errorf("record %d field %d: unknown status %q", i, f.FieldID, f.Status)
			}
			if f.GrowthStage < 0 || f.GrowthStage > 100 {
				p.errorf("record %d field %d: growth stage %g outside [0, 100]", i, f.FieldID, f.GrowthStage)
			}
			if f.HealthStatus < 0 || f.HealthStatus > 100 {
				p.errorf("record %d field %d: health %g outside [0, 100]", i, f.FieldID, f.HealthStatus)
			}
		}
	}
	return p
}

var allowed = map[domain.Status][]domain.Status{
	domain.StatusUnplanted:      {domain.StatusUnplanted, domain.StatusGrowing},
	domain.StatusGrowing:        {domain.StatusGrowing, domain.StatusReadyToHarvest},
	domain.StatusReadyToHarvest: {domain.StatusReadyToHarvest, domain.StatusHarvested},
	domain.StatusHarvested:      {domain.StatusHarvested},
}

func transitionAllowed(from, to domain.Status) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}

func checkLifecycle(history []domain.Record) *Phase {
	p := &Phase{Name: "lifecycle"}
	prev := map[int]domain.FieldSnapshot{}
	harvests := map[int]int{}

	for i, rec := range history {
		harvestedToday := map[int]bool{}
		for _, h := range rec.Production.Harvests {
			harvests[h.FieldID]++
			harvestedToday[h.FieldID] = true
			if harvests[h.FieldID] > 1 {
				p.errorf("record %d: field %d harvested more than once", i, h.FieldID)
			}
		}

		for _, f := range rec.Production.Fields {
			before, seen := prev[f.FieldID]
			prev[f.FieldID] = f
			if !seen {
				continue
			}
			if !transitionAllowed(before.Status, f.Status) {
				p.errorf("record %d field %d: illegal transition %q -> %q", i, f.FieldID, before.Status, f.Status)
			}
			becameHarvested := before.Status == domain.StatusReadyToHarvest && f.Status == domain.StatusHarvested
			if becameHarvested != harvestedToday[f.FieldID] {
				p.errorf("record %d field %d: harvest event and status change disagree", i, f.FieldID)
			}
			if before.Status == domain.StatusHarvested && !frozen(before, f) {
				p.errorf("record %d field %d: harvested field changed", i, f.FieldID)
			}
		}
	}
	return p
}

// frozen compares the mutable parts of two snapshots of the same field.
func frozen(a, b domain.FieldSnapshot) bool {
	return a.Status == b.Status &&
		a.GrowthStage == b.GrowthStage &&
		a.HealthStatus == b.HealthStatus &&
		a.ExpectedYield == b.ExpectedYield &&
		a.WaterReceived == b.WaterReceived &&
		a.ActualYield == b.ActualYield
}

func checkAggregates(history []domain.Record) *Phase {
	p := &Phase{Name: "aggregates"}
	for i, rec := range history {
		prod := rec.Production
		var planted, harvested int
		for _, f := range prod.Fields {
			if f.Status != domain.StatusUnplanted {
				planted++
			}
			if f.Status == domain.StatusHarvested {
				harvested++
			}
		}
		var yield, profit float64
		for _, h := range prod.Harvests {
			yield += h.TotalYield
			profit += h.Profit
		}

		s := prod.Stats
		if s.TotalFields != len(prod.Fields) {
			p.errorf("record %d: totalFields %d, %d snapshots", i, s.TotalFields, len(prod.Fields))
		}
		if s.FieldsPlanted != planted {
			p.errorf("record %d: fieldsPlanted %d, counted %d", i, s.FieldsPlanted, planted)
		}
		if s.FieldsHarvested != harvested {
			p.errorf("record %d: fieldsHarvested %d, counted %d", i, s.FieldsHarvested, harvested)
		}
		if math.Abs(s.TotalHarvestedToday-yield) > 0.011 {
			p.errorf("record %d: totalHarvestedToday %g, harvests sum to %g", i, s.TotalHarvestedToday, yield)
		}
		if math.Abs(s.ProfitToday-profit) > 0.011 {
			p.errorf("record %d: profitToday %g, harvests sum to %g", i, s.ProfitToday, profit)
		}
	}
	return p
}
