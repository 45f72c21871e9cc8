// Package weather generates plausible, seasonally varying daily weather.
package weather

import (
	"fmt"
	"iter"
	"math"
	"math/rand/v2"
	"time"

	"github.com/couchcryptid/farm-sim-service/internal/domain"
	"github.com/couchcryptid/farm-sim-service/internal/rng"
)

// Generator produces one observation per call and advances a calendar cursor.
// It is not safe for concurrent use.
type Generator struct {
	cfg    Config
	src    *rand.PCG
	rand   *rand.Rand
	cursor time.Time
}

// New validates cfg and returns a generator positioned at cfg.StartDate.
// The source is owned by the generator from here on.
func New(cfg Config, src *rand.PCG) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("%w: random source is required", domain.ErrInvalidArgument)
	}
	return &Generator{
		cfg:    cfg,
		src:    src,
		rand:   rand.New(src),
		cursor: cfg.StartDate,
	}, nil
}

// Next samples the observation for the current cursor date, then advances
// the cursor by one time step.
func (g *Generator) Next() domain.Observation {
	date := g.cursor
	seasonal := SeasonalFactor(date)

	temperature := domain.Round(g.temperature(seasonal), 1)
	humidity := g.humidity(temperature)
	precipitation := domain.Round(g.precipitation(seasonal, humidity), 1)

	g.cursor = g.cfg.TimeStep.Advance(g.cursor)

	return domain.Observation{
		Timestamp:     date,
		Date:          date.Format(domain.DateLayout),
		Temperature:   temperature,
		Humidity:      humidity,
		Precipitation: precipitation,
	}
}

// Batch returns a lazy sequence of n observations. Each value is sampled when
// the consumer asks for it, and the sequence continues from wherever the
// cursor is at that moment.
func (g *Generator) Batch(n int) (iter.Seq[domain.Observation], error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: batch size must be at least 1, got %d", domain.ErrInvalidArgument, n)
	}
	return func(yield func(domain.Observation) bool) {
		for range n {
			if !yield(g.Next()) {
				return
			}
		}
	}, nil
}

// Reset rewinds the cursor to the configured start date.
func (g *Generator) Reset() {
	g.cursor = g.cfg.StartDate
}

// Cursor returns the date the next observation will carry.
func (g *Generator) Cursor() time.Time {
	return g.cursor
}

// Seek positions the cursor so the next observation carries date t.
func (g *Generator) Seek(t time.Time) {
	g.cursor = t
}

// TimeStep returns the configured cursor increment.
func (g *Generator) TimeStep() domain.TimeStep {
	return g.cfg.TimeStep
}

// Clone returns an independent generator with the same cursor and RNG state.
// Draws on the clone never affect the original.
func (g *Generator) Clone() *Generator {
	src := rng.Clone(g.src)
	return &Generator{
		cfg:    g.cfg,
		src:    src,
		rand:   rand.New(src),
		cursor: g.cursor,
	}
}

// SeasonalFactor maps a date onto [-1, 1] along a 365-day sine wave.
// January 1 is year day 1; the zero crossing sits on day 172.
func SeasonalFactor(t time.Time) float64 {
	return math.Sin(float64(t.YearDay()-172) * (2 * math.Pi / 365))
}

func (g *Generator) temperature(seasonal float64) float64 {
	c := g.cfg.Temperature
	t := g.gaussian(c.Mean, c.StdDev)
	if c.Seasonal {
		t += seasonal * 10
	}
	return domain.Clamp(t, c.Min, c.Max)
}

func (g *Generator) humidity(temperature float64) float64 {
	c := g.cfg.Humidity
	h := g.gaussian(c.Mean, c.StdDev)
	h += (temperature - g.cfg.Temperature.Mean) * c.Correlation
	return domain.Clamp(math.Round(h), c.Min, c.Max)
}

func (g *Generator) precipitation(seasonal, humidity float64) float64 {
	c := g.cfg.Precipitation
	p := c.Probability * (humidity / 100 * 1.5)
	if c.Seasonal {
		p *= 1 - math.Abs(seasonal)*0.3
	}
	if g.rand.Float64() >= p {
		return 0
	}
	// Exponential amount: many light showers, few downpours.
	amount := -math.Log(1-g.rand.Float64()) * c.MeanAmount
	return domain.Clamp(amount, 0, c.MaxAmount)
}

// gaussian draws from N(mean, stdDev) with the Box–Muller transform.
func (g *Generator) gaussian(mean, stdDev float64) float64 {
	u1 := 1 - g.rand.Float64() // (0, 1], keeps the log finite
	u2 := g.rand.Float64()
	z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
	return z*stdDev + mean
}
