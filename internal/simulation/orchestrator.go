// Package simulation drives the daily loop: weather, field growth, history,
// persistence, and publishing.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/farm-sim-service/internal/audit"
	"github.com/couchcryptid/farm-sim-service/internal/domain"
	"github.com/couchcryptid/farm-sim-service/internal/growth"
	"github.com/couchcryptid/farm-sim-service/internal/observability"
	"github.com/couchcryptid/farm-sim-service/internal/weather"
	"github.com/google/uuid"
)

// Store persists history. from is the index of the first record not yet
// saved; zero asks the store to rewrite everything.
type Store interface {
	Save(ctx context.Context, history []domain.Record, from int) error
	Load(ctx context.Context) ([]domain.Record, error)
}

// Publisher hands freshly simulated records to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, runID string, records []domain.Record) error
}

// Options configure an Orchestrator. Store and Publisher are optional.
type Options struct {
	Store     Store
	Publisher Publisher
	Metrics   *observability.Metrics
	Logger    *slog.Logger
	// MaxBatch caps RunBatch and Forecast. Zero means no ceiling.
	MaxBatch int
}

// Orchestrator owns the weather generator, the growth engine, and the
// append-only history. All methods are safe for concurrent use.
type Orchestrator struct {
	mu        sync.Mutex
	weather   *weather.Generator
	engine    *growth.Engine
	store     Store
	publisher Publisher
	metrics   *observability.Metrics
	logger    *slog.Logger
	maxBatch  int

	history   []domain.Record
	persisted int
	runID     string
}

// New wires the generator and engine into an orchestrator with empty history.
func New(w *weather.Generator, e *growth.Engine, opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NewMetricsForTesting()
	}
	return &Orchestrator{
		weather:   w,
		engine:    e,
		store:     opts.Store,
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		maxBatch:  opts.MaxBatch,
		runID:     uuid.NewString(),
	}
}

// Step simulates one day. The record is appended to history even when
// persisting or publishing fails; those failures are returned joined.
func (o *Orchestrator) Step(ctx context.Context) (domain.Record, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	rec := o.advance()
	return rec, o.flush(ctx, o.history[len(o.history)-1:])
}

// RunBatch simulates n days and persists once at the end. n is validated
// before anything changes.
func (o *Orchestrator) RunBatch(ctx context.Context, n int) ([]domain.Record, error) {
	if err := o.validateDays(n); err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	start := time.Now()
	first := len(o.history)
	for range n {
		o.advance()
	}
	fresh := o.history[first:]
	out := make([]domain.Record, len(fresh))
	copy(out, fresh)

	err := o.flush(ctx, fresh)

	o.metrics.BatchSize.Observe(float64(n))
	o.metrics.BatchDuration.Observe(time.Since(start).Seconds())
	o.logger.Info("batch simulated",
		"days", n,
		"from", out[0].Date,
		"to", out[len(out)-1].Date,
		"history", len(o.history),
	)
	return out, err
}

// Forecast previews the next n days on copies of the generator and engine.
// History, persistence, and publishing are untouched. Because the copies
// share the current RNG position, a following RunBatch(n) produces the
// same records.
func (o *Orchestrator) Forecast(n int) ([]domain.Record, error) {
	if err := o.validateDays(n); err != nil {
		return nil, err
	}

	o.mu.Lock()
	w := o.weather.Clone()
	e := o.engine.Clone()
	o.mu.Unlock()

	out := make([]domain.Record, n)
	for i := range out {
		out[i] = simulate(w, e)
	}
	return out, nil
}

// Reset rewinds both generators, clears history, and starts a new run. The
// store is not touched; the next save rewrites it.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.resetLocked()
	o.logger.Info("simulation reset", "run_id", o.runID)
}

func (o *Orchestrator) resetLocked() {
	o.weather.Reset()
	o.engine.Reset()
	o.history = nil
	o.persisted = 0
	o.runID = uuid.NewString()
	o.metrics.HistoryRecords.Set(0)
}

// Load replaces the current state with the history held by the store,
// restoring the weather cursor and every field from the last record. On any
// failure it starts from scratch and returns false.
func (o *Orchestrator) Load(ctx context.Context) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.store == nil {
		return false
	}

	records, err := o.store.Load(ctx)
	if err == nil {
		err = o.restore(records)
	}
	if err != nil {
		o.logger.Warn("history not loaded, starting empty", "error", err)
		o.resetLocked()
		return false
	}

	o.logger.Info("history loaded",
		"records", len(records),
		"latest", records[len(records)-1].Date,
		"run_id", o.runID,
	)
	return true
}

// Bootstrap loads history from the store. When nothing loads it simulates
// days of fresh history, split into batches no larger than MaxBatch. It
// reports whether history came from the store.
func (o *Orchestrator) Bootstrap(ctx context.Context, days int) (bool, error) {
	if o.Load(ctx) {
		return true, nil
	}
	for days > 0 {
		n := days
		if o.maxBatch > 0 && n > o.maxBatch {
			n = o.maxBatch
		}
		if _, err := o.RunBatch(ctx, n); err != nil {
			return false, fmt.Errorf("seed history: %w", err)
		}
		days -= n
	}
	return false, nil
}

func (o *Orchestrator) restore(records []domain.Record) error {
	if len(records) == 0 {
		return errors.New("store holds no history")
	}
	report := audit.Check(records, audit.Options{
		Step:     o.weather.TimeStep(),
		Humidity: domain.Range{Min: 0, Max: 100},
	})
	if err := report.Err(); err != nil {
		return fmt.Errorf("audit persisted history: %w", err)
	}

	last := records[len(records)-1]
	if err := o.engine.Restore(last.Production.Fields); err != nil {
		return fmt.Errorf("restore fields: %w", err)
	}
	o.weather.Seek(o.weather.TimeStep().Advance(last.Timestamp))

	o.history = records
	o.persisted = len(records)
	o.runID = uuid.NewString()
	o.metrics.HistoryRecords.Set(float64(len(records)))
	o.metrics.AverageHealth.Set(last.Production.Stats.AverageHealth)
	return nil
}

// Latest returns the most recent record, if any.
func (o *Orchestrator) Latest() (domain.Record, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.history) == 0 {
		return domain.Record{}, false
	}
	return o.history[len(o.history)-1], true
}

// All returns a copy of the full ordered history.
func (o *Orchestrator) All() []domain.Record {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]domain.Record, len(o.history))
	copy(out, o.history)
	return out
}

// Range returns the records whose timestamps fall within [from, to].
func (o *Orchestrator) Range(from, to time.Time) []domain.Record {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]domain.Record, 0)
	for _, rec := range o.history {
		if rec.Timestamp.Before(from) || rec.Timestamp.After(to) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Len returns the number of records in history.
func (o *Orchestrator) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.history)
}

// RunID identifies the current run. It changes on Reset and Load.
func (o *Orchestrator) RunID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.runID
}

// CheckReadiness returns nil once history holds at least one record.
func (o *Orchestrator) CheckReadiness(_ context.Context) error {
	if o.Len() == 0 {
		return errors.New("simulation history is empty")
	}
	return nil
}

func (o *Orchestrator) validateDays(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: days must be at least 1, got %d", domain.ErrInvalidArgument, n)
	}
	if o.maxBatch > 0 && n > o.maxBatch {
		return fmt.Errorf("%w: days must be at most %d, got %d", domain.ErrInvalidArgument, o.maxBatch, n)
	}
	return nil
}

// advance simulates one day and appends it. Caller holds mu.
func (o *Orchestrator) advance() domain.Record {
	rec := simulate(o.weather, o.engine)
	o.history = append(o.history, rec)

	o.metrics.StepsTotal.Inc()
	o.metrics.HistoryRecords.Set(float64(len(o.history)))
	o.metrics.AverageHealth.Set(rec.Production.Stats.AverageHealth)
	for _, h := range rec.Production.Harvests {
		o.metrics.HarvestsTotal.WithLabelValues(h.CropName).Inc()
		o.logger.Info("field harvested",
			"date", rec.Date,
			"field", h.FieldName,
			"crop", h.CropName,
			"total_yield", h.TotalYield,
			"profit", h.Profit,
		)
	}
	return rec
}

// flush saves history from the first unsaved record and publishes fresh.
// Caller holds mu.
func (o *Orchestrator) flush(ctx context.Context, fresh []domain.Record) error {
	var errs []error

	if o.store != nil {
		if err := o.store.Save(ctx, o.history, o.persisted); err != nil {
			o.metrics.PersistErrors.Inc()
			o.logger.Error("persist history failed", "error", err, "from", o.persisted, "history", len(o.history))
			errs = append(errs, fmt.Errorf("persist history: %w", err))
		} else {
			o.persisted = len(o.history)
		}
	}

	if o.publisher != nil {
		if err := o.publisher.Publish(ctx, o.runID, fresh); err != nil {
			o.metrics.PublishErrors.Inc()
			o.logger.Error("publish records failed", "error", err, "records", len(fresh))
			errs = append(errs, fmt.Errorf("publish records: %w", err))
		} else {
			o.metrics.RecordsPublished.Add(float64(len(fresh)))
		}
	}

	return errors.Join(errs...)
}

func simulate(w *weather.Generator, e *growth.Engine) domain.Record {
	obs := w.Next()
	return domain.Record{
		Timestamp:     obs.Timestamp,
		Date:          obs.Date,
		Environmental: obs,
		Production:    e.SimulateDay(obs),
	}
}
