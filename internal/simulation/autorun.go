package simulation

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/farm-sim-service/internal/domain"
	"github.com/couchcryptid/farm-sim-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Stepper advances a simulation by one day.
type Stepper interface {
	Step(ctx context.Context) (domain.Record, error)
}

// AutoRunner steps a simulation on a wall-clock interval until its context
// is cancelled.
type AutoRunner struct {
	sim      Stepper
	clock    clockwork.Clock
	interval time.Duration
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewAutoRunner creates an AutoRunner. A nil clock uses the real clock.
func NewAutoRunner(sim Stepper, clock clockwork.Clock, interval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *AutoRunner {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &AutoRunner{
		sim:      sim,
		clock:    clock,
		interval: interval,
		logger:   logger,
		metrics:  metrics,
	}
}

// Run steps once per interval. A failed step is logged and the next tick
// proceeds normally; there is no retry.
func (r *AutoRunner) Run(ctx context.Context) error {
	r.logger.Info("auto runner started", "interval", r.interval)
	r.metrics.AutoRunnerRunning.Set(1)
	defer r.metrics.AutoRunnerRunning.Set(0)

	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("auto runner stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			rec, err := r.sim.Step(ctx)
			if err != nil {
				r.logger.Error("auto step failed", "error", err, "date", rec.Date)
				continue
			}
			r.logger.Debug("auto step", "date", rec.Date, "planted", rec.Production.Stats.FieldsPlanted)
		}
	}
}
