package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/farm-sim-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/farm-sim-service/internal/adapter/kafka"
	"github.com/couchcryptid/farm-sim-service/internal/config"
	"github.com/couchcryptid/farm-sim-service/internal/growth"
	"github.com/couchcryptid/farm-sim-service/internal/observability"
	"github.com/couchcryptid/farm-sim-service/internal/rng"
	"github.com/couchcryptid/farm-sim-service/internal/simulation"
	"github.com/couchcryptid/farm-sim-service/internal/storage/file"
	"github.com/couchcryptid/farm-sim-service/internal/storage/sqlite"
	"github.com/couchcryptid/farm-sim-service/internal/weather"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is normal outside local development.
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	if envErr != nil {
		logger.Debug("no .env file loaded", "error", envErr)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = rng.RandomSeed()
	}
	logger.Info("simulation configured",
		"seed", seed,
		"start_date", cfg.StartDate.Format("2006-01-02"),
		"time_step", cfg.TimeStep,
		"store", cfg.StoreDriver,
	)

	gen, err := weather.New(cfg.WeatherConfig(), rng.Source(seed, "weather"))
	if err != nil {
		logger.Error("failed to create weather generator", "error", err)
		os.Exit(1)
	}
	engine, err := growth.New(cfg.GrowthConfig(), rng.Source(seed, "growth"))
	if err != nil {
		logger.Error("failed to create growth engine", "error", err)
		os.Exit(1)
	}

	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}

	opts := simulation.Options{
		Store:    store,
		Metrics:  metrics,
		Logger:   logger,
		MaxBatch: cfg.MaxBatchDays,
	}

	var writer *kafkaadapter.Writer
	if len(cfg.KafkaBrokers) > 0 {
		writer = kafkaadapter.NewWriter(cfg, logger)
		opts.Publisher = writer
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	sim := simulation.New(gen, engine, opts)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loaded, err := sim.Bootstrap(ctx, cfg.SeedDays)
	switch {
	case err != nil:
		logger.Error("seeding history failed", "error", err, "records", sim.Len())
	case loaded:
		logger.Info("resumed stored history", "records", sim.Len())
	default:
		logger.Info("generated initial history", "records", sim.Len())
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, sim, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Step on an interval when configured.
	if cfg.AutoInterval > 0 {
		runner := simulation.NewAutoRunner(sim, nil, cfg.AutoInterval, logger, metrics)
		go func() {
			if err := runner.Run(ctx); err != nil {
				logger.Error("auto runner error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := closeStore(); err != nil {
		logger.Error("store close error", "error", err)
	}

	logger.Info("shutdown complete")
}

// openStore returns the configured history store, or a nil Store when
// persistence is disabled.
func openStore(cfg *config.Config, logger *slog.Logger) (simulation.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.StoreDriver {
	case config.StoreNone:
		return nil, noop, nil
	case config.StoreSQLite:
		if err := os.MkdirAll(cfg.StorePath, 0o755); err != nil {
			return nil, noop, fmt.Errorf("create storage directory: %w", err)
		}
		s, err := sqlite.Open(cfg.SQLitePath())
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	default:
		s, err := file.Open(cfg.StorePath, logger)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	}
}
