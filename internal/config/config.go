package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/couchcryptid/farm-sim-service/internal/domain"
	"github.com/couchcryptid/farm-sim-service/internal/growth"
	"github.com/couchcryptid/farm-sim-service/internal/weather"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreNone   = "none"
)

// SQLiteFile is the database file name created under STORE_PATH.
const SQLiteFile = "farmsim.db"

// envConfig mirrors the environment one-to-one; Load validates it into Config.
type envConfig struct {
	HTTPAddr        string        `env:"HTTP_ADDR"        envDefault:":8080"`
	LogLevel        string        `env:"LOG_LEVEL"        envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT"       envDefault:"json"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	StartDate          string        `env:"SIM_START_DATE"          envDefault:"2023-01-01"`
	TimeStep           string        `env:"SIM_TIME_STEP"           envDefault:"day"`
	Seed               int64         `env:"SIM_SEED"                envDefault:"0"`
	SeedDays           int           `env:"SIM_SEED_DAYS"           envDefault:"365"`
	MaxBatchDays       int           `env:"SIM_MAX_BATCH_DAYS"      envDefault:"365"`
	AutoInterval       time.Duration `env:"SIM_AUTO_INTERVAL"       envDefault:"0s"`
	CatalogPath        string        `env:"SIM_CATALOG_PATH"`
	PestProbability    float64       `env:"SIM_PEST_PROBABILITY"    envDefault:"0.15"`
	DiseaseProbability float64       `env:"SIM_DISEASE_PROBABILITY" envDefault:"0.1"`
	RandomVariation    float64       `env:"SIM_RANDOM_VARIATION"    envDefault:"0.1"`
	HarvestProbability float64       `env:"SIM_HARVEST_PROBABILITY" envDefault:"0.8"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"file"`
	StorePath   string `env:"STORE_PATH"   envDefault:"data"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC"   envDefault:"simulation-records"`
}

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	StartDate    time.Time
	TimeStep     domain.TimeStep
	Seed         int64 // 0 picks a random seed at startup
	SeedDays     int   // days generated when nothing loads from the store
	MaxBatchDays int
	AutoInterval time.Duration // 0 disables the interval stepper
	Params       growth.Params
	Catalog      *Catalog

	StoreDriver string
	StorePath   string

	// Publishing is enabled when KafkaBrokers is non-empty.
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if raw.ShutdownTimeout <= 0 {
		return nil, errors.New("SHUTDOWN_TIMEOUT must be a positive duration")
	}
	if !slices.Contains([]string{"json", "text"}, strings.ToLower(raw.LogFormat)) {
		return nil, fmt.Errorf("invalid LOG_FORMAT %q (want json or text)", raw.LogFormat)
	}

	start, err := time.Parse(domain.DateLayout, raw.StartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid SIM_START_DATE %q (want YYYY-MM-DD)", raw.StartDate)
	}
	step, err := domain.ParseTimeStep(raw.TimeStep)
	if err != nil {
		return nil, fmt.Errorf("invalid SIM_TIME_STEP: %w", err)
	}
	if raw.SeedDays < 0 {
		return nil, errors.New("SIM_SEED_DAYS must not be negative")
	}
	if raw.MaxBatchDays < 0 {
		return nil, errors.New("SIM_MAX_BATCH_DAYS must not be negative")
	}
	if raw.AutoInterval < 0 {
		return nil, errors.New("SIM_AUTO_INTERVAL must not be negative")
	}

	probs := []struct {
		name string
		v    float64
	}{
		{"SIM_PEST_PROBABILITY", raw.PestProbability},
		{"SIM_DISEASE_PROBABILITY", raw.DiseaseProbability},
		{"SIM_RANDOM_VARIATION", raw.RandomVariation},
		{"SIM_HARVEST_PROBABILITY", raw.HarvestProbability},
	}
	for _, p := range probs {
		if p.v < 0 || p.v > 1 {
			return nil, fmt.Errorf("%s must be within [0, 1], got %g", p.name, p.v)
		}
	}

	driver := strings.ToLower(strings.TrimSpace(raw.StoreDriver))
	if !slices.Contains([]string{StoreFile, StoreSQLite, StoreNone}, driver) {
		return nil, fmt.Errorf("invalid STORE_DRIVER %q (want file, sqlite or none)", raw.StoreDriver)
	}
	if driver != StoreNone && strings.TrimSpace(raw.StorePath) == "" {
		return nil, errors.New("STORE_PATH is required unless STORE_DRIVER is none")
	}

	brokers := parseBrokers(raw.KafkaBrokers)
	if len(brokers) > 0 && strings.TrimSpace(raw.KafkaTopic) == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	cfg := &Config{
		HTTPAddr:        raw.HTTPAddr,
		LogLevel:        raw.LogLevel,
		LogFormat:       strings.ToLower(raw.LogFormat),
		ShutdownTimeout: raw.ShutdownTimeout,
		StartDate:       start,
		TimeStep:        step,
		Seed:            raw.Seed,
		SeedDays:        raw.SeedDays,
		MaxBatchDays:    raw.MaxBatchDays,
		AutoInterval:    raw.AutoInterval,
		Params:          growth.DefaultParams(),
		StoreDriver:     driver,
		StorePath:       raw.StorePath,
		KafkaBrokers:    brokers,
		KafkaTopic:      raw.KafkaTopic,
	}
	cfg.Params.PestProbability = raw.PestProbability
	cfg.Params.DiseaseProbability = raw.DiseaseProbability
	cfg.Params.RandomVariation = raw.RandomVariation
	cfg.Params.HarvestProbability = raw.HarvestProbability

	if raw.CatalogPath != "" {
		catalog, err := LoadCatalog(raw.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("SIM_CATALOG_PATH: %w", err)
		}
		cfg.Catalog = catalog
	}

	// Build both configs once so catalog mistakes fail at startup.
	if err := cfg.WeatherConfig().Validate(); err != nil {
		return nil, fmt.Errorf("weather configuration: %w", err)
	}
	if err := cfg.GrowthConfig().Validate(); err != nil {
		return nil, fmt.Errorf("growth configuration: %w", err)
	}

	return cfg, nil
}

// WeatherConfig returns the generator configuration: defaults, then catalog
// overrides, then the calendar settings.
func (c *Config) WeatherConfig() weather.Config {
	wc := weather.DefaultConfig()
	if c.Catalog != nil && c.Catalog.Weather != nil {
		c.Catalog.Weather.apply(&wc)
	}
	wc.StartDate = c.StartDate
	wc.TimeStep = c.TimeStep
	return wc
}

// GrowthConfig returns the engine configuration: default or catalog crops
// and fields, with parameters from the environment.
func (c *Config) GrowthConfig() growth.Config {
	gc := growth.DefaultConfig()
	if c.Catalog != nil {
		if len(c.Catalog.Crops) > 0 {
			gc.Crops = c.Catalog.Crops
		}
		if len(c.Catalog.Fields) > 0 {
			gc.Fields = c.Catalog.Fields
		}
	}
	gc.Params = c.Params
	return gc
}

// SQLitePath is the database file used by the sqlite driver.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.StorePath, SQLiteFile)
}

func parseBrokers(in []string) []string {
	out := make([]string, 0, len(in))
	for _, b := range in {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
