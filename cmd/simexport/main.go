// Command simexport runs a seeded simulation offline and writes the result as
// dashboard fixtures and spreadsheets. The same seed always yields the same
// history, so fixtures can be regenerated and diffed.
//
// Usage:
//
//	go run ./cmd/simexport \
//	  -days 365 -seed 42 \
//	  -out-dir data/mock \
//	  -csv data/mock/simulation.csv \
//	  -xlsx data/mock/simulation.xlsx
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/couchcryptid/farm-sim-service/internal/audit"
	"github.com/couchcryptid/farm-sim-service/internal/config"
	"github.com/couchcryptid/farm-sim-service/internal/domain"
	"github.com/couchcryptid/farm-sim-service/internal/export"
	"github.com/couchcryptid/farm-sim-service/internal/growth"
	"github.com/couchcryptid/farm-sim-service/internal/observability"
	"github.com/couchcryptid/farm-sim-service/internal/rng"
	"github.com/couchcryptid/farm-sim-service/internal/simulation"
	"github.com/couchcryptid/farm-sim-service/internal/storage/file"
	"github.com/couchcryptid/farm-sim-service/internal/weather"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	days := flag.Int("days", 365, "days to simulate")
	seed := flag.Int64("seed", 1, "simulation seed")
	start := flag.String("start", "2023-01-01", "first simulated date (YYYY-MM-DD)")
	step := flag.String("step", "day", "time step: hour, day or week")
	catalog := flag.String("catalog", "", "optional YAML crop/field/weather catalog")
	outDir := flag.String("out-dir", "", "directory for simulation_data.json and latest_data.json")
	csvOut := flag.String("csv", "", "output path for the CSV export")
	xlsxOut := flag.String("xlsx", "", "output path for the XLSX export")
	flag.Parse()

	if *days < 1 {
		return fmt.Errorf("-days must be at least 1")
	}
	if *outDir == "" && *csvOut == "" && *xlsxOut == "" {
		flag.Usage()
		return fmt.Errorf("at least one of -out-dir, -csv, -xlsx is required")
	}

	cfg, err := buildConfig(*start, *step, *catalog)
	if err != nil {
		return err
	}

	records, err := simulate(cfg, *seed, *days, *outDir)
	if err != nil {
		return err
	}
	log.Printf("simulated %d records (%s .. %s)", len(records), records[0].Date, records[len(records)-1].Date)

	hum := cfg.WeatherConfig().Humidity
	report := audit.Check(records, audit.Options{
		Step:     cfg.TimeStep,
		Humidity: domain.Range{Min: hum.Min, Max: hum.Max},
	})
	if !report.Passed() {
		return fmt.Errorf("generated history failed audit: %w", report.Err())
	}

	if *outDir != "" {
		log.Printf("wrote fixtures: %s", filepath.Join(*outDir, file.HistoryFile))
	}
	if *csvOut != "" {
		if err := writeExport(*csvOut, export.FormatCSV, records); err != nil {
			return fmt.Errorf("writing csv: %w", err)
		}
		log.Printf("wrote csv: %s", *csvOut)
	}
	if *xlsxOut != "" {
		if err := writeExport(*xlsxOut, export.FormatXLSX, records); err != nil {
			return fmt.Errorf("writing xlsx: %w", err)
		}
		log.Printf("wrote xlsx: %s", *xlsxOut)
	}

	printStats(os.Stdout, records)
	return nil
}

func buildConfig(start, step, catalogPath string) (*config.Config, error) {
	startDate, err := time.Parse(domain.DateLayout, start)
	if err != nil {
		return nil, fmt.Errorf("invalid -start %q: %w", start, err)
	}
	ts, err := domain.ParseTimeStep(step)
	if err != nil {
		return nil, fmt.Errorf("invalid -step: %w", err)
	}
	cfg := &config.Config{
		StartDate: startDate,
		TimeStep:  ts,
		Params:    growth.DefaultParams(),
	}
	if catalogPath != "" {
		cat, err := config.LoadCatalog(catalogPath)
		if err != nil {
			return nil, err
		}
		cfg.Catalog = cat
	}
	return cfg, nil
}

func simulate(cfg *config.Config, seed int64, days int, outDir string) ([]domain.Record, error) {
	gen, err := weather.New(cfg.WeatherConfig(), rng.Source(seed, "weather"))
	if err != nil {
		return nil, err
	}
	engine, err := growth.New(cfg.GrowthConfig(), rng.Source(seed, "growth"))
	if err != nil {
		return nil, err
	}

	logger := observability.NewLogger("warn", "text")
	opts := simulation.Options{Logger: logger}
	if outDir != "" {
		store, err := file.Open(outDir, logger)
		if err != nil {
			return nil, err
		}
		opts.Store = store
	}

	sim := simulation.New(gen, engine, opts)
	return sim.RunBatch(context.Background(), days)
}

func writeExport(path string, f export.Format, records []domain.Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.Write(out, f, records); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

type cropStats struct {
	harvests int
	yield    float64
	profit   float64
}

func printStats(w io.Writer, records []domain.Record) {
	byCrop := map[string]*cropStats{}
	var rainDays int
	var healthSum float64
	for i := range records {
		r := &records[i]
		if r.Environmental.Precipitation > 0 {
			rainDays++
		}
		healthSum += r.Production.Stats.AverageHealth
		for _, h := range r.Production.Harvests {
			cs, ok := byCrop[h.CropName]
			if !ok {
				cs = &cropStats{}
				byCrop[h.CropName] = cs
			}
			cs.harvests++
			cs.yield += h.TotalYield
			cs.profit += h.Profit
		}
	}

	fmt.Fprintln(w, "\n=== Simulation summary ===")
	fmt.Fprintf(w, "Records: %d\n", len(records))
	fmt.Fprintf(w, "Rain days: %d\n", rainDays)
	fmt.Fprintf(w, "Mean field health: %.1f\n", healthSum/float64(len(records)))

	crops := make([]string, 0, len(byCrop))
	for name := range byCrop {
		crops = append(crops, name)
	}
	slices.Sort(crops)
	for _, name := range crops {
		cs := byCrop[name]
		fmt.Fprintf(w, "  %s: harvests=%d yield=%.2ft profit=%.2f\n", name, cs.harvests, cs.yield, cs.profit)
	}
}
