// Command validate audits a persisted simulation history: chronology, value
// bounds, field lifecycle, and daily aggregates. When a latest document is
// given it must match the final history record.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -history data/simulation_data.json \
//	  -latest data/latest_data.json \
//	  -step day
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"reflect"

	"github.com/couchcryptid/farm-sim-service/internal/audit"
	"github.com/couchcryptid/farm-sim-service/internal/domain"
)

func main() {
	historyPath := flag.String("history", "", "path to simulation_data.json")
	latestPath := flag.String("latest", "", "optional path to latest_data.json")
	step := flag.String("step", "day", "time step the history was generated with")
	flag.Parse()

	if *historyPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*historyPath, *latestPath, *step))
}

func run(historyPath, latestPath, step string) int {
	ts, err := domain.ParseTimeStep(step)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	fmt.Println("=== Simulation History Validation ===")
	fmt.Println()

	history, err := loadJSON[[]domain.Record](historyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load history: %v\n", err)
		return 1
	}
	if len(history) == 0 {
		fmt.Fprintln(os.Stderr, "FATAL: history is empty")
		return 1
	}

	opts := audit.DefaultOptions()
	opts.Step = ts
	report := audit.Check(history, opts)

	phases := report.Phases
	if latestPath != "" {
		latest, err := loadJSON[domain.Record](latestPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load latest: %v\n", err)
			return 1
		}
		phases = append(phases, checkLatest(history, latest))
	}

	// ── Report results ──
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.Passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.Errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.Name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d (%s .. %s)\n", report.Records, history[0].Date, history[len(history)-1].Date)

	for _, p := range phases {
		if p.Passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.Name)
		for i, e := range p.Errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// checkLatest compares the latest document with the final history record
// after both have been through the same JSON decoding.
func checkLatest(history []domain.Record, latest domain.Record) *audit.Phase {
	p := &audit.Phase{Name: "latest document"}
	last := history[len(history)-1]
	switch {
	case latest.Date != last.Date:
		p.Errors = append(p.Errors, fmt.Sprintf("latest date %s, history ends %s", latest.Date, last.Date))
	case !latest.Timestamp.Equal(last.Timestamp):
		p.Errors = append(p.Errors, fmt.Sprintf("latest timestamp %s, history ends %s", latest.Timestamp, last.Timestamp))
	case !reflect.DeepEqual(latest.Environmental, last.Environmental):
		p.Errors = append(p.Errors, "latest environmental block differs from the final record")
	case !reflect.DeepEqual(latest.Production.Stats, last.Production.Stats):
		p.Errors = append(p.Errors, "latest production stats differ from the final record")
	}
	return p
}

func loadJSON[T any](path string) (T, error) {
	var v T
	data, err := os.ReadFile(path)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", path, err)
	}
	return v, nil
}
