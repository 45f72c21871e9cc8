// Package export renders simulation history as downloadable spreadsheets.
package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/couchcryptid/farm-sim-service/internal/domain"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "csv" or "xlsx", case-insensitively. Empty means csv.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q (want csv or xlsx)", domain.ErrInvalidArgument, s)
	}
}

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Filename returns the download name for a run's export.
func (f Format) Filename(runID string) string {
	if runID == "" {
		return "simulation." + string(f)
	}
	return "simulation-" + runID + "." + string(f)
}

// Write renders records in the given format.
func Write(w io.Writer, f Format, records []domain.Record) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, records)
	case FormatXLSX:
		return WriteXLSX(w, records)
	default:
		return fmt.Errorf("%w: unknown export format %q", domain.ErrInvalidArgument, f)
	}
}

// DailyHeader names the columns of the one-row-per-record daily table.
var DailyHeader = []string{
	"date", "timestamp",
	"temperature", "humidity", "precipitation",
	"totalFields", "fieldsPlanted", "fieldsHarvested",
	"averageHealth", "totalExpectedYield", "totalHarvestedToday", "profitToday",
	"harvests",
}

// HarvestHeader names the columns of the harvest table.
var HarvestHeader = []string{
	"date", "fieldId", "fieldName", "cropName",
	"areaHarvested", "yieldPerHectare", "totalYield", "efficiency",
	"revenue", "costs", "profit", "waterEfficiency", "healthAtHarvest",
}

func dailyRow(r domain.Record) []string {
	env, st := r.Environmental, r.Production.Stats
	return []string{
		r.Date,
		r.Timestamp.UTC().Format("2006-01-02T15:04:05Z07:00"),
		formatFloat(env.Temperature),
		formatFloat(env.Humidity),
		formatFloat(env.Precipitation),
		strconv.Itoa(st.TotalFields),
		strconv.Itoa(st.FieldsPlanted),
		strconv.Itoa(st.FieldsHarvested),
		formatFloat(st.AverageHealth),
		formatFloat(st.TotalExpectedYield),
		formatFloat(st.TotalHarvestedToday),
		formatFloat(st.ProfitToday),
		strconv.Itoa(len(r.Production.Harvests)),
	}
}

func harvestRow(date string, h domain.HarvestEvent) []string {
	waterEff := ""
	if h.WaterEfficiency != nil {
		waterEff = formatFloat(*h.WaterEfficiency)
	}
	return []string{
		date,
		strconv.Itoa(h.FieldID),
		h.FieldName,
		h.CropName,
		formatFloat(h.AreaHarvested),
		formatFloat(h.YieldPerHectare),
		formatFloat(h.TotalYield),
		formatFloat(h.Efficiency),
		formatFloat(h.Revenue),
		formatFloat(h.Costs),
		formatFloat(h.Profit),
		waterEff,
		formatFloat(h.HealthAtHarvest),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
