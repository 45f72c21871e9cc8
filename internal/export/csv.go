package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/couchcryptid/farm-sim-service/internal/domain"
)

// WriteCSV writes the daily table: a header row, then one row per record.
func WriteCSV(w io.Writer, records []domain.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(DailyHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i := range records {
		if err := cw.Write(dailyRow(records[i])); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
