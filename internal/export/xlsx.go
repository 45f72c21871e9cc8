package export

import (
	"fmt"
	"io"

	"github.com/couchcryptid/farm-sim-service/internal/domain"
	"github.com/xuri/excelize/v2"
)

// Sheet names in the workbook.
const (
	SheetDaily    = "daily"
	SheetHarvests = "harvests"
)

// WriteXLSX writes a workbook with the daily table and a harvest table.
func WriteXLSX(w io.Writer, records []domain.Record) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if err := f.SetSheetName("Sheet1", SheetDaily); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetHarvests); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	if err := setRow(f, SheetDaily, 1, DailyHeader); err != nil {
		return err
	}
	if err := setRow(f, SheetHarvests, 1, HarvestHeader); err != nil {
		return err
	}

	harvestLine := 2
	for i := range records {
		if err := setRow(f, SheetDaily, i+2, dailyRow(records[i])); err != nil {
			return err
		}
		for _, h := range records[i].Production.Harvests {
			if err := setRow(f, SheetHarvests, harvestLine, harvestRow(records[i].Date, h)); err != nil {
				return err
			}
			harvestLine++
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	vals := make([]any, len(values))
	for i, v := range values {
		vals[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
		return fmt.Errorf("%s row %d: %w", sheet, row, err)
	}
	return nil
}
