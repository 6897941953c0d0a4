package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"chsld-scraper/internal/scraper"
)

const sheetName = "Sheet1"

// WriteXLSX writes the same table as WriteCSV with a filter on the header row.
// Every failure wraps ErrSpreadsheetWrite.
func WriteXLSX(path string, facilities []scraper.Facility) (err error) {
	f := excelize.NewFile()
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("%w: %v", ErrSpreadsheetWrite, closeErr)
		}
	}()

	if err := writeRow(f, 1, Header); err != nil {
		return err
	}
	for i, facility := range facilities {
		if err := writeRow(f, i+2, Row(facility)); err != nil {
			return err
		}
	}

	lastCol, err := excelize.CoordinatesToCellName(len(Header), 1)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSpreadsheetWrite, err)
	}
	if err := f.AutoFilter(sheetName, "A1:"+lastCol, []excelize.AutoFilterOptions{}); err != nil {
		return fmt.Errorf("%w: autofilter: %v", ErrSpreadsheetWrite, err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSpreadsheetWrite, path, err)
	}
	return nil
}

func writeRow(f *excelize.File, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSpreadsheetWrite, err)
	}

	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(sheetName, cell, &cells); err != nil {
		return fmt.Errorf("%w: row %d: %v", ErrSpreadsheetWrite, row, err)
	}
	return nil
}
