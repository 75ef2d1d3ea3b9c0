// Package report renders the MO cache for operators.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"mosync/mocache"
)

const sheetName = "MO cache"

var headers = []string{"MO", "SKU", "Quantity", "UoM", "Category", "Note", "Created", "Fetched", "Updated"}

const dateFormat = "2006-01-02 15:04"

// WriteCacheXLSX writes entries as a single-sheet workbook.
func WriteCacheXLSX(w io.Writer, entries []mocache.Entry, generatedAt time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheetName, "A1", last, bold); err != nil {
		return err
	}

	for r, e := range entries {
		row := []any{
			e.MONumber,
			e.SKUName,
			nil,
			e.UoM,
			mocache.Categorize(e.Note),
			e.Note,
			e.SourceCreatedAt.UTC().Format(dateFormat),
			e.FetchedAt.UTC().Format(dateFormat),
			e.LastUpdated.UTC().Format(dateFormat),
		}
		if e.Quantity != nil {
			row[2] = *e.Quantity
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("row %d: %w", r+2, err)
		}
	}

	footer, _ := excelize.CoordinatesToCellName(1, len(entries)+3)
	if err := f.SetCellValue(sheetName, footer, "Generated "+generatedAt.UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetName, "A", "B", 18); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetName, "F", "F", 40); err != nil {
		return err
	}
	return f.Write(w)
}
