package pipeline

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"beersync/internal"
)

// ExportJournalXLSX writes the journal entries for one date to a workbook
// for operator review before the push.
func ExportJournalXLSX(date string, entries []internal.JournalEntry, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{
		"date", "commercial_name", "regulatory_name", "excise_code", "kind_code", "capacity", "quantity", "price",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, entry := range entries {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, date)
		set(2, entry.CommercialName)
		set(3, entry.RegulatoryName)
		set(4, entry.Code)
		set(5, entry.KindCode)
		set(6, entry.Capacity)
		set(7, entry.Quantity)
		set(8, entry.Price.String())
	}

	return saveWorkbook(f, outputPath)
}

// ExportRejectionsXLSX writes the refused correspondence rows with their
// reasons.
func ExportRejectionsXLSX(rejections []internal.Rejection, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{"commercial_name", "excise_code", "reason"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, rejection := range rejections {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, rejection.Row.Name)
		set(2, rejection.Row.Code)
		set(3, string(rejection.Reason))
	}

	return saveWorkbook(f, outputPath)
}

func saveWorkbook(f *excelize.File, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}
