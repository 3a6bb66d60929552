package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"skyline/api/internal/store"
)

// LeadsXLSX renders leads as a real xlsx workbook with the same columns as
// the CSV export.
func LeadsXLSX(leads []store.Lead) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Leads"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	header := make([]any, len(leadHeader))
	for i, col := range leadHeader {
		header[i] = col
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, lead := range leads {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("cell name: %w", err)
		}
		values := leadRow(lead)
		row := make([]any, len(values))
		for j, value := range values {
			row[j] = value
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}
