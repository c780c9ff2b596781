package extract

import (
	"bytes"
	"fmt"

	"github.com/hyperjump/docstore/internal/models"
	"github.com/xuri/excelize/v2"
)

// extractExcel reads the first sheet that has any rows.
func extractExcel(content []byte) (*models.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		if len(rows) > 0 {
			return rowsToTable(rows), nil
		}
	}
	return rowsToTable(nil), nil
}
