package extract

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/hyperjump/docstore/internal/models"
)

func extractDelimited(content []byte, comma rune) (*models.Table, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(content, utf8BOM)))
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse delimited text: %w", err)
	}
	return rowsToTable(rows), nil
}
