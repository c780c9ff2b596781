package keyword

import (
	"bytes"
	"encoding/csv"
	"strings"

	"github.com/hyperjump/docstore/internal/models"
)

// Normalize returns the lowercase text surrogate scored for doc. Text content
// is lowercased as-is; tables are written as CSV (header row, then data rows,
// no index column) and lowercased. The second result is false for content
// types that are not lexically scorable.
func Normalize(doc *models.Document) (string, bool) {
	switch doc.ContentType {
	case models.ContentTypeText:
		return strings.ToLower(doc.Content), true
	case models.ContentTypeTable:
		if doc.Table == nil {
			return "", false
		}
		return strings.ToLower(TableCSV(doc.Table)), true
	default:
		return "", false
	}
}

// TableCSV renders t as deterministic CSV text.
func TableCSV(t *models.Table) string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(t.Columns)
	for _, row := range t.Rows {
		_ = w.Write(row)
	}
	w.Flush()
	return buf.String()
}
