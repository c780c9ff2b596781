// Package extract turns files into document content: free text or a table.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/docstore/internal/models"
)

// Content is what a file contributes to a document. Exactly one of Text or
// Table is meaningful, as reported by ContentType.
type Content struct {
	ContentType models.ContentType
	Text        string
	Table       *models.Table
}

// Document builds a document with id and metadata from c.
func (c *Content) Document(id string, metadata models.Metadata) *models.Document {
	if c.ContentType == models.ContentTypeTable {
		return models.NewTableDocument(id, c.Table, metadata)
	}
	return models.NewTextDocument(id, c.Text, metadata)
}

// Extractor extracts content from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Supported reports whether ext (with leading dot) has a dedicated extractor.
func Supported(ext string) bool {
	switch strings.ToLower(ext) {
	case ".pdf", ".docx", ".xlsx", ".csv", ".tsv", ".txt", ".md", ".rst":
		return true
	default:
		return false
	}
}

// Extract reads the file at path and returns its content.
// Plain text files (.txt, .md, .rst) are returned as-is (UTF-8 validated).
// PDF and DOCX yield text; XLSX, CSV and TSV yield a table whose first row is the header.
// Returns an error if the file cannot be read or parsed.
func (e *Extractor) Extract(path string) (*Content, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts content based on the given extension.
// ext should include the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractBytes(content []byte, ext string) (*Content, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return text(extractPDF(content))
	case ".docx":
		return text(extractDOCX(content))
	case ".xlsx":
		return table(extractExcel(content))
	case ".csv":
		return table(extractDelimited(content, ','))
	case ".tsv":
		return table(extractDelimited(content, '\t'))
	default:
		// .txt, .md, .rst and unknown extensions are plain text.
		return text(extractPlain(content))
	}
}

func text(s string, err error) (*Content, error) {
	if err != nil {
		return nil, err
	}
	return &Content{ContentType: models.ContentTypeText, Text: s}, nil
}

func table(t *models.Table, err error) (*Content, error) {
	if err != nil {
		return nil, err
	}
	return &Content{ContentType: models.ContentTypeTable, Table: t}, nil
}

// rowsToTable uses the first row as the header and pads or trims the
// remaining rows to its width.
func rowsToTable(rows [][]string) *models.Table {
	if len(rows) == 0 {
		return models.NewTable([]string{})
	}
	columns := rows[0]
	data := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		fixed := make([]string, len(columns))
		copy(fixed, row)
		data = append(data, fixed)
	}
	return models.NewTable(columns, data...)
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
