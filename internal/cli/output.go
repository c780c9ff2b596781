// Package cli provides the HTTP client and output formatting for the docstore CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/hyperjump/docstore/internal/keyword"
	"github.com/hyperjump/docstore/internal/models"
	"github.com/hyperjump/docstore/pkg/utils"
)

// OutputFormat is the format for result output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputCompact prints one document per line.
	OutputCompact OutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat resolves a format name.
func ParseOutputFormat(name string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(name)); f {
	case OutputText, OutputCompact, OutputJSON:
		return f, nil
	case "":
		return OutputText, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text, compact, or json", name)
	}
}

const previewLen = 200

// WriteRetrievalResults writes ranked results to w in the given format.
func WriteRetrievalResults(w io.Writer, response *models.RetrievalResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, response)
	case OutputCompact:
		for i, doc := range response.Documents {
			fmt.Fprintf(w, "%d\t%.4f\t%s\t%s\n", i+1, scoreOf(doc), doc.ID, oneLine(preview(doc), 80))
		}
		return nil
	default:
		fmt.Fprintf(w, "\nFound %d results for %q in %dms\n\n", response.Total, response.Query, response.QueryTime)
		for i, doc := range response.Documents {
			fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
			fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", i+1, scoreOf(doc))
			writeDocumentText(w, doc)
		}
		return nil
	}
}

// WriteDocuments writes unranked documents, as returned by filter or get, to w.
func WriteDocuments(w io.Writer, response *models.FilterResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, response)
	case OutputCompact:
		for _, doc := range response.Documents {
			fmt.Fprintf(w, "%s\t%s\t%s\n", doc.ID, doc.ContentType, oneLine(preview(doc), 80))
		}
		return nil
	default:
		fmt.Fprintf(w, "\n%d documents\n\n", response.Total)
		for _, doc := range response.Documents {
			fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
			writeDocumentText(w, doc)
		}
		return nil
	}
}

func writeDocumentText(w io.Writer, doc *models.Document) {
	fmt.Fprintf(w, "ID: %s (%s)\n", doc.ID, doc.ContentType)
	if len(doc.Metadata) > 0 {
		keys := make([]string, 0, len(doc.Metadata))
		for k := range doc.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  %s: %s\n", k, doc.Metadata[k].String())
		}
	}
	fmt.Fprintf(w, "\n%s\n\n", preview(doc))
}

// preview renders a document's content for display. Tables print as CSV;
// other content types print their content reference.
func preview(doc *models.Document) string {
	text := doc.Content
	if doc.ContentType == models.ContentTypeTable && doc.Table != nil {
		text = keyword.TableCSV(doc.Table)
	}
	return utils.Truncate(text, previewLen)
}

func oneLine(s string, maxLen int) string {
	return utils.Truncate(strings.Join(strings.Fields(s), " "), maxLen)
}

func scoreOf(doc *models.Document) float64 {
	if doc.Score == nil {
		return 0
	}
	return *doc.Score
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
