package models

import "strings"

const (
	// DefaultTopK is the number of results returned when a query leaves TopK unset.
	DefaultTopK = 10
	// MaxTopK caps TopK for requests arriving over the API.
	MaxTopK = 1000
)

// RetrievalQuery is a BM25 retrieval request.
type RetrievalQuery struct {
	Query   string         `json:"query"`
	Filters map[string]any `json:"filters,omitempty"`
	TopK    int            `json:"top_k,omitempty"`
	// ScaleScore squashes raw BM25 scores into (0,1). Nil means true.
	ScaleScore *bool `json:"scale_score,omitempty"`
}

// Validate rejects an empty query and fills defaults for TopK and ScaleScore.
// maxTopK <= 0 means MaxTopK.
func (q *RetrievalQuery) Validate(defaultTopK, maxTopK int) error {
	if strings.TrimSpace(q.Query) == "" {
		return InvalidInputf("query cannot be empty")
	}
	if defaultTopK <= 0 {
		defaultTopK = DefaultTopK
	}
	if maxTopK <= 0 {
		maxTopK = MaxTopK
	}
	if q.TopK <= 0 {
		q.TopK = defaultTopK
	}
	if q.TopK > maxTopK {
		q.TopK = maxTopK
	}
	if q.ScaleScore == nil {
		scale := true
		q.ScaleScore = &scale
	}
	return nil
}

// Scale returns the effective ScaleScore flag.
func (q *RetrievalQuery) Scale() bool {
	return q.ScaleScore == nil || *q.ScaleScore
}

// FilterRequest selects documents by metadata.
type FilterRequest struct {
	Filters map[string]any `json:"filters,omitempty"`
}

// DeleteRequest removes documents by id.
type DeleteRequest struct {
	IDs []string `json:"ids"`
}

// WriteRequest is a batch of documents to store. Each document is a flat
// field mapping as accepted by DocumentFromMap. An empty Policy selects the
// server default.
type WriteRequest struct {
	Documents []map[string]any `json:"documents"`
	Policy    string           `json:"policy,omitempty"`
}
