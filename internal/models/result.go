package models

// RetrievalResponse is the response for a BM25 retrieval request.
type RetrievalResponse struct {
	Query     string      `json:"query"`
	Documents []*Document `json:"documents"`
	Total     int         `json:"total"`
	QueryTime int64       `json:"query_time_ms"`
}

// FilterResponse lists documents matching a filter.
type FilterResponse struct {
	Documents []*Document `json:"documents"`
	Total     int         `json:"total"`
}

// WriteResponse reports the outcome of a write batch.
type WriteResponse struct {
	Written int      `json:"written"`
	IDs     []string `json:"ids"`
	Policy  string   `json:"policy"`
}

// CountResponse reports the number of stored documents.
type CountResponse struct {
	Count int `json:"count"`
}
