// Package docstore is an in-memory document store with metadata filtering
// and BM25 keyword retrieval.
//
//	store, err := docstore.New(docstore.WithAlgorithm("BM25Plus"))
//	if err != nil { ... }
//	_, err = store.Write(ctx, []*docstore.Document{
//		docstore.NewTextDocument("a", "The quick brown fox", nil),
//	}, docstore.PolicyFail)
//	docs, err := store.BM25Retrieval(ctx, "fox", nil, 10, true)
package docstore

import (
	"context"

	"github.com/hyperjump/docstore/internal/config"
	"github.com/hyperjump/docstore/internal/models"
	"github.com/hyperjump/docstore/internal/search"
	"github.com/hyperjump/docstore/internal/storage"
	"go.uber.org/zap"
)

type (
	// Document is a stored record.
	Document = models.Document
	// Table is tabular document content.
	Table = models.Table
	// Metadata maps field names to typed values.
	Metadata = models.Metadata
	// Value is a typed metadata value.
	Value = models.Value
	// ContentType tags a document's content shape.
	ContentType = models.ContentType
	// DuplicatePolicy decides what a write does with an existing id.
	DuplicatePolicy = storage.DuplicatePolicy
)

const (
	ContentTypeText  = models.ContentTypeText
	ContentTypeTable = models.ContentTypeTable

	PolicySkip      = storage.PolicySkip
	PolicyOverwrite = storage.PolicyOverwrite
	PolicyFail      = storage.PolicyFail
)

// Error kinds, for use with errors.Is.
var (
	ErrInvalidInput           = models.ErrInvalidInput
	ErrDuplicateDocument      = models.ErrDuplicateDocument
	ErrMissingDocument        = models.ErrMissingDocument
	ErrUnknownFilterOperator  = models.ErrUnknownFilterOperator
	ErrUnsupportedComparison  = models.ErrUnsupportedComparison
	ErrUnsupportedContentType = models.ErrUnsupportedContentType
	ErrUnknownAlgorithm       = models.ErrUnknownAlgorithm
)

var (
	NewTextDocument  = models.NewTextDocument
	NewTableDocument = models.NewTableDocument
	NewTable         = models.NewTable
	DocumentFromMap  = models.DocumentFromMap
	MetadataOf       = models.MetadataOf
)

// DocumentStore is safe for concurrent use.
type DocumentStore struct {
	storage *storage.MemoryStorage
	engine  *search.Engine
}

type options struct {
	store  config.StoreConfig
	logger *zap.Logger
}

// Option configures New.
type Option func(*options)

// WithAlgorithm selects the BM25 variant: BM25Okapi (default), BM25L or BM25Plus.
func WithAlgorithm(name string) Option {
	return func(o *options) { o.store.BM25Algorithm = name }
}

// WithParameters sets algorithm parameters such as k1, b, epsilon or delta.
func WithParameters(params map[string]float64) Option {
	return func(o *options) { o.store.BM25Parameters = params }
}

// WithTokenizationPattern replaces the default two-or-more word character pattern.
func WithTokenizationPattern(pattern string) Option {
	return func(o *options) { o.store.BM25TokenizationRegex = pattern }
}

// WithLogger sets the logger used for store and retrieval diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New returns an empty store. An unknown algorithm fails with
// ErrUnknownAlgorithm and bad parameters with ErrInvalidInput.
func New(opts ...Option) (*DocumentStore, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	mem := storage.NewMemoryStorage(storage.WithLogger(o.logger))
	engine, err := search.NewEngine(mem, &o.store, search.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}
	return &DocumentStore{storage: mem, engine: engine}, nil
}

// Algorithm returns the configured BM25 variant name.
func (s *DocumentStore) Algorithm() string { return string(s.engine.Algorithm()) }

// Count returns the number of stored documents.
func (s *DocumentStore) Count(ctx context.Context) int {
	return s.storage.CountDocuments(ctx)
}

// Filter returns the documents matching filters. The returned documents are
// shared with the store and must not be modified.
func (s *DocumentStore) Filter(ctx context.Context, filters map[string]any) ([]*Document, error) {
	return s.storage.FilterDocuments(ctx, filters)
}

// Write stores docs under policy and returns how many were written. An empty
// policy means PolicyFail.
func (s *DocumentStore) Write(ctx context.Context, docs []*Document, policy DuplicatePolicy) (int, error) {
	return s.storage.WriteDocuments(ctx, docs, policy)
}

// Delete removes the documents with the given ids.
func (s *DocumentStore) Delete(ctx context.Context, ids []string) error {
	return s.storage.DeleteDocuments(ctx, ids)
}

// Get returns a copy of the document with id.
func (s *DocumentStore) Get(ctx context.Context, id string) (*Document, error) {
	return s.storage.GetDocument(ctx, id)
}

// BM25Retrieval returns up to topK text and table documents ranked by
// relevance to query. Each result is a copy carrying its score; when scale is
// true scores lie in (0, 1).
func (s *DocumentStore) BM25Retrieval(ctx context.Context, query string, filters map[string]any, topK int, scale bool) ([]*Document, error) {
	return s.engine.BM25Retrieval(ctx, query, filters, topK, scale)
}
