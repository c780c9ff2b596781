// Package storage defines the document store interface and its in-memory implementation.
package storage

import (
	"context"

	"github.com/hyperjump/docstore/internal/models"
)

// Storage holds documents keyed by id.
type Storage interface {
	// CountDocuments returns the number of stored documents.
	CountDocuments(ctx context.Context) int
	// FilterDocuments returns the documents matching filters in stable
	// insertion order. Nil or empty filters match everything. Returned
	// documents are shared with the store and must be treated as read-only.
	FilterDocuments(ctx context.Context, filters map[string]any) ([]*models.Document, error)
	// WriteDocuments stores docs under policy and returns how many were written.
	WriteDocuments(ctx context.Context, docs []*models.Document, policy DuplicatePolicy) (int, error)
	// DeleteDocuments removes the documents with the given ids.
	DeleteDocuments(ctx context.Context, ids []string) error
	// GetDocument returns a copy of the document with id.
	GetDocument(ctx context.Context, id string) (*models.Document, error)
}
