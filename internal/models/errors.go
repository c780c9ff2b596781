package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput signals a malformed write batch, query or parameter.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDuplicateDocument signals a write under the fail policy that hit an existing id.
	ErrDuplicateDocument = errors.New("duplicate document")
	// ErrMissingDocument signals a delete or lookup of an absent id.
	ErrMissingDocument = errors.New("missing document")
	// ErrUnknownFilterOperator signals an unrecognized $-operator in a filter expression.
	ErrUnknownFilterOperator = errors.New("unknown filter operator")
	// ErrUnsupportedComparison signals an ordering comparison between non-comparable values.
	ErrUnsupportedComparison = errors.New("unsupported comparison")
	// ErrUnsupportedContentType signals a retrieval filter that excludes every scorable content type.
	ErrUnsupportedContentType = errors.New("unsupported content type")
	// ErrUnknownAlgorithm signals an unrecognized BM25 variant name.
	ErrUnknownAlgorithm = errors.New("unknown algorithm")
)

// DocumentError wraps a store error with the document id it concerns.
type DocumentError struct {
	ID  string
	Err error
}

func (e *DocumentError) Error() string {
	switch {
	case errors.Is(e.Err, ErrDuplicateDocument):
		return fmt.Sprintf("%s: id %q already exists", e.Err.Error(), e.ID)
	case errors.Is(e.Err, ErrMissingDocument):
		return fmt.Sprintf("%s: id %q not found", e.Err.Error(), e.ID)
	default:
		return fmt.Sprintf("%s: id %q", e.Err.Error(), e.ID)
	}
}

func (e *DocumentError) Unwrap() error { return e.Err }

// NewDuplicateDocument creates a duplicate document error for id.
func NewDuplicateDocument(id string) error {
	return &DocumentError{ID: id, Err: ErrDuplicateDocument}
}

// NewMissingDocument creates a missing document error for id.
func NewMissingDocument(id string) error {
	return &DocumentError{ID: id, Err: ErrMissingDocument}
}

// InvalidInputf formats a message and wraps it with ErrInvalidInput.
func InvalidInputf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
