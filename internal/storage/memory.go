package storage

import (
	"context"
	"slices"
	"sync"

	"github.com/hyperjump/docstore/internal/filter"
	"github.com/hyperjump/docstore/internal/models"
	"go.uber.org/zap"
)

// MemoryStorage keeps documents in a map guarded by a RWMutex. Reads share
// the lock; writes and deletes take it exclusively. Nothing is persisted.
type MemoryStorage struct {
	mu    sync.RWMutex
	docs  map[string]*models.Document
	order []string // insertion order; overwrites keep their slot
	// logger is optional; skipped duplicates are reported at warn level.
	logger *zap.Logger
}

// MemoryOption configures a MemoryStorage.
type MemoryOption func(*MemoryStorage)

// WithLogger sets a logger for duplicate and delete events.
func WithLogger(l *zap.Logger) MemoryOption {
	return func(s *MemoryStorage) { s.logger = l }
}

// NewMemoryStorage returns an empty store.
func NewMemoryStorage(opts ...MemoryOption) *MemoryStorage {
	s := &MemoryStorage{docs: make(map[string]*models.Document)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ Storage = (*MemoryStorage)(nil)

func (s *MemoryStorage) CountDocuments(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func (s *MemoryStorage) FilterDocuments(ctx context.Context, filters map[string]any) ([]*models.Document, error) {
	expr, err := filter.Parse(filters)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Document, 0, len(s.order))
	for _, id := range s.order {
		doc := s.docs[id]
		if expr != nil {
			ok, err := expr.Match(doc)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		out = append(out, doc)
	}
	return out, nil
}

// WriteDocuments validates the whole batch before touching the store. After
// that, documents are applied in order and a duplicate under PolicyFail stops
// the batch with the earlier documents already written. The empty policy
// means DefaultPolicy.
func (s *MemoryStorage) WriteDocuments(ctx context.Context, docs []*models.Document, policy DuplicatePolicy) (int, error) {
	if docs == nil {
		return 0, models.InvalidInputf("documents must be a list")
	}
	if policy == "" {
		policy = DefaultPolicy
	}
	if !policy.Valid() {
		return 0, models.InvalidInputf("unknown duplicate policy %q", policy)
	}
	for i, doc := range docs {
		if doc == nil {
			return 0, models.InvalidInputf("document %d is nil", i)
		}
		if doc.ID == "" {
			return 0, models.InvalidInputf("document %d has an empty id", i)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	written := 0
	for _, doc := range docs {
		stored := doc.Clone()
		stored.Score = nil
		if _, exists := s.docs[doc.ID]; exists {
			switch policy {
			case PolicySkip:
				if s.logger != nil {
					s.logger.Warn("duplicate document skipped", zap.String("id", doc.ID))
				}
				continue
			case PolicyFail:
				return written, models.NewDuplicateDocument(doc.ID)
			case PolicyOverwrite:
				if s.logger != nil {
					s.logger.Debug("document overwritten", zap.String("id", doc.ID))
				}
			}
		} else {
			s.order = append(s.order, doc.ID)
		}
		s.docs[doc.ID] = stored
		written++
	}
	return written, nil
}

// DeleteDocuments removes ids in order. A missing id stops the batch with
// ErrMissingDocument; ids before it stay deleted.
func (s *MemoryStorage) DeleteDocuments(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := make(map[string]struct{}, len(ids))
	defer func() {
		if len(removed) > 0 {
			s.order = slices.DeleteFunc(s.order, func(id string) bool {
				_, ok := removed[id]
				return ok
			})
		}
	}()
	for _, id := range ids {
		if _, ok := s.docs[id]; !ok {
			return models.NewMissingDocument(id)
		}
		delete(s.docs, id)
		removed[id] = struct{}{}
		if s.logger != nil {
			s.logger.Debug("document deleted", zap.String("id", id))
		}
	}
	return nil
}

func (s *MemoryStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, models.NewMissingDocument(id)
	}
	return doc.Clone(), nil
}
