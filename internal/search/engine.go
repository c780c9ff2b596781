// Package search provides BM25 retrieval over the document store.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/docstore/internal/config"
	"github.com/hyperjump/docstore/internal/keyword"
	"github.com/hyperjump/docstore/internal/models"
	"github.com/hyperjump/docstore/internal/storage"
	"go.uber.org/zap"
)

// Engine scores the documents of a store against keyword queries. A fresh
// scorer is built from the filtered candidates on every call.
type Engine struct {
	storage   storage.Storage
	tokenizer *keyword.Tokenizer
	algorithm keyword.Algorithm
	params    keyword.Parameters
	logger    *zap.Logger // optional
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a logger for retrieval diagnostics.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine over store. The algorithm, its parameters and
// the tokenization pattern come from cfg and are validated eagerly.
func NewEngine(store storage.Storage, cfg *config.StoreConfig, opts ...EngineOption) (*Engine, error) {
	if cfg == nil {
		cfg = &config.StoreConfig{}
	}
	alg, err := keyword.ParseAlgorithm(cfg.BM25Algorithm)
	if err != nil {
		return nil, err
	}
	params := keyword.Parameters(cfg.BM25Parameters)
	if err := keyword.ValidateParameters(alg, params); err != nil {
		return nil, err
	}
	tok, err := keyword.NewTokenizer(cfg.BM25TokenizationRegex)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		storage:   store,
		tokenizer: tok,
		algorithm: alg,
		params:    params,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Algorithm returns the configured BM25 variant.
func (e *Engine) Algorithm() keyword.Algorithm { return e.algorithm }

// BM25Retrieval returns up to topK text and table documents ranked by BM25
// score against query. Results are copies carrying the score; stored
// documents are never modified.
func (e *Engine) BM25Retrieval(ctx context.Context, query string, filters map[string]any, topK int, scale bool) ([]*models.Document, error) {
	if strings.TrimSpace(query) == "" {
		return nil, models.InvalidInputf("query cannot be empty")
	}
	if topK < 1 {
		return nil, models.InvalidInputf("top_k must be positive, got %d", topK)
	}
	effective, err := EffectiveFilters(filters)
	if err != nil {
		return nil, err
	}
	candidates, err := e.storage.FilterDocuments(ctx, effective)
	if err != nil {
		return nil, fmt.Errorf("filter candidates: %w", err)
	}

	// Candidates whose content cannot be normalized (a table record with no
	// table) stay in the index space with an empty token list.
	corpus := make([][]string, len(candidates))
	for i, doc := range candidates {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if text, ok := keyword.Normalize(doc); ok {
			corpus[i] = e.tokenizer.Tokenize(text)
		}
	}
	if len(corpus) == 0 {
		if e.logger != nil {
			e.logger.Warn("no documents found for BM25 retrieval")
		}
		return []*models.Document{}, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	scorer, err := keyword.NewScorer(e.algorithm, corpus, e.params)
	if err != nil {
		return nil, err
	}
	scores := scorer.Scores(e.tokenizer.Tokenize(Normalize(query)))
	if scale {
		ScaleScores(scores)
	}
	positions := TopK(scores, topK)

	out := make([]*models.Document, len(positions))
	for i, pos := range positions {
		out[i] = candidates[pos].WithScore(scores[pos])
	}
	if e.logger != nil {
		e.logger.Debug("bm25 retrieval",
			zap.String("algorithm", string(e.algorithm)),
			zap.Int("candidates", len(candidates)),
			zap.Int("returned", len(out)),
			zap.Duration("took", time.Since(start)),
		)
	}
	return out, nil
}

// Retrieve runs a validated RetrievalQuery and wraps the results.
func (e *Engine) Retrieve(ctx context.Context, q *models.RetrievalQuery) (*models.RetrievalResponse, error) {
	start := time.Now()
	docs, err := e.BM25Retrieval(ctx, q.Query, q.Filters, q.TopK, q.Scale())
	if err != nil {
		return nil, err
	}
	return &models.RetrievalResponse{
		Query:     q.Query,
		Documents: docs,
		Total:     len(docs),
		QueryTime: time.Since(start).Milliseconds(),
	}, nil
}
