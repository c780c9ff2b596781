package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hyperjump/docstore/internal/models"
	"github.com/hyperjump/docstore/internal/search"
	"github.com/hyperjump/docstore/internal/storage"
	"go.uber.org/zap"
)

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var query models.RetrievalQuery
	if err := decodeBody(r, &query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := search.ProcessQuery(&query, &s.config.Retrieval); err != nil {
		s.respondErr(w, err)
		return
	}
	s.logger.Debug("retrieval request", zap.String("query", query.Query), zap.Int("top_k", query.TopK))
	response, err := s.engine.Retrieve(r.Context(), &query)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	var req models.WriteRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	policyName := req.Policy
	if policyName == "" {
		policyName = s.config.Store.DuplicatePolicy
	}
	policy, err := storage.ParseDuplicatePolicy(policyName)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	docs := make([]*models.Document, len(req.Documents))
	ids := make([]string, len(req.Documents))
	for i, fields := range req.Documents {
		doc, err := models.DocumentFromMap(fields)
		if err != nil {
			s.respondErr(w, err)
			return
		}
		if doc.ID == "" {
			doc.ID = uuid.NewString()
		}
		docs[i] = doc
		ids[i] = doc.ID
	}
	s.logger.Debug("write request", zap.Int("documents", len(docs)), zap.String("policy", string(policy)))
	written, err := s.storage.WriteDocuments(r.Context(), docs, policy)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, &models.WriteResponse{Written: written, IDs: ids, Policy: string(policy)})
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	var req models.FilterRequest
	// An empty body matches every document.
	if err := decodeBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	docs, err := s.storage.FilterDocuments(r.Context(), req.Filters)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, &models.FilterResponse{Documents: docs, Total: len(docs)})
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, &models.CountResponse{Count: s.storage.CountDocuments(r.Context())})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.storage.GetDocument(r.Context(), id)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete document request", zap.String("id", id))
	if err := s.storage.DeleteDocuments(r.Context(), []string{id}); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleDeleteMany(w http.ResponseWriter, r *http.Request) {
	var req models.DeleteRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("delete documents request", zap.Strings("ids", req.IDs))
	if err := s.storage.DeleteDocuments(r.Context(), req.IDs); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"status": "deleted", "deleted": len(req.IDs)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"documents": s.storage.CountDocuments(r.Context()),
	}
	configInfo := map[string]any{
		"bm25_algorithm":   string(s.engine.Algorithm()),
		"duplicate_policy": s.config.Store.DuplicatePolicy,
		"default_top_k":    s.config.Retrieval.DefaultTopK,
		"max_top_k":        s.config.Retrieval.MaxTopK,
		"scale_score":      s.config.Retrieval.ScaleScoreOrDefault(),
	}
	if s.config.Store.BM25TokenizationRegex != "" {
		configInfo["bm25_tokenization_regex"] = s.config.Store.BM25TokenizationRegex
	}
	if len(s.config.Store.BM25Parameters) > 0 {
		configInfo["bm25_parameters"] = s.config.Store.BM25Parameters
	}
	if s.watch != nil {
		configInfo["watch_directories"] = s.watch.Directories()
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

// decodeBody decodes a JSON request body, keeping numbers exact so integer
// metadata stays integral.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	return dec.Decode(v)
}

// statusFor maps a store error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrMissingDocument):
		return http.StatusNotFound
	case errors.Is(err, models.ErrDuplicateDocument):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidInput),
		errors.Is(err, models.ErrUnknownFilterOperator),
		errors.Is(err, models.ErrUnsupportedComparison),
		errors.Is(err, models.ErrUnsupportedContentType),
		errors.Is(err, models.ErrUnknownAlgorithm):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
