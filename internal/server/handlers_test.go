package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hyperjump/docstore/internal/config"
	"github.com/hyperjump/docstore/internal/models"
	"github.com/hyperjump/docstore/internal/search"
	"github.com/hyperjump/docstore/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockWatchService struct {
	dirs []string
}

func (m *mockWatchService) Directories() []string {
	return append([]string(nil), m.dirs...)
}

func newTestServer(t *testing.T, watch WatchService) (*Server, *storage.MemoryStorage) {
	t.Helper()
	cfg := config.Default()
	store := storage.NewMemoryStorage()
	engine, err := search.NewEngine(store, &cfg.Store)
	require.NoError(t, err)
	return NewServer(engine, store, cfg, zap.NewNop(), watch), store
}

func seed(t *testing.T, store *storage.MemoryStorage) {
	t.Helper()
	_, err := store.WriteDocuments(context.Background(), []*models.Document{
		models.NewTextDocument("a", "the quick brown fox", models.Metadata{"lang": models.String("en"), "year": models.Int(2020)}),
		models.NewTextDocument("b", "lazy dogs sleep all day", models.Metadata{"lang": models.String("en"), "year": models.Int(2023)}),
		models.NewTableDocument("c", models.NewTable([]string{"animal", "sound"}, []string{"fox", "yip"}), nil),
		{ID: "d", Content: "s3://bucket/fox.png", ContentType: models.ContentTypeImage},
	}, storage.PolicyFail)
	require.NoError(t, err)
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, path, &buf)
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	w := do(t, srv.Routes(), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok"`)
}

func TestHandleStatus(t *testing.T) {
	srv, store := newTestServer(t, &mockWatchService{dirs: []string{"/tmp/docs"}})
	seed(t, store)

	w := do(t, srv.Routes(), http.MethodGet, "/api/v1/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Documents int `json:"documents"`
		Config    struct {
			Algorithm   string   `json:"bm25_algorithm"`
			Policy      string   `json:"duplicate_policy"`
			Directories []string `json:"watch_directories"`
		} `json:"config"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	assert.Equal(t, 4, out.Documents)
	assert.Equal(t, "BM25Okapi", out.Config.Algorithm)
	assert.Equal(t, "fail", out.Config.Policy)
	assert.Equal(t, []string{"/tmp/docs"}, out.Config.Directories)
}

func TestHandleWrite(t *testing.T) {
	srv, store := newTestServer(t, nil)
	h := srv.Routes()

	w := do(t, h, http.MethodPost, "/api/v1/documents", map[string]any{
		"documents": []map[string]any{
			{"id": "x", "content": "hello world", "metadata": map[string]any{"n": 1}},
			{"content": "no id given"},
			{"table": map[string]any{"columns": []string{"k"}, "rows": [][]any{{1}}}},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp models.WriteResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 3, resp.Written)
	assert.Equal(t, "fail", resp.Policy)
	require.Len(t, resp.IDs, 3)
	assert.Equal(t, "x", resp.IDs[0])
	assert.NotEmpty(t, resp.IDs[1])
	assert.Equal(t, 3, store.CountDocuments(context.Background()))

	doc, err := store.GetDocument(context.Background(), "x")
	require.NoError(t, err)
	n, ok := doc.Metadata["n"].AsInt()
	assert.True(t, ok, "integer metadata should stay integral")
	assert.Equal(t, int64(1), n)

	tbl, err := store.GetDocument(context.Background(), resp.IDs[2])
	require.NoError(t, err)
	assert.Equal(t, models.ContentTypeTable, tbl.ContentType)
}

func TestHandleWrite_Policies(t *testing.T) {
	srv, store := newTestServer(t, nil)
	seed(t, store)
	h := srv.Routes()
	batch := []map[string]any{{"id": "a", "content": "replaced"}}

	w := do(t, h, http.MethodPost, "/api/v1/documents", map[string]any{"documents": batch})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, h, http.MethodPost, "/api/v1/documents", map[string]any{"documents": batch, "policy": "skip"})
	require.Equal(t, http.StatusCreated, w.Code)
	doc, _ := store.GetDocument(context.Background(), "a")
	assert.Equal(t, "the quick brown fox", doc.Content)

	w = do(t, h, http.MethodPost, "/api/v1/documents", map[string]any{"documents": batch, "policy": "overwrite"})
	require.Equal(t, http.StatusCreated, w.Code)
	doc, _ = store.GetDocument(context.Background(), "a")
	assert.Equal(t, "replaced", doc.Content)

	w = do(t, h, http.MethodPost, "/api/v1/documents", map[string]any{"documents": batch, "policy": "merge"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleWrite_InvalidBody(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Routes()

	r := httptest.NewRequest(http.MethodPost, "/api/v1/documents", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodPost, "/api/v1/documents", map[string]any{
		"documents": []map[string]any{{"id": "t", "content_type": "table"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleFilterAndCount(t *testing.T) {
	srv, store := newTestServer(t, nil)
	seed(t, store)
	h := srv.Routes()

	w := do(t, h, http.MethodGet, "/api/v1/documents/count", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var count models.CountResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&count))
	assert.Equal(t, 4, count.Count)

	w = do(t, h, http.MethodPost, "/api/v1/documents/filter", map[string]any{
		"filters": map[string]any{"year": map[string]any{"$gte": 2021}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	var filtered models.FilterResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&filtered))
	require.Equal(t, 1, filtered.Total)
	assert.Equal(t, "b", filtered.Documents[0].ID)

	w = do(t, h, http.MethodPost, "/api/v1/documents/filter", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&filtered))
	assert.Equal(t, 4, filtered.Total)

	w = do(t, h, http.MethodPost, "/api/v1/documents/filter", map[string]any{
		"filters": map[string]any{"year": map[string]any{"$near": 1}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleGetAndDelete(t *testing.T) {
	srv, store := newTestServer(t, nil)
	seed(t, store)
	h := srv.Routes()

	w := do(t, h, http.MethodGet, "/api/v1/documents/a", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var doc models.Document
	require.NoError(t, json.NewDecoder(w.Body).Decode(&doc))
	assert.Equal(t, "the quick brown fox", doc.Content)

	w = do(t, h, http.MethodGet, "/api/v1/documents/zzz", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodDelete, "/api/v1/documents/a", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, h, http.MethodDelete, "/api/v1/documents/a", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodDelete, "/api/v1/documents", models.DeleteRequest{IDs: []string{"b", "c"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, store.CountDocuments(context.Background()))
}

func TestHandleRetrieve(t *testing.T) {
	srv, store := newTestServer(t, nil)
	seed(t, store)
	h := srv.Routes()

	w := do(t, h, http.MethodPost, "/api/v1/retrieval/bm25", models.RetrievalQuery{Query: "fox", TopK: 5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp models.RetrievalResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotEmpty(t, resp.Documents)
	ids := make([]string, len(resp.Documents))
	for i, d := range resp.Documents {
		ids[i] = d.ID
		require.NotNil(t, d.Score)
		assert.Greater(t, *d.Score, 0.0)
		assert.Less(t, *d.Score, 1.0)
	}
	assert.NotContains(t, ids, "d", "image documents are never scored")

	w = do(t, h, http.MethodPost, "/api/v1/retrieval/bm25", models.RetrievalQuery{Query: "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodPost, "/api/v1/retrieval/bm25", models.RetrievalQuery{
		Query:   "fox",
		Filters: map[string]any{"content_type": "image"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.NewMissingDocument("x"), http.StatusNotFound},
		{models.NewDuplicateDocument("x"), http.StatusConflict},
		{models.InvalidInputf("bad"), http.StatusBadRequest},
		{models.ErrUnsupportedContentType, http.StatusBadRequest},
		{models.ErrUnknownFilterOperator, http.StatusBadRequest},
		{context.Canceled, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
