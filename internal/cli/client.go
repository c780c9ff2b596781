package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hyperjump/docstore/internal/models"
)

// DefaultServerURL is where the CLI looks for a running server.
const DefaultServerURL = "http://localhost:8080"

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps the status code back to the store error kind so callers can
// use errors.Is on client errors.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return models.ErrMissingDocument
	case http.StatusConflict:
		return models.ErrDuplicateDocument
	case http.StatusBadRequest:
		return models.ErrInvalidInput
	default:
		return nil
	}
}

// Client talks to the docstore HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the server at baseURL. An empty baseURL
// selects DefaultServerURL.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultServerURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Retrieve runs a BM25 retrieval.
func (c *Client) Retrieve(ctx context.Context, query *models.RetrievalQuery) (*models.RetrievalResponse, error) {
	var out models.RetrievalResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/retrieval/bm25", query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Filter returns the documents matching filters.
func (c *Client) Filter(ctx context.Context, filters map[string]any) (*models.FilterResponse, error) {
	var out models.FilterResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/documents/filter", &models.FilterRequest{Filters: filters}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Count returns the number of stored documents.
func (c *Client) Count(ctx context.Context) (int, error) {
	var out models.CountResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/documents/count", nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// Write stores docs under the named policy. An empty policy selects the
// server default.
func (c *Client) Write(ctx context.Context, docs []*models.Document, policy string) (*models.WriteResponse, error) {
	body := struct {
		Documents []*models.Document `json:"documents"`
		Policy    string             `json:"policy,omitempty"`
	}{Documents: docs, Policy: policy}
	var out models.WriteResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/documents", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get returns the document stored under id.
func (c *Client) Get(ctx context.Context, id string) (*models.Document, error) {
	var out models.Document
	if err := c.do(ctx, http.MethodGet, "/api/v1/documents/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes the documents with the given ids.
func (c *Client) Delete(ctx context.Context, ids []string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/documents", &models.DeleteRequest{IDs: ids}, nil)
}

// Status returns the server status document.
func (c *Client) Status(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.do(ctx, http.MethodGet, "/api/v1/status", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	b, _ := io.ReadAll(resp.Body)
	var payload struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(b))
	if err := json.Unmarshal(b, &payload); err == nil && payload.Error != "" {
		msg = payload.Error
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
