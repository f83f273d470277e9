// Package docapi is the HTTP client for the remote document service.
package docapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/docview/internal/apperr"
	"github.com/starford/docview/internal/credential"
	"github.com/starford/docview/internal/models"
)

const maxErrorBody = 64 << 10

// StatusError is returned for any non-2xx response other than 401.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("status %d: %s", e.Code, e.Detail)
	}
	return fmt.Sprintf("status %d", e.Code)
}

// Is maps 404 onto apperr.ErrNotFound and 409 onto apperr.ErrConflict.
func (e *StatusError) Is(target error) bool {
	switch target {
	case apperr.ErrNotFound:
		return e.Code == http.StatusNotFound
	case apperr.ErrConflict:
		return e.Code == http.StatusConflict
	}
	return false
}

// Client talks to the document service. The bearer token is read from the
// credential store on every request.
type Client struct {
	baseURL string
	http    *http.Client
	creds   credential.Store
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithTimeout sets the per-request timeout on the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http = &http.Client{Timeout: d}
	}
}

// New creates a Client for baseURL (e.g. "http://localhost:8000").
func New(baseURL string, creds credential.Store, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		creds:   creds,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchDocument handles GET /documents/{id}.
func (c *Client) FetchDocument(ctx context.Context, id int) (*models.DocumentRecord, error) {
	var rec models.DocumentRecord
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/documents/%d", id), nil, &rec); err != nil {
		return nil, fmt.Errorf("fetch document %d: %w", id, err)
	}
	return &rec, nil
}

// AskQuestion handles POST /documents/{id}/query.
func (c *Client) AskQuestion(ctx context.Context, id int, question string) (*models.Query, error) {
	var q models.Query
	body := models.QuestionRequest{Question: question}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/documents/%d/query", id), body, &q); err != nil {
		return nil, fmt.Errorf("ask question on document %d: %w", id, err)
	}
	return &q, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token, err := c.creds.Token()
	if err != nil {
		return fmt.Errorf("read credential: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("docapi: request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("request_id", reqID),
			slog.String("error", err.Error()))
		return err
	}
	defer resp.Body.Close()

	c.logger.Debug("docapi: response",
		slog.String("method", method),
		slog.String("path", path),
		slog.String("request_id", reqID),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)))

	if resp.StatusCode == http.StatusUnauthorized {
		return apperr.ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Detail: errorDetail(resp.Body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorDetail extracts a message from {"detail": ...} or {"error": ...} bodies.
func errorDetail(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var body struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return strings.TrimSpace(string(raw))
	}
	if len(body.Detail) > 0 {
		var s string
		if err := json.Unmarshal(body.Detail, &s); err == nil {
			return s
		}
		// Validation errors carry a structured detail; keep it verbatim.
		return string(body.Detail)
	}
	return body.Error
}

// IsUnauthorized reports whether err is an authentication failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, apperr.ErrUnauthorized)
}
