package docapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/docview/internal/apperr"
	"github.com/starford/docview/internal/credential"
	"github.com/starford/docview/internal/models"
)

func TestFetchDocument_SendsBearerAndDecodes(t *testing.T) {
	var gotAuth, gotReqID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get("X-Request-ID")
		assert.Equal(t, "/documents/5", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":5,"title":"Loan","summary":"Loan terms"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, credential.NewMemoryStore("tok"))
	rec, err := c.FetchDocument(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.NotEmpty(t, gotReqID)
	assert.Equal(t, 5, rec.ID)
	require.NotNil(t, rec.Summary)
	assert.Equal(t, "Loan terms", *rec.Summary)
	assert.Nil(t, rec.Content)
}

func TestFetchDocument_NoTokenNoHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"id":1,"title":"t"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, credential.NewMemoryStore("")).FetchDocument(context.Background(), 1)
	require.NoError(t, err)
}

func TestFetchDocument_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Could not validate credentials"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, credential.NewMemoryStore("old")).FetchDocument(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
}

func TestFetchDocument_StatusErrorDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Document not found"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, credential.NewMemoryStore("t")).FetchDocument(context.Background(), 9)
	require.Error(t, err)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, "Document not found", se.Detail)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.False(t, IsUnauthorized(err))
}

func TestAskQuestion_PostsBody(t *testing.T) {
	ts := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/documents/3/query", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var req models.QuestionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_ = json.NewEncoder(w).Encode(models.Query{
			Question:  req.Question,
			Answer:    "42",
			Timestamp: models.NewTimestamp(ts),
		})
	}))
	defer srv.Close()

	q, err := New(srv.URL, credential.NewMemoryStore("t")).AskQuestion(context.Background(), 3, "why?")
	require.NoError(t, err)
	assert.Equal(t, "why?", q.Question)
	assert.Equal(t, "42", q.Answer)
	assert.True(t, q.Timestamp.Equal(ts))
}

func TestAskQuestion_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := New(srv.URL, credential.NewMemoryStore("t")).AskQuestion(context.Background(), 3, "q")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	assert.Equal(t, "boom", se.Detail)
}
