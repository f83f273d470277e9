// Package testutil provides shared test helpers for fixture stores and servers.
package testutil

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/starford/docview/internal/fixtures"
)

// TestStore creates a temporary SQLite fixture store that is automatically
// cleaned up.
func TestStore(t *testing.T) *fixtures.Store {
	t.Helper()
	store, err := fixtures.Open(filepath.Join(t.TempDir(), "fixtures.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// TestServer starts a fixture server holding seed. A non-empty token turns
// on Bearer authentication.
func TestServer(t *testing.T, seed *fixtures.Seed, token string) *httptest.Server {
	t.Helper()
	store := TestStore(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := fixtures.Sync(store, seed, logger, nil); err != nil {
		t.Fatal(err)
	}
	svc := fixtures.NewService(store, fixtures.NewCannedAnswerer(seed.Answers, seed.DefaultAnswer))
	srv := httptest.NewServer(fixtures.NewRouter(svc, token != "", token, nil))
	t.Cleanup(srv.Close)
	return srv
}

// StrPtr returns a pointer to s.
func StrPtr(s string) *string {
	return &s
}
