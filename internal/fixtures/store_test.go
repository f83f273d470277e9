package fixtures

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/docview/internal/apperr"
	"github.com/starford/docview/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

func TestStore_UpsertAndGet(t *testing.T) {
	s := openTestStore(t)
	uploaded := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	older := models.Query{Question: "Who signed?", Answer: "Both parties", Timestamp: models.NewTimestamp(uploaded.Add(time.Hour))}
	newer := models.Query{Question: "What rate?", Answer: "5%", Timestamp: models.NewTimestamp(uploaded.Add(2 * time.Hour))}

	err := s.UpsertDocument(DocumentRow{
		ID: 5, Title: "Loan", Subject: "Finance", Summary: strPtr("Loan terms"), UploadedDate: &uploaded,
	}, []models.Query{newer, older})
	if err != nil {
		t.Fatalf("UpsertDocument: %v", err)
	}

	rec, err := s.GetDocument(5)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if rec.Title != "Loan" || rec.Subject == nil || *rec.Subject != "Finance" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Content != nil {
		t.Errorf("content = %q, want absent", *rec.Content)
	}
	if rec.Summary == nil || *rec.Summary != "Loan terms" {
		t.Errorf("summary = %v", rec.Summary)
	}
	if rec.UploadedDate == nil || !rec.UploadedDate.Equal(uploaded) {
		t.Errorf("uploaded = %v, want %v", rec.UploadedDate, uploaded)
	}
	if rec.LastViewed != nil {
		t.Errorf("lastViewed = %v, want absent", rec.LastViewed)
	}
	if len(rec.Queries) != 2 || rec.Queries[0].Question != "What rate?" {
		t.Fatalf("queries not newest first: %+v", rec.Queries)
	}
}

func TestStore_GetMissing(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetDocument(404); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := s.TouchLastViewed(404, time.Now()); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("touch err = %v, want ErrNotFound", err)
	}
	if err := s.AddQuery(404, models.Query{Question: "q", Answer: "a"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("add err = %v, want ErrNotFound", err)
	}
}

func TestStore_ReupsertKeepsRuntimeQueries(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seeded := []models.Query{{Question: "seeded", Answer: "a", Timestamp: models.NewTimestamp(base)}}
	if err := s.UpsertDocument(DocumentRow{ID: 1, Title: "T"}, seeded); err != nil {
		t.Fatal(err)
	}
	if err := s.AddQuery(1, models.Query{Question: "runtime", Answer: "b", Timestamp: models.NewTimestamp(base.Add(time.Hour))}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertDocument(DocumentRow{ID: 1, Title: "T2"}, seeded); err != nil {
		t.Fatal(err)
	}

	qs, err := s.Queries(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(qs) != 2 || qs[0].Question != "runtime" || qs[1].Question != "seeded" {
		t.Fatalf("queries = %+v", qs)
	}
}

func TestStore_TouchLastViewed(t *testing.T) {
	s := openTestStore(t)
	if err := s.UpsertDocument(DocumentRow{ID: 2, Title: "T"}, nil); err != nil {
		t.Fatal(err)
	}
	at := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	if err := s.TouchLastViewed(2, at); err != nil {
		t.Fatal(err)
	}
	rec, err := s.GetDocument(2)
	if err != nil {
		t.Fatal(err)
	}
	if rec.LastViewed == nil || !rec.LastViewed.Equal(at) {
		t.Fatalf("lastViewed = %v, want %v", rec.LastViewed, at)
	}
}

func TestStore_DeleteDocument(t *testing.T) {
	s := openTestStore(t)
	if err := s.UpsertDocument(DocumentRow{ID: 3, Title: "T"}, []models.Query{{Question: "q", Answer: "a", Timestamp: models.NewTimestamp(time.Now())}}); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteDocument(3); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetDocument(3); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	qs, err := s.Queries(3)
	if err != nil {
		t.Fatal(err)
	}
	if len(qs) != 0 {
		t.Fatalf("queries survived delete: %+v", qs)
	}
}
