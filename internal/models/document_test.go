package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTimestamp_Formats(t *testing.T) {
	want := time.Date(2024, 3, 9, 14, 30, 5, 0, time.UTC)
	cases := map[string]string{
		"rfc3339":      `"2024-03-09T14:30:05Z"`,
		"offset":       `"2024-03-09T16:30:05+02:00"`,
		"python naive": `"2024-03-09T14:30:05"`,
		"epoch millis": `1710000000000`,
	}
	for name, raw := range cases {
		var ts Timestamp
		if err := json.Unmarshal([]byte(raw), &ts); err != nil {
			t.Fatalf("%s: unmarshal: %v", name, err)
		}
		if name == "epoch millis" {
			if ts.UnixMilli() != 1710000000000 {
				t.Errorf("%s: got %v", name, ts.Time)
			}
			continue
		}
		if !ts.Equal(want) {
			t.Errorf("%s: got %v, want %v", name, ts.Time, want)
		}
	}
}

func TestTimestamp_MicrosecondNaive(t *testing.T) {
	var ts Timestamp
	if err := json.Unmarshal([]byte(`"2024-03-09T14:30:05.123456"`), &ts); err != nil {
		t.Fatal(err)
	}
	if ts.Nanosecond() != 123456000 {
		t.Errorf("nanos = %d", ts.Nanosecond())
	}
}

func TestTimestamp_NullAndGarbage(t *testing.T) {
	var ts Timestamp
	if err := json.Unmarshal([]byte(`null`), &ts); err != nil {
		t.Fatalf("null: %v", err)
	}
	if !ts.IsZero() {
		t.Error("null should decode to zero time")
	}
	if err := json.Unmarshal([]byte(`"yesterday"`), &ts); err == nil {
		t.Error("expected error for unrecognised format")
	}
}

func TestDocumentRecord_NormalizeDefaults(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	var rec DocumentRecord
	if err := json.Unmarshal([]byte(`{"id":5,"title":"Loan","summary":"Loan terms"}`), &rec); err != nil {
		t.Fatal(err)
	}
	doc := rec.Normalize(now)
	if doc.ID != 5 || doc.Title != "Loan" {
		t.Errorf("id/title = %d/%q", doc.ID, doc.Title)
	}
	if doc.Summary != "Loan terms" {
		t.Errorf("summary = %q", doc.Summary)
	}
	if doc.Content != "" {
		t.Errorf("content = %q, want empty", doc.Content)
	}
	if doc.Queries == nil || len(doc.Queries) != 0 {
		t.Errorf("queries = %#v, want empty non-nil", doc.Queries)
	}
	if !doc.UploadedDate.Equal(now) || !doc.LastViewed.Equal(now) {
		t.Errorf("timestamps not defaulted to now: %v %v", doc.UploadedDate, doc.LastViewed)
	}
}

func TestDocumentRecord_NormalizeKeepsTimestamps(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	var rec DocumentRecord
	raw := `{"id":1,"title":"t","uploadedDate":"2023-06-01T10:00:00","lastViewed":"2024-06-01T10:00:00Z",
		"queries":[{"question":"q","answer":"a","timestamp":"2024-06-01T09:00:00Z"}]}`
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		t.Fatal(err)
	}
	doc := rec.Normalize(now)
	if doc.UploadedDate.Year() != 2023 {
		t.Errorf("uploaded = %v", doc.UploadedDate)
	}
	if doc.LastViewed.Year() != 2024 {
		t.Errorf("lastViewed = %v", doc.LastViewed)
	}
	if len(doc.Queries) != 1 || doc.Queries[0].Answer != "a" {
		t.Errorf("queries = %#v", doc.Queries)
	}
}
