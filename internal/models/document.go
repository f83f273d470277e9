// Package models defines the domain types for docview.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Document is a loaded document record with every optional field resolved.
type Document struct {
	ID           int       `json:"id"`
	Title        string    `json:"title"`
	Subject      string    `json:"subject,omitempty"`
	Content      string    `json:"content"`
	Summary      string    `json:"summary"`
	Queries      []Query   `json:"queries"`
	UploadedDate time.Time `json:"uploadedDate"`
	LastViewed   time.Time `json:"lastViewed"`
}

// Query is one question/answer pair produced by the remote service.
type Query struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Timestamp Timestamp `json:"timestamp"`
}

// DocumentRecord is the wire shape returned by the document endpoint.
// Every field except ID and Title may be absent.
type DocumentRecord struct {
	ID           int        `json:"id"`
	Title        string     `json:"title"`
	Subject      *string    `json:"subject,omitempty"`
	Content      *string    `json:"content,omitempty"`
	Summary      *string    `json:"summary,omitempty"`
	Queries      []Query    `json:"queries,omitempty"`
	UploadedDate *Timestamp `json:"uploadedDate,omitempty"`
	LastViewed   *Timestamp `json:"lastViewed,omitempty"`
}

// Normalize resolves absent fields: strings and the query list become empty,
// timestamps become now.
func (r *DocumentRecord) Normalize(now time.Time) Document {
	doc := Document{
		ID:           r.ID,
		Title:        r.Title,
		Subject:      deref(r.Subject),
		Content:      deref(r.Content),
		Summary:      deref(r.Summary),
		Queries:      make([]Query, len(r.Queries)),
		UploadedDate: now,
		LastViewed:   now,
	}
	copy(doc.Queries, r.Queries)
	if r.UploadedDate != nil && !r.UploadedDate.IsZero() {
		doc.UploadedDate = r.UploadedDate.Time
	}
	if r.LastViewed != nil && !r.LastViewed.IsZero() {
		doc.LastViewed = r.LastViewed.Time
	}
	return doc
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// QuestionRequest is the body of a query submission.
type QuestionRequest struct {
	Question string `json:"question"`
}

// Timestamp is a time.Time that also accepts naive ISO-8601 strings (no zone,
// read as UTC) and epoch milliseconds.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) || len(data) == 0 {
		t.Time = time.Time{}
		return nil
	}
	if data[0] != '"' {
		ms, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return fmt.Errorf("timestamp: %s is neither a string nor epoch millis", data)
		}
		t.Time = time.UnixMilli(ms).UTC()
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed
		return nil
	}
	for _, layout := range naiveLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognised format %q", s)
}

// MarshalJSON writes RFC 3339 with nanoseconds, or null for the zero time.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}
