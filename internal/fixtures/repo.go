package fixtures

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/docview/internal/apperr"
	"github.com/starford/docview/internal/models"
)

// DocumentRow is a document as stored, before query lookup.
type DocumentRow struct {
	ID           int
	Title        string
	Subject      string
	Content      *string
	Summary      *string
	Checksum     string
	UploadedDate *time.Time
	LastViewed   *time.Time
}

// UpsertDocument inserts or replaces a document and its seeded queries within
// a transaction. Queries asked at runtime are kept.
func (s *Store) UpsertDocument(d DocumentRow, seeded []models.Query) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("fixtures: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO documents (id, title, subject, content, summary, checksum, uploaded_date, last_viewed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title         = excluded.title,
			subject       = excluded.subject,
			content       = excluded.content,
			summary       = excluded.summary,
			checksum      = excluded.checksum,
			uploaded_date = excluded.uploaded_date
	`, d.ID, d.Title, d.Subject, nullString(d.Content), nullString(d.Summary), d.Checksum,
		nullTime(d.UploadedDate), nullTime(d.LastViewed))
	if err != nil {
		return fmt.Errorf("fixtures: upsert document: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM queries WHERE document_id = ? AND seeded = 1`, d.ID); err != nil {
		return fmt.Errorf("fixtures: clear seeded queries: %w", err)
	}
	if len(seeded) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO queries (document_id, question, answer, seeded, created_at) VALUES (?, ?, ?, 1, ?)`)
		if err != nil {
			return fmt.Errorf("fixtures: prepare query insert: %w", err)
		}
		defer stmt.Close()
		// Seed files list queries newest first; insert oldest first so ids follow time.
		for i := len(seeded) - 1; i >= 0; i-- {
			q := seeded[i]
			if _, err := stmt.Exec(d.ID, q.Question, q.Answer, q.Timestamp.UTC()); err != nil {
				return fmt.Errorf("fixtures: insert query: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteDocument removes a document and all its queries.
func (s *Store) DeleteDocument(id int) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("fixtures: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, _ = tx.Exec(`DELETE FROM queries WHERE document_id = ?`, id)
	_, _ = tx.Exec(`DELETE FROM documents WHERE id = ?`, id)

	return tx.Commit()
}

// GetDocument returns a document with its queries, newest first.
func (s *Store) GetDocument(id int) (*models.DocumentRecord, error) {
	var (
		row      DocumentRow
		content  sql.NullString
		summary  sql.NullString
		uploaded sql.NullTime
		viewed   sql.NullTime
	)
	err := s.conn.QueryRow(`
		SELECT id, title, subject, content, summary, uploaded_date, last_viewed
		FROM documents WHERE id = ?`, id).
		Scan(&row.ID, &row.Title, &row.Subject, &content, &summary, &uploaded, &viewed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("fixtures: document %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fixtures: get document: %w", err)
	}

	queries, err := s.Queries(id)
	if err != nil {
		return nil, err
	}

	rec := &models.DocumentRecord{ID: row.ID, Title: row.Title, Queries: queries}
	if row.Subject != "" {
		subject := row.Subject
		rec.Subject = &subject
	}
	if content.Valid {
		rec.Content = &content.String
	}
	if summary.Valid {
		rec.Summary = &summary.String
	}
	if uploaded.Valid {
		ts := models.NewTimestamp(uploaded.Time)
		rec.UploadedDate = &ts
	}
	if viewed.Valid {
		ts := models.NewTimestamp(viewed.Time)
		rec.LastViewed = &ts
	}
	return rec, nil
}

// Queries returns the queries of a document, newest first.
func (s *Store) Queries(id int) ([]models.Query, error) {
	rows, err := s.conn.Query(`
		SELECT question, answer, created_at FROM queries
		WHERE document_id = ? ORDER BY created_at DESC, id DESC`, id)
	if err != nil {
		return nil, fmt.Errorf("fixtures: queries: %w", err)
	}
	defer rows.Close()

	out := []models.Query{}
	for rows.Next() {
		var (
			q  models.Query
			ts time.Time
		)
		if err := rows.Scan(&q.Question, &q.Answer, &ts); err != nil {
			return nil, err
		}
		q.Timestamp = models.NewTimestamp(ts)
		out = append(out, q)
	}
	return out, rows.Err()
}

// AddQuery appends a runtime query to a document.
func (s *Store) AddQuery(id int, q models.Query) error {
	res, err := s.conn.Exec(`
		INSERT INTO queries (document_id, question, answer, seeded, created_at)
		SELECT id, ?, ?, 0, ? FROM documents WHERE id = ?`,
		q.Question, q.Answer, q.Timestamp.UTC(), id)
	if err != nil {
		return fmt.Errorf("fixtures: add query: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("fixtures: document %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// TouchLastViewed sets last_viewed for a document.
func (s *Store) TouchLastViewed(id int, at time.Time) error {
	res, err := s.conn.Exec(`UPDATE documents SET last_viewed = ? WHERE id = ?`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("fixtures: touch last viewed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("fixtures: document %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// AllChecksums returns the stored checksum of every document.
func (s *Store) AllChecksums() (map[int]string, error) {
	rows, err := s.conn.Query(`SELECT id, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("fixtures: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[int]string)
	for rows.Next() {
		var (
			id int
			cs string
		)
		if err := rows.Scan(&id, &cs); err != nil {
			return nil, err
		}
		out[id] = cs
	}
	return out, rows.Err()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
