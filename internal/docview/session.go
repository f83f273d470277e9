package docview

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/starford/docview/internal/models"
)

// QuestionAsker submits a question against a document.
type QuestionAsker interface {
	AskQuestion(ctx context.Context, id int, question string) (*models.Query, error)
}

// Status is the submission state of a Session.
type Status int

const (
	StatusIdle Status = iota
	StatusSubmitting
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusSubmitting:
		return "submitting"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Snapshot is a copy of a Session's interaction state.
type Snapshot struct {
	DocumentID int            `json:"documentId"`
	Queries    []models.Query `json:"queries"`
	Pending    string         `json:"pending"`
	Status     Status         `json:"status"`
	Err        string         `json:"error,omitempty"`
	// Expanded is nil when no history entry is expanded.
	Expanded *int `json:"expanded,omitempty"`
}

// Submitting reports whether a submission is in flight.
func (s Snapshot) Submitting() bool {
	return s.Status == StatusSubmitting
}

// IsExpanded reports whether the entry at index is expanded.
func (s Snapshot) IsExpanded(index int) bool {
	return s.Expanded != nil && *s.Expanded == index
}

// Session owns the query log of one document and its submission state.
//
// The mutex is never held across the call to the remote service. A submit
// that finds the session already Submitting is a no-op, which keeps at most
// one request in flight. Reset bumps gen so that a response to a request
// issued before the reset is discarded.
type Session struct {
	asker  QuestionAsker
	logger *slog.Logger

	mu       sync.Mutex
	docID    int
	gen      uint64
	log      []models.Query
	pending  string
	status   Status
	err      string
	expanded *int
	onChange func(Snapshot)
}

// NewSession creates an empty Session bound to no document.
func NewSession(asker QuestionAsker, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{asker: asker, logger: logger, log: []models.Query{}}
}

// OnChange registers fn to be called with a fresh snapshot after every state
// change. fn runs without the session lock held.
func (s *Session) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Reset binds the session to documentID with queries as the existing log
// (newest first). Expanded, error and pending state are cleared.
func (s *Session) Reset(documentID int, queries []models.Query) {
	s.mu.Lock()
	s.docID = documentID
	s.gen++
	s.log = cloneQueries(queries)
	s.pending = ""
	s.status = StatusIdle
	s.err = ""
	s.expanded = nil
	s.mu.Unlock()
	s.notify()
}

// SetPending replaces the pending question text.
func (s *Session) SetPending(text string) {
	s.mu.Lock()
	s.pending = text
	s.mu.Unlock()
	s.notify()
}

// Pending returns the pending question text.
func (s *Session) Pending() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// SubmitPending submits the pending question text.
func (s *Session) SubmitPending(ctx context.Context) (*models.Query, error) {
	return s.Submit(ctx, s.Pending())
}

// Submit sends question to the remote service. It returns nil, nil without
// doing anything when question is blank, no document is bound, or a
// submission is already in flight. On success the answer is prepended to
// the log and the pending text is cleared; on failure the log and the
// pending text are left untouched and the error is recorded.
func (s *Session) Submit(ctx context.Context, question string) (*models.Query, error) {
	if strings.TrimSpace(question) == "" {
		return nil, nil
	}

	s.mu.Lock()
	if s.status == StatusSubmitting || s.docID == 0 {
		s.mu.Unlock()
		return nil, nil
	}
	s.status = StatusSubmitting
	s.err = ""
	gen := s.gen
	docID := s.docID
	s.mu.Unlock()
	s.notify()

	var (
		q   *models.Query
		err error
	)
	defer func() {
		s.mu.Lock()
		current := s.gen == gen
		if current {
			s.status = StatusIdle
		}
		s.mu.Unlock()
		if current {
			s.notify()
		}
	}()

	q, err = s.asker.AskQuestion(ctx, docID, question)
	if err == nil && q == nil {
		err = errEmptyAnswer
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		s.logger.Debug("docview: dropping stale answer", slog.Int("document_id", docID))
		return q, err
	}
	if err != nil {
		s.err = submitErrorMessage(err)
		s.mu.Unlock()
		s.logger.Warn("docview: query failed",
			slog.Int("document_id", docID),
			slog.String("error", err.Error()))
		return nil, err
	}
	s.log = append([]models.Query{*q}, s.log...)
	if s.expanded != nil {
		// Keep the same entry expanded now that everything moved down one.
		next := *s.expanded + 1
		s.expanded = &next
	}
	s.pending = ""
	s.mu.Unlock()

	s.logger.Debug("docview: query answered", slog.Int("document_id", docID))
	return q, nil
}

// ToggleExpanded collapses index if it is the expanded entry and expands it
// otherwise. Indices outside the log are ignored.
func (s *Session) ToggleExpanded(index int) {
	s.mu.Lock()
	if index < 0 || index >= len(s.log) {
		s.mu.Unlock()
		return
	}
	if s.expanded != nil && *s.expanded == index {
		s.expanded = nil
	} else {
		i := index
		s.expanded = &i
	}
	s.mu.Unlock()
	s.notify()
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		DocumentID: s.docID,
		Queries:    cloneQueries(s.log),
		Pending:    s.pending,
		Status:     s.status,
		Err:        s.err,
	}
	if s.expanded != nil {
		i := *s.expanded
		snap.Expanded = &i
	}
	return snap
}

func (s *Session) notify() {
	s.mu.Lock()
	fn := s.onChange
	var snap Snapshot
	if fn != nil {
		snap = s.snapshotLocked()
	}
	s.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

var errEmptyAnswer = errors.New("query returned no answer")

func submitErrorMessage(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "query failed"
}
