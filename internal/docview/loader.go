// Package docview implements the interaction state of a single document view:
// loading the document record, submitting questions against it, and the
// transient state of the query history.
package docview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/starford/docview/internal/apperr"
	"github.com/starford/docview/internal/models"
)

// DocumentFetcher retrieves a document record by identifier.
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, id int) (*models.DocumentRecord, error)
}

// SessionExpiredHandler is called when the document service rejects the
// stored credential.
type SessionExpiredHandler func(ctx context.Context)

// ViewRecorder is notified after a document has been loaded.
type ViewRecorder interface {
	RecordView(ctx context.Context, id int)
}

type noopRecorder struct{}

func (noopRecorder) RecordView(context.Context, int) {}

// LoadState is a copy of the loader's state.
type LoadState struct {
	Document models.Document
	Loading  bool
	Loaded   bool
	Err      string
}

// Loader fetches a document and owns its loading and error state.
type Loader struct {
	fetcher   DocumentFetcher
	onExpired SessionExpiredHandler
	recorder  ViewRecorder
	now       func() time.Time
	logger    *slog.Logger

	mu        sync.Mutex
	state     LoadState
	requested   string
	requestedID int
	hasReq      bool
	seq         uint64
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithSessionExpired sets the handler invoked on authentication failures.
func WithSessionExpired(h SessionExpiredHandler) LoaderOption {
	return func(l *Loader) {
		l.onExpired = h
	}
}

// WithViewRecorder sets the collaborator notified after a successful load.
func WithViewRecorder(r ViewRecorder) LoaderOption {
	return func(l *Loader) {
		l.recorder = r
	}
}

// WithClock overrides time.Now, used for defaulting absent timestamps.
func WithClock(now func() time.Time) LoaderOption {
	return func(l *Loader) {
		l.now = now
	}
}

// WithLoaderLogger sets the loader logger.
func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a Loader backed by fetcher.
func NewLoader(fetcher DocumentFetcher, opts ...LoaderOption) *Loader {
	l := &Loader{
		fetcher:  fetcher,
		recorder: noopRecorder{},
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.state.Document = l.emptyDocument()
	return l
}

// ParseDocumentID parses a positive integer identifier.
func ParseDocumentID(raw string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", apperr.ErrInvalidDocumentID, raw)
	}
	return id, nil
}

// Ensure loads rawID unless it names the document requested last, so
// "5", " 5" and "05" share one load. Identifiers that do not parse are
// compared as typed. It reports whether a load was performed.
func (l *Loader) Ensure(ctx context.Context, rawID string) (bool, error) {
	id, perr := ParseDocumentID(rawID)
	l.mu.Lock()
	same := l.requested == rawID
	if perr == nil {
		same = l.requestedID == id
	}
	if l.hasReq && same {
		err := stateErr(l.state)
		l.mu.Unlock()
		return false, err
	}
	l.mu.Unlock()
	_, err := l.Load(ctx, rawID)
	return true, err
}

// Load fetches the document identified by rawID. An identifier that does
// not parse is rejected without contacting the service.
func (l *Loader) Load(ctx context.Context, rawID string) (models.Document, error) {
	l.mu.Lock()
	l.requested = rawID
	l.requestedID = 0
	l.hasReq = true
	l.seq++
	seq := l.seq
	l.state = LoadState{Document: l.emptyDocument()}

	id, err := ParseDocumentID(rawID)
	if err != nil {
		l.state.Err = err.Error()
		l.mu.Unlock()
		return models.Document{}, err
	}
	l.requestedID = id
	l.state.Loading = true
	l.mu.Unlock()

	rec, err := l.fetcher.FetchDocument(ctx, id)

	l.mu.Lock()
	if l.seq != seq {
		// A newer load has been started; this result belongs to nobody.
		l.mu.Unlock()
		if err != nil {
			return models.Document{}, err
		}
		return rec.Normalize(l.now()), nil
	}
	l.state.Loading = false
	if err != nil {
		l.state.Err = loadErrorMessage(err)
		l.mu.Unlock()
		if errors.Is(err, apperr.ErrUnauthorized) {
			l.logger.Warn("docview: session expired", slog.Int("document_id", id))
			if l.onExpired != nil {
				l.onExpired(ctx)
			}
		} else {
			l.logger.Error("docview: load failed", slog.Int("document_id", id), slog.String("error", err.Error()))
		}
		return models.Document{}, err
	}
	doc := rec.Normalize(l.now())
	l.state.Document = doc
	l.state.Loaded = true
	l.mu.Unlock()

	l.logger.Debug("docview: document loaded",
		slog.Int("document_id", doc.ID),
		slog.Int("queries", len(doc.Queries)))
	l.recorder.RecordView(ctx, doc.ID)
	return doc, nil
}

// State returns a copy of the current loader state.
func (l *Loader) State() LoadState {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := l.state
	st.Document.Queries = cloneQueries(l.state.Document.Queries)
	return st
}

func (l *Loader) emptyDocument() models.Document {
	now := l.now()
	return models.Document{Queries: []models.Query{}, UploadedDate: now, LastViewed: now}
}

func loadErrorMessage(err error) string {
	if errors.Is(err, apperr.ErrUnauthorized) {
		return "session expired, please log in again"
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "failed to load document"
}

func stateErr(st LoadState) error {
	if st.Err == "" {
		return nil
	}
	return errors.New(st.Err)
}

func cloneQueries(qs []models.Query) []models.Query {
	out := make([]models.Query, len(qs))
	copy(out, qs)
	return out
}
