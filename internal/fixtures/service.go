package fixtures

import (
	"context"
	"fmt"
	"time"

	"github.com/starford/docview/internal/models"
	"github.com/starford/docview/internal/sse"
)

// Service implements the document endpoints on top of Store and Answerer.
type Service struct {
	store    *Store
	answerer Answerer
	now      func() time.Time
	events   EventCallback
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock overrides the time source used for lastViewed and query timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithEvents registers a callback for viewed and queried events.
func WithEvents(cb EventCallback) ServiceOption {
	return func(s *Service) { s.events = cb }
}

// NewService creates a Service.
func NewService(store *Store, answerer Answerer, opts ...ServiceOption) *Service {
	s := &Service{store: store, answerer: answerer, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetDocument returns a document and marks it viewed now.
func (s *Service) GetDocument(_ context.Context, id int) (*models.DocumentRecord, error) {
	if err := s.store.TouchLastViewed(id, s.now()); err != nil {
		return nil, err
	}
	rec, err := s.store.GetDocument(id)
	if err != nil {
		return nil, err
	}
	s.emit(sse.KindViewed, id)
	return rec, nil
}

// Ask answers question against a document and records the query.
func (s *Service) Ask(ctx context.Context, id int, question string) (*models.Query, error) {
	rec, err := s.store.GetDocument(id)
	if err != nil {
		return nil, err
	}
	answer, err := s.answerer.Answer(ctx, rec, question)
	if err != nil {
		return nil, fmt.Errorf("fixtures: answer: %w", err)
	}
	q := models.Query{
		Question:  question,
		Answer:    answer,
		Timestamp: models.NewTimestamp(s.now().UTC()),
	}
	if err := s.store.AddQuery(id, q); err != nil {
		return nil, err
	}
	s.emit(sse.KindQueried, id)
	return &q, nil
}

func (s *Service) emit(kind string, id int) {
	if s.events != nil {
		s.events(kind, id)
	}
}
