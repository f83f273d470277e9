package fixtures

import (
	"context"
	"strings"
	"sync"

	"github.com/starford/docview/internal/models"
)

// DefaultAnswer is returned when no canned answer matches.
const DefaultAnswer = "I could not find an answer to that question in this document."

// Answerer produces an answer for a question about a document.
type Answerer interface {
	Answer(ctx context.Context, doc *models.DocumentRecord, question string) (string, error)
}

// CannedAnswerer answers from a fixed question→answer table. Questions are
// matched case-insensitively with surrounding whitespace ignored.
type CannedAnswerer struct {
	mu       sync.RWMutex
	answers  map[string]string
	fallback string
}

// NewCannedAnswerer creates a CannedAnswerer. An empty fallback uses
// DefaultAnswer.
func NewCannedAnswerer(answers map[string]string, fallback string) *CannedAnswerer {
	c := &CannedAnswerer{}
	c.Replace(answers, fallback)
	return c
}

// Replace swaps the answer table, e.g. after the seed file is reloaded.
func (c *CannedAnswerer) Replace(answers map[string]string, fallback string) {
	table := make(map[string]string, len(answers))
	for q, a := range answers {
		table[normalizeQuestion(q)] = a
	}
	if fallback == "" {
		fallback = DefaultAnswer
	}
	c.mu.Lock()
	c.answers = table
	c.fallback = fallback
	c.mu.Unlock()
}

// Answer implements Answerer.
func (c *CannedAnswerer) Answer(_ context.Context, _ *models.DocumentRecord, question string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if a, ok := c.answers[normalizeQuestion(question)]; ok {
		return a, nil
	}
	return c.fallback, nil
}

func normalizeQuestion(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

var _ Answerer = (*CannedAnswerer)(nil)
