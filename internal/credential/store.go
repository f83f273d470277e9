// Package credential stores the bearer token used to talk to the document service.
package credential

import "sync"

// Store is the interface for bearer token persistence.
type Store interface {
	// Token returns the stored token, or "" when none is stored.
	Token() (string, error)
	// SetToken replaces the stored token.
	SetToken(token string) error
	// Clear removes the stored token. Clearing an empty store is not an error.
	Clear() error
}

// MemoryStore keeps the token in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

// NewMemoryStore returns a MemoryStore holding token.
func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: token}
}

// Token implements Store.
func (m *MemoryStore) Token() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

// SetToken implements Store.
func (m *MemoryStore) SetToken(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

// Clear implements Store.
func (m *MemoryStore) Clear() error {
	return m.SetToken("")
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*FileStore)(nil)
)
