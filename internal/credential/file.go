package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore implements Store backed by a single file on disk.
// The file is read on every Token call so that a login from another
// process is picked up without a restart.
type FileStore struct {
	mu   sync.Mutex
	path string // absolute path to the token file
}

// NewFileStore creates a FileStore at path. The parent directory is created
// on first write.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("credential: empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("credential: resolve path: %w", err)
	}
	return &FileStore{path: abs}, nil
}

// Path returns the absolute token file path.
func (f *FileStore) Path() string {
	return f.path
}

// Token returns the trimmed file content, or "" when the file does not exist.
func (f *FileStore) Token() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("credential: read %s: %w", f.path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// SetToken atomically writes the token: tmp file → fsync → rename.
func (f *FileStore) SetToken(token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("credential: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".docview-token-*")
	if err != nil {
		return fmt.Errorf("credential: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err := tmp.Chmod(0o600); err != nil {
		return fmt.Errorf("credential: chmod temp: %w", err)
	}
	if _, err := tmp.WriteString(token + "\n"); err != nil {
		return fmt.Errorf("credential: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("credential: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("credential: close temp: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("credential: rename: %w", err)
	}
	success = true
	return nil
}

// Clear removes the token file.
func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("credential: clear %s: %w", f.path, err)
	}
	return nil
}
