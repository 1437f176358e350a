// Package archive exports finished executions to long-term object
// storage. Archiving is best-effort: the execution remains the source
// of truth in its own store, and an archive failure never changes a
// workflow outcome.
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store is a keyed object store.
type Store interface {
	// Put writes data under key, overwriting any previous object.
	Put(ctx context.Context, key string, data []byte) error
	// Get retrieves the object at key.
	Get(ctx context.Context, key string) ([]byte, error)
	// Exists checks whether an object is present at key.
	Exists(ctx context.Context, key string) (bool, error)
}

// FileStore is a filesystem-backed Store for single-node deployments.
type FileStore struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFileStore creates a store rooted at baseDir.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure archive dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) path(key string) (string, error) {
	cleaned := filepath.Clean(key)
	if strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid archive key %q", key)
	}
	return filepath.Join(s.baseDir, cleaned), nil
}

func (s *FileStore) Put(ctx context.Context, key string, data []byte) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure archive subdir: %w", err)
	}

	// Write to temp, then rename
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write archive object: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("commit archive object: %w", err)
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()

	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("archive object not found: %s", key)
		}
		return nil, fmt.Errorf("read archive object: %w", err)
	}
	return data, nil
}

func (s *FileStore) Exists(ctx context.Context, key string) (bool, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()

	path, err := s.path(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat archive object: %w", err)
	}
	return true, nil
}
