/*
filestore.go - Upload target abstraction

PURPOSE:
  The upload and verify stages talk to a FileStore instead of a hosted
  object store. DiskStore serves the single-binary deployment; the
  interface is the seam where S3-style storage would slot in.
*/
package pdf

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore is where generated documents live.
type FileStore interface {
	// Put stores data under name and returns its public URL.
	Put(ctx context.Context, name string, data []byte) (string, error)
	// Get reads a stored document back, for verification.
	Get(ctx context.Context, name string) ([]byte, error)
	// Remove deletes a stored document. Removing a missing document
	// is not an error.
	Remove(ctx context.Context, name string) error
	// Exists reports whether a document is stored under name.
	Exists(ctx context.Context, name string) (bool, error)
	// URL returns the public URL for a stored name.
	URL(name string) string
}

// =============================================================================
// DISK STORE
// =============================================================================

// DiskStore keeps documents in a local directory and serves them under
// a base URL.
type DiskStore struct {
	Dir     string
	BaseURL string
}

func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create pdf directory: %w", err)
	}
	return &DiskStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (d *DiskStore) Put(_ context.Context, name string, data []byte) (string, error) {
	if err := os.WriteFile(filepath.Join(d.Dir, name), data, 0o644); err != nil {
		return "", err
	}
	return d.URL(name), nil
}

func (d *DiskStore) Get(_ context.Context, name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(d.Dir, name))
}

func (d *DiskStore) Remove(_ context.Context, name string) error {
	err := os.Remove(filepath.Join(d.Dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (d *DiskStore) Exists(_ context.Context, name string) (bool, error) {
	_, err := os.Stat(filepath.Join(d.Dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (d *DiskStore) URL(name string) string {
	return d.BaseURL + "/" + name
}

// =============================================================================
// MEMORY STORE - for tests
// =============================================================================

type MemoryFiles struct {
	mu    sync.Mutex
	files map[string][]byte
}

func NewMemoryFiles() *MemoryFiles {
	return &MemoryFiles{files: make(map[string][]byte)}
}

func (m *MemoryFiles) Put(_ context.Context, name string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = append([]byte(nil), data...)
	return m.URL(name), nil
}

func (m *MemoryFiles) Get(_ context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[name]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryFiles) Remove(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, name)
	return nil
}

func (m *MemoryFiles) Exists(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[name]
	return ok, nil
}

func (m *MemoryFiles) URL(name string) string {
	return "memory://" + name
}
