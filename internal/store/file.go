package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileBackend keeps the snapshot in a single JSON file.  Saves go to a
// temporary file in the same directory which is then renamed over the
// target, so readers never observe a half-written file.
type FileBackend struct {
	path string
}

// NewFileBackend returns a backend rooted at path, creating the parent
// directory if needed.
func NewFileBackend(path string) (*FileBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileBackend{path: path}, nil
}

// Path returns the location of the snapshot file.
func (f *FileBackend) Path() string { return f.path }

// Load reads the snapshot file.  A missing file is an empty snapshot.
func (f *FileBackend) Load(_ context.Context) (*Snapshot, error) {
	b, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return decode(nil)
		}
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	return decode(b)
}

// Save writes the snapshot atomically.
func (f *FileBackend) Save(_ context.Context, s *Snapshot) error {
	b, err := encode(s)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replace %s: %w", f.path, err)
	}
	committed = true
	return nil
}
