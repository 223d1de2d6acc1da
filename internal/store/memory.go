package store

import (
	"context"
	"sync"
)

// MemoryBackend keeps an encoded snapshot in memory.  Each Load decodes a
// fresh copy, so callers can never alias committed state.
type MemoryBackend struct {
	mu   sync.Mutex
	data []byte
	// FailSave, when set, is returned by Save instead of committing.
	FailSave error
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend { return &MemoryBackend{} }

// Load decodes the last saved snapshot.
func (m *MemoryBackend) Load(_ context.Context) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return decode(m.data)
}

// Save encodes and keeps s unless FailSave is set.
func (m *MemoryBackend) Save(_ context.Context, s *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSave != nil {
		return m.FailSave
	}
	b, err := encode(s)
	if err != nil {
		return err
	}
	m.data = b
	return nil
}
