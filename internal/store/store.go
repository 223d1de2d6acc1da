package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNoBackend is returned by New when no backend is supplied.
var ErrNoBackend = errors.New("store: nil backend")

// Backend loads and saves whole snapshots.  Save must be atomic: after a
// failed Save the previously committed snapshot is still the one Load
// returns.  Load returns an empty snapshot when nothing was saved yet.
type Backend interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, s *Snapshot) error
}

// Store serializes access to a Backend.  Writers are mutually exclusive
// with each other and with readers, so a read-decide-write sequence run
// inside Update cannot interleave with another one.
type Store struct {
	mu      sync.RWMutex
	backend Backend
}

// New wraps backend in a Store.
func New(backend Backend) (*Store, error) {
	if backend == nil {
		return nil, ErrNoBackend
	}
	return &Store{backend: backend}, nil
}

// View loads the current snapshot and hands it to fn.  fn must not retain
// or mutate the snapshot; changes made here are never saved.
func (s *Store) View(ctx context.Context, fn func(*Snapshot) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, err := s.load(ctx)
	if err != nil {
		return err
	}
	return fn(snap)
}

// Update loads the snapshot under the write lock, lets fn mutate it and
// saves the result.  Nothing is written when fn returns an error, and a
// failed save leaves the prior committed state intact.  There is no retry.
func (s *Store) Update(ctx context.Context, fn func(*Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, err := s.load(ctx)
	if err != nil {
		return err
	}
	if err := fn(snap); err != nil {
		return err
	}
	snap.normalize()
	if err := s.backend.Save(ctx, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *Store) load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap, err := s.backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	snap.normalize()
	snap.Reconcile()
	return snap, nil
}
