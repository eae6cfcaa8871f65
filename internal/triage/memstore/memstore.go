// Package memstore provides an in-memory implementation of triage.SnapshotStore.
package memstore

import (
	"context"
	"sync"

	"github.com/linnemanlabs/scout/internal/triage"
)

// Store holds the latest snapshot in memory. Suitable for dev/testing.
type Store struct {
	mu   sync.RWMutex
	snap *triage.Snapshot
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{}
}

// Load returns a copy of the stored snapshot, or ok=false before the
// first Save.
func (s *Store) Load(_ context.Context) (*triage.Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return nil, false, nil
	}
	return copySnapshot(s.snap), true, nil
}

// Save replaces the stored snapshot with a copy.
func (s *Store) Save(_ context.Context, snap *triage.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = copySnapshot(snap)
	return nil
}

func copySnapshot(snap *triage.Snapshot) *triage.Snapshot {
	cp := *snap
	cp.Startups = make([]triage.Startup, len(snap.Startups))
	copy(cp.Startups, snap.Startups)
	return &cp
}
