package bus

import (
	"sync"
	"time"

	"github.com/chessarena/platform/internal/domain"
	"github.com/google/uuid"
)

// SnapshotStore holds the latest position snapshot per live match so a
// late-joining consumer can render current state before streaming deltas.
// Snapshots for finished matches are evicted on match close.
type SnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[uuid.UUID]domain.Snapshot
}

// NewSnapshotStore creates an empty snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{snapshots: make(map[uuid.UUID]domain.Snapshot)}
}

// Set stores the snapshot, stamping it with the current time.
func (s *SnapshotStore) Set(snap domain.Snapshot) {
	snap.UpdatedAt = time.Now().UTC()
	s.mu.Lock()
	s.snapshots[snap.MatchID] = snap
	s.mu.Unlock()
}

// Get returns the latest snapshot for a match, if one exists.
func (s *SnapshotStore) Get(matchID uuid.UUID) (domain.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[matchID]
	return snap, ok
}

// Delete evicts a match's snapshot.
func (s *SnapshotStore) Delete(matchID uuid.UUID) {
	s.mu.Lock()
	delete(s.snapshots, matchID)
	s.mu.Unlock()
}
