package orchestrator

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry is the registry's view of one live match.
type Entry struct {
	MatchID    uuid.UUID
	GameID     string
	WhiteAgent string
	BlackAgent string
	StartedAt  time.Time

	// Done is closed when the match loop exits, for any reason.
	Done chan struct{}
}

// Registry tracks live matches. Injected so tests can observe registration
// without a database.
type Registry interface {
	Register(e *Entry)
	Deregister(matchID uuid.UUID)
	Get(matchID uuid.UUID) (*Entry, bool)
	Count() int
}

type memoryRegistry struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*Entry
}

// NewRegistry creates the in-memory registry used in production.
func NewRegistry() Registry {
	return &memoryRegistry{entries: make(map[uuid.UUID]*Entry)}
}

func (r *memoryRegistry) Register(e *Entry) {
	r.mu.Lock()
	r.entries[e.MatchID] = e
	r.mu.Unlock()
}

func (r *memoryRegistry) Deregister(matchID uuid.UUID) {
	r.mu.Lock()
	delete(r.entries, matchID)
	r.mu.Unlock()
}

func (r *memoryRegistry) Get(matchID uuid.UUID) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[matchID]
	return e, ok
}

func (r *memoryRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
