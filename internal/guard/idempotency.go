package guard

import (
	"context"
	"sync"
	"time"
)

// IdempotencyGuard deduplicates bet placements by client-supplied key, so a
// retried request cannot stake twice. Keys expire after the TTL; expired
// entries are pruned on each check so the set stays bounded by the retry
// horizon.
type IdempotencyGuard struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
}

// NewIdempotencyGuard creates a new in-memory idempotency guard. A
// non-positive TTL falls back to one hour.
func NewIdempotencyGuard(ttl time.Duration) *IdempotencyGuard {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &IdempotencyGuard{
		seen: make(map[string]time.Time),
		ttl:  ttl,
	}
}

// Check returns whether the given key has already been processed within the
// TTL. An empty key opts out of deduplication.
func (ig *IdempotencyGuard) Check(_ context.Context, key string) Result {
	if key == "" {
		return Result{Allowed: true}
	}

	ig.mu.Lock()
	defer ig.mu.Unlock()

	now := time.Now()
	for k, at := range ig.seen {
		if now.Sub(at) > ig.ttl {
			delete(ig.seen, k)
		}
	}

	if _, dup := ig.seen[key]; dup {
		return Result{
			Allowed: false,
			Reason:  "duplicate request: idempotency key already processed",
			Guard:   "idempotency",
		}
	}

	ig.seen[key] = now
	return Result{Allowed: true}
}

// Remove deletes a key from the seen set so a failed placement can be retried.
func (ig *IdempotencyGuard) Remove(key string) {
	ig.mu.Lock()
	defer ig.mu.Unlock()
	delete(ig.seen, key)
}
