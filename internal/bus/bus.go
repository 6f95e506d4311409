// Package bus is the in-process pub/sub layer between the match orchestrator
// and realtime consumers. Each match is a topic; subscribers get buffered
// channels and slow consumers are dropped rather than allowed to stall the
// match loop.
package bus

import (
	"log/slog"
	"sync"

	"github.com/chessarena/platform/internal/domain"
	"github.com/google/uuid"
)

// subscriberBuffer is the per-subscriber channel depth. A spectator that falls
// this far behind starts losing events; the snapshot store covers recovery.
const subscriberBuffer = 64

type subscriber struct {
	id uuid.UUID
	ch chan domain.Event
}

type topic struct {
	subs   map[uuid.UUID]*subscriber
	closed bool
}

// Broker fans out match events to subscribers. All methods are safe for
// concurrent use.
type Broker struct {
	mu     sync.RWMutex
	topics map[uuid.UUID]*topic
	logger *slog.Logger
}

// NewBroker creates an empty broker.
func NewBroker(logger *slog.Logger) *Broker {
	return &Broker{
		topics: make(map[uuid.UUID]*topic),
		logger: logger,
	}
}

// Subscribe registers a consumer on a match topic and returns its event
// channel plus a cancel func. Subscribing to an unknown match creates the
// topic; events published before the subscription are not replayed.
func (b *Broker) Subscribe(matchID uuid.UUID) (<-chan domain.Event, func()) {
	sub := &subscriber{
		id: uuid.New(),
		ch: make(chan domain.Event, subscriberBuffer),
	}

	b.mu.Lock()
	t, ok := b.topics[matchID]
	if !ok || t.closed {
		t = &topic{subs: make(map[uuid.UUID]*subscriber)}
		b.topics[matchID] = t
	}
	t.subs[sub.id] = sub
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		t, ok := b.topics[matchID]
		if !ok {
			return
		}
		if s, ok := t.subs[sub.id]; ok {
			delete(t.subs, sub.id)
			close(s.ch)
		}
	}
	return sub.ch, cancel
}

// Publish delivers an event to every subscriber of its match. Delivery is
// non-blocking: a full subscriber buffer drops the event for that subscriber
// only.
func (b *Broker) Publish(evt domain.Event) {
	b.mu.RLock()
	t, ok := b.topics[evt.MatchID]
	if !ok {
		b.mu.RUnlock()
		return
	}
	subs := make([]*subscriber, 0, len(t.subs))
	for _, s := range t.subs {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	for _, s := range subs {
		select {
		case s.ch <- evt:
		default:
			b.logger.Warn("dropping event for slow subscriber",
				"match_id", evt.MatchID, "subscriber_id", s.id, "type", evt.Type)
		}
	}
}

// CloseTopic tears down a match topic, closing every subscriber channel.
// Called once when the match reaches a terminal state.
func (b *Broker) CloseTopic(matchID uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.topics[matchID]
	if !ok {
		return
	}
	for _, s := range t.subs {
		close(s.ch)
	}
	delete(b.topics, matchID)
}

// SubscriberCount reports the live subscribers on a match topic.
func (b *Broker) SubscriberCount(matchID uuid.UUID) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.topics[matchID]
	if !ok {
		return 0
	}
	return len(t.subs)
}
