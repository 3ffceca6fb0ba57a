package session

import (
	"context"
	"sync"
	"time"
)

// Event announces that the authenticated session ended.
type Event struct {
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// Notifier receives session-ended events. Delivery is fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Broadcaster fans events out to in-process subscribers without blocking.
// A subscriber whose buffer is full misses the event.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

// NewBroadcaster creates a broadcaster with no subscribers.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber. The returned func unsubscribes and closes the channel.
func (b *Broadcaster) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Event, buffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

// Notify delivers ev to every subscriber with room in its buffer.
func (b *Broadcaster) Notify(_ context.Context, ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}
