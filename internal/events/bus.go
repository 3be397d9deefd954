// Package events fans out chat turn activity to live subscribers. Messages
// are persisted by the state package; the bus only carries notifications, so
// a missed event is recoverable by reloading the conversation.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type Event struct {
	ConversationID string    `json:"conversation_id"`
	OwnerID        string    `json:"-"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

type Bus struct {
	mu   sync.RWMutex
	subs map[string]*subscriber
}

type subscriber struct {
	ownerID string
	ch      chan Event
}

func NewBus() *Bus {
	return &Bus{subs: map[string]*subscriber{}}
}

// Subscribe delivers events scoped to ownerID until ctx is done. The channel
// is closed on unsubscribe.
func (b *Bus) Subscribe(ctx context.Context, ownerID string) <-chan Event {
	ch := make(chan Event, 64)
	id := ulid.Make().String()

	b.mu.Lock()
	b.subs[id] = &subscriber{ownerID: ownerID, ch: ch}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		close(ch)
	}()

	return ch
}

func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish fans event out to the owner's subscribers.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if sub.ownerID != event.OwnerID {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			// Drop if subscriber is slow.
		}
	}
}
