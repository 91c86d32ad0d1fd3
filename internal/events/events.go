// Package events fans domain events out to in-process listeners and, when
// configured, to a RabbitMQ topic exchange.
package events

import (
	"context"
	"log"
	"sync"
	"time"
)

const (
	CallCreated    = "call.created"
	CallDeleted    = "call.deleted"
	CallsSynced    = "calls.synced"
	ContactCreated = "contact.created"
	ContactUpdated = "contact.updated"
	ContactDeleted = "contact.deleted"
	ContactsSynced = "contacts.synced"
	UserCreated    = "user.created"
	UserDeleted    = "user.deleted"
	UserFlushed    = "user.flushed"
)

type Event struct {
	Type       string    `json:"type"`
	ActorID    uint      `json:"actor_id,omitempty"`
	ResourceID uint      `json:"resource_id,omitempty"`
	Data       any       `json:"data,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
	Close() error
}

type Listener func(Event)

var (
	mu        sync.RWMutex
	publisher Publisher
	listeners []Listener
)

// Init connects the broker publisher. An empty url leaves events in-process.
func Init(url, exchange string) error {
	if url == "" {
		log.Println("[Events] RABBIT_URL not set, broker publishing disabled")
		return nil
	}

	p, err := NewAMQPPublisher(url, exchange)
	if err != nil {
		return err
	}

	SetPublisher(p)
	log.Printf("[Events] publishing to exchange %s", exchange)

	return nil
}

// SetPublisher replaces the broker publisher
func SetPublisher(p Publisher) {
	mu.Lock()
	defer mu.Unlock()

	publisher = p
}

// AddListener registers an in-process subscriber
func AddListener(l Listener) {
	mu.Lock()
	defer mu.Unlock()

	listeners = append(listeners, l)
}

// Reset drops the publisher and all listeners without closing anything.
func Reset() {
	mu.Lock()
	defer mu.Unlock()

	publisher = nil
	listeners = nil
}

// Publish is best effort: broker failures are logged, never returned, so a
// committed write is not reported as failed.
func Publish(ctx context.Context, ev Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	mu.RLock()
	p := publisher
	ls := make([]Listener, len(listeners))
	copy(ls, listeners)
	mu.RUnlock()

	for _, l := range ls {
		l(ev)
	}

	if p == nil {
		return
	}

	if err := p.PublishJSON(ctx, ev.Type, ev); err != nil {
		log.Printf("[Events] failed to publish %s: %v", ev.Type, err)
	}
}

// Close shuts down the broker publisher if one is set
func Close() error {
	mu.Lock()
	p := publisher
	publisher = nil
	mu.Unlock()

	if p == nil {
		return nil
	}

	return p.Close()
}
