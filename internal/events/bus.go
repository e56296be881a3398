// Package events carries concert change notifications between the write path
// and anything that displays or forwards concerts.
package events

import (
	"sync"
	"time"
)

// Kind names the change that happened.
type Kind string

const (
	KindCreated  Kind = "created"
	KindUpdated  Kind = "updated"
	KindDeleted  Kind = "deleted"
	KindImported Kind = "imported"
)

// Event describes a change to the concert journal.
type Event struct {
	Kind      Kind      `json:"kind"`
	ConcertID int64     `json:"concertId,omitempty"`
	Count     int       `json:"count,omitempty"`
	At        time.Time `json:"at"`
}

// Handler receives published events.
type Handler func(Event)

// Publisher is implemented by Bus; services depend on this rather than the bus.
type Publisher interface {
	Publish(Event)
}

// Bus is an in-process, synchronous event fan-out.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscriber
}

type subscriber struct {
	id      uint64
	handler Handler
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers handler until the returned Subscription is closed.
func (b *Bus) Subscribe(handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.subs = append(b.subs, subscriber{id: b.nextID, handler: handler})
	return &Subscription{bus: b, id: b.nextID}
}

// Publish delivers e to every current subscriber in subscription order.
// Handlers run on the caller's goroutine.
func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	b.mu.RLock()
	handlers := make([]Handler, len(b.subs))
	for i, s := range b.subs {
		handlers[i] = s.handler
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}

// Len reports the number of live subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Subscription is a handle to a registered handler.
type Subscription struct {
	bus  *Bus
	id   uint64
	once sync.Once
}

// Close unregisters the handler. Safe to call more than once.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.once.Do(func() { s.bus.remove(s.id) })
}
