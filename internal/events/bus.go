// Package events is the notification bus between the sync engine and
// its observers (CLI output, the watch monitor). Subscribers are keyed
// by notification kind and fully independent: a panicking subscriber is
// logged and skipped, never blocking delivery to the others.
package events

import (
	"log/slog"
	"sync"
)

// Kind identifies a notification type on the bus.
type Kind string

const (
	KindSyncStart          Kind = "syncStart"
	KindSyncComplete       Kind = "syncComplete"
	KindSyncError          Kind = "syncError"
	KindOnlineStatusChange Kind = "onlineStatusChange"
)

// Event is a single notification. Exactly one payload field is set,
// matching Kind.
type Event struct {
	Kind Kind

	// KindSyncComplete
	Message string

	// KindSyncError (Message carries the error text)
	RetryCount int

	// KindOnlineStatusChange
	IsOnline bool
}

// Handler receives published events.
type Handler func(Event)

// Bus is a typed publish/subscribe registry.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[Kind]map[int]Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Kind]map[int]Handler)}
}

// Subscribe registers a handler for the given kind and returns an
// unsubscribe function. Unsubscribing twice is harmless.
func (b *Bus) Subscribe(kind Kind, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[kind] == nil {
		b.subs[kind] = make(map[int]Handler)
	}
	id := b.nextID
	b.nextID++
	b.subs[kind][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[kind], id)
	}
}

// Publish delivers the event to every subscriber of its kind,
// synchronously, in registration order not guaranteed.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	handlers := make([]Handler, 0, len(b.subs[ev.Kind]))
	for _, h := range b.subs[ev.Kind] {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	for _, h := range handlers {
		deliver(h, ev)
	}
}

func deliver(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event subscriber panic", "kind", ev.Kind, "panic", r)
		}
	}()
	h(ev)
}
