// Package events implements the synchronous domain event bus. Every
// mutating store call publishes an event; observers are notified in
// subscription order, and a failing observer never blocks the others
// or the originating operation.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/impetus-notes/note-service/internal/obs"
)

// Kind identifies the domain event type.
type Kind string

const (
	NoteCreated        Kind = "note.created"
	NoteUpdated        Kind = "note.updated"
	NoteDeleted        Kind = "note.deleted"
	NoteArchiveToggled Kind = "note.archive_toggled"
	NoteStarToggled    Kind = "note.star_toggled"
	CategoryCreated    Kind = "category.created"
	CategoryRenamed    Kind = "category.renamed"
	CategoryDeleted    Kind = "category.deleted"
)

// Event is the payload delivered to observers.
type Event struct {
	Kind       Kind      `json:"kind"`
	OwnerID    string    `json:"ownerId"`
	NoteID     string    `json:"noteId,omitempty"`
	DocID      string    `json:"docId,omitempty"`
	Title      string    `json:"title,omitempty"`
	Category   string    `json:"category,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Observer handles domain events. Handle errors are logged, never
// propagated to the publisher.
type Observer interface {
	// Name identifies the observer on a bus. Names must be unique per
	// bus: Subscribe deduplicates on them and Unsubscribe removes by
	// them.
	Name() string
	Handle(ctx context.Context, e Event) error
}

// Bus fans events out to observers synchronously, in subscription order.
type Bus struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers an observer. Subscribing the same observer name
// twice is a no-op, so wiring code can be re-run safely.
func (b *Bus) Subscribe(o Observer) {
	if o == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, existing := range b.observers {
		if existing.Name() == o.Name() {
			return
		}
	}
	b.observers = append(b.observers, o)
}

// Unsubscribe removes the observer with the given name, if present.
func (b *Bus) Unsubscribe(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, existing := range b.observers {
		if existing.Name() == name {
			b.observers = append(b.observers[:i], b.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of subscribed observers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.observers)
}

// Publish delivers the event to every observer in subscription order.
// A panicking or erroring observer is isolated: the failure is logged
// and the remaining observers still run.
func (b *Bus) Publish(ctx context.Context, e Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}

	b.mu.RLock()
	observers := make([]Observer, len(b.observers))
	copy(observers, b.observers)
	b.mu.RUnlock()

	log := obs.From(ctx).With("pkg", "events", "event", string(e.Kind))
	for _, o := range observers {
		b.notifyOne(ctx, o, e)
	}
	log.Debug("event published", "observers", len(observers))
}

func (b *Bus) notifyOne(ctx context.Context, o Observer, e Event) {
	log := obs.From(ctx).With("pkg", "events", "observer", o.Name(), "event", string(e.Kind))
	defer func() {
		if r := recover(); r != nil {
			log.Error("observer panicked", "panic", r)
		}
	}()
	if err := o.Handle(ctx, e); err != nil {
		log.Error("observer failed", "error", err)
	}
}
