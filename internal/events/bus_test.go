package events

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/impetus-notes/note-service/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCounter atomic.Int64

type recordingObserver struct {
	name   string
	events []Event
	fail   bool
	panics bool
}

func (o *recordingObserver) Name() string { return o.name }

func (o *recordingObserver) Handle(_ context.Context, e Event) error {
	if o.panics {
		panic("observer exploded")
	}
	o.events = append(o.events, e)
	if o.fail {
		return errors.New("handle failed")
	}
	return nil
}

func TestSubscribe_Idempotent(t *testing.T) {
	bus := NewBus()
	obs := &recordingObserver{name: "a"}

	bus.Subscribe(obs)
	bus.Subscribe(obs)
	bus.Subscribe(&recordingObserver{name: "a"})

	assert.Equal(t, 1, bus.Len())
}

func TestPublish_DeliversInSubscriptionOrder(t *testing.T) {
	bus := NewBus()
	var order []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		bus.Subscribe(&funcObserver{name: name, fn: func(Event) error {
			order = append(order, name)
			return nil
		}})
	}

	bus.Publish(context.Background(), Event{Kind: NoteCreated, OwnerID: "u1"})
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestPublish_IsolatesFailingObservers(t *testing.T) {
	bus := NewBus()
	failing := &recordingObserver{name: "failing", fail: true}
	panicking := &recordingObserver{name: "panicking", panics: true}
	healthy := &recordingObserver{name: "healthy"}

	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	bus.Publish(context.Background(), Event{Kind: NoteDeleted, OwnerID: "u1", NoteID: "n1"})

	assert.Len(t, failing.events, 1)
	assert.Len(t, healthy.events, 1)
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus()
	obs := &recordingObserver{name: "a"}
	bus.Subscribe(obs)
	bus.Unsubscribe("a")
	assert.Equal(t, 0, bus.Len())

	bus.Publish(context.Background(), Event{Kind: NoteCreated, OwnerID: "u1"})
	assert.Empty(t, obs.events)
}

func TestPublish_SetsOccurredAt(t *testing.T) {
	bus := NewBus()
	obs := &recordingObserver{name: "a"}
	bus.Subscribe(obs)

	bus.Publish(context.Background(), Event{Kind: NoteUpdated, OwnerID: "u1"})
	require.Len(t, obs.events, 1)
	assert.False(t, obs.events[0].OccurredAt.IsZero())
}

func TestActivityObserver_PersistsEvents(t *testing.T) {
	store, err := testdb.NewStoreInMemory(fmt.Sprintf("events-test%d", testCounter.Add(1)))
	require.NoError(t, err)
	defer store.Close()

	bus := NewBus()
	bus.Subscribe(&ActivityObserver{Recorder: store})

	ctx := context.Background()
	bus.Publish(ctx, Event{Kind: NoteCreated, OwnerID: "u1", NoteID: "n1", DocID: "d1"})
	bus.Publish(ctx, Event{Kind: NoteDeleted, OwnerID: "u1", NoteID: "n1", DocID: "d1"})
	bus.Publish(ctx, Event{Kind: NoteCreated, OwnerID: "other", NoteID: "n2"})

	activities, err := store.ListActivities(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, activities, 2)
	assert.Equal(t, string(NoteDeleted), activities[0].Kind)
	assert.Equal(t, string(NoteCreated), activities[1].Kind)
	assert.Equal(t, "d1", activities[0].DocID)
}

type funcObserver struct {
	name string
	fn   func(Event) error
}

func (o *funcObserver) Name() string                           { return o.name }
func (o *funcObserver) Handle(_ context.Context, e Event) error { return o.fn(e) }
