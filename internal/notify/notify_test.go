package notify

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dusk-indust/studyguide/internal/plan"
)

var capViolation = plan.Violation{
	ID:         "credit-cap/Fall",
	Constraint: "credit-cap",
	Semester:   "Fall",
	Credits:    21,
	Limit:      18,
	Overflow:   3,
}

func TestNewEvent(t *testing.T) {
	e := NewEvent(KindFixed, capViolation)
	assert.NotEqual(t, uuid.Nil, e.ID)
	assert.Equal(t, KindFixed, e.Kind)
	assert.Equal(t, capViolation, e.Violation)
	assert.False(t, e.At.IsZero())
	assert.NotEqual(t, e.ID, NewEvent(KindFixed, capViolation).ID)
}

// --- Bus ---

func TestBus_PublishInRegistrationOrder(t *testing.T) {
	bus := NewBus(nil)
	var order []string
	bus.Subscribe(HandlerFunc(func(Event) { order = append(order, "a") }))
	bus.Subscribe(HandlerFunc(func(Event) { order = append(order, "b") }))

	bus.Publish(NewEvent(KindViolated, capViolation))
	bus.Publish(NewEvent(KindFixed, capViolation))

	assert.Equal(t, []string{"a", "b", "a", "b"}, order)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(nil)
	calls := 0
	cancel := bus.Subscribe(HandlerFunc(func(Event) { calls++ }))
	require.Equal(t, 1, bus.Len())

	bus.Publish(NewEvent(KindViolated, capViolation))
	cancel()
	bus.Publish(NewEvent(KindFixed, capViolation))

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, bus.Len())
}

func TestBus_HandlerMayUnsubscribeItself(t *testing.T) {
	bus := NewBus(nil)
	calls := 0
	var cancel func()
	cancel = bus.Subscribe(HandlerFunc(func(Event) {
		calls++
		cancel()
	}))

	bus.Publish(NewEvent(KindViolated, capViolation))
	bus.Publish(NewEvent(KindViolated, capViolation))
	assert.Equal(t, 1, calls)
}

func TestBus_PanickingHandlerIsLogged(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	bus := NewBus(zap.New(core))

	delivered := false
	bus.Subscribe(HandlerFunc(func(Event) { panic("boom") }))
	bus.Subscribe(HandlerFunc(func(Event) { delivered = true }))

	require.NotPanics(t, func() { bus.Publish(NewEvent(KindFixed, capViolation)) })
	assert.True(t, delivered)

	entries := logs.FilterMessage("event handler panicked").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "credit-cap/Fall", entries[0].ContextMap()["violation"])
}

// --- Channel ---

func TestChannel_Forwards(t *testing.T) {
	bus := NewBus(nil)
	ch := NewChannel(4)
	defer ch.Close()
	bus.Subscribe(ch)

	want := NewEvent(KindViolated, capViolation)
	bus.Publish(want)

	select {
	case got := <-ch.Events():
		assert.Equal(t, want, got)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestChannel_FullDropsWithoutBlocking(t *testing.T) {
	ch := NewChannel(2)
	defer ch.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			ch.Handle(NewEvent(KindViolated, capViolation))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Handle blocked when the channel was full")
	}
	assert.Equal(t, 8, ch.Dropped())
}

func TestChannel_CloseTerminatesRange(t *testing.T) {
	ch := NewChannel(0)
	ch.Handle(NewEvent(KindFixed, capViolation))
	ch.Close()
	ch.Close()
	ch.Handle(NewEvent(KindFixed, capViolation))

	var received []Event
	for e := range ch.Events() {
		received = append(received, e)
	}
	require.Len(t, received, 1)
	assert.Equal(t, KindFixed, received[0].Kind)
}

// --- Format ---

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		v    plan.Violation
		want string
	}{
		{
			name: "credit cap violated",
			kind: KindViolated,
			v:    capViolation,
			want: "  ✗ Fall has 21 credits, limit is 18 (+3)",
		},
		{
			name: "prerequisite fixed",
			kind: KindFixed,
			v: plan.Violation{
				ID: "x", Constraint: "prerequisite-ordering",
				Semester: "Spring", Course: "B", Dependency: "A",
			},
			want: "  ✓ fixed: B in Spring requires A in an earlier semester",
		},
		{
			name: "unknown constraint falls back to id",
			kind: KindViolated,
			v:    plan.Violation{ID: "custom/1", Constraint: "custom"},
			want: "  ✗ custom/1",
		},
		{
			name: "unknown kind",
			kind: Kind("other"),
			v:    capViolation,
			want: "  ? credit-cap/Fall",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(Event{Kind: tt.kind, Violation: tt.v}))
		})
	}
}
