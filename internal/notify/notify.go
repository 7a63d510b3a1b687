package notify

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dusk-indust/studyguide/internal/plan"
)

// Kind tags an Event.
type Kind string

const (
	// KindViolated marks a violation that became active.
	KindViolated Kind = "violated"
	// KindFixed marks a previously active violation that cleared. The event
	// carries the violation as it was first reported.
	KindFixed Kind = "fixed"
)

// Event is one constraint transition.
type Event struct {
	ID        uuid.UUID      `json:"id"`
	Kind      Kind           `json:"kind"`
	Violation plan.Violation `json:"violation"`
	At        time.Time      `json:"at"`
}

// NewEvent stamps a transition with a fresh ID and the current time.
func NewEvent(kind Kind, v plan.Violation) Event {
	return Event{ID: uuid.New(), Kind: kind, Violation: v, At: time.Now()}
}

// Handler receives events. Handlers run on the publishing goroutine and must
// not block.
type Handler interface {
	Handle(Event)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(Event)

func (f HandlerFunc) Handle(e Event) { f(e) }

type subscription struct {
	id int
	h  Handler
}

// Bus delivers events synchronously to its subscribers in registration order.
// A Bus belongs to whoever created it; there is no process-wide instance.
type Bus struct {
	mu     sync.Mutex
	subs   []subscription
	nextID int
	logger *zap.Logger
}

// NewBus returns a Bus. A nil logger disables logging of handler panics.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{logger: logger}
}

// Subscribe registers h and returns a function that unregisters it.
func (b *Bus) Subscribe(h Handler) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs = append(b.subs, subscription{id: id, h: h})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.subs = slices.DeleteFunc(b.subs, func(s subscription) bool { return s.id == id })
	}
}

// Len returns the number of current subscribers.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Publish delivers e to every current subscriber. A panicking handler is
// logged and does not stop delivery to the rest.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	subs := slices.Clone(b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		b.deliver(s.h, e)
	}
}

func (b *Bus) deliver(h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("event", e.ID.String()),
				zap.String("violation", e.Violation.ID),
				zap.Any("panic", r),
			)
		}
	}()
	h.Handle(e)
}

// Channel is a Handler that forwards events to a buffered channel for
// consumers on another goroutine. When the buffer is full the event is
// dropped and counted.
type Channel struct {
	mu      sync.Mutex
	ch      chan Event
	closed  bool
	dropped int
}

// NewChannel creates a Channel with the given buffer size (64 if size <= 0).
func NewChannel(size int) *Channel {
	if size <= 0 {
		size = 64
	}
	return &Channel{ch: make(chan Event, size)}
}

// Handle enqueues e without blocking.
func (c *Channel) Handle(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.ch <- e:
	default:
		c.dropped++
	}
}

// Events returns the receive side of the channel.
func (c *Channel) Events() <-chan Event {
	return c.ch
}

// Dropped returns how many events were discarded because the buffer was full.
func (c *Channel) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Close closes the event channel. Later events are ignored.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}

// Describe renders a violation as a short English sentence.
func Describe(v plan.Violation) string {
	switch v.Constraint {
	case "prerequisite-ordering":
		return fmt.Sprintf("%s in %s requires %s in an earlier semester", v.Course, v.Semester, v.Dependency)
	case "corequisite-co-occurrence":
		return fmt.Sprintf("%s in %s requires %s in the same or an earlier semester", v.Course, v.Semester, v.Dependency)
	case "credit-cap":
		return fmt.Sprintf("%s has %d credits, limit is %d (+%d)", v.Semester, v.Credits, v.Limit, v.Overflow)
	case "duplicate-enrollment":
		return fmt.Sprintf("%s is enrolled more than once in %s", v.Course, v.Semester)
	case "term-availability":
		return fmt.Sprintf("%s is not offered in the term of %s", v.Course, v.Semester)
	case "total-credits":
		return fmt.Sprintf("plan has %d credits, at least %d required", v.Credits, v.Limit)
	default:
		return v.ID
	}
}

// Format renders an event as a status line.
func Format(e Event) string {
	switch e.Kind {
	case KindViolated:
		return fmt.Sprintf("  ✗ %s", Describe(e.Violation))
	case KindFixed:
		return fmt.Sprintf("  ✓ fixed: %s", Describe(e.Violation))
	default:
		return fmt.Sprintf("  ? %s", e.Violation.ID)
	}
}
