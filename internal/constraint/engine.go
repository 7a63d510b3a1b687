package constraint

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/dusk-indust/studyguide/internal/course"
	"github.com/dusk-indust/studyguide/internal/metrics"
	"github.com/dusk-indust/studyguide/internal/notify"
	"github.com/dusk-indust/studyguide/internal/plan"
)

// tracked is an active violation: as first reported and as last evaluated.
type tracked struct {
	first   plan.Violation
	current plan.Violation
}

// Engine re-evaluates a plan's constraints on every mutation and publishes a
// violated event for each new violation identity and a fixed event for each
// identity that disappeared. It shares the plan's single-goroutine contract.
type Engine struct {
	plan    *plan.Plan
	bus     *notify.Bus
	logger  *zap.Logger
	metrics *metrics.Metrics

	handlers []notify.Handler
	active   map[string]tracked
	cancel   func()
}

// Option configures an Engine.
type Option func(*Engine)

// WithBus publishes events on b instead of a private bus.
func WithBus(b *notify.Bus) Option {
	return func(e *Engine) { e.bus = b }
}

// WithHandler subscribes h before the initial evaluation, so it also sees the
// violations present at construction.
func WithHandler(h notify.Handler) Option {
	return func(e *Engine) { e.handlers = append(e.handlers, h) }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics records evaluations and events on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine adds constraints to p, skipping ones already active, attaches to
// its mutation hook and runs the initial evaluation. Violations found by that
// pass are published as violated events.
func NewEngine(p *plan.Plan, constraints []plan.Constraint, opts ...Option) (*Engine, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: plan is nil", course.ErrInvalidInput)
	}
	e := &Engine{
		plan:   p,
		logger: zap.NewNop(),
		active: make(map[string]tracked),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.bus == nil {
		e.bus = notify.NewBus(e.logger)
	}
	// Check everything up front so a rejected constraint leaves p untouched.
	kinds := make(map[string]bool)
	for i, c := range constraints {
		if c == nil {
			return nil, fmt.Errorf("%w: constraint %d is nil", course.ErrInvalidInput, i)
		}
		if err := plan.CheckConstraint(c); err != nil {
			return nil, fmt.Errorf("constraint engine: %w", err)
		}
		if p.HasConstraint(c) {
			continue
		}
		_, active := p.ConstraintOfKind(c.Kind())
		if active || kinds[c.Kind()] {
			return nil, fmt.Errorf("constraint engine: constraint %s: %w", c.Kind(), course.ErrDuplicate)
		}
		kinds[c.Kind()] = true
	}
	for _, c := range constraints {
		if p.HasConstraint(c) {
			continue
		}
		if err := p.AddConstraint(c); err != nil {
			return nil, fmt.Errorf("constraint engine: %w", err)
		}
	}
	for _, h := range e.handlers {
		e.bus.Subscribe(h)
	}

	e.cancel = p.OnMutate(e.onMutate)
	e.Revalidate()
	return e, nil
}

// Plan returns the supervised plan.
func (e *Engine) Plan() *plan.Plan { return e.plan }

// Subscribe registers h for future events.
func (e *Engine) Subscribe(h notify.Handler) (cancel func()) {
	return e.bus.Subscribe(h)
}

// Close detaches the engine from the plan. Active violations are kept.
func (e *Engine) Close() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

func (e *Engine) onMutate(m plan.Mutation) {
	e.logger.Debug("plan mutated", zap.String("mutation", string(m.Kind)))
	e.Revalidate()
}

// Active returns the currently active violations ordered by ID.
func (e *Engine) Active() []plan.Violation {
	out := make([]plan.Violation, 0, len(e.active))
	for _, t := range e.active {
		out = append(out, t.current)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Valid reports whether no violation is active.
func (e *Engine) Valid() bool { return len(e.active) == 0 }

// Revalidate evaluates every constraint, updates the active set and publishes
// the transitions: fixed events first, ordered by ID, then violated events in
// evaluation order. It returns the number of events published.
func (e *Engine) Revalidate() int {
	var (
		now   = make(map[string]plan.Violation)
		order []string
	)
	for _, c := range e.plan.Constraints() {
		for _, v := range c.Evaluate(e.plan) {
			if _, dup := now[v.ID]; dup {
				continue
			}
			now[v.ID] = v
			order = append(order, v.ID)
		}
	}

	var fixed []string
	for id := range e.active {
		if _, still := now[id]; !still {
			fixed = append(fixed, id)
		}
	}
	sort.Strings(fixed)

	events := make([]notify.Event, 0, len(fixed))
	for _, id := range fixed {
		events = append(events, notify.NewEvent(notify.KindFixed, e.active[id].first))
		delete(e.active, id)
	}
	for _, id := range order {
		v := now[id]
		if t, ok := e.active[id]; ok {
			t.current = v
			e.active[id] = t
			continue
		}
		e.active[id] = tracked{first: v, current: v}
		events = append(events, notify.NewEvent(notify.KindViolated, v))
	}

	counts := make(map[string]int)
	for _, t := range e.active {
		counts[t.current.Constraint]++
	}
	e.metrics.SetActive(counts)

	for _, ev := range events {
		e.logger.Info("constraint "+string(ev.Kind),
			zap.String("violation", ev.Violation.ID),
			zap.String("constraint", ev.Violation.Constraint),
		)
		e.metrics.ObserveEvent(string(ev.Kind))
		e.bus.Publish(ev)
	}
	return len(events)
}
