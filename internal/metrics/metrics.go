package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors shared by the resolver and the constraint
// engine. A nil *Metrics is valid and records nothing.
type Metrics struct {
	FetchTotal       *prometheus.CounterVec
	ResolveDuration  prometheus.Histogram
	CoursesLinked    prometheus.Counter
	ActiveViolations *prometheus.GaugeVec
	ConstraintEvents *prometheus.CounterVec
	EvaluationsTotal prometheus.Counter
}

// New creates the collectors and registers them on reg. A nil reg leaves the
// collectors unregistered, which is convenient in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FetchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studyguide_resolver_fetch_total",
				Help: "Course definitions requested from the ingestion source, by result.",
			},
			[]string{"result"},
		),
		ResolveDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "studyguide_resolver_resolve_duration_seconds",
				Help:    "Time taken to resolve a course and its dependency closure.",
				Buckets: prometheus.DefBuckets,
			},
		),
		CoursesLinked: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "studyguide_resolver_courses_linked_total",
				Help: "Courses inserted into a catalog by the resolver.",
			},
		),
		ActiveViolations: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "studyguide_constraint_active_violations",
				Help: "Currently active violations, by constraint kind.",
			},
			[]string{"constraint"},
		),
		ConstraintEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studyguide_constraint_events_total",
				Help: "Violation transitions published by the constraint engine, by event kind.",
			},
			[]string{"kind"},
		),
		EvaluationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "studyguide_constraint_evaluations_total",
				Help: "Full constraint evaluation passes.",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(
			m.FetchTotal,
			m.ResolveDuration,
			m.CoursesLinked,
			m.ActiveViolations,
			m.ConstraintEvents,
			m.EvaluationsTotal,
		)
	}
	return m
}

// ObserveFetch counts one fetch attempt.
func (m *Metrics) ObserveFetch(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.FetchTotal.WithLabelValues(result).Inc()
}

// ObserveResolve records the duration of one Resolve call.
func (m *Metrics) ObserveResolve(seconds float64, linked int) {
	if m == nil {
		return
	}
	m.ResolveDuration.Observe(seconds)
	m.CoursesLinked.Add(float64(linked))
}

// SetActive replaces the active-violation gauges with counts.
func (m *Metrics) SetActive(counts map[string]int) {
	if m == nil {
		return
	}
	m.ActiveViolations.Reset()
	for kind, n := range counts {
		m.ActiveViolations.WithLabelValues(kind).Set(float64(n))
	}
	m.EvaluationsTotal.Inc()
}

// ObserveEvent counts one published constraint event.
func (m *Metrics) ObserveEvent(kind string) {
	if m == nil {
		return
	}
	m.ConstraintEvents.WithLabelValues(kind).Inc()
}
