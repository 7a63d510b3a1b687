// Package constraint holds the plan rules and the engine that keeps their
// violations current while a plan is edited.
package constraint

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dusk-indust/studyguide/internal/course"
	"github.com/dusk-indust/studyguide/internal/plan"
)

// Rule kinds.
const (
	KindPrerequisiteOrdering    = "prerequisite-ordering"
	KindCorequisiteCoOccurrence = "corequisite-co-occurrence"
	KindCreditCap               = "credit-cap"
	KindDuplicateEnrollment     = "duplicate-enrollment"
	KindTermAvailability        = "term-availability"
	KindTotalCredits            = "total-credits"
)

// ErrUnknownConstraint is returned when encoding or decoding a constraint
// kind this package does not know.
var ErrUnknownConstraint = errors.New("unknown constraint")

func violationID(parts ...string) string {
	return strings.Join(parts, "/")
}

// placement records where a course is enrolled.
type placement struct {
	index     int
	completed bool
}

// placements maps course codes to every semester position they occupy.
func placements(p *plan.Plan) map[string][]placement {
	out := make(map[string][]placement)
	for i, s := range p.Semesters() {
		for _, e := range s.Enrollments() {
			code := e.Course().Code()
			out[code] = append(out[code], placement{index: i, completed: e.Completed()})
		}
	}
	return out
}

// PrerequisiteOrdering requires every prerequisite of an enrolled course to be
// enrolled in a strictly earlier semester. With RequireCompleted the earlier
// enrollment must also be marked completed.
type PrerequisiteOrdering struct {
	RequireCompleted bool
}

func (PrerequisiteOrdering) Kind() string { return KindPrerequisiteOrdering }

func (c PrerequisiteOrdering) Evaluate(p *plan.Plan) []plan.Violation {
	at := placements(p)
	var out []plan.Violation
	for i, s := range p.Semesters() {
		for _, e := range s.Enrollments() {
			for _, pre := range e.Course().Prerequisites() {
				satisfied := false
				for _, pl := range at[pre.Code()] {
					if pl.index < i && (!c.RequireCompleted || pl.completed) {
						satisfied = true
						break
					}
				}
				if satisfied {
					continue
				}
				out = append(out, plan.Violation{
					ID:         violationID(KindPrerequisiteOrdering, s.Name(), e.Course().Code(), pre.Code()),
					Constraint: KindPrerequisiteOrdering,
					Semester:   s.Name(),
					Course:     e.Course().Code(),
					Dependency: pre.Code(),
				})
			}
		}
	}
	return out
}

// CorequisiteCoOccurrence requires every corequisite of an enrolled course to
// be enrolled in the same or an earlier semester.
type CorequisiteCoOccurrence struct{}

func (CorequisiteCoOccurrence) Kind() string { return KindCorequisiteCoOccurrence }

func (CorequisiteCoOccurrence) Evaluate(p *plan.Plan) []plan.Violation {
	at := placements(p)
	var out []plan.Violation
	for i, s := range p.Semesters() {
		for _, e := range s.Enrollments() {
			for _, co := range e.Course().Corequisites() {
				satisfied := false
				for _, pl := range at[co.Code()] {
					if pl.index <= i {
						satisfied = true
						break
					}
				}
				if satisfied {
					continue
				}
				out = append(out, plan.Violation{
					ID:         violationID(KindCorequisiteCoOccurrence, s.Name(), e.Course().Code(), co.Code()),
					Constraint: KindCorequisiteCoOccurrence,
					Semester:   s.Name(),
					Course:     e.Course().Code(),
					Dependency: co.Code(),
				})
			}
		}
	}
	return out
}

// CreditCap limits the credit sum of each semester.
type CreditCap struct {
	MaxCredits int
}

func (CreditCap) Kind() string { return KindCreditCap }

func (c CreditCap) Validate() error {
	if c.MaxCredits <= 0 {
		return fmt.Errorf("%w: credit cap must be positive, got %d", course.ErrInvalidInput, c.MaxCredits)
	}
	return nil
}

func (c CreditCap) Evaluate(p *plan.Plan) []plan.Violation {
	var out []plan.Violation
	for _, s := range p.Semesters() {
		credits := s.Credits()
		if credits <= c.MaxCredits {
			continue
		}
		out = append(out, plan.Violation{
			ID:         violationID(KindCreditCap, s.Name()),
			Constraint: KindCreditCap,
			Semester:   s.Name(),
			Credits:    credits,
			Limit:      c.MaxCredits,
			Overflow:   credits - c.MaxCredits,
		})
	}
	return out
}

// DuplicateEnrollment reports a course held by more than one enrollment of
// the same semester. Semester.Enroll already prevents this; enrollments moved
// with Semester.AddEnrollment are only checked for object identity.
type DuplicateEnrollment struct{}

func (DuplicateEnrollment) Kind() string { return KindDuplicateEnrollment }

func (DuplicateEnrollment) Evaluate(p *plan.Plan) []plan.Violation {
	var out []plan.Violation
	for _, s := range p.Semesters() {
		seen := make(map[string]int)
		for _, e := range s.Enrollments() {
			code := e.Course().Code()
			seen[code]++
			if seen[code] != 2 {
				continue
			}
			out = append(out, plan.Violation{
				ID:         violationID(KindDuplicateEnrollment, s.Name(), code),
				Constraint: KindDuplicateEnrollment,
				Semester:   s.Name(),
				Course:     code,
			})
		}
	}
	return out
}

// TermAvailability checks that each course is offered in the term of its
// semester. Semesters alternate between winter and summer starting with
// FirstTerm (winter when unset).
type TermAvailability struct {
	FirstTerm course.Term
}

func (TermAvailability) Kind() string { return KindTermAvailability }

// Validate accepts an unset FirstTerm or a single term. BOTH names no
// starting term.
func (c TermAvailability) Validate() error {
	switch c.FirstTerm {
	case "", course.TermWinter, course.TermSummer:
		return nil
	}
	return fmt.Errorf("%w: first term must be %s or %s, got %q", course.ErrInvalidInput, course.TermWinter, course.TermSummer, c.FirstTerm)
}

// TermOf returns the term of the semester at position i.
func (c TermAvailability) TermOf(i int) course.Term {
	first, second := course.TermWinter, course.TermSummer
	if c.FirstTerm == course.TermSummer {
		first, second = second, first
	}
	if i%2 == 0 {
		return first
	}
	return second
}

func (c TermAvailability) Evaluate(p *plan.Plan) []plan.Violation {
	var out []plan.Violation
	for i, s := range p.Semesters() {
		term := c.TermOf(i)
		for _, e := range s.Enrollments() {
			if e.Course().EnrollableIn().Includes(term) {
				continue
			}
			out = append(out, plan.Violation{
				ID:         violationID(KindTermAvailability, s.Name(), e.Course().Code()),
				Constraint: KindTermAvailability,
				Semester:   s.Name(),
				Course:     e.Course().Code(),
			})
		}
	}
	return out
}

// TotalCredits requires the whole plan to reach MinCredits.
type TotalCredits struct {
	MinCredits int
}

func (TotalCredits) Kind() string { return KindTotalCredits }

func (c TotalCredits) Validate() error {
	if c.MinCredits < 0 {
		return fmt.Errorf("%w: minimum credits must not be negative, got %d", course.ErrInvalidInput, c.MinCredits)
	}
	return nil
}

func (c TotalCredits) Evaluate(p *plan.Plan) []plan.Violation {
	credits := p.Credits()
	if credits >= c.MinCredits {
		return nil
	}
	return []plan.Violation{{
		ID:         KindTotalCredits,
		Constraint: KindTotalCredits,
		Credits:    credits,
		Limit:      c.MinCredits,
	}}
}

// Spec is the serializable form of a constraint.
type Spec struct {
	Kind             string      `json:"kind" yaml:"kind"`
	MaxCredits       int         `json:"maxCredits,omitempty" yaml:"maxCredits,omitempty"`
	MinCredits       int         `json:"minCredits,omitempty" yaml:"minCredits,omitempty"`
	RequireCompleted bool        `json:"requireCompleted,omitempty" yaml:"requireCompleted,omitempty"`
	FirstTerm        course.Term `json:"firstTerm,omitempty" yaml:"firstTerm,omitempty"`
}

// Encode returns the Spec of c. Constraints with invalid parameters are
// refused so that everything encoded decodes again.
func Encode(c plan.Constraint) (Spec, error) {
	if c != nil {
		if err := plan.CheckConstraint(c); err != nil {
			return Spec{}, err
		}
	}
	switch v := c.(type) {
	case PrerequisiteOrdering:
		return Spec{Kind: v.Kind(), RequireCompleted: v.RequireCompleted}, nil
	case CorequisiteCoOccurrence:
		return Spec{Kind: v.Kind()}, nil
	case CreditCap:
		return Spec{Kind: v.Kind(), MaxCredits: v.MaxCredits}, nil
	case DuplicateEnrollment:
		return Spec{Kind: v.Kind()}, nil
	case TermAvailability:
		return Spec{Kind: v.Kind(), FirstTerm: v.FirstTerm}, nil
	case TotalCredits:
		return Spec{Kind: v.Kind(), MinCredits: v.MinCredits}, nil
	case nil:
		return Spec{}, fmt.Errorf("%w: constraint is nil", course.ErrInvalidInput)
	}
	return Spec{}, fmt.Errorf("%w: %T", ErrUnknownConstraint, c)
}

// Decode builds the constraint described by s.
func Decode(s Spec) (plan.Constraint, error) {
	c, err := decode(s)
	if err != nil {
		return nil, err
	}
	if err := plan.CheckConstraint(c); err != nil {
		return nil, err
	}
	return c, nil
}

func decode(s Spec) (plan.Constraint, error) {
	switch s.Kind {
	case KindPrerequisiteOrdering:
		return PrerequisiteOrdering{RequireCompleted: s.RequireCompleted}, nil
	case KindCorequisiteCoOccurrence:
		return CorequisiteCoOccurrence{}, nil
	case KindCreditCap:
		return CreditCap{MaxCredits: s.MaxCredits}, nil
	case KindDuplicateEnrollment:
		return DuplicateEnrollment{}, nil
	case KindTermAvailability:
		if s.FirstTerm == "" {
			return TermAvailability{}, nil
		}
		term, err := course.ParseTerm(string(s.FirstTerm))
		if err != nil {
			return nil, err
		}
		return TermAvailability{FirstTerm: term}, nil
	case KindTotalCredits:
		return TotalCredits{MinCredits: s.MinCredits}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownConstraint, s.Kind)
}
