package plan

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/dusk-indust/studyguide/internal/course"
)

// MutationKind identifies what changed in a plan.
type MutationKind string

const (
	MutationSemesterAdded       MutationKind = "semester-added"
	MutationSemesterRemoved     MutationKind = "semester-removed"
	MutationSemesterRenamed     MutationKind = "semester-renamed"
	MutationEnrollmentAdded     MutationKind = "enrollment-added"
	MutationEnrollmentRemoved   MutationKind = "enrollment-removed"
	MutationEnrollmentMoved     MutationKind = "enrollment-moved"
	MutationEnrollmentCompleted MutationKind = "enrollment-completed"
	MutationConstraintsChanged  MutationKind = "constraints-changed"
)

// Mutation describes one applied change. Hooks receive it after the change
// is visible on the plan.
type Mutation struct {
	Kind       MutationKind
	Semester   *Semester
	Enrollment *Enrollment
	// From is the previous semester of a moved enrollment.
	From *Semester
	// OldName is the previous name of a renamed semester.
	OldName string
}

// Constraint is a rule evaluated over a plan. Implementations must be
// deterministic: the same plan state yields the same violations.
type Constraint interface {
	// Kind is the stable name of the rule, e.g. "credit-cap".
	Kind() string
	Evaluate(p *Plan) []Violation
}

// Validator is implemented by constraints whose parameters can be out of
// range.
type Validator interface {
	Validate() error
}

// CheckConstraint reports why c cannot be activated on its own: nil or
// invalid parameters.
func CheckConstraint(c Constraint) error {
	if c == nil {
		return fmt.Errorf("%w: constraint is nil", course.ErrInvalidInput)
	}
	if v, ok := c.(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("constraint %s: %w", c.Kind(), err)
		}
	}
	return nil
}

// Violation is one breach of a constraint. ID is stable across evaluations
// for "the same" breach; the remaining fields are its structured payload.
type Violation struct {
	ID         string `json:"id"`
	Constraint string `json:"constraint"`
	Semester   string `json:"semester,omitempty"`
	Course     string `json:"course,omitempty"`
	Dependency string `json:"dependency,omitempty"`
	Credits    int    `json:"credits,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Overflow   int    `json:"overflow,omitempty"`
}

func (v Violation) String() string {
	return v.ID
}

type hook struct {
	id int
	fn func(Mutation)
}

// Plan is an ordered sequence of semesters (insertion order is chronological
// order) together with the catalog its enrollments reference and the active
// constraint set. A Plan is not safe for concurrent use.
type Plan struct {
	catalog     *course.Catalog
	semesters   []*Semester
	constraints []Constraint
	hooks       []hook
	nextHookID  int
}

// New returns an empty plan over catalog. A nil catalog gets an empty one.
func New(catalog *course.Catalog) *Plan {
	if catalog == nil {
		catalog = course.NewCatalog()
	}
	return &Plan{catalog: catalog}
}

// Catalog returns the course catalog enrollments are drawn from.
func (p *Plan) Catalog() *course.Catalog { return p.catalog }

// OnMutate registers fn to run after every mutation, in registration order.
// The returned function unregisters it.
func (p *Plan) OnMutate(fn func(Mutation)) (cancel func()) {
	id := p.nextHookID
	p.nextHookID++
	p.hooks = append(p.hooks, hook{id: id, fn: fn})
	return func() {
		p.hooks = slices.DeleteFunc(p.hooks, func(h hook) bool { return h.id == id })
	}
}

func (p *Plan) notify(m Mutation) {
	// Copy so hooks may unregister themselves while running.
	for _, h := range slices.Clone(p.hooks) {
		h.fn(m)
	}
}

// Semesters returns the semesters in chronological order.
func (p *Plan) Semesters() []*Semester {
	return slices.Clone(p.semesters)
}

// Semester returns the semester with the given name.
func (p *Plan) Semester(name string) (*Semester, bool) {
	for _, s := range p.semesters {
		if s.name == name {
			return s, true
		}
	}
	return nil, false
}

// Index returns the chronological position of s, or -1 if s is not in the plan.
func (p *Plan) Index(s *Semester) int {
	return slices.Index(p.semesters, s)
}

// AddSemester appends a new, empty semester.
func (p *Plan) AddSemester(name string) (*Semester, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: semester name is empty", course.ErrInvalidInput)
	}
	if _, exists := p.Semester(name); exists {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateSemesterName, name)
	}
	s := &Semester{name: name, plan: p}
	p.semesters = append(p.semesters, s)
	p.notify(Mutation{Kind: MutationSemesterAdded, Semester: s})
	return s, nil
}

// RemoveSemester removes s and every enrollment it holds.
func (p *Plan) RemoveSemester(s *Semester) error {
	if s == nil {
		return fmt.Errorf("%w: semester is nil", course.ErrInvalidInput)
	}
	i := p.Index(s)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownSemester, s.name)
	}
	p.semesters = slices.Delete(p.semesters, i, i+1)
	s.plan = nil
	p.notify(Mutation{Kind: MutationSemesterRemoved, Semester: s})
	return nil
}

// RenameSemester changes the name of s. Renaming to the current name is a no-op.
func (p *Plan) RenameSemester(s *Semester, name string) error {
	if s == nil {
		return fmt.Errorf("%w: semester is nil", course.ErrInvalidInput)
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: semester name is empty", course.ErrInvalidInput)
	}
	if p.Index(s) < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownSemester, s.name)
	}
	if s.name == name {
		return nil
	}
	if _, exists := p.Semester(name); exists {
		return fmt.Errorf("%w: %q", ErrDuplicateSemesterName, name)
	}
	old := s.name
	s.name = name
	p.notify(Mutation{Kind: MutationSemesterRenamed, Semester: s, OldName: old})
	return nil
}

// Constraints returns the active constraint set.
func (p *Plan) Constraints() []Constraint {
	return slices.Clone(p.constraints)
}

// AddConstraint activates c. At most one constraint of each kind is active,
// so violation IDs never collide across constraints.
func (p *Plan) AddConstraint(c Constraint) error {
	if err := CheckConstraint(c); err != nil {
		return err
	}
	if _, ok := p.ConstraintOfKind(c.Kind()); ok {
		return fmt.Errorf("constraint %s: %w", c.Kind(), course.ErrDuplicate)
	}
	p.constraints = append(p.constraints, c)
	p.notify(Mutation{Kind: MutationConstraintsChanged})
	return nil
}

// RemoveConstraint deactivates the constraint equal to c. It reports whether
// one was removed.
func (p *Plan) RemoveConstraint(c Constraint) bool {
	i := p.constraintIndex(c)
	if i < 0 {
		return false
	}
	p.constraints = slices.Delete(p.constraints, i, i+1)
	p.notify(Mutation{Kind: MutationConstraintsChanged})
	return true
}

// HasConstraint reports whether a constraint equal to c is active.
func (p *Plan) HasConstraint(c Constraint) bool {
	return c != nil && p.constraintIndex(c) >= 0
}

// ConstraintOfKind returns the active constraint of the given kind.
func (p *Plan) ConstraintOfKind(kind string) (Constraint, bool) {
	for _, c := range p.constraints {
		if c.Kind() == kind {
			return c, true
		}
	}
	return nil, false
}

func (p *Plan) constraintIndex(c Constraint) int {
	return slices.IndexFunc(p.constraints, func(existing Constraint) bool {
		return reflect.DeepEqual(existing, c)
	})
}

// checkCatalogCourse fails unless c is the catalog's own object for its code.
func (p *Plan) checkCatalogCourse(c *course.Course) error {
	stored, ok := p.catalog.Get(c.Code())
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCourse, c.Code())
	}
	if stored != c {
		return fmt.Errorf("%w: %s is not the catalog's course", ErrUnknownCourse, c.Code())
	}
	return nil
}

// Credits returns the credit sum of every enrollment in the plan.
func (p *Plan) Credits() int {
	total := 0
	for _, s := range p.semesters {
		total += s.Credits()
	}
	return total
}
