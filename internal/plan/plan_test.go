package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/studyguide/internal/course"
)

func testCatalog(t *testing.T, codes ...string) *course.Catalog {
	t.Helper()
	cat := course.NewCatalog()
	for _, code := range codes {
		c, err := course.New(course.Definition{Code: code, Name: code, Credits: 5}, nil, nil)
		require.NoError(t, err)
		require.NoError(t, cat.Put(c))
	}
	return cat
}

func mustGet(t *testing.T, cat *course.Catalog, code string) *course.Course {
	t.Helper()
	c, ok := cat.Get(code)
	require.True(t, ok, "course %s not in catalog", code)
	return c
}

// recordMutations captures every mutation kind fired on p.
func recordMutations(t *testing.T, p *Plan) *[]MutationKind {
	t.Helper()
	var kinds []MutationKind
	cancel := p.OnMutate(func(m Mutation) { kinds = append(kinds, m.Kind) })
	t.Cleanup(cancel)
	return &kinds
}

type stubConstraint struct{ name string }

func (s stubConstraint) Kind() string { return s.name }
func (s stubConstraint) Evaluate(*Plan) []Violation { return nil }

// --- Semesters ---

func TestPlan_AddSemester(t *testing.T) {
	p := New(nil)
	kinds := recordMutations(t, p)

	fall, err := p.AddSemester("Fall")
	require.NoError(t, err)
	spring, err := p.AddSemester("Spring")
	require.NoError(t, err)

	assert.Equal(t, []*Semester{fall, spring}, p.Semesters())
	assert.Equal(t, 0, p.Index(fall))
	assert.Equal(t, 1, p.Index(spring))
	assert.Same(t, p, fall.Plan())
	assert.Equal(t, []MutationKind{MutationSemesterAdded, MutationSemesterAdded}, *kinds)
}

func TestPlan_AddSemesterRejects(t *testing.T) {
	p := New(nil)
	_, err := p.AddSemester("Fall")
	require.NoError(t, err)
	kinds := recordMutations(t, p)

	_, err = p.AddSemester("Fall")
	assert.ErrorIs(t, err, ErrDuplicateSemesterName)
	assert.ErrorIs(t, err, course.ErrDuplicate)

	_, err = p.AddSemester("  ")
	assert.ErrorIs(t, err, course.ErrInvalidInput)

	assert.Len(t, p.Semesters(), 1)
	assert.Empty(t, *kinds)
}

func TestPlan_RenameSemester(t *testing.T) {
	p := New(nil)
	fall, _ := p.AddSemester("Fall")
	spring, _ := p.AddSemester("Spring")

	var renamed Mutation
	p.OnMutate(func(m Mutation) { renamed = m })

	require.NoError(t, p.RenameSemester(fall, "Autumn"))
	assert.Equal(t, "Autumn", fall.Name())
	assert.Equal(t, MutationSemesterRenamed, renamed.Kind)
	assert.Equal(t, "Fall", renamed.OldName)

	err := p.RenameSemester(spring, "Autumn")
	assert.ErrorIs(t, err, ErrDuplicateSemesterName)
	assert.Equal(t, "Spring", spring.Name())

	require.NoError(t, p.RenameSemester(spring, "Spring"))
	assert.ErrorIs(t, p.RenameSemester(nil, "X"), course.ErrInvalidInput)
	assert.ErrorIs(t, p.RenameSemester(spring, ""), course.ErrInvalidInput)
}

func TestPlan_RemoveSemester(t *testing.T) {
	cat := testCatalog(t, "A")
	p := New(cat)
	fall, _ := p.AddSemester("Fall")
	_, err := fall.Enroll(mustGet(t, cat, "A"))
	require.NoError(t, err)

	require.NoError(t, p.RemoveSemester(fall))
	assert.Empty(t, p.Semesters())
	assert.Nil(t, fall.Plan())
	assert.Equal(t, 0, p.Credits())

	assert.ErrorIs(t, p.RemoveSemester(fall), ErrUnknownSemester)
	assert.ErrorIs(t, p.RemoveSemester(nil), course.ErrInvalidInput)

	_, err = fall.Enroll(mustGet(t, cat, "A"))
	assert.ErrorIs(t, err, ErrUnknownSemester)
}

// --- Enrollments ---

func TestSemester_EnrollUniqueness(t *testing.T) {
	cat := testCatalog(t, "A", "B")
	p := New(cat)
	fall, _ := p.AddSemester("Fall")

	a, err := fall.Enroll(mustGet(t, cat, "A"))
	require.NoError(t, err)
	assert.Same(t, fall, a.Semester())
	assert.False(t, a.Completed())

	_, err = fall.Enroll(mustGet(t, cat, "A"))
	assert.ErrorIs(t, err, ErrDuplicateEnrollment)
	assert.ErrorIs(t, err, course.ErrDuplicate)
	assert.Len(t, fall.Enrollments(), 1)

	_, err = fall.Enroll(mustGet(t, cat, "B"))
	require.NoError(t, err)
	assert.Equal(t, 10, fall.Credits())
}

func TestSemester_EnrollRejects(t *testing.T) {
	p := New(testCatalog(t, "A"))
	fall, _ := p.AddSemester("Fall")
	kinds := recordMutations(t, p)

	_, err := fall.Enroll(nil)
	assert.ErrorIs(t, err, course.ErrInvalidInput)

	stranger, err := course.New(course.Definition{Code: "X"}, nil, nil)
	require.NoError(t, err)
	_, err = fall.Enroll(stranger)
	assert.ErrorIs(t, err, ErrUnknownCourse)

	// Same code as a catalog course, different object.
	impostor, err := course.New(course.Definition{Code: "A", Credits: 30}, nil, nil)
	require.NoError(t, err)
	_, err = fall.Enroll(impostor)
	assert.ErrorIs(t, err, ErrUnknownCourse)

	assert.Empty(t, fall.Enrollments())
	assert.Zero(t, fall.Credits())
	assert.Empty(t, *kinds)
}

func TestSemester_AddEnrollmentRejectsForeignCourse(t *testing.T) {
	p := New(testCatalog(t, "A"))
	fall, _ := p.AddSemester("Fall")
	kinds := recordMutations(t, p)

	other := New(nil)
	impostor, err := course.New(course.Definition{Code: "A", Credits: 30}, nil, nil)
	require.NoError(t, err)
	require.NoError(t, other.Catalog().Put(impostor))

	t.Run("detached", func(t *testing.T) {
		s, _ := other.AddSemester("Detached")
		e, err := s.Enroll(impostor)
		require.NoError(t, err)
		require.NoError(t, s.RemoveEnrollment(e))

		assert.ErrorIs(t, fall.AddEnrollment(e), ErrUnknownCourse)
		assert.Nil(t, e.Semester())
	})

	t.Run("removed semester", func(t *testing.T) {
		s, _ := other.AddSemester("Removed")
		e, err := s.Enroll(impostor)
		require.NoError(t, err)
		require.NoError(t, other.RemoveSemester(s))

		assert.ErrorIs(t, fall.AddEnrollment(e), ErrUnknownCourse)
		assert.Same(t, s, e.Semester())
		assert.Len(t, s.Enrollments(), 1)
	})

	assert.Empty(t, fall.Enrollments())
	assert.Zero(t, p.Credits())
	assert.Empty(t, *kinds)
}

func TestSemester_AddEnrollmentMoves(t *testing.T) {
	cat := testCatalog(t, "A")
	p := New(cat)
	fall, _ := p.AddSemester("Fall")
	spring, _ := p.AddSemester("Spring")
	e, err := fall.Enroll(mustGet(t, cat, "A"))
	require.NoError(t, err)

	var got []Mutation
	p.OnMutate(func(m Mutation) { got = append(got, m) })

	require.NoError(t, spring.AddEnrollment(e))
	assert.Empty(t, fall.Enrollments())
	assert.Equal(t, []*Enrollment{e}, spring.Enrollments())
	assert.Same(t, spring, e.Semester())

	require.Len(t, got, 1)
	assert.Equal(t, MutationEnrollmentMoved, got[0].Kind)
	assert.Same(t, fall, got[0].From)

	err = spring.AddEnrollment(e)
	assert.ErrorIs(t, err, ErrDuplicateEnrollment)
	assert.ErrorIs(t, spring.AddEnrollment(nil), course.ErrInvalidInput)
}

func TestSemester_RemoveEnrollment(t *testing.T) {
	cat := testCatalog(t, "A")
	p := New(cat)
	fall, _ := p.AddSemester("Fall")
	spring, _ := p.AddSemester("Spring")
	e, _ := fall.Enroll(mustGet(t, cat, "A"))

	assert.ErrorIs(t, spring.RemoveEnrollment(e), ErrNotEnrolled)
	require.NoError(t, fall.RemoveEnrollment(e))
	assert.Nil(t, e.Semester())
	assert.Empty(t, fall.Enrollments())
	assert.ErrorIs(t, fall.RemoveEnrollment(e), ErrNotEnrolled)
	assert.ErrorIs(t, fall.RemoveEnrollment(nil), course.ErrInvalidInput)

	// A detached enrollment can be re-attached.
	require.NoError(t, spring.AddEnrollment(e))
	assert.Same(t, spring, e.Semester())
}

func TestEnrollment_SetCompletedFiresOnChange(t *testing.T) {
	cat := testCatalog(t, "A")
	p := New(cat)
	fall, _ := p.AddSemester("Fall")
	e, _ := fall.Enroll(mustGet(t, cat, "A"))
	kinds := recordMutations(t, p)

	e.SetCompleted(true)
	e.SetCompleted(true)
	e.SetCompleted(false)

	assert.False(t, e.Completed())
	assert.Equal(t, []MutationKind{MutationEnrollmentCompleted, MutationEnrollmentCompleted}, *kinds)
}

// --- Hooks and constraints ---

func TestPlan_OnMutateCancel(t *testing.T) {
	p := New(nil)
	calls := 0
	cancel := p.OnMutate(func(Mutation) { calls++ })

	_, _ = p.AddSemester("Fall")
	cancel()
	_, _ = p.AddSemester("Spring")

	assert.Equal(t, 1, calls)
}

func TestPlan_OnMutateRegistrationOrder(t *testing.T) {
	p := New(nil)
	var order []string
	p.OnMutate(func(Mutation) { order = append(order, "first") })
	p.OnMutate(func(Mutation) { order = append(order, "second") })

	_, _ = p.AddSemester("Fall")
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestPlan_Constraints(t *testing.T) {
	p := New(nil)
	kinds := recordMutations(t, p)

	require.NoError(t, p.AddConstraint(stubConstraint{name: "a"}))
	require.NoError(t, p.AddConstraint(stubConstraint{name: "b"}))
	assert.ErrorIs(t, p.AddConstraint(stubConstraint{name: "a"}), course.ErrDuplicate)
	assert.ErrorIs(t, p.AddConstraint(nil), course.ErrInvalidInput)
	assert.Len(t, p.Constraints(), 2)

	got, ok := p.ConstraintOfKind("b")
	require.True(t, ok)
	assert.Equal(t, stubConstraint{name: "b"}, got)
	_, ok = p.ConstraintOfKind("c")
	assert.False(t, ok)

	assert.True(t, p.RemoveConstraint(stubConstraint{name: "a"}))
	assert.False(t, p.RemoveConstraint(stubConstraint{name: "a"}))
	assert.Equal(t, []Constraint{stubConstraint{name: "b"}}, p.Constraints())
	assert.Equal(t, []MutationKind{
		MutationConstraintsChanged,
		MutationConstraintsChanged,
		MutationConstraintsChanged,
	}, *kinds)
}
