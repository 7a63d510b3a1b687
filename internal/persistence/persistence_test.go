package persistence

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/studyguide/internal/constraint"
	"github.com/dusk-indust/studyguide/internal/course"
	"github.com/dusk-indust/studyguide/internal/plan"
)

// samplePlan builds a two-semester plan with dependencies, a completed
// enrollment and three constraints.
func samplePlan(t *testing.T) *plan.Plan {
	t.Helper()
	defs := map[string]course.Definition{
		"NPRG030": {Code: "NPRG030", Name: "Programming 1", LocalizedName: "Programování 1", Locale: "cs", Credits: 5, EnrollableIn: course.TermWinter, Teachers: []string{"Pergel"}},
		"NPRG031": {Code: "NPRG031", Name: "Programming 2", Credits: 5, EnrollableIn: course.TermSummer, Prerequisites: []string{"NPRG030"}},
		"NPRG045": {Code: "NPRG045", Name: "Project", Credits: 4, Corequisites: []string{"NPRG031"}},
	}
	cat := course.NewCatalog()
	for code := range defs {
		_, err := cat.Link(code, func(c string) (course.Definition, error) {
			d, ok := defs[c]
			if !ok {
				return course.Definition{}, fmt.Errorf("missing %s", c)
			}
			return d, nil
		})
		require.NoError(t, err)
	}

	p := plan.New(cat)
	winter, err := p.AddSemester("Winter 2024")
	require.NoError(t, err)
	summer, err := p.AddSemester("Summer 2025")
	require.NoError(t, err)

	enroll := func(s *plan.Semester, code string) *plan.Enrollment {
		c, ok := cat.Get(code)
		require.True(t, ok)
		e, err := s.Enroll(c)
		require.NoError(t, err)
		return e
	}
	enroll(winter, "NPRG030").SetCompleted(true)
	enroll(summer, "NPRG031")
	enroll(summer, "NPRG045")

	require.NoError(t, p.AddConstraint(constraint.CreditCap{MaxCredits: 30}))
	require.NoError(t, p.AddConstraint(constraint.PrerequisiteOrdering{RequireCompleted: true}))
	require.NoError(t, p.AddConstraint(constraint.TermAvailability{FirstTerm: course.TermWinter}))
	return p
}

// assertSamePlan compares plans by the entity equality rules: semester names,
// enrolled course codes with completion flags, constraint set and catalog
// definitions.
func assertSamePlan(t *testing.T, want, got *plan.Plan) {
	t.Helper()
	require.Len(t, got.Semesters(), len(want.Semesters()))
	for i, ws := range want.Semesters() {
		gs := got.Semesters()[i]
		assert.Equal(t, ws.Name(), gs.Name())
		require.Len(t, gs.Enrollments(), len(ws.Enrollments()))
		for j, we := range ws.Enrollments() {
			ge := gs.Enrollments()[j]
			assert.True(t, we.Course().Equal(ge.Course()))
			assert.Equal(t, we.Completed(), ge.Completed())
		}
	}
	assert.ElementsMatch(t, want.Constraints(), got.Constraints())

	require.Equal(t, want.Catalog().Len(), got.Catalog().Len())
	for _, wc := range want.Catalog().All() {
		gc, ok := got.Catalog().Get(wc.Code())
		require.True(t, ok, wc.Code())
		assert.True(t, wc.SameDefinition(gc), wc.Code())
	}
	assert.Empty(t, got.Catalog().Dangling())
}

// --- Round trip ---

func TestRoundTrip(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			p := samplePlan(t)
			var buf bytes.Buffer
			require.NoError(t, Write(p, &buf, format))

			got, err := Read(&buf, format)
			require.NoError(t, err)
			assertSamePlan(t, p, got)
		})
	}
}

func TestRoundTrip_Files(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"plan.json", "plan.yaml", "nested/plan.yml"} {
		t.Run(name, func(t *testing.T) {
			p := samplePlan(t)
			path := filepath.Join(dir, name)
			require.NoError(t, WriteFile(p, path))

			got, err := ReadFile(path)
			require.NoError(t, err)
			assertSamePlan(t, p, got)
		})
	}
}

func TestWrite_JSONFieldNames(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(samplePlan(t), &buf, FormatJSON))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "{"))
	for _, field := range []string{`"semesterPlan"`, `"constraints"`, `"courseRegistry"`, `"kind": "credit-cap"`} {
		assert.Contains(t, out, field)
	}
}

func TestRead_NullSections(t *testing.T) {
	doc := `{"semesterPlan": null, "constraints": null, "courseRegistry": null}`
	p, err := Read(strings.NewReader(doc), FormatJSON)
	require.NoError(t, err)
	assert.Empty(t, p.Semesters())
	assert.Empty(t, p.Constraints())
	assert.Equal(t, 0, p.Catalog().Len())
}

// --- Errors ---

func TestRead_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		doc    string
	}{
		{"syntax", FormatJSON, `{"semesterPlan": [`},
		{"empty", FormatJSON, ``},
		{"yaml syntax", FormatYAML, "semesterPlan: [\n"},
		{"unknown course", FormatJSON, `{"semesterPlan": {"semesters": [{"name": "S1", "enrollments": [{"course": "X"}]}]}}`},
		{"dangling registry", FormatJSON, `{"courseRegistry": [{"code": "A", "prerequisites": ["B"]}]}`},
		{"cyclic registry", FormatJSON, `{"courseRegistry": [{"code": "A", "prerequisites": ["B"]}, {"code": "B", "prerequisites": ["A"]}]}`},
		{"registry duplicate", FormatJSON, `{"courseRegistry": [{"code": "A"}, {"code": "A"}]}`},
		{"duplicate semester", FormatJSON, `{"semesterPlan": {"semesters": [{"name": "S"}, {"name": "S"}]}}`},
		{"duplicate enrollment", FormatJSON, `{"courseRegistry": [{"code": "A"}], "semesterPlan": {"semesters": [{"name": "S", "enrollments": [{"course": "A"}, {"course": "A"}]}]}}`},
		{"unknown constraint", FormatJSON, `{"constraints": [{"kind": "moon-phase"}]}`},
		{"invalid constraint", FormatYAML, "constraints:\n  - kind: credit-cap\n"},
		{"first term both", FormatYAML, "constraints:\n  - kind: term-availability\n    firstTerm: BOTH\n"},
		{"two caps", FormatJSON, `{"constraints": [{"kind": "credit-cap", "maxCredits": 30}, {"kind": "credit-cap", "maxCredits": 18}]}`},
		{"negative credits", FormatYAML, "courseRegistry:\n  - code: A\n    credits: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Read(strings.NewReader(tt.doc), tt.format)
			assert.ErrorIs(t, err, ErrPersistence)
			assert.Nil(t, p)
		})
	}
}

func TestNilGuards(t *testing.T) {
	p := samplePlan(t)
	var buf bytes.Buffer

	_, err := Read(nil, FormatJSON)
	assert.ErrorIs(t, err, course.ErrInvalidInput)
	assert.ErrorIs(t, Write(nil, &buf, FormatJSON), course.ErrInvalidInput)
	assert.ErrorIs(t, Write(p, nil, FormatJSON), course.ErrInvalidInput)
	assert.Zero(t, buf.Len())

	_, err = ReadFile("")
	assert.ErrorIs(t, err, course.ErrInvalidInput)
	assert.ErrorIs(t, WriteFile(nil, filepath.Join(t.TempDir(), "p.json")), course.ErrInvalidInput)
	assert.ErrorIs(t, WriteFile(p, ""), course.ErrInvalidInput)

	_, err = Encode(nil)
	assert.ErrorIs(t, err, course.ErrInvalidInput)
	_, err = Decode(nil)
	assert.ErrorIs(t, err, course.ErrInvalidInput)
}

func TestFormatFor(t *testing.T) {
	for path, want := range map[string]Format{"a.json": FormatJSON, "b.YAML": FormatYAML, "c.yml": FormatYAML} {
		got, err := FormatFor(path)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := FormatFor("plan.toml")
	assert.ErrorIs(t, err, course.ErrInvalidInput)
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorIs(t, err, ErrPersistence)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestWrite_AcceptedConstraintsReadBack(t *testing.T) {
	p := samplePlan(t)
	assert.ErrorIs(t, p.AddConstraint(constraint.CreditCap{}), course.ErrInvalidInput)
	assert.ErrorIs(t, p.AddConstraint(constraint.CreditCap{MaxCredits: 18}), course.ErrDuplicate)
	assert.ErrorIs(t, p.AddConstraint(constraint.TermAvailability{FirstTerm: course.TermBoth}), course.ErrInvalidInput)
	require.NoError(t, p.AddConstraint(constraint.TotalCredits{}))

	for _, format := range []Format{FormatJSON, FormatYAML} {
		var buf bytes.Buffer
		require.NoError(t, Write(p, &buf, format))
		back, err := Read(&buf, format)
		require.NoError(t, err)
		assert.Equal(t, p.Constraints(), back.Constraints())
	}
}

type unserializable struct{}

func (unserializable) Kind() string { return "custom" }
func (unserializable) Evaluate(*plan.Plan) []plan.Violation { return nil }

func TestWrite_UnknownConstraintWritesNothing(t *testing.T) {
	p := samplePlan(t)
	require.NoError(t, p.AddConstraint(unserializable{}))

	var buf bytes.Buffer
	err := Write(p, &buf, FormatJSON)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, constraint.ErrUnknownConstraint)
	assert.Zero(t, buf.Len())
}
