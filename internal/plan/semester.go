package plan

import (
	"fmt"
	"slices"

	"github.com/dusk-indust/studyguide/internal/course"
)

// Semester is a named slot of a plan holding course enrollments. Semesters
// are created through Plan.AddSemester.
type Semester struct {
	name        string
	plan        *Plan
	enrollments []*Enrollment
}

// Name returns the semester name, unique within its plan.
func (s *Semester) Name() string { return s.name }

// Plan returns the owning plan, or nil once the semester was removed.
func (s *Semester) Plan() *Plan { return s.plan }

// Enrollments returns the enrollments in insertion order.
func (s *Semester) Enrollments() []*Enrollment {
	return slices.Clone(s.enrollments)
}

// Credits returns the credit sum of the semester's enrollments.
func (s *Semester) Credits() int {
	total := 0
	for _, e := range s.enrollments {
		total += e.course.Credits()
	}
	return total
}

// Enrollment returns the enrollment of the course with the given code.
func (s *Semester) Enrollment(code string) (*Enrollment, bool) {
	for _, e := range s.enrollments {
		if e.course.Code() == code {
			return e, true
		}
	}
	return nil, false
}

// Enroll creates an enrollment of c in this semester. c must be the course
// object held by the plan's catalog and must not already be enrolled in this
// semester.
func (s *Semester) Enroll(c *course.Course) (*Enrollment, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: course is nil", course.ErrInvalidInput)
	}
	if s.plan == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSemester, s.name)
	}
	if err := s.plan.checkCatalogCourse(c); err != nil {
		return nil, err
	}
	if _, ok := s.Enrollment(c.Code()); ok {
		return nil, fmt.Errorf("%w: %s already enrolled in %q", ErrDuplicateEnrollment, c.Code(), s.name)
	}
	e := &Enrollment{course: c, semester: s}
	s.enrollments = append(s.enrollments, e)
	s.plan.notify(Mutation{Kind: MutationEnrollmentAdded, Semester: s, Enrollment: e})
	return e, nil
}

// AddEnrollment attaches an existing enrollment object to this semester,
// detaching it from its previous semester of the same plan. Only the object
// itself is checked for duplication; use Enroll to also guard the course.
func (s *Semester) AddEnrollment(e *Enrollment) error {
	if e == nil {
		return fmt.Errorf("%w: enrollment is nil", course.ErrInvalidInput)
	}
	if s.plan == nil {
		return fmt.Errorf("%w: %q", ErrUnknownSemester, s.name)
	}
	if slices.Contains(s.enrollments, e) {
		return fmt.Errorf("%w: semester %q already holds enrollment of %s", ErrDuplicateEnrollment, s.name, e.course.Code())
	}
	from := e.semester
	if from != nil && from.plan != nil && from.plan != s.plan {
		return fmt.Errorf("%w: enrollment belongs to another plan", course.ErrInvalidInput)
	}
	// Detached enrollments may come from anywhere.
	if err := s.plan.checkCatalogCourse(e.course); err != nil {
		return err
	}

	if from != nil {
		from.enrollments = slices.DeleteFunc(from.enrollments, func(x *Enrollment) bool { return x == e })
	}
	e.semester = s
	s.enrollments = append(s.enrollments, e)

	if from != nil && from.plan == s.plan {
		s.plan.notify(Mutation{Kind: MutationEnrollmentMoved, Semester: s, Enrollment: e, From: from})
		return nil
	}
	s.plan.notify(Mutation{Kind: MutationEnrollmentAdded, Semester: s, Enrollment: e})
	return nil
}

// RemoveEnrollment deletes e from this semester. The enrollment is detached
// and must not be reused except through AddEnrollment.
func (s *Semester) RemoveEnrollment(e *Enrollment) error {
	if e == nil {
		return fmt.Errorf("%w: enrollment is nil", course.ErrInvalidInput)
	}
	i := slices.Index(s.enrollments, e)
	if i < 0 {
		return fmt.Errorf("%w: %s in %q", ErrNotEnrolled, e.course.Code(), s.name)
	}
	s.enrollments = slices.Delete(s.enrollments, i, i+1)
	e.semester = nil
	if s.plan != nil {
		s.plan.notify(Mutation{Kind: MutationEnrollmentRemoved, Semester: s, Enrollment: e})
	}
	return nil
}

func (s *Semester) String() string {
	return "Semester[" + s.name + "]"
}

// Enrollment is the fact that a course is taken in a semester.
type Enrollment struct {
	course    *course.Course
	semester  *Semester
	completed bool
}

// Course returns the enrolled course, owned by the catalog.
func (e *Enrollment) Course() *course.Course { return e.course }

// Semester returns the semester holding the enrollment, or nil once removed.
func (e *Enrollment) Semester() *Semester { return e.semester }

// Completed reports whether the course was passed.
func (e *Enrollment) Completed() bool { return e.completed }

// SetCompleted updates the completion flag.
func (e *Enrollment) SetCompleted(completed bool) {
	if e.completed == completed {
		return
	}
	e.completed = completed
	if e.semester != nil && e.semester.plan != nil {
		e.semester.plan.notify(Mutation{Kind: MutationEnrollmentCompleted, Semester: e.semester, Enrollment: e})
	}
}
