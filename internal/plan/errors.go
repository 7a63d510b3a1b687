package plan

import (
	"errors"
	"fmt"

	"github.com/dusk-indust/studyguide/internal/course"
)

var (
	// ErrDuplicateEnrollment is returned when a course or enrollment is
	// already present in the semester.
	ErrDuplicateEnrollment = fmt.Errorf("enrollment: %w", course.ErrDuplicate)

	// ErrDuplicateSemesterName is returned when a semester name is already
	// used in the plan.
	ErrDuplicateSemesterName = fmt.Errorf("semester name: %w", course.ErrDuplicate)

	// ErrNotEnrolled is returned when removing an enrollment the semester does
	// not hold.
	ErrNotEnrolled = errors.New("enrollment not in semester")

	// ErrUnknownSemester is returned when a semester does not belong to the plan.
	ErrUnknownSemester = errors.New("semester not in plan")

	// ErrUnknownCourse is returned when enrolling a course the plan's catalog
	// does not hold.
	ErrUnknownCourse = errors.New("course not in catalog")
)
