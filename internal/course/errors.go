package course

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput is returned for nil or malformed arguments. The operation
	// that returns it has not changed any state.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicate is the base error for entity collisions (courses,
	// enrollments, semester names).
	ErrDuplicate = errors.New("duplicate entity")

	// ErrDuplicateCourse is returned when a different course with the same
	// code is already stored.
	ErrDuplicateCourse = fmt.Errorf("course: %w", ErrDuplicate)

	// ErrCyclicDependency is returned when a course transitively requires itself.
	ErrCyclicDependency = errors.New("cyclic course dependency")
)

// CycleError describes a dependency cycle. Cycle starts and ends with the
// same code.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCyclicDependency, strings.Join(e.Cycle, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCyclicDependency }

// UnresolvedError is returned by Link when a definition in the dependency
// closure could not be obtained. Chain runs from the requested code to the
// one that failed.
type UnresolvedError struct {
	Chain []string
	Err   error
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("unresolved course %s (via %s): %v",
		e.Chain[len(e.Chain)-1], strings.Join(e.Chain, " -> "), e.Err)
}

func (e *UnresolvedError) Unwrap() error { return e.Err }
