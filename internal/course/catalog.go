package course

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
)

// Catalog is the deduplicated store of courses keyed by code. Each method is
// atomic; sequences of calls are not.
type Catalog struct {
	mu      sync.RWMutex
	courses map[string]*Course
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{courses: make(map[string]*Course)}
}

// Get returns the course stored under code.
func (c *Catalog) Get(code string) (*Course, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	course, ok := c.courses[code]
	return course, ok
}

// Put stores course. Storing a course identical to the stored one is a no-op;
// a different course under the same code fails with ErrDuplicateCourse.
func (c *Catalog) Put(course *Course) error {
	if course == nil {
		return fmt.Errorf("%w: course is nil", ErrInvalidInput)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.courses[course.code]; ok {
		if existing == course || existing.SameDefinition(course) {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrDuplicateCourse, course.code)
	}
	c.courses[course.code] = course
	return nil
}

// PutSimple stores course only if its code is absent.
func (c *Catalog) PutSimple(course *Course) {
	if course == nil {
		return
	}
	c.PutIfAbsent(course)
}

// PutIfAbsent stores course unless its code is present. It returns the course
// now stored under the code and whether course was inserted.
func (c *Catalog) PutIfAbsent(course *Course) (*Course, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.courses[course.code]; ok {
		return existing, false
	}
	c.courses[course.code] = course
	return course, true
}

// All returns a snapshot of every stored course, ordered by code.
func (c *Catalog) All() []*Course {
	c.mu.RLock()
	out := make([]*Course, 0, len(c.courses))
	for _, course := range c.courses {
		out = append(out, course)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].code < out[j].code })
	return out
}

// Len returns the number of stored courses.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.courses)
}

// DanglingRef is a dependency of a stored course that is not itself stored,
// or is stored as a different object.
type DanglingRef struct {
	Course     string
	Dependency string
}

func (d DanglingRef) String() string {
	return d.Course + " -> " + d.Dependency
}

// Dangling lists references that break the closed-catalog invariant. A closed
// catalog returns nil.
func (c *Catalog) Dangling() []DanglingRef {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []DanglingRef
	for code, course := range c.courses {
		for _, dep := range slices.Concat(course.prerequisites, course.corequisites) {
			if stored, ok := c.courses[dep.code]; !ok || stored != dep {
				out = append(out, DanglingRef{Course: code, Dependency: dep.code})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Lookup supplies the definition for a course code during Link.
type Lookup func(code string) (Definition, error)

// Link returns the course for code, building it and every missing course in
// its dependency closure from lookup. Dependencies are inserted before their
// dependents, so every course that links successfully stays in the catalog
// even if a later sibling fails.
func (c *Catalog) Link(code string, lookup Lookup) (*Course, error) {
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: course code is empty", ErrInvalidInput)
	}
	if lookup == nil {
		return nil, fmt.Errorf("%w: lookup is nil", ErrInvalidInput)
	}
	l := &linker{catalog: c, lookup: lookup, inProgress: make(map[string]bool)}
	return l.link(code, nil)
}

type linker struct {
	catalog    *Catalog
	lookup     Lookup
	inProgress map[string]bool
}

func (l *linker) link(code string, chain []string) (*Course, error) {
	if course, ok := l.catalog.Get(code); ok {
		return course, nil
	}
	chain = append(slices.Clip(chain), code)
	if l.inProgress[code] {
		start := slices.Index(chain, code)
		return nil, &CycleError{Cycle: slices.Clone(chain[start:])}
	}

	def, err := l.lookup(code)
	if err != nil {
		return nil, &UnresolvedError{Chain: chain, Err: err}
	}
	if def.Code != code {
		return nil, &UnresolvedError{Chain: chain, Err: fmt.Errorf("%w: definition for %s carries code %q", ErrInvalidInput, code, def.Code)}
	}

	l.inProgress[code] = true
	defer delete(l.inProgress, code)

	prereqs, err := l.linkAll(def.Prerequisites, chain)
	if err != nil {
		return nil, err
	}
	coreqs, err := l.linkAll(def.Corequisites, chain)
	if err != nil {
		return nil, err
	}

	course, err := New(def, prereqs, coreqs)
	if err != nil {
		return nil, &UnresolvedError{Chain: chain, Err: err}
	}
	stored, _ := l.catalog.PutIfAbsent(course)
	return stored, nil
}

func (l *linker) linkAll(codes []string, chain []string) ([]*Course, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	out := make([]*Course, 0, len(codes))
	for _, code := range codes {
		dep, err := l.link(code, chain)
		if err != nil {
			return nil, err
		}
		out = append(out, dep)
	}
	return out, nil
}
