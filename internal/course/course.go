package course

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/language"
)

// Term is the part of the academic year a course can be taken in.
type Term string

const (
	TermWinter Term = "WINTER"
	TermSummer Term = "SUMMER"
	TermBoth   Term = "BOTH"
)

// ParseTerm maps a term name to a Term. Matching is case-insensitive.
func ParseTerm(s string) (Term, error) {
	switch Term(strings.ToUpper(strings.TrimSpace(s))) {
	case TermWinter:
		return TermWinter, nil
	case TermSummer:
		return TermSummer, nil
	case TermBoth, "":
		return TermBoth, nil
	}
	return "", fmt.Errorf("%w: unknown term %q", ErrInvalidInput, s)
}

// Includes reports whether a course offered in t can be taken in a semester of term other.
func (t Term) Includes(other Term) bool {
	return t == TermBoth || other == TermBoth || t == other
}

// Definition is the flat, code-based description of a course as produced by
// an ingestion collaborator or read from a course registry document.
type Definition struct {
	Code          string   `json:"code" yaml:"code"`
	Name          string   `json:"name" yaml:"name"`
	LocalizedName string   `json:"localizedName,omitempty" yaml:"localizedName,omitempty"`
	Locale        string   `json:"locale,omitempty" yaml:"locale,omitempty"`
	Credits       int      `json:"credits" yaml:"credits"`
	EnrollableIn  Term     `json:"enrollableIn,omitempty" yaml:"enrollableIn,omitempty"`
	Teachers      []string `json:"teachers,omitempty" yaml:"teachers,omitempty"`
	Prerequisites []string `json:"prerequisites,omitempty" yaml:"prerequisites,omitempty"`
	Corequisites  []string `json:"corequisites,omitempty" yaml:"corequisites,omitempty"`
}

// Dependencies returns prerequisite codes followed by corequisite codes.
func (d Definition) Dependencies() []string {
	out := make([]string, 0, len(d.Prerequisites)+len(d.Corequisites))
	out = append(out, d.Prerequisites...)
	return append(out, d.Corequisites...)
}

// Validate checks the fields that New would reject.
func (d Definition) Validate() error {
	if strings.TrimSpace(d.Code) == "" {
		return fmt.Errorf("%w: course code is empty", ErrInvalidInput)
	}
	if d.Credits < 0 {
		return fmt.Errorf("%w: course %s has negative credits %d", ErrInvalidInput, d.Code, d.Credits)
	}
	if d.Locale != "" {
		if _, err := language.Parse(d.Locale); err != nil {
			return fmt.Errorf("%w: course %s locale %q: %v", ErrInvalidInput, d.Code, d.Locale, err)
		}
	}
	return nil
}

// Course is an immutable catalog entry. Two courses are equal iff their codes
// are equal.
type Course struct {
	code          string
	name          string
	localizedName string
	locale        language.Tag
	credits       int
	enrollableIn  Term
	teachers      []string
	prerequisites []*Course
	corequisites  []*Course
}

// New builds a course from its definition and the already-resolved dependency
// courses. prereqs and coreqs must match the codes in def, in order.
func New(def Definition, prereqs, coreqs []*Course) (*Course, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if err := matchRefs(def.Code, "prerequisite", def.Prerequisites, prereqs); err != nil {
		return nil, err
	}
	if err := matchRefs(def.Code, "corequisite", def.Corequisites, coreqs); err != nil {
		return nil, err
	}

	tag := language.Und
	if def.Locale != "" {
		tag = language.Make(def.Locale)
	}
	term := def.EnrollableIn
	if term == "" {
		term = TermBoth
	}

	return &Course{
		code:          def.Code,
		name:          def.Name,
		localizedName: def.LocalizedName,
		locale:        tag,
		credits:       def.Credits,
		enrollableIn:  term,
		teachers:      slices.Clone(def.Teachers),
		prerequisites: slices.Clone(prereqs),
		corequisites:  slices.Clone(coreqs),
	}, nil
}

func matchRefs(code, kind string, codes []string, refs []*Course) error {
	if len(codes) != len(refs) {
		return fmt.Errorf("%w: course %s declares %d %ss, got %d", ErrInvalidInput, code, len(codes), kind, len(refs))
	}
	for i, ref := range refs {
		if ref == nil || ref.code != codes[i] {
			return fmt.Errorf("%w: course %s %s %d is not %s", ErrInvalidInput, code, kind, i, codes[i])
		}
	}
	return nil
}

func (c *Course) Code() string { return c.code }
func (c *Course) Name() string { return c.name }
func (c *Course) LocalizedName() string { return c.localizedName }
func (c *Course) Locale() language.Tag { return c.locale }
func (c *Course) Credits() int { return c.credits }
func (c *Course) EnrollableIn() Term { return c.enrollableIn }
func (c *Course) Teachers() []string { return slices.Clone(c.teachers) }

// Prerequisites returns the courses that must be passed before this one.
func (c *Course) Prerequisites() []*Course { return slices.Clone(c.prerequisites) }

// Corequisites returns the courses that must be taken no later than this one.
func (c *Course) Corequisites() []*Course { return slices.Clone(c.corequisites) }

// Equal reports whether both courses have the same code.
func (c *Course) Equal(other *Course) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.code == other.code
}

// SameDefinition reports whether both courses carry identical attributes and
// dependency codes.
func (c *Course) SameDefinition(other *Course) bool {
	if c == nil || other == nil {
		return c == other
	}
	a, b := c.Definition(), other.Definition()
	return a.Code == b.Code &&
		a.Name == b.Name &&
		a.LocalizedName == b.LocalizedName &&
		a.Locale == b.Locale &&
		a.Credits == b.Credits &&
		a.EnrollableIn == b.EnrollableIn &&
		slices.Equal(a.Teachers, b.Teachers) &&
		slices.Equal(a.Prerequisites, b.Prerequisites) &&
		slices.Equal(a.Corequisites, b.Corequisites)
}

// Definition returns the flat form of the course.
func (c *Course) Definition() Definition {
	def := Definition{
		Code:          c.code,
		Name:          c.name,
		LocalizedName: c.localizedName,
		Credits:       c.credits,
		EnrollableIn:  c.enrollableIn,
		Teachers:      slices.Clone(c.teachers),
		Prerequisites: codes(c.prerequisites),
		Corequisites:  codes(c.corequisites),
	}
	if c.locale != language.Und {
		def.Locale = c.locale.String()
	}
	return def
}

func (c *Course) String() string {
	return fmt.Sprintf("Course[%s]", c.code)
}

func codes(cs []*Course) []string {
	if len(cs) == 0 {
		return nil
	}
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.code
	}
	return out
}
