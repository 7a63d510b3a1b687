// Package persistence reads and writes study plans as JSON or YAML documents.
package persistence

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/studyguide/internal/constraint"
	"github.com/dusk-indust/studyguide/internal/course"
	"github.com/dusk-indust/studyguide/internal/plan"
)

// ErrPersistence is returned for unreadable or malformed documents. No plan
// is returned alongside it.
var ErrPersistence = errors.New("persistence error")

// Format is a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: unsupported plan file extension %q", course.ErrInvalidInput, filepath.Ext(path))
}

// Document is the persisted form of a plan.
type Document struct {
	SemesterPlan   *SemesterPlan       `json:"semesterPlan" yaml:"semesterPlan"`
	Constraints    []constraint.Spec   `json:"constraints" yaml:"constraints"`
	CourseRegistry []course.Definition `json:"courseRegistry" yaml:"courseRegistry"`
}

// SemesterPlan lists semesters in chronological order.
type SemesterPlan struct {
	Semesters []Semester `json:"semesters" yaml:"semesters"`
}

type Semester struct {
	Name        string       `json:"name" yaml:"name"`
	Enrollments []Enrollment `json:"enrollments,omitempty" yaml:"enrollments,omitempty"`
}

type Enrollment struct {
	Course    string `json:"course" yaml:"course"`
	Completed bool   `json:"completed,omitempty" yaml:"completed,omitempty"`
}

// Encode converts p to its document form.
func Encode(p *plan.Plan) (*Document, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: plan is nil", course.ErrInvalidInput)
	}
	doc := &Document{SemesterPlan: &SemesterPlan{}}
	for _, s := range p.Semesters() {
		sd := Semester{Name: s.Name()}
		for _, e := range s.Enrollments() {
			sd.Enrollments = append(sd.Enrollments, Enrollment{Course: e.Course().Code(), Completed: e.Completed()})
		}
		doc.SemesterPlan.Semesters = append(doc.SemesterPlan.Semesters, sd)
	}
	for _, c := range p.Constraints() {
		spec, err := constraint.Encode(c)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
		}
		doc.Constraints = append(doc.Constraints, spec)
	}
	for _, c := range p.Catalog().All() {
		doc.CourseRegistry = append(doc.CourseRegistry, c.Definition())
	}
	return doc, nil
}

// Decode builds a plan from doc. The course registry must be closed: every
// referenced course must have a definition in it.
func Decode(doc *Document) (*plan.Plan, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: document is nil", course.ErrInvalidInput)
	}

	defs := make(map[string]course.Definition, len(doc.CourseRegistry))
	for _, def := range doc.CourseRegistry {
		if _, dup := defs[def.Code]; dup {
			return nil, fmt.Errorf("%w: course registry lists %s twice", ErrPersistence, def.Code)
		}
		defs[def.Code] = def
	}
	lookup := func(code string) (course.Definition, error) {
		def, ok := defs[code]
		if !ok {
			return course.Definition{}, fmt.Errorf("course %s is not in the registry", code)
		}
		return def, nil
	}

	catalog := course.NewCatalog()
	for _, def := range doc.CourseRegistry {
		if _, err := catalog.Link(def.Code, lookup); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
		}
	}

	p := plan.New(catalog)
	if doc.SemesterPlan != nil {
		for _, sd := range doc.SemesterPlan.Semesters {
			s, err := p.AddSemester(sd.Name)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
			}
			for _, ed := range sd.Enrollments {
				c, ok := catalog.Get(ed.Course)
				if !ok {
					return nil, fmt.Errorf("%w: semester %q enrolls unknown course %s", ErrPersistence, sd.Name, ed.Course)
				}
				e, err := s.Enroll(c)
				if err != nil {
					return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
				}
				e.SetCompleted(ed.Completed)
			}
		}
	}
	for _, spec := range doc.Constraints {
		c, err := constraint.Decode(spec)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
		}
		if err := p.AddConstraint(c); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
		}
	}
	return p, nil
}

// Read decodes a plan document from r.
func Read(r io.Reader, format Format) (*plan.Plan, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: reader is nil", course.ErrInvalidInput)
	}
	var doc Document
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: decode json: %w", ErrPersistence, err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: decode yaml: %w", ErrPersistence, err)
		}
	default:
		return nil, fmt.Errorf("%w: unknown format %q", course.ErrInvalidInput, format)
	}
	return Decode(&doc)
}

// Write encodes p to w. Nothing is written if encoding fails.
func Write(p *plan.Plan, w io.Writer, format Format) error {
	if p == nil {
		return fmt.Errorf("%w: plan is nil", course.ErrInvalidInput)
	}
	if w == nil {
		return fmt.Errorf("%w: writer is nil", course.ErrInvalidInput)
	}
	doc, err := Encode(p)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("%w: encode json: %w", ErrPersistence, err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	case FormatYAML:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("%w: encode yaml: %w", ErrPersistence, err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("%w: encode yaml: %w", ErrPersistence, err)
		}
	default:
		return fmt.Errorf("%w: unknown format %q", course.ErrInvalidInput, format)
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

// ReadFile reads the plan stored at path; the extension selects the format.
func ReadFile(path string) (*plan.Plan, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: path is empty", course.ErrInvalidInput)
	}
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	defer f.Close()
	return Read(f, format)
}

// WriteFile stores p at path, creating parent directories as needed.
func WriteFile(p *plan.Plan, path string) error {
	if p == nil {
		return fmt.Errorf("%w: plan is nil", course.ErrInvalidInput)
	}
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: path is empty", course.ErrInvalidInput)
	}
	format, err := FormatFor(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Write(p, &buf, format); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}
