package export

import (
	"time"

	"github.com/dusk-indust/studyguide/internal/notify"
	"github.com/dusk-indust/studyguide/internal/plan"
)

// PlanExport is the top-level JSON report of a plan.
type PlanExport struct {
	ExportedAt   string            `json:"exportedAt"`
	TotalCredits int               `json:"totalCredits"`
	Valid        bool              `json:"valid"`
	Semesters    []SemesterExport  `json:"semesters"`
	Violations   []ViolationExport `json:"violations,omitempty"`
}

// SemesterExport describes one semester.
type SemesterExport struct {
	Name    string         `json:"name"`
	Credits int            `json:"credits"`
	Courses []CourseExport `json:"courses"`
}

// CourseExport describes one enrollment.
type CourseExport struct {
	Code          string   `json:"code"`
	Name          string   `json:"name"`
	Credits       int      `json:"credits"`
	Completed     bool     `json:"completed"`
	Prerequisites []string `json:"prerequisites,omitempty"`
	Corequisites  []string `json:"corequisites,omitempty"`
}

// ViolationExport is an active violation with a readable message.
type ViolationExport struct {
	ID         string `json:"id"`
	Constraint string `json:"constraint"`
	Message    string `json:"message"`
}

// ExportPlan builds a PlanExport from p and its active violations.
func ExportPlan(p *plan.Plan, violations []plan.Violation) *PlanExport {
	export := &PlanExport{
		ExportedAt:   time.Now().UTC().Format(time.RFC3339),
		TotalCredits: p.Credits(),
		Valid:        len(violations) == 0,
		Semesters:    []SemesterExport{},
	}

	for _, s := range p.Semesters() {
		se := SemesterExport{Name: s.Name(), Credits: s.Credits(), Courses: []CourseExport{}}
		for _, e := range s.Enrollments() {
			def := e.Course().Definition()
			se.Courses = append(se.Courses, CourseExport{
				Code:          def.Code,
				Name:          def.Name,
				Credits:       def.Credits,
				Completed:     e.Completed(),
				Prerequisites: def.Prerequisites,
				Corequisites:  def.Corequisites,
			})
		}
		export.Semesters = append(export.Semesters, se)
	}

	for _, v := range violations {
		export.Violations = append(export.Violations, ViolationExport{
			ID:         v.ID,
			Constraint: v.Constraint,
			Message:    notify.Describe(v),
		})
	}
	return export
}
