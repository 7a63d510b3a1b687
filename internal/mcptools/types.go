package mcptools

import "github.com/dusk-indust/studyguide/internal/graph"

// --- MCP Tool Input/Output Types ---
// The MCP Go SDK generates JSON schemas from these struct tags.

// CourseSummary is a course as reported to clients.
type CourseSummary struct {
	Code          string   `json:"code"`
	Name          string   `json:"name"`
	Credits       int      `json:"credits"`
	EnrollableIn  string   `json:"enrollableIn"`
	Prerequisites []string `json:"prerequisites,omitempty"`
	Corequisites  []string `json:"corequisites,omitempty"`
}

// EventOutput is a constraint event caused by a tool call.
type EventOutput struct {
	Kind    string `json:"kind"` // "violated" or "fixed"
	ID      string `json:"id"`
	Message string `json:"message"`
}

// ResolveCourseInput is the input for the resolve_course MCP tool.
type ResolveCourseInput struct {
	Codes []string `json:"codes" jsonschema:"course codes to resolve together with their dependency closure"`
}

// ResolveCourseOutput is the result of the resolve_course MCP tool.
type ResolveCourseOutput struct {
	Courses  []CourseSummary `json:"courses"`
	Failures []string        `json:"failures,omitempty"`
}

// GetDependenciesInput is the input for the get_dependencies MCP tool.
type GetDependenciesInput struct {
	Code      string `json:"code" jsonschema:"course code of a resolved course"`
	Direction string `json:"direction,omitempty" jsonschema:"upstream (what it requires) or downstream (what requires it). Default: upstream"`
	MaxDepth  int    `json:"maxDepth,omitempty" jsonschema:"maximum traversal depth (default: 5)"`
}

// GetDependenciesOutput is the result of the get_dependencies MCP tool.
type GetDependenciesOutput struct {
	Chains []graph.DependencyChain `json:"chains"`
}

// AssessImpactInput is the input for the assess_impact MCP tool.
type AssessImpactInput struct {
	Codes []string `json:"codes" jsonschema:"course codes that would be dropped"`
}

// AssessImpactOutput is the result of the assess_impact MCP tool.
type AssessImpactOutput struct {
	Impact graph.ImpactResult `json:"impact"`
}

// AddSemesterInput is the input for the add_semester MCP tool.
type AddSemesterInput struct {
	Name string `json:"name" jsonschema:"unique semester name, appended after the last semester"`
}

// EnrollCourseInput is the input for the enroll_course MCP tool.
type EnrollCourseInput struct {
	Semester  string `json:"semester" jsonschema:"name of an existing semester"`
	Code      string `json:"code" jsonschema:"course code; unresolved courses are fetched first"`
	Completed bool   `json:"completed,omitempty" jsonschema:"mark the enrollment as passed"`
}

// DropCourseInput is the input for the drop_course MCP tool.
type DropCourseInput struct {
	Semester string `json:"semester" jsonschema:"name of the semester"`
	Code     string `json:"code" jsonschema:"course code to remove from the semester"`
}

// SetCompletedInput is the input for the set_completed MCP tool.
type SetCompletedInput struct {
	Semester  string `json:"semester" jsonschema:"name of the semester"`
	Code      string `json:"code" jsonschema:"course code enrolled in the semester"`
	Completed bool   `json:"completed" jsonschema:"whether the course was passed"`
}

// MutationOutput is the result of every plan-changing tool.
type MutationOutput struct {
	Events []EventOutput `json:"events"`
	Valid  bool          `json:"valid"`
}

// ValidatePlanInput is the input for the validate_plan MCP tool.
type ValidatePlanInput struct{}

// SemesterOutput summarizes one semester.
type SemesterOutput struct {
	Name    string   `json:"name"`
	Credits int      `json:"credits"`
	Courses []string `json:"courses"`
}

// ValidatePlanOutput is the result of the validate_plan MCP tool.
type ValidatePlanOutput struct {
	Valid      bool             `json:"valid"`
	Credits    int              `json:"credits"`
	Semesters  []SemesterOutput `json:"semesters"`
	Violations []EventOutput    `json:"violations"`
}

// SavePlanInput is the input for the save_plan MCP tool.
type SavePlanInput struct {
	Path string `json:"path,omitempty" jsonschema:"target .json or .yaml file (default: the plan file the server was started with)"`
}

// SavePlanOutput is the result of the save_plan MCP tool.
type SavePlanOutput struct {
	Path string `json:"path"`
}
