package graph

import (
	"errors"

	"github.com/dusk-indust/studyguide/internal/course"
)

// ErrNodeNotFound is returned when an edge references a course the store does
// not hold.
var ErrNodeNotFound = errors.New("graph: course not found")

// --- Enums ---

// EdgeKind classifies relationships between courses.
type EdgeKind string

const (
	EdgeKindPrerequisite EdgeKind = "PREREQUISITE"
	EdgeKindCorequisite  EdgeKind = "COREQUISITE"
)

// EdgeKinds lists every kind a store persists, in table order.
var EdgeKinds = []EdgeKind{EdgeKindPrerequisite, EdgeKindCorequisite}

func (k EdgeKind) valid() bool {
	return k == EdgeKindPrerequisite || k == EdgeKindCorequisite
}

// --- Models ---

// CourseNode is a course stored in the graph, without its dependencies.
type CourseNode struct {
	Code          string      `json:"code"`
	Name          string      `json:"name"`
	LocalizedName string      `json:"localizedName,omitempty"`
	Locale        string      `json:"locale,omitempty"`
	Credits       int         `json:"credits"`
	EnrollableIn  course.Term `json:"enrollableIn"`
	Teachers      []string    `json:"teachers,omitempty"`
}

// NodeFromDefinition drops the dependency lists of def.
func NodeFromDefinition(def course.Definition) CourseNode {
	return CourseNode{
		Code:          def.Code,
		Name:          def.Name,
		LocalizedName: def.LocalizedName,
		Locale:        def.Locale,
		Credits:       def.Credits,
		EnrollableIn:  def.EnrollableIn,
		Teachers:      def.Teachers,
	}
}

// Edge states that SourceID requires TargetID. Position orders the edges of
// one kind leaving the same source.
type Edge struct {
	SourceID string   `json:"sourceId"`
	TargetID string   `json:"targetId"`
	Kind     EdgeKind `json:"kind"`
	Position int      `json:"position"`
}

// GraphStats summarizes a course graph.
type GraphStats struct {
	CourseCount       int `json:"courseCount"`
	PrerequisiteCount int `json:"prerequisiteCount"`
	CorequisiteCount  int `json:"corequisiteCount"`
	EdgeCount         int `json:"edgeCount"`
}

// DependencyChain is an ordered sequence of course codes forming a dependency path.
type DependencyChain struct {
	Nodes []string `json:"nodes"`
	Depth int      `json:"depth"`
}

// ImpactResult describes which courses become unreachable when a set of
// courses is dropped.
type ImpactResult struct {
	DirectlyAffected     []string `json:"directlyAffected"`     // courses requiring a dropped course
	TransitivelyAffected []string `json:"transitivelyAffected"` // full downstream closure
	RiskScore            float64  `json:"riskScore"`            // 0.0-1.0, share of the catalog affected
}
