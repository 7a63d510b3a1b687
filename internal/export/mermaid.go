package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/dusk-indust/studyguide/internal/graph"
	"github.com/dusk-indust/studyguide/internal/plan"
)

// GenerateMermaid produces a Mermaid graph TD diagram from a graph store.
// Arrows point from a dependency to the course requiring it; prerequisites
// are solid, corequisites dotted.
func GenerateMermaid(ctx context.Context, store graph.Store) (string, error) {
	courses, err := store.GetAllCourses(ctx)
	if err != nil {
		return "", fmt.Errorf("get courses: %w", err)
	}

	edges, err := store.GetAllEdges(ctx)
	if err != nil {
		return "", fmt.Errorf("get edges: %w", err)
	}

	// Courses arrive ordered by code, so IDs are stable across runs.
	nodeIDs := make(map[string]string, len(courses))
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	for i, c := range courses {
		id := fmt.Sprintf("N%d", i)
		nodeIDs[c.Code] = id
		label := c.Code
		if c.Name != "" {
			label += "<br/>" + c.Name
		}
		sb.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", id, escapeLabel(label)))
	}

	for _, e := range edges {
		src, ok1 := nodeIDs[e.SourceID]
		dep, ok2 := nodeIDs[e.TargetID]
		if !ok1 || !ok2 {
			continue
		}
		sb.WriteString(fmt.Sprintf("  %s %s %s\n", dep, arrow(e.Kind), src))
	}

	return sb.String(), nil
}

// PlanMermaid draws a plan with one subgraph per semester. Completed
// enrollments are marked with a check; dependency arrows connect enrolled
// courses only.
func PlanMermaid(p *plan.Plan) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	placed := make(map[string][]string) // course code -> node IDs
	for i, s := range p.Semesters() {
		sb.WriteString(fmt.Sprintf("  subgraph S%d[\"%s (%d cr)\"]\n", i, escapeLabel(s.Name()), s.Credits()))
		for j, e := range s.Enrollments() {
			id := fmt.Sprintf("S%dE%d", i, j)
			label := e.Course().Code()
			if e.Completed() {
				label += " ✓"
			}
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", id, escapeLabel(label)))
			placed[e.Course().Code()] = append(placed[e.Course().Code()], id)
		}
		sb.WriteString("  end\n")
	}

	for i, s := range p.Semesters() {
		for j, e := range s.Enrollments() {
			id := fmt.Sprintf("S%dE%d", i, j)
			for _, dep := range e.Course().Prerequisites() {
				for _, from := range placed[dep.Code()] {
					sb.WriteString(fmt.Sprintf("  %s %s %s\n", from, arrow(graph.EdgeKindPrerequisite), id))
				}
			}
			for _, dep := range e.Course().Corequisites() {
				for _, from := range placed[dep.Code()] {
					sb.WriteString(fmt.Sprintf("  %s %s %s\n", from, arrow(graph.EdgeKindCorequisite), id))
				}
			}
		}
	}
	return sb.String()
}

func arrow(kind graph.EdgeKind) string {
	if kind == graph.EdgeKindCorequisite {
		return "-.->"
	}
	return "-->"
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}
