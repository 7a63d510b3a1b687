package graph

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/dusk-indust/studyguide/internal/course"
)

// neighborFunc returns the codes one hop away from code, sorted.
type neighborFunc func(code string) ([]string, error)

func checkDirection(dir Direction) error {
	if dir != DirectionUpstream && dir != DirectionDownstream {
		return fmt.Errorf("%w: unknown direction %q", course.ErrInvalidInput, dir)
	}
	return nil
}

// walk performs a BFS from start, up to maxDepth hops (unbounded when
// maxDepth <= 0). It returns one DependencyChain per reachable course, holding
// the first path found to it.
func walk(start string, maxDepth int, next neighborFunc) ([]DependencyChain, error) {
	type bfsEntry struct {
		id   string
		path []string
	}

	visited := map[string]bool{start: true}
	queue := []bfsEntry{{id: start, path: []string{start}}}
	var chains []DependencyChain

	for depth := 0; (maxDepth <= 0 || depth < maxDepth) && len(queue) > 0; depth++ {
		var nextQueue []bfsEntry
		for _, entry := range queue {
			neighbors, err := next(entry.id)
			if err != nil {
				return nil, err
			}
			for _, nb := range neighbors {
				if visited[nb] {
					continue
				}
				visited[nb] = true
				path := append(slices.Clip(entry.path), nb)
				chains = append(chains, DependencyChain{Nodes: path, Depth: len(path) - 1})
				nextQueue = append(nextQueue, bfsEntry{id: nb, path: path})
			}
		}
		queue = nextQueue
	}
	return chains, nil
}

// assessImpact computes the courses that depend on any dropped course, using
// downstream to follow "is required by" links. total is the catalog size.
func assessImpact(dropped []string, total int, downstream neighborFunc) (*ImpactResult, error) {
	droppedSet := make(map[string]bool, len(dropped))
	for _, code := range dropped {
		droppedSet[code] = true
	}

	direct := map[string]bool{}
	transitive := map[string]bool{}
	for _, code := range dropped {
		neighbors, err := downstream(code)
		if err != nil {
			return nil, err
		}
		for _, nb := range neighbors {
			if !droppedSet[nb] {
				direct[nb] = true
			}
		}

		chains, err := walk(code, 0, downstream)
		if err != nil {
			return nil, err
		}
		for _, c := range chains {
			if last := c.Nodes[len(c.Nodes)-1]; !droppedSet[last] {
				transitive[last] = true
			}
		}
	}

	risk := 0.0
	if total > 0 {
		risk = math.Min(1.0, float64(len(transitive))/float64(total))
	}
	return &ImpactResult{
		DirectlyAffected:     sortedKeys(direct),
		TransitivelyAffected: sortedKeys(transitive),
		RiskScore:            risk,
	}, nil
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// sortEdges orders edges by source, kind and position.
func sortEdges(edges []Edge) {
	slices.SortFunc(edges, func(a, b Edge) int {
		return cmp.Or(
			cmp.Compare(a.SourceID, b.SourceID),
			cmp.Compare(a.Kind, b.Kind),
			cmp.Compare(a.Position, b.Position),
		)
	})
}
