package graph

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store using Go maps. Thread-safe via sync.RWMutex.
type MemStore struct {
	mu      sync.RWMutex
	courses map[string]CourseNode
	edges   []Edge
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{courses: make(map[string]CourseNode)}
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error {
	return nil
}

// AddCourse stores a course keyed by its code.
func (m *MemStore) AddCourse(_ context.Context, node CourseNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	node.Teachers = slices.Clone(node.Teachers)
	m.courses[node.Code] = node
	return nil
}

// AddEdge appends an edge between two stored courses. Re-adding an edge
// updates its position.
func (m *MemStore) AddEdge(_ context.Context, edge Edge) error {
	if !edge.Kind.valid() {
		return fmt.Errorf("graph: unsupported edge kind: %s", edge.Kind)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, code := range []string{edge.SourceID, edge.TargetID} {
		if _, ok := m.courses[code]; !ok {
			return fmt.Errorf("%w: %s", ErrNodeNotFound, code)
		}
	}
	for i, e := range m.edges {
		if e.SourceID == edge.SourceID && e.TargetID == edge.TargetID && e.Kind == edge.Kind {
			m.edges[i] = edge
			return nil
		}
	}
	m.edges = append(m.edges, edge)
	return nil
}

// GetCourse returns the course with the given code, or nil if not found.
func (m *MemStore) GetCourse(_ context.Context, code string) (*CourseNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.courses[code]
	if !ok {
		return nil, nil
	}
	c.Teachers = slices.Clone(c.Teachers)
	return &c, nil
}

// QueryCourses returns courses whose code or name contains query
// (case-insensitive), ordered by code, up to limit results. A limit <= 0
// returns all matches.
func (m *MemStore) QueryCourses(ctx context.Context, query string, limit int) ([]CourseNode, error) {
	all, err := m.GetAllCourses(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	var results []CourseNode
	for _, c := range all {
		if !matches(c, q) {
			continue
		}
		results = append(results, c)
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results, nil
}

func matches(c CourseNode, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(c.Code), lowerQuery) ||
		strings.Contains(strings.ToLower(c.Name), lowerQuery) ||
		strings.Contains(strings.ToLower(c.LocalizedName), lowerQuery)
}

// GetAllCourses returns every course ordered by code.
func (m *MemStore) GetAllCourses(_ context.Context) ([]CourseNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]CourseNode, 0, len(m.courses))
	for _, c := range m.courses {
		c.Teachers = slices.Clone(c.Teachers)
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b CourseNode) int { return strings.Compare(a.Code, b.Code) })
	return out, nil
}

// GetAllEdges returns a copy of all edges ordered by source, kind and position.
func (m *MemStore) GetAllEdges(_ context.Context) ([]Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := slices.Clone(m.edges)
	sortEdges(out)
	return out, nil
}

// GetDependencies performs a BFS over both edge kinds from code in the given
// direction, up to maxDepth hops. It returns one DependencyChain per reachable
// course.
func (m *MemStore) GetDependencies(_ context.Context, code string, direction Direction, maxDepth int) ([]DependencyChain, error) {
	if err := checkDirection(direction); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return walk(code, maxDepth, func(id string) ([]string, error) {
		return m.neighbors(id, direction), nil
	})
}

// neighbors returns codes reachable from id in one hop along the given
// direction. Caller holds the lock.
func (m *MemStore) neighbors(id string, direction Direction) []string {
	set := map[string]bool{}
	for _, e := range m.edges {
		switch {
		case direction == DirectionUpstream && e.SourceID == id:
			set[e.TargetID] = true
		case direction == DirectionDownstream && e.TargetID == id:
			set[e.SourceID] = true
		}
	}
	return sortedKeys(set)
}

// AssessImpact reports the courses that can no longer be taken once the
// dropped courses are gone.
func (m *MemStore) AssessImpact(_ context.Context, dropped []string) (*ImpactResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return assessImpact(dropped, len(m.courses), func(id string) ([]string, error) {
		return m.neighbors(id, DirectionDownstream), nil
	})
}

// Stats returns counts of courses and edges.
func (m *MemStore) Stats(_ context.Context) (*GraphStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := &GraphStats{CourseCount: len(m.courses), EdgeCount: len(m.edges)}
	for _, e := range m.edges {
		switch e.Kind {
		case EdgeKindPrerequisite:
			stats.PrerequisiteCount++
		case EdgeKindCorequisite:
			stats.CorequisiteCount++
		}
	}
	return stats, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}
