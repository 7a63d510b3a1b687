package graph

import (
	"context"
	"io"
)

// Store is the interface for the course graph backend.
// Implementations: MemStore, KuzuStore (cgo) and PgStore.
type Store interface {
	io.Closer

	// Schema setup, called once before any data is inserted.
	InitSchema(ctx context.Context) error

	// Write operations. AddCourse replaces an existing course with the same
	// code; AddEdge fails with ErrNodeNotFound when an endpoint is missing.
	AddCourse(ctx context.Context, node CourseNode) error
	AddEdge(ctx context.Context, edge Edge) error

	// Read operations. GetCourse returns nil for an unknown code.
	GetCourse(ctx context.Context, code string) (*CourseNode, error)
	QueryCourses(ctx context.Context, query string, limit int) ([]CourseNode, error)
	GetAllCourses(ctx context.Context) ([]CourseNode, error)
	GetAllEdges(ctx context.Context) ([]Edge, error)

	// Graph traversal.
	GetDependencies(ctx context.Context, code string, direction Direction, maxDepth int) ([]DependencyChain, error)
	AssessImpact(ctx context.Context, dropped []string) (*ImpactResult, error)

	Stats(ctx context.Context) (*GraphStats, error)
}

// Direction controls dependency traversal direction.
type Direction string

const (
	DirectionUpstream   Direction = "upstream"   // what does this course require?
	DirectionDownstream Direction = "downstream" // what requires this course?
)
