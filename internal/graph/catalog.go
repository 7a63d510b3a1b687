package graph

import (
	"context"
	"fmt"

	"github.com/dusk-indust/studyguide/internal/course"
)

// bulkSaver is implemented by stores that can write a whole catalog in one
// round trip.
type bulkSaver interface {
	SaveCourses(ctx context.Context, nodes []CourseNode, edges []Edge) error
}

// SaveCatalog writes every course of catalog and its dependency edges to
// store. Courses are written before edges.
func SaveCatalog(ctx context.Context, store Store, catalog *course.Catalog) error {
	if store == nil || catalog == nil {
		return fmt.Errorf("%w: store and catalog are required", course.ErrInvalidInput)
	}
	var (
		nodes []CourseNode
		edges []Edge
	)
	for _, c := range catalog.All() {
		def := c.Definition()
		nodes = append(nodes, NodeFromDefinition(def))
		for i, dep := range def.Prerequisites {
			edges = append(edges, Edge{SourceID: def.Code, TargetID: dep, Kind: EdgeKindPrerequisite, Position: i})
		}
		for i, dep := range def.Corequisites {
			edges = append(edges, Edge{SourceID: def.Code, TargetID: dep, Kind: EdgeKindCorequisite, Position: i})
		}
	}

	if bs, ok := store.(bulkSaver); ok {
		return bs.SaveCourses(ctx, nodes, edges)
	}
	for _, n := range nodes {
		if err := store.AddCourse(ctx, n); err != nil {
			return err
		}
	}
	for _, e := range edges {
		if err := store.AddEdge(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// LoadCatalog rebuilds a catalog from the courses and edges in store. Every
// course is linked, so a store holding an incomplete or cyclic graph fails.
func LoadCatalog(ctx context.Context, store Store) (*course.Catalog, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is nil", course.ErrInvalidInput)
	}
	nodes, err := store.GetAllCourses(ctx)
	if err != nil {
		return nil, err
	}
	edges, err := store.GetAllEdges(ctx)
	if err != nil {
		return nil, err
	}
	sortEdges(edges)

	defs := make(map[string]*course.Definition, len(nodes))
	for _, n := range nodes {
		defs[n.Code] = &course.Definition{
			Code:          n.Code,
			Name:          n.Name,
			LocalizedName: n.LocalizedName,
			Locale:        n.Locale,
			Credits:       n.Credits,
			EnrollableIn:  n.EnrollableIn,
			Teachers:      n.Teachers,
		}
	}
	for _, e := range edges {
		def, ok := defs[e.SourceID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, e.SourceID)
		}
		switch e.Kind {
		case EdgeKindPrerequisite:
			def.Prerequisites = append(def.Prerequisites, e.TargetID)
		case EdgeKindCorequisite:
			def.Corequisites = append(def.Corequisites, e.TargetID)
		}
	}

	lookup := func(code string) (course.Definition, error) {
		def, ok := defs[code]
		if !ok {
			return course.Definition{}, fmt.Errorf("%w: %s", ErrNodeNotFound, code)
		}
		return *def, nil
	}
	catalog := course.NewCatalog()
	for _, n := range nodes {
		if _, err := catalog.Link(n.Code, lookup); err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
	}
	return catalog, nil
}
