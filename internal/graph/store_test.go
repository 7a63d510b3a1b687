package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/studyguide/internal/course"
)

// seedCurriculum loads a small diamond: ALG requires PROG and MATH, both
// require INTRO, and PROG has LAB as corequisite.
func seedCurriculum(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	for _, n := range []CourseNode{
		{Code: "INTRO", Name: "Introduction", Credits: 3, EnrollableIn: course.TermWinter},
		{Code: "LAB", Name: "Programming Lab", Credits: 2, EnrollableIn: course.TermBoth},
		{Code: "MATH", Name: "Discrete Mathematics", Credits: 5, EnrollableIn: course.TermSummer},
		{Code: "PROG", Name: "Programming", LocalizedName: "Programování", Locale: "cs", Credits: 5, EnrollableIn: course.TermSummer, Teachers: []string{"Pergel", "Holan"}},
		{Code: "ALG", Name: "Algorithms", Credits: 6, EnrollableIn: course.TermWinter},
	} {
		require.NoError(t, s.AddCourse(ctx, n))
	}
	for _, e := range []Edge{
		{SourceID: "ALG", TargetID: "PROG", Kind: EdgeKindPrerequisite, Position: 0},
		{SourceID: "ALG", TargetID: "MATH", Kind: EdgeKindPrerequisite, Position: 1},
		{SourceID: "PROG", TargetID: "INTRO", Kind: EdgeKindPrerequisite},
		{SourceID: "PROG", TargetID: "LAB", Kind: EdgeKindCorequisite},
		{SourceID: "MATH", TargetID: "INTRO", Kind: EdgeKindPrerequisite},
	} {
		require.NoError(t, s.AddEdge(ctx, e))
	}
}

func chainNodes(t *testing.T, chains []DependencyChain) [][]string {
	t.Helper()
	out := make([][]string, len(chains))
	for i, c := range chains {
		assert.Equal(t, len(c.Nodes)-1, c.Depth)
		out[i] = c.Nodes
	}
	return out
}

// runStoreSuite checks the behavior every Store implementation shares.
// newStore returns an empty store with an initialized schema.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("InitSchemaIdempotent", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.InitSchema(ctx))
	})

	t.Run("CourseRoundTrip", func(t *testing.T) {
		s := newStore(t)
		seedCurriculum(t, s)

		got, err := s.GetCourse(ctx, "PROG")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, CourseNode{
			Code: "PROG", Name: "Programming", LocalizedName: "Programování", Locale: "cs",
			Credits: 5, EnrollableIn: course.TermSummer, Teachers: []string{"Pergel", "Holan"},
		}, *got)

		missing, err := s.GetCourse(ctx, "NOPE")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("AddCourseReplaces", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.AddCourse(ctx, CourseNode{Code: "X", Name: "Old", Credits: 1, EnrollableIn: course.TermBoth}))
		require.NoError(t, s.AddCourse(ctx, CourseNode{Code: "X", Name: "New", Credits: 4, EnrollableIn: course.TermWinter}))

		got, err := s.GetCourse(ctx, "X")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "New", got.Name)
		assert.Equal(t, 4, got.Credits)

		stats, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.CourseCount)
	})

	t.Run("AddEdgeRequiresEndpoints", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.AddCourse(ctx, CourseNode{Code: "A", EnrollableIn: course.TermBoth}))

		err := s.AddEdge(ctx, Edge{SourceID: "A", TargetID: "GHOST", Kind: EdgeKindPrerequisite})
		assert.ErrorIs(t, err, ErrNodeNotFound)

		err = s.AddEdge(ctx, Edge{SourceID: "A", TargetID: "A", Kind: "IMPORTS"})
		assert.Error(t, err)
	})

	t.Run("AddEdgeUpdatesPosition", func(t *testing.T) {
		s := newStore(t)
		seedCurriculum(t, s)
		require.NoError(t, s.AddEdge(ctx, Edge{SourceID: "ALG", TargetID: "PROG", Kind: EdgeKindPrerequisite, Position: 2}))

		edges, err := s.GetAllEdges(ctx)
		require.NoError(t, err)
		assert.Len(t, edges, 5)
		assert.Equal(t, Edge{SourceID: "ALG", TargetID: "MATH", Kind: EdgeKindPrerequisite, Position: 1}, edges[0])
		assert.Equal(t, Edge{SourceID: "ALG", TargetID: "PROG", Kind: EdgeKindPrerequisite, Position: 2}, edges[1])
	})

	t.Run("QueryCourses", func(t *testing.T) {
		s := newStore(t)
		seedCurriculum(t, s)

		got, err := s.QueryCourses(ctx, "prog", 0)
		require.NoError(t, err)
		codes := make([]string, len(got))
		for i, c := range got {
			codes[i] = c.Code
		}
		assert.Equal(t, []string{"LAB", "PROG"}, codes)

		got, err = s.QueryCourses(ctx, "programov", 0)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "PROG", got[0].Code)

		got, err = s.QueryCourses(ctx, "", 2)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("GetAllCoursesOrdered", func(t *testing.T) {
		s := newStore(t)
		seedCurriculum(t, s)

		all, err := s.GetAllCourses(ctx)
		require.NoError(t, err)
		codes := make([]string, len(all))
		for i, c := range all {
			codes[i] = c.Code
		}
		assert.Equal(t, []string{"ALG", "INTRO", "LAB", "MATH", "PROG"}, codes)
	})

	t.Run("DependenciesUpstream", func(t *testing.T) {
		s := newStore(t)
		seedCurriculum(t, s)

		chains, err := s.GetDependencies(ctx, "ALG", DirectionUpstream, 0)
		require.NoError(t, err)
		assert.Equal(t, [][]string{
			{"ALG", "MATH"},
			{"ALG", "PROG"},
			{"ALG", "MATH", "INTRO"},
			{"ALG", "PROG", "LAB"},
		}, chainNodes(t, chains))

		chains, err = s.GetDependencies(ctx, "ALG", DirectionUpstream, 1)
		require.NoError(t, err)
		assert.Len(t, chains, 2)
	})

	t.Run("DependenciesDownstream", func(t *testing.T) {
		s := newStore(t)
		seedCurriculum(t, s)

		chains, err := s.GetDependencies(ctx, "INTRO", DirectionDownstream, 0)
		require.NoError(t, err)
		assert.Equal(t, [][]string{
			{"INTRO", "MATH"},
			{"INTRO", "PROG"},
			{"INTRO", "MATH", "ALG"},
		}, chainNodes(t, chains))

		chains, err = s.GetDependencies(ctx, "ALG", DirectionDownstream, 0)
		require.NoError(t, err)
		assert.Empty(t, chains)

		_, err = s.GetDependencies(ctx, "ALG", "sideways", 0)
		assert.ErrorIs(t, err, course.ErrInvalidInput)
	})

	t.Run("AssessImpact", func(t *testing.T) {
		s := newStore(t)
		seedCurriculum(t, s)

		impact, err := s.AssessImpact(ctx, []string{"INTRO"})
		require.NoError(t, err)
		assert.Equal(t, []string{"MATH", "PROG"}, impact.DirectlyAffected)
		assert.Equal(t, []string{"ALG", "MATH", "PROG"}, impact.TransitivelyAffected)
		assert.InDelta(t, 0.6, impact.RiskScore, 1e-9)

		impact, err = s.AssessImpact(ctx, []string{"LAB", "PROG"})
		require.NoError(t, err)
		assert.Equal(t, []string{"ALG"}, impact.DirectlyAffected)
		assert.Equal(t, []string{"ALG"}, impact.TransitivelyAffected)

		impact, err = s.AssessImpact(ctx, []string{"ALG"})
		require.NoError(t, err)
		assert.Empty(t, impact.DirectlyAffected)
		assert.Empty(t, impact.TransitivelyAffected)
		assert.Zero(t, impact.RiskScore)
	})

	t.Run("Stats", func(t *testing.T) {
		s := newStore(t)
		seedCurriculum(t, s)

		stats, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, &GraphStats{CourseCount: 5, PrerequisiteCount: 4, CorequisiteCount: 1, EdgeCount: 5}, stats)
	})

	t.Run("CatalogRoundTrip", func(t *testing.T) {
		s := newStore(t)
		seedCurriculum(t, s)

		cat, err := LoadCatalog(ctx, s)
		require.NoError(t, err)
		assert.Equal(t, 5, cat.Len())
		alg, ok := cat.Get("ALG")
		require.True(t, ok)
		assert.Equal(t, []string{"PROG", "MATH"}, alg.Definition().Prerequisites)

		other := newStore(t)
		require.NoError(t, SaveCatalog(ctx, other, cat))
		again, err := LoadCatalog(ctx, other)
		require.NoError(t, err)
		for _, c := range cat.All() {
			got, ok := again.Get(c.Code())
			require.True(t, ok, c.Code())
			assert.True(t, c.SameDefinition(got), c.Code())
		}
	})
}
