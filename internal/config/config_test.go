package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/studyguide/internal/constraint"
	"github.com/dusk-indust/studyguide/internal/course"
	"github.com/dusk-indust/studyguide/internal/resolve"
	"github.com/dusk-indust/studyguide/internal/sis"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(DatabaseURLEnv, "")
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, sis.DefaultBaseURL, cfg.SISURL)
	assert.Equal(t, "cs", cfg.Locale)
	assert.Equal(t, resolve.DefaultConcurrency, cfg.Concurrency)
	assert.Equal(t, course.TermWinter, cfg.FirstTerm)
	assert.Equal(t, BackendMemory, cfg.GraphBackend)
	assert.Equal(t, filepath.Join(".studyguide", "graph"), cfg.GraphPath)
	assert.Zero(t, cfg.MaxCredits)
}

func TestLoad_File(t *testing.T) {
	dir := writeConfig(t, "studyguide.yaml", `
sisURL: file:///tmp/pages
locale: en
concurrency: 8
maxCredits: 30
minCredits: 180
requireCompleted: true
firstTerm: summer
graphBackend: postgres
databaseURL: postgres://localhost/studyguide
metricsAddr: ":9090"
verbose: true
`)
	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, &Config{
		SISURL:           "file:///tmp/pages",
		Locale:           "en",
		Concurrency:      8,
		MaxCredits:       30,
		MinCredits:       180,
		RequireCompleted: true,
		FirstTerm:        course.TermSummer,
		GraphBackend:     BackendPostgres,
		GraphPath:        filepath.Join(".studyguide", "graph"),
		DatabaseURL:      "postgres://localhost/studyguide",
		MetricsAddr:      ":9090",
		Verbose:          true,
	}, cfg)
}

func TestLoad_DatabaseURLFromEnv(t *testing.T) {
	t.Setenv(DatabaseURLEnv, "postgres://env/db")
	cfg, err := Load(writeConfig(t, "studyguide.yml", "graphBackend: postgres\n"))
	require.NoError(t, err)
	assert.Equal(t, "postgres://env/db", cfg.DatabaseURL)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv(DatabaseURLEnv, "")
	tests := []struct {
		name    string
		content string
	}{
		{"negative cap", "maxCredits: -1\n"},
		{"both terms", "firstTerm: both\n"},
		{"unknown term", "firstTerm: autumn\n"},
		{"unknown backend", "graphBackend: neo4j\n"},
		{"postgres without url", "graphBackend: postgres\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, "studyguide.yml", tt.content))
			assert.ErrorIs(t, err, course.ErrInvalidInput)
		})
	}

	_, err := Load(writeConfig(t, "studyguide.yml", "concurrency: [\n"))
	assert.Error(t, err)
}

func TestConstraints(t *testing.T) {
	cfg := (&Config{}).WithDefaults()
	assert.Equal(t, []any{
		constraint.PrerequisiteOrdering{},
		constraint.CorequisiteCoOccurrence{},
		constraint.DuplicateEnrollment{},
		constraint.TermAvailability{FirstTerm: course.TermWinter},
	}, toAny(cfg.Constraints()))

	cfg.MaxCredits = 30
	cfg.MinCredits = 180
	cfg.RequireCompleted = true
	got := cfg.Constraints()
	require.Len(t, got, 6)
	assert.Equal(t, constraint.PrerequisiteOrdering{RequireCompleted: true}, got[0])
	assert.Equal(t, constraint.CreditCap{MaxCredits: 30}, got[4])
	assert.Equal(t, constraint.TotalCredits{MinCredits: 180}, got[5])
}

func toAny[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
