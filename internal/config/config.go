package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/studyguide/internal/constraint"
	"github.com/dusk-indust/studyguide/internal/course"
	"github.com/dusk-indust/studyguide/internal/plan"
	"github.com/dusk-indust/studyguide/internal/resolve"
	"github.com/dusk-indust/studyguide/internal/sis"
)

// Graph backends.
const (
	BackendMemory   = "memory"
	BackendKuzu     = "kuzu"
	BackendPostgres = "postgres"
)

// DatabaseURLEnv is read when databaseURL is not set in the config file.
const DatabaseURLEnv = "DATABASE_CONNECTION_STRING"

// Config holds planner settings loaded from studyguide.yml.
type Config struct {
	SISURL           string      `yaml:"sisURL,omitempty"`
	Locale           string      `yaml:"locale,omitempty"`
	Concurrency      int         `yaml:"concurrency,omitempty"`
	MaxCredits       int         `yaml:"maxCredits,omitempty"`
	MinCredits       int         `yaml:"minCredits,omitempty"`
	RequireCompleted bool        `yaml:"requireCompleted,omitempty"`
	FirstTerm        course.Term `yaml:"firstTerm,omitempty"`
	GraphBackend     string      `yaml:"graphBackend,omitempty"`
	GraphPath        string      `yaml:"graphPath,omitempty"`
	DatabaseURL      string      `yaml:"databaseURL,omitempty"`
	MetricsAddr      string      `yaml:"metricsAddr,omitempty"`
	Verbose          bool        `yaml:"verbose,omitempty"`
}

// Load attempts to read studyguide.yml or studyguide.yaml from the given
// directory. Returns a defaulted config (not an error) if no config file
// exists.
func Load(dir string) (*Config, error) {
	var cfg Config
	for _, name := range []string{"studyguide.yml", "studyguide.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
		break
	}
	cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// WithDefaults fills unset fields.
func (c *Config) WithDefaults() *Config {
	if c.SISURL == "" {
		c.SISURL = sis.DefaultBaseURL
	}
	if c.Locale == "" {
		c.Locale = sis.DefaultLocale
	}
	if c.Concurrency <= 0 {
		c.Concurrency = resolve.DefaultConcurrency
	}
	if c.FirstTerm == "" {
		c.FirstTerm = course.TermWinter
	}
	if c.GraphBackend == "" {
		c.GraphBackend = BackendMemory
	}
	if c.GraphPath == "" {
		c.GraphPath = filepath.Join(".studyguide", "graph")
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv(DatabaseURLEnv)
	}
	return c
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	if c.MaxCredits < 0 || c.MinCredits < 0 {
		return fmt.Errorf("%w: credit limits must not be negative", course.ErrInvalidInput)
	}
	term, err := course.ParseTerm(string(c.FirstTerm))
	if err != nil {
		return err
	}
	if term == course.TermBoth {
		return fmt.Errorf("%w: firstTerm must be winter or summer", course.ErrInvalidInput)
	}
	c.FirstTerm = term

	switch c.GraphBackend {
	case BackendMemory, BackendKuzu:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: postgres backend needs databaseURL or %s", course.ErrInvalidInput, DatabaseURLEnv)
		}
	default:
		return fmt.Errorf("%w: unknown graph backend %q", course.ErrInvalidInput, c.GraphBackend)
	}
	return nil
}

// Constraints returns the constraint set a new plan starts with. The credit
// cap and minimum total are only included when set.
func (c *Config) Constraints() []plan.Constraint {
	out := []plan.Constraint{
		constraint.PrerequisiteOrdering{RequireCompleted: c.RequireCompleted},
		constraint.CorequisiteCoOccurrence{},
		constraint.DuplicateEnrollment{},
		constraint.TermAvailability{FirstTerm: c.FirstTerm},
	}
	if c.MaxCredits > 0 {
		out = append(out, constraint.CreditCap{MaxCredits: c.MaxCredits})
	}
	if c.MinCredits > 0 {
		out = append(out, constraint.TotalCredits{MinCredits: c.MinCredits})
	}
	return out
}
