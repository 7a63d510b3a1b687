// Package resolve populates a course catalog with a course and every course
// it transitively depends on, fetching missing definitions from an ingestion
// source.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/studyguide/internal/course"
	"github.com/dusk-indust/studyguide/internal/metrics"
)

// DefaultConcurrency is the number of parallel fetches when none is configured.
const DefaultConcurrency = 4

var (
	// ErrDependencyResolution is matched by every *DependencyError.
	ErrDependencyResolution = errors.New("dependency resolution failed")

	// ErrCancelled is returned when the context ends during resolution.
	// Nothing fetched by the cancelled call is linked into the catalog.
	ErrCancelled = errors.New("resolution cancelled")
)

// DependencyError reports a definition in the dependency closure that could
// not be fetched or parsed. Chain runs from the requested code to the code
// that failed.
type DependencyError struct {
	Chain []string
	Err   error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: %s (via %s): %v",
		ErrDependencyResolution, e.Chain[len(e.Chain)-1], strings.Join(e.Chain, " -> "), e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

func (e *DependencyError) Is(target error) bool { return target == ErrDependencyResolution }

// Fetcher supplies the definition of a single course. Implementations may
// block on I/O and should honor ctx.
type Fetcher interface {
	Fetch(ctx context.Context, code string) (course.Definition, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, code string) (course.Definition, error)

func (f FetcherFunc) Fetch(ctx context.Context, code string) (course.Definition, error) {
	return f(ctx, code)
}

// Resolver resolves courses into one catalog. Calls on a Resolver are
// serialized, which makes it the exclusion region for its catalog: fetches
// run in parallel, but every lookup-then-insert happens under the lock.
type Resolver struct {
	mu          sync.Mutex
	catalog     *course.Catalog
	fetcher     Fetcher
	concurrency int
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithConcurrency bounds the number of parallel fetches. Values below 1 mean
// DefaultConcurrency.
func WithConcurrency(n int) Option {
	return func(r *Resolver) { r.concurrency = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// WithMetrics records fetches and resolve durations on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// New returns a Resolver that fills catalog using fetcher.
func New(catalog *course.Catalog, fetcher Fetcher, opts ...Option) (*Resolver, error) {
	if catalog == nil {
		return nil, fmt.Errorf("%w: catalog is nil", course.ErrInvalidInput)
	}
	if fetcher == nil {
		return nil, fmt.Errorf("%w: fetcher is nil", course.ErrInvalidInput)
	}
	r := &Resolver{
		catalog: catalog,
		fetcher: fetcher,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.concurrency < 1 {
		r.concurrency = DefaultConcurrency
	}
	return r, nil
}

// Catalog returns the catalog the resolver fills.
func (r *Resolver) Catalog() *course.Catalog { return r.catalog }

// Resolve returns the course for code, first fetching and linking it and its
// whole dependency closure if the catalog does not hold it yet. Each distinct
// missing code is fetched at most once.
//
// On a fetch failure the returned error is a *DependencyError; courses whose
// own closure was fetched completely are still linked into the catalog.
func (r *Resolver) Resolve(ctx context.Context, code string) (*course.Course, error) {
	courses, err := r.ResolveAll(ctx, []string{code})
	if err != nil {
		return nil, err
	}
	return courses[0], nil
}

// ResolveAll resolves several codes with one shared discovery. The returned
// slice is parallel to codes; entries whose resolution failed are nil and
// their errors are joined into the returned error.
func (r *Resolver) ResolveAll(ctx context.Context, codes []string) ([]*course.Course, error) {
	for _, code := range codes {
		if strings.TrimSpace(code) == "" {
			return nil, fmt.Errorf("%w: course code is empty", course.ErrInvalidInput)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	before := r.catalog.Len()

	defs, failed, err := r.discover(ctx, codes)
	if err != nil {
		r.logger.Warn("resolution cancelled", zap.Strings("codes", codes), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	lookup := func(code string) (course.Definition, error) {
		if def, ok := defs[code]; ok {
			return def, nil
		}
		if err, ok := failed[code]; ok {
			return course.Definition{}, err
		}
		return course.Definition{}, fmt.Errorf("course %s was not discovered", code)
	}

	out := make([]*course.Course, len(codes))
	var errs []error
	for i, code := range codes {
		c, err := r.catalog.Link(code, lookup)
		if err != nil {
			errs = append(errs, r.wrap(code, err))
			continue
		}
		out[i] = c
	}

	if len(errs) > 0 {
		r.linkDiscovered(defs, lookup)
	}
	linked := r.catalog.Len() - before
	r.metrics.ObserveResolve(time.Since(start).Seconds(), linked)
	r.logger.Debug("resolved",
		zap.Strings("codes", codes),
		zap.Int("fetched", len(defs)+len(failed)),
		zap.Int("linked", linked),
		zap.Duration("elapsed", time.Since(start)),
	)
	if len(errs) > 0 {
		return out, errors.Join(errs...)
	}
	return out, nil
}

// linkDiscovered links every fetched course whose closure is complete, so a
// failure below one root does not discard the rest of the discovery.
func (r *Resolver) linkDiscovered(defs map[string]course.Definition, lookup course.Lookup) {
	pending := make([]string, 0, len(defs))
	for code := range defs {
		pending = append(pending, code)
	}
	sort.Strings(pending)
	for _, code := range pending {
		if _, ok := r.catalog.Get(code); ok {
			continue
		}
		// Failures here are the ones already reported for the requested roots.
		_, _ = r.catalog.Link(code, lookup)
	}
}

func (r *Resolver) wrap(code string, err error) error {
	var unresolved *course.UnresolvedError
	if errors.As(err, &unresolved) {
		return &DependencyError{Chain: unresolved.Chain, Err: unresolved.Err}
	}
	return fmt.Errorf("resolve %s: %w", code, err)
}

type fetchResult struct {
	def course.Definition
	err error
}

// discover fetches, level by level, every code reachable from roots that the
// catalog does not hold. It returns the fetched definitions and the per-code
// fetch failures. Only cancellation of ctx aborts the walk.
func (r *Resolver) discover(ctx context.Context, roots []string) (map[string]course.Definition, map[string]error, error) {
	defs := make(map[string]course.Definition)
	failed := make(map[string]error)
	seen := make(map[string]bool)

	var level []string
	for _, code := range roots {
		if seen[code] {
			continue
		}
		seen[code] = true
		if _, ok := r.catalog.Get(code); !ok {
			level = append(level, code)
		}
	}

	for len(level) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		results := make([]fetchResult, len(level))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.concurrency)
		for i, code := range level {
			g.Go(func() error {
				r.logger.Debug("fetching course", zap.String("code", code))
				def, err := r.fetcher.Fetch(gctx, code)
				results[i] = fetchResult{def: def, err: err}
				return ctx.Err()
			})
		}
		if err := g.Wait(); err != nil {
			return nil, nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		var next []string
		for i, code := range level {
			res := results[i]
			r.metrics.ObserveFetch(res.err)
			if res.err != nil {
				r.logger.Warn("fetch failed", zap.String("code", code), zap.Error(res.err))
				failed[code] = res.err
				continue
			}
			defs[code] = res.def
			for _, dep := range res.def.Dependencies() {
				if seen[dep] {
					continue
				}
				seen[dep] = true
				if _, ok := r.catalog.Get(dep); !ok {
					next = append(next, dep)
				}
			}
		}
		level = next
	}
	return defs, failed, nil
}
