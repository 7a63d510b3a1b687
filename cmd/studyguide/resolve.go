package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/dusk-indust/studyguide/internal/config"
	"github.com/dusk-indust/studyguide/internal/course"
	"github.com/dusk-indust/studyguide/internal/graph"
	"github.com/dusk-indust/studyguide/internal/resolve"
	"github.com/dusk-indust/studyguide/internal/sis"
)

// newResolver returns a resolver that scrapes the configured SIS into catalog.
func (a *app) newResolver(catalog *course.Catalog) (*resolve.Resolver, error) {
	scraper, err := sis.NewScraper(a.cfg.SISURL,
		sis.WithLocale(a.cfg.Locale),
		sis.WithLogger(a.logger.Named("sis")),
	)
	if err != nil {
		return nil, err
	}
	return resolve.New(catalog, scraper,
		resolve.WithConcurrency(a.cfg.Concurrency),
		resolve.WithLogger(a.logger.Named("resolve")),
		resolve.WithMetrics(a.metrics),
	)
}

// runResolve fetches the given courses with their dependency closure, prints
// them and stores the catalog in a persistent graph backend.
func (a *app) runResolve(ctx context.Context, codes []string) error {
	if len(codes) == 0 {
		return fmt.Errorf("usage: studyguide resolve <code>...")
	}

	catalog := course.NewCatalog()
	resolver, err := a.newResolver(catalog)
	if err != nil {
		return err
	}

	courses, resolveErr := resolver.ResolveAll(ctx, codes)
	for _, c := range courses {
		if c != nil {
			printCourse(a, c)
		}
	}
	if catalog.Len() > 0 {
		fmt.Fprintf(a.out, "\n%d course(s) in the dependency closure\n", catalog.Len())
	}

	if a.cfg.GraphBackend != config.BackendMemory && catalog.Len() > 0 {
		store, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := graph.SaveCatalog(ctx, store, catalog); err != nil {
			return fmt.Errorf("save graph: %w", err)
		}
		fmt.Fprintf(a.out, "stored in %s graph\n", a.cfg.GraphBackend)
	}
	return resolveErr
}

func printCourse(a *app, c *course.Course) {
	fmt.Fprintf(a.out, "%s  %s  (%d cr, %s)\n", c.Code(), c.Name(), c.Credits(), c.EnrollableIn())
	if pre := joinCodes(c.Prerequisites()); pre != "" {
		fmt.Fprintf(a.out, "  prerequisites: %s\n", pre)
	}
	if co := joinCodes(c.Corequisites()); co != "" {
		fmt.Fprintf(a.out, "  corequisites:  %s\n", co)
	}
}

func joinCodes(courses []*course.Course) string {
	out := make([]string, len(courses))
	for i, c := range courses {
		out[i] = c.Code()
	}
	return strings.Join(out, ", ")
}
