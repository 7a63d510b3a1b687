package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/dusk-indust/studyguide/internal/graph"
)

// maxDependents caps the downstream list printed by query.
const maxDependents = 8

// runQuery searches the stored course graph by code or name and prints the
// neighbourhood of the best match.
func (a *app) runQuery(ctx context.Context, pattern string) error {
	if pattern == "" {
		return fmt.Errorf("usage: studyguide query <pattern>")
	}

	store, err := a.openPersistentStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	courses, err := store.QueryCourses(ctx, pattern, 10)
	if err != nil {
		return err
	}
	if len(courses) == 0 {
		fmt.Fprintf(a.out, "No courses match %q.\n", pattern)
		return nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Courses matching %q\n\n", pattern)
	for _, c := range courses {
		fmt.Fprintf(&sb, "- `%s` %s (%d cr, %s)\n", c.Code, c.Name, c.Credits, c.EnrollableIn)
	}

	primary := courses[0].Code
	upstream, err := store.GetDependencies(ctx, primary, graph.DirectionUpstream, 2)
	if err != nil {
		return err
	}
	if len(upstream) > 0 {
		fmt.Fprintf(&sb, "\n**Requires (upstream from `%s`):**\n", primary)
		for _, chain := range upstream {
			fmt.Fprintf(&sb, "- `%s`\n", chain.Nodes[len(chain.Nodes)-1])
		}
	}

	downstream, err := store.GetDependencies(ctx, primary, graph.DirectionDownstream, 2)
	if err != nil {
		return err
	}
	if len(downstream) > 0 {
		fmt.Fprintf(&sb, "\n**Required by (%d courses need `%s`):**\n", len(downstream), primary)
		for i, chain := range downstream {
			if i == maxDependents {
				fmt.Fprintf(&sb, "- ... (%d more)\n", len(downstream)-maxDependents)
				break
			}
			fmt.Fprintf(&sb, "- `%s`\n", chain.Nodes[len(chain.Nodes)-1])
		}
	}

	fmt.Fprint(a.out, sb.String())
	return nil
}
