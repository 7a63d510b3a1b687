package main

import (
	"context"
	"fmt"

	"github.com/dusk-indust/studyguide/internal/export"
)

// runDiagram prints the Mermaid diagram of a plan, or of the stored course
// graph when no plan is given.
func (a *app) runDiagram(ctx context.Context, args []string) error {
	if len(args) > 0 {
		engine, err := a.loadPlan(args[0])
		if err != nil {
			return err
		}
		defer engine.Close()
		fmt.Fprint(a.out, export.PlanMermaid(engine.Plan()))
		return nil
	}

	store, err := a.openPersistentStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	mermaid, err := export.GenerateMermaid(ctx, store)
	if err != nil {
		return err
	}
	fmt.Fprint(a.out, mermaid)
	return nil
}
