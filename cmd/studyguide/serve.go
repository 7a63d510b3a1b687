package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"go.uber.org/zap"

	"github.com/dusk-indust/studyguide/internal/graph"
	"github.com/dusk-indust/studyguide/internal/mcptools"
	"github.com/dusk-indust/studyguide/internal/persistence"
	"github.com/dusk-indust/studyguide/internal/plan"
)

// sessionPlan opens the plan served over MCP. A missing file starts an empty
// plan that save_plan will create.
func (a *app) sessionPlan() (*plan.Plan, error) {
	if a.flags.PlanPath != "" {
		p, err := persistence.ReadFile(a.flags.PlanPath)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return plan.New(nil), nil
}

// newPlannerService assembles the MCP session: plan, engine, resolver and
// graph store. The returned cleanup releases all of them.
func (a *app) newPlannerService(ctx context.Context) (*mcptools.PlannerService, func(), error) {
	p, err := a.sessionPlan()
	if err != nil {
		return nil, nil, err
	}
	var defaults []plan.Constraint
	if len(p.Constraints()) == 0 {
		defaults = a.cfg.Constraints()
	}
	engine, err := a.newEngine(p, defaults)
	if err != nil {
		return nil, nil, err
	}
	resolver, err := a.newResolver(p.Catalog())
	if err != nil {
		engine.Close()
		return nil, nil, err
	}
	store, err := a.openStore(ctx)
	if err != nil {
		engine.Close()
		return nil, nil, err
	}
	if err := graph.SaveCatalog(ctx, store, p.Catalog()); err != nil {
		a.logger.Warn("graph sync failed", zap.Error(err))
	}

	svc, err := mcptools.NewPlannerService(engine, resolver,
		mcptools.WithStore(store),
		mcptools.WithPlanPath(a.flags.PlanPath),
		mcptools.WithLogger(a.logger.Named("mcp")),
	)
	if err != nil {
		store.Close()
		engine.Close()
		return nil, nil, err
	}
	cleanup := func() {
		svc.Close()
		engine.Close()
		store.Close()
	}
	return svc, cleanup, nil
}

// runServeMCP serves the planner tools on stdio, or on HTTP with --mcp-addr.
func (a *app) runServeMCP(ctx context.Context) error {
	svc, cleanup, err := a.newPlannerService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if a.flags.MCPAddr != "" {
		a.logger.Info("serving MCP over HTTP", zap.String("addr", a.flags.MCPAddr))
		return mcptools.RunMCPServer(ctx, svc, a.flags.MCPAddr)
	}
	if err := mcptools.RunMCPServerStdio(ctx, svc); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

