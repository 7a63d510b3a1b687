package main

import (
	"context"
	"fmt"

	"github.com/dusk-indust/studyguide/internal/config"
	"github.com/dusk-indust/studyguide/internal/graph"
)

// openStore opens the configured course graph backend and ensures its schema.
func (a *app) openStore(ctx context.Context) (graph.Store, error) {
	var (
		store graph.Store
		err   error
	)
	switch a.cfg.GraphBackend {
	case config.BackendMemory:
		store = graph.NewMemStore()
	case config.BackendKuzu:
		store, err = openKuzuStore(a.cfg.GraphPath)
	case config.BackendPostgres:
		var pg *graph.PgStore
		if pg, err = graph.NewPgStore(ctx, a.cfg.DatabaseURL); err == nil {
			store = pg
		}
	default:
		err = fmt.Errorf("unknown graph backend %q", a.cfg.GraphBackend)
	}
	if err != nil {
		return nil, fmt.Errorf("open graph: %w", err)
	}
	if err := store.InitSchema(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("init graph schema: %w", err)
	}
	return store, nil
}

// openPersistentStore is openStore for commands that read a graph written by
// an earlier run.
func (a *app) openPersistentStore(ctx context.Context) (graph.Store, error) {
	if a.cfg.GraphBackend == config.BackendMemory {
		return nil, fmt.Errorf("graph backend %q keeps no graph between runs\nSet graphBackend to %q or %q in studyguide.yml",
			config.BackendMemory, config.BackendKuzu, config.BackendPostgres)
	}
	return a.openStore(ctx)
}
