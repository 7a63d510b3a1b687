//go:build cgo

package main

import (
	"github.com/dusk-indust/studyguide/internal/graph"
)

func openKuzuStore(path string) (graph.Store, error) {
	store, err := graph.NewKuzuFileStore(path)
	if err != nil {
		return nil, err
	}
	return store, nil
}
