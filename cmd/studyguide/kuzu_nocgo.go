//go:build !cgo

package main

import (
	"errors"

	"github.com/dusk-indust/studyguide/internal/graph"
)

func openKuzuStore(string) (graph.Store, error) {
	return nil, errors.New("the kuzu graph backend requires a cgo build")
}
