package main

import (
	"fmt"

	"github.com/dune-build/dune-cache/pkg/config"
	"github.com/dune-build/dune-cache/pkg/store"
)

// resolveCacheRoot resolves the cache root directory and ensures its
// on-disk layout exists, creating it on first use.
func resolveCacheRoot() (string, error) {
	root, err := config.ResolveRoot()
	if err != nil {
		return "", fmt.Errorf("unable to resolve cache root: %w", err)
	}

	s := store.NewStore(root, nil)
	if err := s.Initialize(); err != nil {
		return "", fmt.Errorf("unable to initialize cache root %s: %w", root, err)
	}

	return root, nil
}
