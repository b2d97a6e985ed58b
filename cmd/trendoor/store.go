package main

import (
	"context"
	"fmt"

	"github.com/ethpandaops/trendoor/pkg/config"
	"github.com/ethpandaops/trendoor/pkg/storage"
	"github.com/ethpandaops/trendoor/pkg/store"
)

// openStore builds the storage backend from config and starts a
// document store over it.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	var backend storage.Backend

	switch {
	case cfg.Storage.S3 != nil && cfg.Storage.S3.Enabled:
		backend = storage.NewS3Backend(cfg.Storage.S3)
	case cfg.Storage.Local != nil && cfg.Storage.Local.Enabled:
		backend = storage.NewLocalBackend(cfg.Storage.Local)
	default:
		return nil, fmt.Errorf("no storage backend configured")
	}

	st := store.NewStore(log, backend)
	if err := st.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting document store: %w", err)
	}

	return st, nil
}
