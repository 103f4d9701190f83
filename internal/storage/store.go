package storage

import (
	"context"
	"fmt"

	"github.com/target/mmk-genstudio/config"
	"github.com/target/mmk-genstudio/internal/core"
)

// New builds the blob store selected by cfg.Backend.
func New(ctx context.Context, cfg config.StorageConfig) (core.BlobStore, error) {
	switch cfg.Backend {
	case config.StorageBackendS3:
		return NewS3StoreFromConfig(ctx, cfg)
	case config.StorageBackendFS, "":
		return NewFileStore(cfg.Root)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Backend)
	}
}
