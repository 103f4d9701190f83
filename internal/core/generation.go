package core

import (
	"context"
	"io"
	"time"

	"github.com/target/mmk-genstudio/internal/domain/model"
)

// This file contains the ports of the generation lifecycle (hexagonal architecture).
// Services depend on these interfaces; internal/data, internal/provider,
// internal/storage and internal/events provide the implementations.

// GenerationRepository defines the interface for generation job persistence.
//
// Every mutating method is a conditional single-row update: it reports false,
// without error, when the row is not in a state that permits the write.
type GenerationRepository interface {
	Create(ctx context.Context, req *model.CreateGenerationJobRequest) (*model.GenerationJob, error)
	GetByID(ctx context.Context, id string) (*model.GenerationJob, error)
	// ListByGroup returns the jobs of a group ordered by variant index.
	ListByGroup(ctx context.Context, groupID string) ([]*model.GenerationJob, error)
	// ListByExternalID returns the jobs correlated with a provider request, ordered by variant index.
	ListByExternalID(ctx context.Context, externalID string) ([]*model.GenerationJob, error)
	List(ctx context.Context, opts *model.GenerationListOptions) ([]*model.GenerationJob, error)
	ListStale(ctx context.Context, q model.StaleGenerationQuery) ([]*model.GenerationJob, error)
	ListActive(ctx context.Context, q model.ActiveGenerationQuery) ([]*model.GenerationJob, error)

	// MarkGenerating moves a queued job to generating and records the external id.
	MarkGenerating(ctx context.Context, id, externalID string) (bool, error)
	// Complete sets the asset reference and marks a generating job completed.
	// The asset reference is write-once.
	Complete(ctx context.Context, params model.CompleteGenerationParams) (bool, error)
	// Fail marks an in-flight job failed, recording reason in its attributes.
	Fail(ctx context.Context, id, reason string) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// ProviderClient talks to the upstream generation provider.
type ProviderClient interface {
	Submit(ctx context.Context, sub model.ProviderSubmission) (*model.ProviderReport, error)
	Poll(ctx context.Context, externalID string) (*model.ProviderReport, error)
	Download(ctx context.Context, assetURL string) (*AssetDownload, error)
}

// AssetDownload is an open provider asset stream. Callers must close Body.
type AssetDownload struct {
	Body        io.ReadCloser
	ContentType string
	// Size is -1 when the provider did not report a length.
	Size int64
}

// GenerationEventPublisher fans out lifecycle events after terminal writes.
type GenerationEventPublisher interface {
	PublishGenerationEvent(ctx context.Context, evt model.GenerationEvent) error
}

// DistributedLock coordinates singleton work across instances.
type DistributedLock interface {
	// TryLock acquires key for ttl. It returns a token to pass to Unlock and
	// false when another holder owns the key.
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Unlock(ctx context.Context, key, token string) error
}
