package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/target/mmk-genstudio/internal/core"
	"github.com/target/mmk-genstudio/internal/domain/generation"
	"github.com/target/mmk-genstudio/internal/domain/model"
	"github.com/target/mmk-genstudio/internal/observability/metrics"
	"github.com/target/mmk-genstudio/internal/observability/statsd"
	"github.com/target/mmk-genstudio/internal/util"
)

// MaterializerOptions groups dependencies for Materializer.
type MaterializerOptions struct {
	Repo     core.GenerationRepository     // Required
	Provider core.ProviderClient           // Required: downloads provider assets
	Blobs    core.BlobStore                // Required: durable storage
	Events   core.GenerationEventPublisher // Optional
	Metrics  statsd.Sink                   // Optional
	Logger   *slog.Logger                  // Optional
	Now      func() time.Time              // Optional
}

// Materializer copies a provider-hosted asset into durable storage and only
// then completes the job.
type Materializer struct {
	lifecycle
	provider core.ProviderClient
	blobs    core.BlobStore
}

// NewMaterializer constructs a Materializer.
func NewMaterializer(opts MaterializerOptions) (*Materializer, error) {
	if opts.Repo == nil {
		return nil, errors.New("GenerationRepository is required")
	}
	if opts.Provider == nil {
		return nil, errors.New("ProviderClient is required")
	}
	if opts.Blobs == nil {
		return nil, errors.New("BlobStore is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Materializer{
		lifecycle: newLifecycle(opts.Repo, opts.Events, opts.Metrics, logger.With("component", "materializer"), opts.Now),
		provider:  opts.Provider,
		blobs:     opts.Blobs,
	}, nil
}

// AssetKey is the deterministic storage key for a job's asset, so a repeated
// materialization overwrites rather than duplicates.
func AssetKey(job *model.GenerationJob, ext string) string {
	return fmt.Sprintf("generations/%s/%s%s", job.Kind, job.ID, ext)
}

// Materialize downloads item's asset, writes it under AssetKey and completes
// job. It reports whether this call completed the job. Any download or write
// error is returned with the job left generating for a later attempt.
func (m *Materializer) Materialize(ctx context.Context, job *model.GenerationJob, item model.ProviderItem) (bool, error) {
	if !generation.CanTransition(job.Status, model.StatusCompleted) || job.AssetRef != "" {
		return false, nil
	}
	if item.AssetURL == "" {
		return false, errors.New("provider item has no asset url")
	}
	start := m.now()

	dl, err := m.provider.Download(ctx, item.AssetURL)
	if err != nil {
		m.emit(job.Kind, metrics.TransitionMaterialize, metrics.ResultError, err)
		return false, fmt.Errorf("download asset for job %s: %w", job.ID, err)
	}
	defer func() { _ = dl.Body.Close() }()

	key := AssetKey(job, assetExtension(dl.ContentType, item.AssetURL))
	info, err := m.blobs.Put(ctx, key, dl.Body, core.BlobPutOptions{ContentType: dl.ContentType, Size: dl.Size})
	if err != nil {
		werr := fmt.Errorf("%w: job %s: %w", core.ErrBlobWrite, job.ID, err)
		m.emit(job.Kind, metrics.TransitionMaterialize, metrics.ResultError, werr)
		return false, werr
	}

	attrs := job.Attributes
	if attrs == nil {
		if attrs, err = model.EmptyAttributes(job.Kind); err != nil {
			return false, err
		}
	}
	attrs = model.WithAsset(attrs, model.AssetMeta{
		ProviderItemID: item.ItemID,
		SourceURL:      item.AssetURL,
		ContentType:    info.ContentType,
		SizeBytes:      info.Size,
	})
	attrs = model.WithDuration(attrs, item.DurationSeconds)

	ok, err := m.repo.Complete(ctx, model.CompleteGenerationParams{
		ID:          job.ID,
		AssetRef:    info.Key,
		DisplayName: generation.DisplayName(job, item),
		Attributes:  attrs,
	})
	if err != nil {
		m.emit(job.Kind, metrics.TransitionComplete, metrics.ResultError, err)
		return false, fmt.Errorf("complete job %s: %w", job.ID, err)
	}
	if !ok {
		// Another poll completed the job first; the asset ref is write-once.
		m.emit(job.Kind, metrics.TransitionComplete, metrics.ResultNoop, nil)
		return false, nil
	}

	metrics.EmitGenerationTransition(m.metrics, metrics.GenerationMetric{
		Kind:       string(job.Kind),
		Transition: metrics.TransitionComplete,
		Result:     metrics.ResultSuccess,
		Duration:   m.now().Sub(start),
	})
	m.logger.InfoContext(ctx, "generation completed",
		"job_id", job.ID, "group_id", job.GroupID, "asset_ref", info.Key, "size", info.Size)
	m.publish(ctx, model.GenerationEvent{
		Type:         model.GenerationEventCompleted,
		JobID:        job.ID,
		GroupID:      job.GroupID,
		ExternalID:   job.ExternalID,
		Kind:         job.Kind,
		VariantIndex: job.VariantIndex,
		AssetRef:     info.Key,
		OccurredAt:   m.now().UTC(),
	})
	return true, nil
}

// assetExtension prefers a recognised media extension on the URL, then the
// reported content type.
func assetExtension(contentType, assetURL string) string {
	if u, err := url.Parse(assetURL); err == nil && util.ContentTypeForPath(u.Path) != "" {
		return strings.ToLower(path.Ext(u.Path))
	}
	return util.ExtensionForContentType(contentType)
}
