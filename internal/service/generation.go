package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/target/mmk-genstudio/internal/core"
	"github.com/target/mmk-genstudio/internal/domain/model"
	apperrors "github.com/target/mmk-genstudio/internal/errors"
)

// GenerationServiceOptions groups dependencies for GenerationService.
type GenerationServiceOptions struct {
	Repo   core.GenerationRepository // Required
	Blobs  core.BlobStore            // Required
	Logger *slog.Logger              // Optional
}

// GenerationService serves the read model and the collaborator-owned
// operations on individual jobs.
type GenerationService struct {
	repo   core.GenerationRepository
	blobs  core.BlobStore
	logger *slog.Logger
}

// NewGenerationService constructs a GenerationService.
func NewGenerationService(opts GenerationServiceOptions) (*GenerationService, error) {
	if opts.Repo == nil {
		return nil, errors.New("GenerationRepository is required")
	}
	if opts.Blobs == nil {
		return nil, errors.New("BlobStore is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerationService{repo: opts.Repo, blobs: opts.Blobs, logger: logger.With("component", "generation_service")}, nil
}

// List returns job summaries, newest first.
func (s *GenerationService) List(ctx context.Context, opts *model.GenerationListOptions) ([]model.GenerationSummary, error) {
	jobs, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	out := make([]model.GenerationSummary, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Summarize())
	}
	return out, nil
}

// Get returns one job.
func (s *GenerationService) Get(ctx context.Context, id string) (*model.GenerationJob, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get generation: %w", err)
	}
	return job, nil
}

// Delete removes the job's asset and then the job. A missing asset is ignored.
func (s *GenerationService) Delete(ctx context.Context, id string) error {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get generation: %w", err)
	}
	if job.AssetRef != "" {
		if err := s.blobs.Delete(ctx, job.AssetRef); err != nil && !errors.Is(err, core.ErrBlobNotFound) {
			return fmt.Errorf("delete asset %s: %w", job.AssetRef, err)
		}
	}
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete generation: %w", err)
	}
	if !ok {
		return apperrors.NotFoundf("generation %s not found", id)
	}
	s.logger.InfoContext(ctx, "generation deleted", "job_id", id, "asset_ref", job.AssetRef)
	return nil
}

// Asset is an open materialized asset. Callers must close Body.
type Asset struct {
	Body io.ReadCloser
	Info core.BlobInfo
	// Range is set when Body covers only part of the object.
	Range *core.BlobRange
}

// AssetRef returns the completed job's asset reference.
func (s *GenerationService) AssetRef(ctx context.Context, id string) (string, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if job.Status != model.StatusCompleted || job.AssetRef == "" {
		return "", apperrors.NotFoundf("generation %s has no asset", id)
	}
	return job.AssetRef, nil
}

// StatAsset returns metadata for the job's asset.
func (s *GenerationService) StatAsset(ctx context.Context, id string) (core.BlobInfo, error) {
	ref, err := s.AssetRef(ctx, id)
	if err != nil {
		return core.BlobInfo{}, err
	}
	info, err := s.blobs.Stat(ctx, ref)
	if err != nil {
		return core.BlobInfo{}, assetError(id, err)
	}
	return info, nil
}

// OpenAsset opens the job's asset, or the inclusive byte range r of it.
func (s *GenerationService) OpenAsset(ctx context.Context, id string, r *core.BlobRange) (*Asset, error) {
	ref, err := s.AssetRef(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		body, info, err := s.blobs.Get(ctx, ref)
		if err != nil {
			return nil, assetError(id, err)
		}
		return &Asset{Body: body, Info: info}, nil
	}
	body, info, err := s.blobs.GetRange(ctx, ref, *r)
	if err != nil {
		return nil, assetError(id, err)
	}
	return &Asset{Body: body, Info: info, Range: r}, nil
}

func assetError(id string, err error) error {
	if errors.Is(err, core.ErrBlobNotFound) {
		return apperrors.Wrapf(err, apperrors.ErrCodeNotFound, "asset for generation %s not found", id)
	}
	return fmt.Errorf("open asset for generation %s: %w", id, err)
}
