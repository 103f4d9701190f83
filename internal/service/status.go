package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/target/mmk-genstudio/internal/core"
	"github.com/target/mmk-genstudio/internal/domain/generation"
	"github.com/target/mmk-genstudio/internal/domain/model"
	apperrors "github.com/target/mmk-genstudio/internal/errors"
	"github.com/target/mmk-genstudio/internal/observability/metrics"
	"github.com/target/mmk-genstudio/internal/observability/statsd"
	"github.com/target/mmk-genstudio/internal/provider"
)

const (
	// DefaultMaterializeConcurrency bounds parallel downloads within one poll.
	DefaultMaterializeConcurrency = 4
	// checkStatusTimeout bounds a shared status check once detached from its first caller.
	checkStatusTimeout = 5 * time.Minute
)

// StatusServiceOptions groups dependencies for StatusService.
type StatusServiceOptions struct {
	Repo         core.GenerationRepository     // Required
	Provider     core.ProviderClient           // Required
	Materializer *Materializer                 // Required
	Events       core.GenerationEventPublisher // Optional
	Metrics      statsd.Sink                   // Optional
	Logger       *slog.Logger                  // Optional
	NewID        func() string                 // Optional: id generator for surplus jobs
	Now          func() time.Time              // Optional
	// MaterializeConcurrency bounds parallel materializations per poll.
	MaterializeConcurrency int
}

// StatusService polls the provider for one external id and applies the
// result to the jobs sharing it.
type StatusService struct {
	lifecycle
	provider     core.ProviderClient
	materializer *Materializer
	newID        func() string
	concurrency  int

	flight singleflight.Group
}

// NewStatusService constructs a StatusService.
func NewStatusService(opts StatusServiceOptions) (*StatusService, error) {
	if opts.Repo == nil {
		return nil, errors.New("GenerationRepository is required")
	}
	if opts.Provider == nil {
		return nil, errors.New("ProviderClient is required")
	}
	if opts.Materializer == nil {
		return nil, errors.New("Materializer is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	concurrency := opts.MaterializeConcurrency
	if concurrency <= 0 {
		concurrency = DefaultMaterializeConcurrency
	}
	return &StatusService{
		lifecycle:    newLifecycle(opts.Repo, opts.Events, opts.Metrics, logger.With("component", "status_service"), opts.Now),
		provider:     opts.Provider,
		materializer: opts.Materializer,
		newID:        newID,
		concurrency:  concurrency,
	}, nil
}

// CheckStatus polls the provider for externalID, fans the normalized results
// out to the group's jobs and reports the aggregate state. Concurrent calls
// for the same external id in this process share one execution, which runs
// detached from any single caller; a canceled caller stops waiting without
// aborting the check for the others.
func (s *StatusService) CheckStatus(ctx context.Context, externalID string) (*model.CheckStatusResult, error) {
	if externalID == "" {
		return nil, apperrors.ValidationField("external_id", "external id is required")
	}
	ch := s.flight.DoChan(externalID, func() (any, error) {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), checkStatusTimeout)
		defer cancel()
		return s.checkStatus(sctx, externalID)
	})
	var shared singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case shared = <-ch:
	}
	if shared.Err != nil {
		return nil, shared.Err
	}
	res := shared.Val.(*model.CheckStatusResult)
	out := *res
	out.UpdatedJobIDs = append([]string(nil), res.UpdatedJobIDs...)
	return &out, nil
}

func (s *StatusService) checkStatus(ctx context.Context, externalID string) (*model.CheckStatusResult, error) {
	jobs, err := s.repo.ListByExternalID(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("load jobs for %s: %w", externalID, err)
	}
	if len(jobs) == 0 {
		return nil, apperrors.NotFoundf("no generation jobs for external id %q", externalID)
	}
	kind := jobs[0].Kind

	if !anyInFlight(jobs) {
		return &model.CheckStatusResult{Status: generation.Aggregate(jobs), UpdatedJobIDs: []string{}}, nil
	}

	report, err := s.provider.Poll(ctx, externalID)
	if err != nil {
		s.emit(kind, metrics.TransitionPoll, metrics.ResultError, err)
		if isContextCancellation(err) && ctx.Err() != nil {
			return nil, err
		}
		if provider.IsRetryable(err) {
			s.logger.WarnContext(ctx, "provider poll exhausted retries", "external_id", externalID, "error", err)
			return &model.CheckStatusResult{
				Status:        model.CheckStateProcessing,
				UpdatedJobIDs: []string{},
				Retryable:     true,
				Message:       "provider unavailable, try again later",
			}, nil
		}
		s.logger.ErrorContext(ctx, "provider poll rejected", "external_id", externalID, "error", err)
		return &model.CheckStatusResult{
			Status:        model.CheckStateError,
			UpdatedJobIDs: []string{},
			Message:       submitFailureReason(err),
		}, nil
	}
	s.emit(kind, metrics.TransitionPoll, metrics.ResultSuccess, nil)

	updated, err := s.apply(ctx, externalID, jobs, report)
	if err != nil {
		return nil, err
	}

	if report.Failed || report.HasActionable() {
		if jobs, err = s.repo.ListByExternalID(ctx, externalID); err != nil {
			return nil, fmt.Errorf("reload jobs for %s: %w", externalID, err)
		}
	}
	if updated == nil {
		updated = []string{}
	}
	return &model.CheckStatusResult{Status: generation.Aggregate(jobs), UpdatedJobIDs: updated}, nil
}

// apply performs the writes implied by report and returns the ids of jobs
// that reached a terminal state in this call.
func (s *StatusService) apply(
	ctx context.Context,
	externalID string,
	jobs []*model.GenerationJob,
	report *model.ProviderReport,
) ([]string, error) {
	var (
		mu      sync.Mutex
		updated []string
	)
	record := func(id string) {
		mu.Lock()
		updated = append(updated, id)
		mu.Unlock()
	}

	// A whole-request failure with nothing actionable fails every in-flight job.
	if report.Failed && !report.HasActionable() {
		for _, j := range jobs {
			if !j.InFlight() {
				continue
			}
			ok, err := s.fail(ctx, j, report.FailureReason, metrics.TransitionFail)
			if err != nil {
				return updated, err
			}
			if ok {
				record(j.ID)
			}
		}
		return updated, nil
	}

	if !report.HasActionable() {
		return nil, nil
	}

	plan := generation.PlanFanOut(jobs, report.Items)
	pairs := plan.Pairs
	if len(plan.Surplus) > 0 {
		extra, err := s.createSurplus(ctx, externalID, jobs, plan.Surplus)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, extra...)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	var failErr error
	for _, p := range pairs {
		if !p.Item.Actionable() || p.Job.Status.IsTerminal() {
			continue
		}
		switch p.Item.State {
		case model.ItemFailed:
			ok, err := s.fail(ctx, p.Job, p.Item.FailureReason, metrics.TransitionFail)
			if err != nil {
				failErr = errors.Join(failErr, err)
				continue
			}
			if ok {
				record(p.Job.ID)
			}
		case model.ItemComplete:
			g.Go(func() error {
				ok, err := s.materializer.Materialize(gctx, p.Job, p.Item)
				if err != nil {
					// Left generating; the next poll or the reconciler retries it.
					s.logger.WarnContext(gctx, "materialization failed",
						"job_id", p.Job.ID, "external_id", externalID, "error", err)
					return nil
				}
				if ok {
					record(p.Job.ID)
				}
				return nil
			})
		}
	}
	_ = g.Wait()
	if failErr != nil {
		return updated, failErr
	}
	return updated, nil
}

// createSurplus inserts jobs for provider items beyond the known variants.
// A unique conflict means another poll created the row first; it is re-read.
func (s *StatusService) createSurplus(
	ctx context.Context,
	externalID string,
	jobs []*model.GenerationJob,
	surplus []generation.Surplus,
) ([]generation.Pairing, error) {
	tmpl := generation.Template(jobs)
	attrs := tmpl.Attributes
	if attrs != nil {
		attrs = model.WithAsset(attrs, model.AssetMeta{})
	}

	pairs := make([]generation.Pairing, 0, len(surplus))
	for _, sp := range surplus {
		job, err := s.repo.Create(ctx, &model.CreateGenerationJobRequest{
			ID:           s.newID(),
			Kind:         tmpl.Kind,
			Status:       model.StatusGenerating,
			ExternalID:   externalID,
			GroupID:      tmpl.GroupID,
			VariantIndex: sp.VariantIndex,
			DisplayName:  tmpl.DisplayName,
			Attributes:   attrs,
		})
		if apperrors.IsConflict(err) {
			job, err = s.findVariant(ctx, externalID, sp.VariantIndex)
		}
		if err != nil {
			return nil, fmt.Errorf("create surplus variant %d: %w", sp.VariantIndex, err)
		}
		s.logger.InfoContext(ctx, "created surplus variant",
			"group_id", tmpl.GroupID, "variant_index", sp.VariantIndex, "job_id", job.ID)
		pairs = append(pairs, generation.Pairing{Job: job, Item: sp.Item})
	}
	return pairs, nil
}

func (s *StatusService) findVariant(ctx context.Context, externalID string, variantIndex int) (*model.GenerationJob, error) {
	jobs, err := s.repo.ListByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	for _, j := range jobs {
		if j.VariantIndex == variantIndex {
			return j, nil
		}
	}
	return nil, apperrors.Conflictf("variant %d exists outside external id %s", variantIndex, externalID)
}

func anyInFlight(jobs []*model.GenerationJob) bool {
	for _, j := range jobs {
		if j.InFlight() {
			return true
		}
	}
	return false
}
