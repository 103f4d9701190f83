package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/mmk-genstudio/config"
	"github.com/target/mmk-genstudio/internal/core"
	"github.com/target/mmk-genstudio/internal/domain/model"
	"github.com/target/mmk-genstudio/internal/observability/metrics"
	"github.com/target/mmk-genstudio/internal/observability/statsd"
)

// StuckReason is recorded on jobs the reconciler forces to failed.
const StuckReason = "generation did not complete within the allowed window"

const (
	reconcilerLockKey   = "reconciler"
	maxReconcileBatches = 50
)

// StatusChecker is the part of StatusService the reconciler and poller use.
type StatusChecker interface {
	CheckStatus(ctx context.Context, externalID string) (*model.CheckStatusResult, error)
}

// StatusCheckerFunc adapts a function to StatusChecker.
type StatusCheckerFunc func(ctx context.Context, externalID string) (*model.CheckStatusResult, error)

func (f StatusCheckerFunc) CheckStatus(ctx context.Context, externalID string) (*model.CheckStatusResult, error) {
	return f(ctx, externalID)
}

// ReconcilerServiceOptions groups dependencies for ReconcilerService.
type ReconcilerServiceOptions struct {
	Repo    core.GenerationRepository     // Required
	Status  StatusChecker                 // Required: final poll before failing
	Config  config.ReconcilerConfig       // Required
	Lock    core.DistributedLock          // Optional: single sweeper across instances
	Events  core.GenerationEventPublisher // Optional
	Metrics statsd.Sink                   // Optional
	Logger  *slog.Logger                  // Optional
	Now     func() time.Time              // Optional
}

// ReconcilerService bounds how long a job can stay in flight. Each sweep
// re-polls generating jobs older than the stuck threshold one last time and
// fails whatever is still in flight afterwards. Queued jobs that never got an
// external id are failed without a poll.
type ReconcilerService struct {
	lifecycle
	status StatusChecker
	config config.ReconcilerConfig
	lock   core.DistributedLock
}

// NewReconcilerService constructs a ReconcilerService.
func NewReconcilerService(opts ReconcilerServiceOptions) (*ReconcilerService, error) {
	if opts.Repo == nil {
		return nil, errors.New("GenerationRepository is required")
	}
	if opts.Status == nil {
		return nil, errors.New("StatusChecker is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "reconciler_service")
	logger.Debug("ReconcilerService initialized",
		"interval", opts.Config.Interval,
		"stuck_threshold", opts.Config.StuckThreshold,
		"batch_size", opts.Config.BatchSize,
	)
	return &ReconcilerService{
		lifecycle: newLifecycle(opts.Repo, opts.Events, opts.Metrics, logger, opts.Now),
		status:    opts.Status,
		config:    opts.Config,
		lock:      opts.Lock,
	}, nil
}

// Run sweeps at the configured interval until ctx is cancelled.
func (s *ReconcilerService) Run(ctx context.Context) error {
	return runPeriodic(ctx, s.logger, "reconciler", s.config.Interval, func(ctx context.Context) error {
		_, err := s.ReconcileOnce(ctx)
		return err
	})
}

// ReconcileOnce performs one sweep.
func (s *ReconcilerService) ReconcileOnce(ctx context.Context) (model.ReconcileResult, error) {
	start := s.now()
	var result model.ReconcileResult

	if s.lock != nil {
		token, ok, err := s.lock.TryLock(ctx, reconcilerLockKey, s.config.LockTTL)
		if err != nil {
			metrics.EmitReconcileSweep(s.metrics, metrics.ReconcileMetric{Err: err})
			return result, fmt.Errorf("acquire reconciler lock: %w", err)
		}
		if !ok {
			s.logger.DebugContext(ctx, "reconciler lock held elsewhere, skipping sweep")
			metrics.EmitReconcileSweep(s.metrics, metrics.ReconcileMetric{Skipped: true})
			return result, nil
		}
		defer func() {
			uctx, cancel := detached(ctx)
			defer cancel()
			if err := s.lock.Unlock(uctx, reconcilerLockKey, token); err != nil {
				s.logger.WarnContext(ctx, "failed to release reconciler lock", "error", err)
			}
		}()
	}

	err := s.sweep(ctx, &result)
	metrics.EmitReconcileSweep(s.metrics, metrics.ReconcileMetric{
		Checked:      result.Checked,
		ForcedFailed: result.ForcedFailed,
		Duration:     s.now().Sub(start),
		Err:          err,
	})
	if result.Checked > 0 {
		s.logger.InfoContext(ctx, "reconciler sweep finished",
			"checked", result.Checked, "forced_failed", result.ForcedFailed)
	}
	return result, err
}

func (s *ReconcilerService) sweep(ctx context.Context, result *model.ReconcileResult) error {
	cutoff := s.now().Add(-s.config.StuckThreshold)

	if err := s.sweepQueued(ctx, cutoff, result); err != nil {
		return err
	}

	for range maxReconcileBatches {
		stale, err := s.repo.ListStale(ctx, model.StaleGenerationQuery{
			Statuses:      []model.Status{model.StatusGenerating},
			UpdatedBefore: cutoff,
			Limit:         s.config.BatchSize,
		})
		if err != nil {
			return fmt.Errorf("list stale generating jobs: %w", err)
		}
		if len(stale) == 0 {
			return nil
		}
		if err := s.reconcileBatch(ctx, stale, result); err != nil {
			return err
		}
		if len(stale) < s.config.BatchSize {
			return nil
		}
	}
	return nil
}

// sweepQueued fails queued jobs older than cutoff: their submission never
// recorded an external id, so there is nothing to poll.
func (s *ReconcilerService) sweepQueued(ctx context.Context, cutoff time.Time, result *model.ReconcileResult) error {
	queued, err := s.repo.ListStale(ctx, model.StaleGenerationQuery{
		Statuses:      []model.Status{model.StatusQueued},
		UpdatedBefore: cutoff,
		Limit:         s.config.BatchSize,
	})
	if err != nil {
		return fmt.Errorf("list stale queued jobs: %w", err)
	}
	for _, j := range queued {
		result.Checked++
		ok, err := s.fail(ctx, j, StuckReason, metrics.TransitionForceFail)
		if err != nil {
			return fmt.Errorf("fail stale queued job %s: %w", j.ID, err)
		}
		if ok {
			result.ForcedFailed++
		}
	}
	return nil
}

func (s *ReconcilerService) reconcileBatch(ctx context.Context, stale []*model.GenerationJob, result *model.ReconcileResult) error {
	byExternal := make(map[string][]*model.GenerationJob)
	var order []string
	for _, j := range stale {
		if _, seen := byExternal[j.ExternalID]; !seen {
			order = append(order, j.ExternalID)
		}
		byExternal[j.ExternalID] = append(byExternal[j.ExternalID], j)
	}

	for _, externalID := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		jobs := byExternal[externalID]
		result.Checked += len(jobs)

		if externalID != "" {
			if _, err := s.status.CheckStatus(ctx, externalID); err != nil {
				if isContextCancellation(err) && ctx.Err() != nil {
					return err
				}
				s.logger.WarnContext(ctx, "final status check failed",
					"external_id", externalID, "error", err)
			}
		}

		for _, j := range jobs {
			current, err := s.repo.GetByID(ctx, j.ID)
			if err != nil {
				s.logger.WarnContext(ctx, "reload stale job failed", "job_id", j.ID, "error", err)
				continue
			}
			if !current.InFlight() {
				continue
			}
			ok, err := s.fail(ctx, current, StuckReason, metrics.TransitionForceFail)
			if err != nil {
				return fmt.Errorf("force fail job %s: %w", j.ID, err)
			}
			if ok {
				result.ForcedFailed++
			}
		}
	}
	return nil
}
