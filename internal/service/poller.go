package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/target/mmk-genstudio/config"
	"github.com/target/mmk-genstudio/internal/core"
	"github.com/target/mmk-genstudio/internal/domain/model"
)

const pollerLockKey = "poller"

// PollResult summarises one poller tick.
type PollResult struct {
	Polled    int
	Completed int
	Errors    int
}

// PollerServiceOptions groups dependencies for PollerService.
type PollerServiceOptions struct {
	Repo   core.GenerationRepository // Required
	Status StatusChecker             // Required
	Config config.PollerConfig       // Required
	// MaxAge is the window of recent generating jobs the poller owns; older
	// jobs are left to the reconciler.
	MaxAge time.Duration
	Lock   core.DistributedLock // Optional
	Logger *slog.Logger         // Optional
	Now    func() time.Time     // Optional
}

// PollerService drives CheckStatus for recently submitted generations so
// results land without a client having to ask. Its work list comes from the
// job store, so it survives restarts.
type PollerService struct {
	repo   core.GenerationRepository
	status StatusChecker
	config config.PollerConfig
	maxAge time.Duration
	lock   core.DistributedLock
	logger *slog.Logger
	now    func() time.Time
}

// NewPollerService constructs a PollerService.
func NewPollerService(opts PollerServiceOptions) (*PollerService, error) {
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
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = 30 * time.Minute
	}
	return &PollerService{
		repo:   opts.Repo,
		status: opts.Status,
		config: opts.Config,
		maxAge: maxAge,
		lock:   opts.Lock,
		logger: logger.With("component", "poller_service"),
		now:    now,
	}, nil
}

// Run polls at the configured interval until ctx is cancelled.
func (s *PollerService) Run(ctx context.Context) error {
	return runPeriodic(ctx, s.logger, "poller", s.config.Interval, func(ctx context.Context) error {
		_, err := s.PollOnce(ctx)
		return err
	})
}

// PollOnce checks every distinct external id among recent generating jobs.
func (s *PollerService) PollOnce(ctx context.Context) (PollResult, error) {
	if s.lock != nil {
		token, ok, err := s.lock.TryLock(ctx, pollerLockKey, s.config.Interval)
		if err != nil {
			return PollResult{}, fmt.Errorf("acquire poller lock: %w", err)
		}
		if !ok {
			return PollResult{}, nil
		}
		defer func() {
			uctx, cancel := detached(ctx)
			defer cancel()
			if err := s.lock.Unlock(uctx, pollerLockKey, token); err != nil {
				s.logger.WarnContext(ctx, "failed to release poller lock", "error", err)
			}
		}()
	}

	active, err := s.repo.ListActive(ctx, model.ActiveGenerationQuery{
		UpdatedAfter: s.now().Add(-s.maxAge),
		Limit:        s.config.BatchSize,
	})
	if err != nil {
		return PollResult{}, fmt.Errorf("list active generations: %w", err)
	}

	seen := make(map[string]bool, len(active))
	var externalIDs []string
	for _, j := range active {
		if j.ExternalID == "" || seen[j.ExternalID] {
			continue
		}
		seen[j.ExternalID] = true
		externalIDs = append(externalIDs, j.ExternalID)
	}

	var completed, failures atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Concurrency)
	for _, externalID := range externalIDs {
		g.Go(func() error {
			res, err := s.status.CheckStatus(gctx, externalID)
			if err != nil {
				if isContextCancellation(err) && gctx.Err() != nil {
					return err
				}
				failures.Add(1)
				s.logger.WarnContext(gctx, "status check failed", "external_id", externalID, "error", err)
				return nil
			}
			if res.Status == model.CheckStateCompleted {
				completed.Add(1)
			}
			return nil
		})
	}
	err = g.Wait()

	result := PollResult{
		Polled:    len(externalIDs),
		Completed: int(completed.Load()),
		Errors:    int(failures.Load()),
	}
	if len(externalIDs) > 0 {
		s.logger.DebugContext(ctx, "poller tick finished",
			"polled", result.Polled, "completed", result.Completed, "errors", result.Errors)
	}
	return result, err
}
