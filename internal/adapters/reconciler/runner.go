// Package reconciler provides adapters for running the stuck-generation reconciler.
package reconciler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/mmk-genstudio/config"
	"github.com/target/mmk-genstudio/internal/core"
	"github.com/target/mmk-genstudio/internal/data"
	"github.com/target/mmk-genstudio/internal/observability/statsd"
	"github.com/target/mmk-genstudio/internal/service"
)

// Runner provides a simple adapter to run the reconciler loop.
// It constructs the reconciler service and runs the sweep loop.
type Runner struct {
	reconciler *service.ReconcilerService
	logger     *slog.Logger
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	DB     *sql.DB
	Config config.ReconcilerConfig
	Status service.StatusChecker
	Logger *slog.Logger

	// Optional dependency injection for testing/decoupling
	Repo    core.GenerationRepository
	Lock    core.DistributedLock
	Events  core.GenerationEventPublisher
	Metrics statsd.Sink
}

// NewRunner creates a new reconciler runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if err := validateRunnerOptions(&opts); err != nil {
		return nil, err
	}

	reconciler, err := wireReconcilerService(opts)
	if err != nil {
		return nil, fmt.Errorf("wire reconciler service: %w", err)
	}

	return &Runner{reconciler: reconciler, logger: opts.Logger}, nil
}

// validateRunnerOptions validates and sets defaults for RunnerOptions.
func validateRunnerOptions(opts *RunnerOptions) error {
	if opts.DB == nil && opts.Repo == nil {
		return errors.New("database connection is required")
	}
	if opts.Status == nil {
		return errors.New("status checker is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return nil
}

func wireReconcilerService(opts RunnerOptions) (*service.ReconcilerService, error) {
	repo := opts.Repo
	if repo == nil {
		repo = data.NewGenerationRepo(opts.DB, data.GenerationRepoConfig{Logger: opts.Logger})
	}
	return service.NewReconcilerService(service.ReconcilerServiceOptions{
		Repo:    repo,
		Status:  opts.Status,
		Config:  opts.Config,
		Lock:    opts.Lock,
		Events:  opts.Events,
		Metrics: opts.Metrics,
		Logger:  opts.Logger,
	})
}

// Run starts the reconciler loop and runs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting reconciler runner")
	return r.reconciler.Run(ctx)
}

// RunOnce performs a single sweep. Used by tests and one-shot invocations.
func (r *Runner) RunOnce(ctx context.Context) error {
	res, err := r.reconciler.ReconcileOnce(ctx)
	if err != nil {
		return err
	}
	r.logger.InfoContext(ctx, "reconciler sweep complete", "checked", res.Checked, "forced_failed", res.ForcedFailed)
	return nil
}
