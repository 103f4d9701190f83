// Package poller provides adapters for running the background status poller.
package poller

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/target/mmk-genstudio/config"
	"github.com/target/mmk-genstudio/internal/core"
	"github.com/target/mmk-genstudio/internal/data"
	"github.com/target/mmk-genstudio/internal/service"
)

// Runner provides a simple adapter to run the poller loop.
type Runner struct {
	poller *service.PollerService
	logger *slog.Logger
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	DB     *sql.DB
	Config config.PollerConfig
	// MaxAge hands older generating jobs to the reconciler.
	MaxAge time.Duration
	Status service.StatusChecker
	Logger *slog.Logger

	// Optional dependency injections for testing/decoupling
	Repo core.GenerationRepository
	Lock core.DistributedLock
}

// NewRunner creates a new poller runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if err := validateRunnerOptions(&opts); err != nil {
		return nil, err
	}
	repo := opts.Repo
	if repo == nil {
		repo = data.NewGenerationRepo(opts.DB, data.GenerationRepoConfig{Logger: opts.Logger})
	}
	poller, err := service.NewPollerService(service.PollerServiceOptions{
		Repo:   repo,
		Status: opts.Status,
		Config: opts.Config,
		MaxAge: opts.MaxAge,
		Lock:   opts.Lock,
		Logger: opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	return &Runner{poller: poller, logger: opts.Logger}, nil
}

// validateRunnerOptions validates and sets defaults for RunnerOptions.
func validateRunnerOptions(opts *RunnerOptions) error {
	if opts.DB == nil && opts.Repo == nil {
		return errors.New("database connection is required")
	}
	if opts.Status == nil {
		return errors.New("status checker is required")
	}
	if opts.Config.Interval <= 0 {
		opts.Config.Interval = 15 * time.Second
	}
	if opts.Config.Concurrency <= 0 {
		opts.Config.Concurrency = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return nil
}

// Run starts the poller loop and runs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting poller runner")
	return r.poller.Run(ctx)
}
