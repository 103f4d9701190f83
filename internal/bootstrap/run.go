package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/target/mmk-genstudio/config"
)

// ServiceOrchestrationConfig contains configuration for running services.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services *ServiceContainer
	Logger   *slog.Logger
}

// RunServicesWithShutdown starts every enabled mode and blocks until a
// shutdown signal arrives or one of them fails. Either way the remaining modes
// are cancelled and awaited.
func RunServicesWithShutdown(ctx context.Context, cfg *ServiceOrchestrationConfig) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return RunServices(ctx, cfg)
}

// RunServices runs the enabled modes until ctx is cancelled.
func RunServices(ctx context.Context, cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil || cfg.Services == nil {
		return errors.New("service orchestration config, app config and services are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	enabled, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if enabled[config.ServiceModeHTTP] {
		server, err := NewHTTPServer(&HTTPServerConfig{Config: cfg.Config, Services: cfg.Services, Logger: logger})
		if err != nil {
			return err
		}
		g.Go(func() error {
			return serveHTTP(gctx, server, cfg.Config.HTTP.ShutdownTimeout, logger)
		})
	}

	if enabled[config.ServiceModePoller] {
		runner, err := newPollerRunner(cfg.Config, cfg.Services, logger)
		if err != nil {
			return fmt.Errorf("poller: %w", err)
		}
		g.Go(func() error { return background(gctx, "poller", runner.Run, logger) })
	}

	if enabled[config.ServiceModeReconciler] {
		runner, err := newReconcilerRunner(cfg.Config, cfg.Services, logger)
		if err != nil {
			return fmt.Errorf("reconciler: %w", err)
		}
		g.Go(func() error { return background(gctx, "reconciler", runner.Run, logger) })
	}

	err = g.Wait()
	logger.Info("services stopped")
	return err
}

// background runs a loop that is expected to return only on cancellation;
// cancellation is a clean stop, anything else fails the group.
func background(ctx context.Context, name string, run func(context.Context) error, logger *slog.Logger) error {
	err := run(ctx)
	if err == nil || (ctx.Err() != nil && errors.Is(err, ctx.Err())) {
		logger.Info(name + " stopped")
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}
