package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/target/mmk-genstudio/config"
	"github.com/target/mmk-genstudio/internal/core"
	"github.com/target/mmk-genstudio/internal/data"
	"github.com/target/mmk-genstudio/internal/events"
	"github.com/target/mmk-genstudio/internal/observability/statsd"
	"github.com/target/mmk-genstudio/internal/provider"
	"github.com/target/mmk-genstudio/internal/service"
	"github.com/target/mmk-genstudio/internal/storage"
)

// ServiceContainer holds every service the enabled modes share.
type ServiceContainer struct {
	Repo         core.GenerationRepository
	Blobs        core.BlobStore
	Lock         core.DistributedLock // nil when Redis is disabled
	Provider     *provider.Client
	Submissions  *service.SubmissionService
	Status       *service.StatusService
	Materializer *service.Materializer
	Generations  *service.GenerationService

	Observability ObservabilityContainer
}

// ObservabilityContainer holds metrics and lifecycle event sinks.
type ObservabilityContainer struct {
	Metrics statsd.Sink
	Events  core.GenerationEventPublisher

	closers []io.Closer
}

// Close releases the metrics socket and drains the event connection.
func (o ObservabilityContainer) Close() error {
	var errs []error
	for _, c := range o.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ServiceDeps contains dependencies needed to build services.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger

	// Optional overrides, mostly for tests.
	Repo  core.GenerationRepository
	Blobs core.BlobStore
}

// buildObservability wires the StatsD sink and the event publisher. Failures
// to reach either degrade to a no-op sink; neither is required to serve.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	var out ObservabilityContainer

	client, err := statsd.NewClient(statsd.ConfigFromApp(cfg.Metrics, logger, map[string]string{"service": "genstudio"}))
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
	} else {
		out.Metrics = client
		out.closers = append(out.closers, client)
	}

	out.Events = events.NopPublisher{}
	if cfg.Events.Enabled {
		pub, err := events.Connect(cfg.Events, logger)
		if err != nil {
			logger.Error("failed to connect lifecycle event publisher; events disabled", "error", err)
		} else {
			out.Events = pub
			out.closers = append(out.closers, pub)
		}
	}
	return out
}

// NewServices builds the generation services over the shared infrastructure.
func NewServices(ctx context.Context, deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps with config are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	repo := deps.Repo
	if repo == nil {
		if deps.DB == nil {
			return ServiceContainer{}, errors.New("database connection is required")
		}
		repo = data.NewGenerationRepo(deps.DB, data.GenerationRepoConfig{Logger: logger})
	}

	blobs := deps.Blobs
	if blobs == nil {
		var err error
		if blobs, err = storage.New(ctx, cfg.Storage); err != nil {
			return ServiceContainer{}, fmt.Errorf("build blob store: %w", err)
		}
	}
	logger.InfoContext(ctx, "blob store ready", "backend", cfg.Storage.Backend)

	var lock core.DistributedLock
	if deps.RedisClient != nil {
		lock = data.NewRedisLockRepo(deps.RedisClient, "")
	}

	obs := buildObservability(logger, cfg.Observability)
	client := provider.NewClientFromConfig(cfg.Provider, logger)

	c := ServiceContainer{
		Repo:          repo,
		Blobs:         blobs,
		Lock:          lock,
		Provider:      client,
		Observability: obs,
	}
	if err := c.wire(cfg, logger); err != nil {
		_ = obs.Close()
		return ServiceContainer{}, err
	}
	return c, nil
}

func (c *ServiceContainer) wire(cfg *config.AppConfig, logger *slog.Logger) error {
	var err error
	c.Submissions, err = service.NewSubmissionService(service.SubmissionServiceOptions{
		Repo:        c.Repo,
		Provider:    c.Provider,
		Events:      c.Observability.Events,
		Metrics:     c.Observability.Metrics,
		Logger:      logger,
		CallbackURL: cfg.Provider.CallbackURL,
	})
	if err != nil {
		return fmt.Errorf("submission service: %w", err)
	}

	c.Materializer, err = service.NewMaterializer(service.MaterializerOptions{
		Repo:     c.Repo,
		Provider: c.Provider,
		Blobs:    c.Blobs,
		Events:   c.Observability.Events,
		Metrics:  c.Observability.Metrics,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("materializer: %w", err)
	}

	c.Status, err = service.NewStatusService(service.StatusServiceOptions{
		Repo:         c.Repo,
		Provider:     c.Provider,
		Materializer: c.Materializer,
		Events:       c.Observability.Events,
		Metrics:      c.Observability.Metrics,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("status service: %w", err)
	}

	c.Generations, err = service.NewGenerationService(service.GenerationServiceOptions{
		Repo:   c.Repo,
		Blobs:  c.Blobs,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("generation service: %w", err)
	}
	return nil
}

// Close releases observability resources.
func (c *ServiceContainer) Close() error {
	return c.Observability.Close()
}
