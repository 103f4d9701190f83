package bootstrap

import (
	"log/slog"

	"github.com/target/mmk-genstudio/config"
	"github.com/target/mmk-genstudio/internal/adapters/poller"
	"github.com/target/mmk-genstudio/internal/adapters/reconciler"
)

// newPollerRunner builds the poller runner. The poller owns generating jobs
// younger than the reconciler's stuck threshold.
func newPollerRunner(cfg *config.AppConfig, services *ServiceContainer, logger *slog.Logger) (*poller.Runner, error) {
	return poller.NewRunner(poller.RunnerOptions{
		Config: cfg.Poller,
		MaxAge: cfg.Reconciler.StuckThreshold,
		Status: services.Status,
		Logger: logger,
		Repo:   services.Repo,
		Lock:   services.Lock,
	})
}

func newReconcilerRunner(cfg *config.AppConfig, services *ServiceContainer, logger *slog.Logger) (*reconciler.Runner, error) {
	return reconciler.NewRunner(reconciler.RunnerOptions{
		Config:  cfg.Reconciler,
		Status:  services.Status,
		Logger:  logger,
		Repo:    services.Repo,
		Lock:    services.Lock,
		Events:  services.Observability.Events,
		Metrics: services.Observability.Metrics,
	})
}
