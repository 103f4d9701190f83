package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModePoller runs the background status poller for in-flight generations.
	ServiceModePoller ServiceMode = "poller"
	// ServiceModeReconciler runs the stuck-generation reconciler.
	ServiceModeReconciler ServiceMode = "reconciler"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeHTTP,
		ServiceModePoller,
		ServiceModeReconciler,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModePoller, ServiceModeReconciler:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, poller, reconciler)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// PollerConfig contains configuration for the background status poller.
type PollerConfig struct {
	// Interval is the poller tick interval.
	Interval time.Duration `env:"POLLER_INTERVAL" envDefault:"15s"`

	// BatchSize is the maximum number of in-flight jobs examined per tick.
	BatchSize int `env:"POLLER_BATCH_SIZE" envDefault:"100"`

	// Concurrency bounds the number of external ids polled in parallel.
	Concurrency int `env:"POLLER_CONCURRENCY" envDefault:"4"`
}

// Sanitize applies guardrails to poller configuration values.
func (p *PollerConfig) Sanitize() {
	if p.Interval < time.Second {
		p.Interval = time.Second
	}
	if p.BatchSize < 1 {
		p.BatchSize = 1
	}
	if p.BatchSize > 1000 {
		p.BatchSize = 1000
	}
	if p.Concurrency < 1 {
		p.Concurrency = 1
	}
}

// ReconcilerConfig contains stuck-generation reconciler configuration.
type ReconcilerConfig struct {
	// Interval is the reconciler tick interval.
	Interval time.Duration `env:"RECONCILER_INTERVAL" envDefault:"5m"`

	// StuckThreshold is how long a job may sit in generating (or queued) before
	// the reconciler re-polls it one last time and then fails it.
	StuckThreshold time.Duration `env:"RECONCILER_STUCK_THRESHOLD" envDefault:"30m"`

	// BatchSize is the maximum number of stale jobs processed per sweep.
	BatchSize int `env:"RECONCILER_BATCH_SIZE" envDefault:"200"`

	// LockTTL bounds how long a sweep holds the cross-instance lock.
	LockTTL time.Duration `env:"RECONCILER_LOCK_TTL" envDefault:"4m"`
}

// Sanitize applies guardrails to reconciler configuration values.
func (r *ReconcilerConfig) Sanitize() {
	if r.Interval < 1*time.Minute {
		r.Interval = 1 * time.Minute
	}
	if r.StuckThreshold < 1*time.Minute {
		r.StuckThreshold = 1 * time.Minute
	}
	if r.BatchSize < 1 {
		r.BatchSize = 1
	}
	if r.BatchSize > 10000 {
		r.BatchSize = 10000
	}
	if r.LockTTL <= 0 || r.LockTTL > r.Interval {
		r.LockTTL = r.Interval
	}
}
