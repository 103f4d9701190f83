package config

import (
	"strings"
	"time"
)

const defaultObservabilityName = "genstudio"

// ObservabilityConfig groups configuration that controls metrics and lifecycle event fan-out.
type ObservabilityConfig struct {
	Metrics ObservabilityMetricsConfig
	Events  EventsConfig
}

// Sanitize applies guardrails to observability sub-configs.
func (c *ObservabilityConfig) Sanitize() {
	c.Metrics.Sanitize()
	c.Events.Sanitize()
}

// ObservabilityMetricsConfig controls emission of metrics to external sinks such as StatsD.
type ObservabilityMetricsConfig struct {
	Enabled       bool   `env:"OBSERVABILITY_METRICS_ENABLED"        envDefault:"false"`
	StatsdAddress string `env:"OBSERVABILITY_METRICS_STATSD_ADDRESS" envDefault:"127.0.0.1:8125"`
	Prefix        string `env:"OBSERVABILITY_METRICS_PREFIX"         envDefault:"genstudio"`
}

// Sanitize normalises derived fields and enforces safe defaults.
func (c *ObservabilityMetricsConfig) Sanitize() {
	c.StatsdAddress = strings.TrimSpace(c.StatsdAddress)
	if c.StatsdAddress == "" {
		c.Enabled = false
	}
	if c.Prefix = strings.TrimSpace(c.Prefix); c.Prefix == "" {
		c.Prefix = defaultObservabilityName
	}
}

// IsEnabled returns true when metrics emission is active after sanitisation.
func (c *ObservabilityMetricsConfig) IsEnabled() bool {
	return c.Enabled && c.StatsdAddress != ""
}

// EventsConfig controls publication of generation lifecycle events to NATS.
type EventsConfig struct {
	Enabled        bool          `env:"EVENTS_ENABLED"         envDefault:"false"`
	NATSURL        string        `env:"EVENTS_NATS_URL"        envDefault:"nats://127.0.0.1:4222"`
	SubjectPrefix  string        `env:"EVENTS_SUBJECT_PREFIX"  envDefault:"genstudio.generation"`
	ConnectTimeout time.Duration `env:"EVENTS_CONNECT_TIMEOUT" envDefault:"5s"`
	MaxReconnects  int           `env:"EVENTS_MAX_RECONNECTS"  envDefault:"-1"`
}

// Sanitize normalises event configuration values.
func (c *EventsConfig) Sanitize() {
	c.NATSURL = strings.TrimSpace(c.NATSURL)
	if c.NATSURL == "" {
		c.Enabled = false
	}
	c.SubjectPrefix = strings.Trim(strings.TrimSpace(c.SubjectPrefix), ".")
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = defaultObservabilityName + ".generation"
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 5 * time.Second
	}
}
