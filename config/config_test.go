package config

import (
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    map[ServiceMode]bool
		expectError bool
	}{
		{
			name:     "single service - http",
			input:    "http",
			expected: map[ServiceMode]bool{ServiceModeHTTP: true},
		},
		{
			name:     "http and reconciler",
			input:    "http,reconciler",
			expected: map[ServiceMode]bool{ServiceModeHTTP: true, ServiceModeReconciler: true},
		},
		{
			name:  "all services with spaces",
			input: " http , poller , reconciler ",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:       true,
				ServiceModePoller:     true,
				ServiceModeReconciler: true,
			},
		},
		{
			name:     "duplicate services",
			input:    "poller,poller",
			expected: map[ServiceMode]bool{ServiceModePoller: true},
		},
		{name: "empty string", input: "", expectError: true},
		{name: "only spaces and commas", input: " , , ", expectError: true},
		{name: "invalid service name", input: "http,reaper", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseServices(tt.input)
			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestConfig_ServiceEnabledMethods(t *testing.T) {
	tests := []struct {
		name       string
		services   string
		http       bool
		poller     bool
		reconciler bool
	}{
		{name: "default - http only", services: "http", http: true},
		{name: "workers only", services: "poller,reconciler", poller: true, reconciler: true},
		{name: "invalid disables everything", services: "bogus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := AppConfig{Services: tt.services}
			assert.Equal(t, tt.http, cfg.IsHTTPServerEnabled())
			assert.Equal(t, tt.poller, cfg.IsPollerEnabled())
			assert.Equal(t, tt.reconciler, cfg.IsReconcilerEnabled())
		})
	}
}

func TestAppConfig_ParseEnv(t *testing.T) {
	t.Setenv("PROVIDER_BASE_URL", "https://api.provider.test/")
	t.Setenv("PROVIDER_RETRY_MAX_RETRIES", "5")
	t.Setenv("PROVIDER_RETRY_BASE_DELAY", "250ms")
	t.Setenv("PROVIDER_ALLOWED_ASSET_DOMAINS", " cdn.provider.test , ,Example.COM")
	t.Setenv("STORAGE_BACKEND", "S3")
	t.Setenv("STORAGE_S3_BUCKET", "assets")
	t.Setenv("RECONCILER_STUCK_THRESHOLD", "45m")

	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.Equal(t, "https://api.provider.test", cfg.Provider.BaseURL)
	assert.Equal(t, 5, cfg.Provider.Retry.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Provider.Retry.BaseDelay)
	assert.Equal(t, []string{"cdn.provider.test", "example.com"}, cfg.Provider.AllowedAssetDomains)
	assert.Equal(t, StorageBackendS3, cfg.Storage.Backend)
	assert.Equal(t, "assets", cfg.Storage.S3Bucket)
	assert.Equal(t, 45*time.Minute, cfg.Reconciler.StuckThreshold)
	assert.Equal(t, 5*time.Minute, cfg.Reconciler.Interval)
}

func TestRetryConfig_Sanitize(t *testing.T) {
	cfg := RetryConfig{MaxRetries: -2, BaseDelay: 0, MaxDelay: time.Millisecond, Jitter: 3}
	cfg.Sanitize()

	assert.Equal(t, 0, cfg.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.BaseDelay)
	assert.Equal(t, cfg.BaseDelay, cfg.MaxDelay)
	assert.InDelta(t, 1.0, cfg.Jitter, 0.0001)
}

func TestProviderConfig_SanitizeStatusPath(t *testing.T) {
	cfg := ProviderConfig{StatusPath: "/tasks/"}
	cfg.Sanitize()
	assert.Equal(t, "/tasks/{id}", cfg.StatusPath)
}

func TestReconcilerConfig_Sanitize(t *testing.T) {
	cfg := ReconcilerConfig{Interval: time.Second, StuckThreshold: time.Second, BatchSize: 0, LockTTL: time.Hour}
	cfg.Sanitize()

	assert.Equal(t, time.Minute, cfg.Interval)
	assert.Equal(t, time.Minute, cfg.StuckThreshold)
	assert.Equal(t, 1, cfg.BatchSize)
	assert.Equal(t, time.Minute, cfg.LockTTL)
}

func TestObservabilityMetricsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityMetricsConfig{Enabled: true, StatsdAddress: " "}
	cfg.Sanitize()
	assert.False(t, cfg.Enabled, "metrics must be disabled without an address")

	cfg = ObservabilityMetricsConfig{Enabled: true, StatsdAddress: " statsd:1234 "}
	cfg.Sanitize()
	assert.True(t, cfg.IsEnabled())
	assert.Equal(t, "statsd:1234", cfg.StatsdAddress)
	assert.Equal(t, "genstudio", cfg.Prefix)
}

func TestEventsConfig_Sanitize(t *testing.T) {
	cfg := EventsConfig{Enabled: true, NATSURL: "  ", SubjectPrefix: ".custom.events."}
	cfg.Sanitize()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "custom.events", cfg.SubjectPrefix)
	assert.Equal(t, 5*time.Second, cfg.ConnectTimeout)
}

func TestStorageConfig_Sanitize(t *testing.T) {
	cfg := StorageConfig{Backend: "gcs", Root: " ", S3Prefix: "/generated/"}
	cfg.Sanitize()

	assert.Equal(t, StorageBackendFS, cfg.Backend)
	assert.Equal(t, "./data/assets", cfg.Root)
	assert.Equal(t, "generated", cfg.S3Prefix)
}
