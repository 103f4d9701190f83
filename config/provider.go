package config

import (
	"strings"
	"time"
)

// ProviderConfig describes the upstream generation provider.
type ProviderConfig struct {
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:9000"`
	APIKey  string `env:"API_KEY"`

	// Submit paths per asset kind, relative to BaseURL.
	MusicSubmitPath   string `env:"MUSIC_SUBMIT_PATH"   envDefault:"/api/v1/music/generate"`
	ArtworkSubmitPath string `env:"ARTWORK_SUBMIT_PATH" envDefault:"/api/v1/images/generate"`
	VideoSubmitPath   string `env:"VIDEO_SUBMIT_PATH"   envDefault:"/api/v1/videos/generate"`

	// StatusPath is a template; "{id}" is replaced by the escaped external id.
	StatusPath string `env:"STATUS_PATH" envDefault:"/api/v1/tasks/{id}"`

	// CallbackURL is forwarded on submit so the provider can notify us.
	CallbackURL string `env:"CALLBACK_URL"`

	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT"  envDefault:"30s"`
	DownloadTimeout time.Duration `env:"DOWNLOAD_TIMEOUT" envDefault:"5m"`

	Retry RetryConfig `envPrefix:"RETRY_"`

	// AllowedAssetDomains restricts asset downloads to these registrable
	// domains. Empty allows any host.
	AllowedAssetDomains []string `env:"ALLOWED_ASSET_DOMAINS" envSeparator:","`
}

// RetryConfig controls exponential backoff for provider calls.
type RetryConfig struct {
	MaxRetries int           `env:"MAX_RETRIES" envDefault:"3"`
	BaseDelay  time.Duration `env:"BASE_DELAY"  envDefault:"500ms"`
	MaxDelay   time.Duration `env:"MAX_DELAY"   envDefault:"10s"`
	// Jitter is the fraction of each delay randomised, in [0, 1].
	Jitter float64 `env:"JITTER" envDefault:"0.2"`
}

// Sanitize applies guardrails to provider configuration values.
func (p *ProviderConfig) Sanitize() {
	p.BaseURL = strings.TrimRight(strings.TrimSpace(p.BaseURL), "/")
	if p.RequestTimeout <= 0 {
		p.RequestTimeout = 30 * time.Second
	}
	if p.DownloadTimeout < p.RequestTimeout {
		p.DownloadTimeout = p.RequestTimeout
	}
	if !strings.Contains(p.StatusPath, "{id}") {
		p.StatusPath = strings.TrimRight(p.StatusPath, "/") + "/{id}"
	}

	domains := p.AllowedAssetDomains[:0]
	for _, d := range p.AllowedAssetDomains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			domains = append(domains, d)
		}
	}
	p.AllowedAssetDomains = domains

	p.Retry.Sanitize()
}

// Sanitize applies guardrails to retry configuration values.
func (r *RetryConfig) Sanitize() {
	if r.MaxRetries < 0 {
		r.MaxRetries = 0
	}
	if r.MaxRetries > 10 {
		r.MaxRetries = 10
	}
	if r.BaseDelay <= 0 {
		r.BaseDelay = 500 * time.Millisecond
	}
	if r.MaxDelay < r.BaseDelay {
		r.MaxDelay = r.BaseDelay
	}
	if r.Jitter < 0 {
		r.Jitter = 0
	}
	if r.Jitter > 1 {
		r.Jitter = 1
	}
}
