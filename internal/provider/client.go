// Package provider talks to the external generation provider: submit, poll and
// asset download, each wrapped in the retry policy, plus the response normalizer.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/target/mmk-genstudio/config"
	"github.com/target/mmk-genstudio/internal/core"
	"github.com/target/mmk-genstudio/internal/domain/model"
	"github.com/target/mmk-genstudio/internal/util"
)

const (
	maxResponseBytes = 4 << 20
	maxErrorBodyLen  = 512
)

// ErrMissingExternalID is returned when a submit response carries no task id.
var ErrMissingExternalID = errors.New("provider response carried no task id")

// ErrResponseTooLarge is returned when a submit or status body exceeds the response limit.
var ErrResponseTooLarge = errors.New("provider response exceeds size limit")

// ClientOptions groups dependencies for Client.
type ClientOptions struct {
	BaseURL     string
	APIKey      string
	SubmitPaths map[model.Kind]string
	// StatusPath contains "{id}", replaced by the path-escaped external id.
	StatusPath  string
	CallbackURL string

	HTTPClient     *http.Client // Optional: used for submit and poll
	DownloadClient *http.Client // Optional: used for asset downloads
	Retry          RetryPolicy
	Normalizer     *Normalizer    // Optional: defaults to DefaultNormalizer
	Allowlist      *HostAllowlist // Optional: nil allows every host
	Logger         *slog.Logger   // Optional
	// MaxResponseBytes caps submit and status bodies. Defaults to 4 MiB.
	MaxResponseBytes int64
}

// Client is the stateless provider client.
type Client struct {
	baseURL     string
	apiKey      string
	submitPaths map[model.Kind]string
	statusPath  string
	callbackURL string

	http       *http.Client
	download   *http.Client
	retry      RetryPolicy
	normalizer *Normalizer
	allowlist  *HostAllowlist
	logger     *slog.Logger
	maxBody    int64
}

var _ core.ProviderClient = (*Client)(nil)

// NewClient constructs a Client.
func NewClient(opts ClientOptions) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		apiKey:      opts.APIKey,
		submitPaths: opts.SubmitPaths,
		statusPath:  opts.StatusPath,
		callbackURL: opts.CallbackURL,
		http:        opts.HTTPClient,
		download:    opts.DownloadClient,
		retry:       opts.Retry,
		normalizer:  opts.Normalizer,
		allowlist:   opts.Allowlist,
		logger:      opts.Logger,
		maxBody:     opts.MaxResponseBytes,
	}
	if c.maxBody <= 0 {
		c.maxBody = maxResponseBytes
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}
	if c.download == nil {
		c.download = c.http
	}
	if c.normalizer == nil {
		c.normalizer = DefaultNormalizer()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", "provider_client")
	if c.statusPath == "" {
		c.statusPath = "/api/v1/tasks/{id}"
	}
	return c
}

// NewClientFromConfig builds a Client from ProviderConfig.
func NewClientFromConfig(cfg config.ProviderConfig, logger *slog.Logger) *Client {
	return NewClient(ClientOptions{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		SubmitPaths: map[model.Kind]string{
			model.KindMusic:   cfg.MusicSubmitPath,
			model.KindArtwork: cfg.ArtworkSubmitPath,
			model.KindVideo:   cfg.VideoSubmitPath,
		},
		StatusPath:     cfg.StatusPath,
		CallbackURL:    cfg.CallbackURL,
		HTTPClient:     &http.Client{Timeout: cfg.RequestTimeout},
		DownloadClient: &http.Client{Timeout: cfg.DownloadTimeout},
		Retry:          NewRetryPolicy(cfg.Retry),
		Allowlist:      NewHostAllowlist(cfg.AllowedAssetDomains),
		Logger:         logger,
	})
}

// Normalizer returns the normalizer used by the client.
func (c *Client) Normalizer() *Normalizer { return c.normalizer }

type musicPayload struct {
	Prompt       string `json:"prompt"`
	Title        string `json:"title,omitempty"`
	Style        string `json:"style,omitempty"`
	Instrumental bool   `json:"instrumental"`
	Model        string `json:"model,omitempty"`
	CallbackURL  string `json:"callBackUrl,omitempty"`
}

type artworkPayload struct {
	Prompt      string `json:"prompt"`
	Style       string `json:"style,omitempty"`
	Model       string `json:"model,omitempty"`
	N           int    `json:"n"`
	CallbackURL string `json:"callBackUrl,omitempty"`
}

type videoPayload struct {
	Prompt      string  `json:"prompt,omitempty"`
	ImageID     string  `json:"image_id"`
	Model       string  `json:"model,omitempty"`
	Duration    float64 `json:"duration,omitempty"`
	CallbackURL string  `json:"callBackUrl,omitempty"`
}

func (c *Client) submitPayload(sub model.ProviderSubmission) (any, error) {
	callback := sub.CallbackURL
	if callback == "" {
		callback = c.callbackURL
	}
	switch a := sub.Attributes.(type) {
	case model.MusicAttributes:
		return musicPayload{
			Prompt:       a.PromptText,
			Title:        sub.DisplayName,
			Style:        strings.Join(a.Tags, ", "),
			Instrumental: a.Instrumental,
			Model:        a.Model,
			CallbackURL:  callback,
		}, nil
	case model.ArtworkAttributes:
		return artworkPayload{
			Prompt:      a.PromptText,
			Style:       a.Style,
			Model:       a.Model,
			N:           max(sub.Variants, 1),
			CallbackURL: callback,
		}, nil
	case model.VideoAttributes:
		return videoPayload{
			Prompt:      a.PromptText,
			ImageID:     a.SourceImageID,
			Model:       a.Model,
			Duration:    a.DurationSeconds,
			CallbackURL: callback,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported attributes type %T", sub.Attributes)
	}
}

// Submit starts one provider request for the whole variant group and returns
// the normalized response. The report always carries a non-empty ExternalID.
func (c *Client) Submit(ctx context.Context, sub model.ProviderSubmission) (*model.ProviderReport, error) {
	submitPath, ok := c.submitPaths[sub.Kind]
	if !ok || submitPath == "" {
		return nil, Permanent(fmt.Errorf("no submit path configured for kind %q", sub.Kind))
	}
	payload, err := c.submitPayload(sub)
	if err != nil {
		return nil, Permanent(err)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, Permanent(fmt.Errorf("marshal submit payload: %w", err))
	}

	raw, err := c.doJSON(ctx, "submit", http.MethodPost, c.baseURL+submitPath, body)
	if err != nil {
		return nil, err
	}

	report := c.normalizer.Normalize(raw)
	if report.Failed {
		return nil, Permanent(fmt.Errorf("provider rejected submission: %s", report.FailureReason))
	}
	if report.ExternalID == "" {
		return nil, Permanent(ErrMissingExternalID)
	}
	c.logger.InfoContext(ctx, "provider submission accepted",
		"kind", sub.Kind, "external_id", report.ExternalID, "variants", sub.Variants)
	return &report, nil
}

// Poll fetches and normalizes the current status for externalID.
func (c *Client) Poll(ctx context.Context, externalID string) (*model.ProviderReport, error) {
	if externalID == "" {
		return nil, Permanent(errors.New("external id is required"))
	}
	target := c.baseURL + strings.ReplaceAll(c.statusPath, "{id}", url.PathEscape(externalID))
	raw, err := c.doJSON(ctx, "poll", http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	report := c.normalizer.Normalize(raw)
	if report.ExternalID == "" {
		report.ExternalID = externalID
	}
	return &report, nil
}

// Download opens the asset at assetURL. The caller must close the body.
func (c *Client) Download(ctx context.Context, assetURL string) (*core.AssetDownload, error) {
	if err := c.allowlist.Check(assetURL); err != nil {
		return nil, Permanent(err)
	}

	var resp *http.Response
	attempts, err := c.retry.Do(ctx, func(ctx context.Context) error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, assetURL, nil)
		if reqErr != nil {
			return Permanent(fmt.Errorf("create download request: %w", reqErr))
		}
		r, doErr := c.download.Do(req)
		if doErr != nil {
			c.logger.WarnContext(ctx, "asset download attempt failed", "error", doErr)
			return fmt.Errorf("download asset: %w", doErr)
		}
		if r.StatusCode < 200 || r.StatusCode >= 300 {
			return statusError("download", r)
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	contentType := resp.Header.Get("Content-Type")
	if mediaType, _, perr := mime.ParseMediaType(contentType); perr != nil || mediaType == "application/octet-stream" {
		if u, uerr := url.Parse(assetURL); uerr == nil {
			if byExt := util.ContentTypeForPath(u.Path); byExt != "" {
				contentType = byExt
			}
		}
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c.logger.DebugContext(ctx, "asset download started",
		"content_type", contentType, "size", resp.ContentLength, "attempts", attempts)
	return &core.AssetDownload{
		Body:        resp.Body,
		ContentType: contentType,
		Size:        resp.ContentLength,
	}, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, target string, body []byte) ([]byte, error) {
	var out []byte
	attempts, err := c.retry.Do(ctx, func(ctx context.Context) error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, reqErr := http.NewRequestWithContext(ctx, method, target, reader)
		if reqErr != nil {
			return Permanent(fmt.Errorf("create %s request: %w", op, reqErr))
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		start := time.Now()
		resp, doErr := c.http.Do(req)
		if doErr != nil {
			c.logger.WarnContext(ctx, "provider request failed", "op", op, "error", doErr)
			return fmt.Errorf("provider %s request: %w", op, doErr)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			statusErr := statusError(op, resp)
			c.logger.WarnContext(ctx, "provider returned error status",
				"op", op, "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())
			return statusErr
		}
		data, readErr := readLimited(resp.Body, c.maxBody)
		if errors.Is(readErr, ErrResponseTooLarge) {
			c.logger.ErrorContext(ctx, "provider response too large", "op", op, "limit_bytes", c.maxBody)
			return Permanent(fmt.Errorf("read provider %s response: %w", op, readErr))
		}
		if readErr != nil {
			return fmt.Errorf("read provider %s response: %w", op, readErr)
		}
		c.logger.DebugContext(ctx, "provider response received",
			"op", op, "status", resp.StatusCode, "bytes", len(data),
			"duration_ms", time.Since(start).Milliseconds())
		out = data
		return nil
	})
	if err != nil {
		c.logger.ErrorContext(ctx, "provider call gave up", "op", op, "attempts", attempts, "error", err)
		return nil, err
	}
	return out, nil
}

func statusError(op string, resp *http.Response) error {
	data, _ := readAndClose(resp.Body, maxErrorBodyLen)
	return &HTTPStatusError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(data)),
	}
}

// readLimited reads the whole body, failing with ErrResponseTooLarge instead of truncating.
func readLimited(body io.ReadCloser, limit int64) ([]byte, error) {
	data, err := readAndClose(body, limit+1)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, limit)
	}
	return data, nil
}

func readAndClose(body io.ReadCloser, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, limit))
	closeErr := body.Close()
	if err != nil {
		return nil, err
	}
	if closeErr != nil {
		return nil, fmt.Errorf("close response body: %w", closeErr)
	}
	return data, nil
}
