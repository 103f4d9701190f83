package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-genstudio/internal/domain/model"
)

func newTestClient(t *testing.T, srv *httptest.Server, maxRetries int) *Client {
	t.Helper()
	return NewClient(ClientOptions{
		BaseURL: srv.URL,
		APIKey:  "secret",
		SubmitPaths: map[model.Kind]string{
			model.KindMusic:   "/music",
			model.KindArtwork: "/images",
			model.KindVideo:   "/videos",
		},
		StatusPath: "/tasks/{id}",
		HTTPClient: srv.Client(),
		Retry:      RetryPolicy{MaxRetries: maxRetries, Sleep: noSleep},
	})
}

func TestClient_Submit(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/music", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"code":200,"data":{"taskId":"task-1"}}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, 0)
	report, err := c.Submit(context.Background(), model.ProviderSubmission{
		Kind:        model.KindMusic,
		DisplayName: "Lo-fi",
		Variants:    2,
		Attributes:  model.MusicAttributes{PromptText: "lofi beats", Tags: []string{"chill", "piano"}},
		CallbackURL: "https://app.example.com/cb",
	})
	require.NoError(t, err)
	assert.Equal(t, "task-1", report.ExternalID)
	assert.Equal(t, "lofi beats", got["prompt"])
	assert.Equal(t, "chill, piano", got["style"])
	assert.Equal(t, "https://app.example.com/cb", got["callBackUrl"])
}

func TestClient_SubmitRejected(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"error":"prompt violates policy"}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, 3)
	_, err := c.Submit(context.Background(), model.ProviderSubmission{
		Kind:       model.KindArtwork,
		Variants:   1,
		Attributes: model.ArtworkAttributes{PromptText: "x"},
	})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "4xx is not retried")

	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnprocessableEntity, statusErr.StatusCode)
	assert.Contains(t, statusErr.Reason(), "prompt violates policy")
}

func TestClient_SubmitMissingTaskID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, 3)
	_, err := c.Submit(context.Background(), model.ProviderSubmission{
		Kind:       model.KindVideo,
		Attributes: model.VideoAttributes{SourceImageID: "img-1"},
	})
	require.ErrorIs(t, err, ErrMissingExternalID)
	assert.False(t, IsRetryable(err))
}

func TestClient_PollRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tasks/ext%2F1", r.URL.EscapedPath())
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `[{"id":"a","audio_url":"https://cdn.example.com/a.mp3","status":"complete"}]`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, 3)
	report, err := c.Poll(context.Background(), "ext/1")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "ext/1", report.ExternalID)
	require.Len(t, report.Items, 1)
	assert.Equal(t, model.ItemComplete, report.Items[0].State)
}

func TestClient_PollExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, 2)
	_, err := c.Poll(context.Background(), "ext-2")
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_PollRejectsOversizedResponse(t *testing.T) {
	var calls atomic.Int32
	body := `[{"id":"a","audio_url":"https://cdn.example.com/a.mp3","status":"complete"}]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, body)
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{
		BaseURL:          srv.URL,
		StatusPath:       "/tasks/{id}",
		HTTPClient:       srv.Client(),
		Retry:            RetryPolicy{MaxRetries: 3, Sleep: noSleep},
		MaxResponseBytes: int64(len(body) - 1),
	})
	_, err := c.Poll(context.Background(), "ext-3")
	require.ErrorIs(t, err, ErrResponseTooLarge)
	assert.False(t, IsRetryable(err))
	assert.Equal(t, int32(1), calls.Load())

	c = NewClient(ClientOptions{
		BaseURL:          srv.URL,
		StatusPath:       "/tasks/{id}",
		HTTPClient:       srv.Client(),
		MaxResponseBytes: int64(len(body)),
	})
	report, err := c.Poll(context.Background(), "ext-3")
	require.NoError(t, err)
	require.Len(t, report.Items, 1)
}

func TestClient_Download(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = io.WriteString(w, "ID3-audio")
	}))
	defer srv.Close()

	c := newTestClient(t, srv, 0)
	dl, err := c.Download(context.Background(), srv.URL+"/files/track.mp3")
	require.NoError(t, err)
	defer dl.Body.Close()

	body, err := io.ReadAll(dl.Body)
	require.NoError(t, err)
	assert.Equal(t, "ID3-audio", string(body))
	assert.Equal(t, "audio/mpeg", dl.ContentType)
	assert.Equal(t, int64(len("ID3-audio")), dl.Size)
}

func TestClient_DownloadRejectsHost(t *testing.T) {
	c := NewClient(ClientOptions{Allowlist: NewHostAllowlist([]string{"cdn.example.com"})})
	_, err := c.Download(context.Background(), "https://evil.example.net/a.mp3")
	require.Error(t, err)
	assert.False(t, IsRetryable(err))
}
