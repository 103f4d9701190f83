package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/target/mmk-genstudio/internal/domain/model"
	fakes "github.com/target/mmk-genstudio/internal/mocks/generation"
	"github.com/target/mmk-genstudio/internal/observability/statsd"
	"github.com/target/mmk-genstudio/internal/provider"
)

// cannedResponse is one scripted provider reply. "{base}" in Body is
// replaced with the stub's own URL so asset links resolve to it.
type cannedResponse struct {
	Status int
	Body   string
}

func respond(body string) cannedResponse { return cannedResponse{Status: http.StatusOK, Body: body} }

func respondStatus(code int) cannedResponse {
	return cannedResponse{Status: code, Body: fmt.Sprintf(`{"msg":"status %d"}`, code)}
}

// providerStub is a scripted upstream. Each endpoint replays its queue and
// then repeats the last entry.
type providerStub struct {
	mu      sync.Mutex
	submits []cannedResponse
	polls   []cannedResponse

	submitCalls   atomic.Int32
	pollCalls     atomic.Int32
	downloadCalls atomic.Int32

	srv *httptest.Server
}

func newProviderStub(t *testing.T) *providerStub {
	t.Helper()
	s := &providerStub{}
	s.srv = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *providerStub) onSubmit(r ...cannedResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submits = r
}

func (s *providerStub) onPoll(r ...cannedResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls = r
}

func (s *providerStub) next(queue *[]cannedResponse) cannedResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(*queue) == 0 {
		return respondStatus(http.StatusNotImplemented)
	}
	r := (*queue)[0]
	if len(*queue) > 1 {
		*queue = (*queue)[1:]
	}
	return r
}

func (s *providerStub) serve(w http.ResponseWriter, r *http.Request) {
	var resp cannedResponse
	switch {
	case r.Method == http.MethodPost:
		s.submitCalls.Add(1)
		resp = s.next(&s.submits)
	case strings.HasPrefix(r.URL.Path, "/tasks/"):
		s.pollCalls.Add(1)
		resp = s.next(&s.polls)
	case strings.HasPrefix(r.URL.Path, "/assets/"):
		s.downloadCalls.Add(1)
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = io.WriteString(w, "bytes of "+strings.TrimPrefix(r.URL.Path, "/assets/"))
		return
	default:
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	_, _ = io.WriteString(w, strings.ReplaceAll(resp.Body, "{base}", s.srv.URL))
}

// testClock is a settable clock shared by the repository and services.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type harness struct {
	stub    *providerStub
	clock   *testClock
	repo    *fakes.MemoryRepository
	blobs   *fakes.MemoryBlobStore
	events  *fakes.RecordingPublisher
	metrics *statsd.MemorySink

	client       *provider.Client
	submission   *SubmissionService
	materializer *Materializer
	status       *StatusService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		stub:    newProviderStub(t),
		clock:   newTestClock(),
		repo:    fakes.NewMemoryRepository(),
		blobs:   fakes.NewMemoryBlobStore(),
		events:  &fakes.RecordingPublisher{},
		metrics: &statsd.MemorySink{},
	}
	h.repo.Now = h.clock.Now

	var seq atomic.Int32
	newID := func() string { return fmt.Sprintf("id-%02d", seq.Add(1)) }

	h.client = provider.NewClient(provider.ClientOptions{
		BaseURL: h.stub.srv.URL,
		APIKey:  "test-key",
		SubmitPaths: map[model.Kind]string{
			model.KindMusic:   "/music",
			model.KindArtwork: "/images",
			model.KindVideo:   "/videos",
		},
		StatusPath: "/tasks/{id}",
		HTTPClient: h.stub.srv.Client(),
		Retry: provider.RetryPolicy{
			MaxRetries: 3,
			Sleep:      func(context.Context, time.Duration) error { return nil },
		},
	})

	var err error
	h.submission, err = NewSubmissionService(SubmissionServiceOptions{
		Repo: h.repo, Provider: h.client, Events: h.events, Metrics: h.metrics,
		NewID: newID, Now: h.clock.Now,
	})
	require.NoError(t, err)
	h.materializer, err = NewMaterializer(MaterializerOptions{
		Repo: h.repo, Provider: h.client, Blobs: h.blobs, Events: h.events, Metrics: h.metrics, Now: h.clock.Now,
	})
	require.NoError(t, err)
	h.status, err = NewStatusService(StatusServiceOptions{
		Repo: h.repo, Provider: h.client, Materializer: h.materializer,
		Events: h.events, Metrics: h.metrics, NewID: newID, Now: h.clock.Now,
	})
	require.NoError(t, err)
	return h
}

// submitMusic submits a music request for variants and returns the result.
func (h *harness) submitMusic(t *testing.T, variants int) *model.SubmitResult {
	t.Helper()
	h.stub.onSubmit(respond(`{"code":200,"data":{"taskId":"task-1"}}`))
	res, err := h.submission.Submit(context.Background(), &model.SubmitRequest{
		Kind:       model.KindMusic,
		Variants:   variants,
		Attributes: model.MusicAttributes{PromptText: "slow piano over rain", Tags: []string{"ambient"}},
	})
	require.NoError(t, err)
	return res
}

func (h *harness) eventsOfType(typ model.GenerationEventType) []model.GenerationEvent {
	var out []model.GenerationEvent
	for _, e := range h.events.Events() {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// completedPoll renders a wrapped poll response with one completed item per name.
func completedPoll(names ...string) cannedResponse {
	items := make([]string, 0, len(names))
	for _, n := range names {
		items = append(items, fmt.Sprintf(`{"id":"clip-%s","audioUrl":"{base}/assets/%s.mp3","title":"Take %s","duration":"90"}`, n, n, n))
	}
	return respond(`{"code":200,"data":{"taskId":"task-1","status":"SUCCESS","response":{"sunoData":[` +
		strings.Join(items, ",") + `]}}}`)
}
