package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/mmk-genstudio/config"
	"github.com/target/mmk-genstudio/internal/domain/model"
	"github.com/target/mmk-genstudio/internal/mocks"
	fakes "github.com/target/mmk-genstudio/internal/mocks/generation"
)

type recordingChecker struct {
	mu     sync.Mutex
	calls  map[string]int
	result func(externalID string) (*model.CheckStatusResult, error)
}

func (c *recordingChecker) CheckStatus(_ context.Context, externalID string) (*model.CheckStatusResult, error) {
	c.mu.Lock()
	if c.calls == nil {
		c.calls = map[string]int{}
	}
	c.calls[externalID]++
	c.mu.Unlock()
	if c.result != nil {
		return c.result(externalID)
	}
	return &model.CheckStatusResult{Status: model.CheckStateProcessing, UpdatedJobIDs: []string{}}, nil
}

func seedGenerating(repo *fakes.MemoryRepository, id, externalID string, variant int, updated time.Time) {
	repo.Put(&model.GenerationJob{
		ID: id, Kind: model.KindMusic, Status: model.StatusGenerating, ExternalID: externalID,
		GroupID: "g-" + externalID, VariantIndex: variant, Attributes: model.MusicAttributes{PromptText: "x"},
		CreatedAt: updated, UpdatedAt: updated,
	})
}

func testPollerConfig() config.PollerConfig {
	return config.PollerConfig{Interval: time.Second, BatchSize: 100, Concurrency: 2}
}

func TestPoller_PollOnceChecksEachExternalIDOnce(t *testing.T) {
	clock := newTestClock()
	repo := fakes.NewMemoryRepository()
	now := clock.Now()
	seedGenerating(repo, "j1", "task-a", 1, now.Add(-time.Minute))
	seedGenerating(repo, "j2", "task-a", 2, now.Add(-time.Minute))
	seedGenerating(repo, "j3", "task-b", 1, now.Add(-2*time.Minute))
	seedGenerating(repo, "j4", "task-old", 1, now.Add(-2*time.Hour))
	repo.Put(&model.GenerationJob{
		ID: "j5", Kind: model.KindMusic, Status: model.StatusCompleted, ExternalID: "task-done",
		GroupID: "g-done", VariantIndex: 1, UpdatedAt: now,
	})

	checker := &recordingChecker{result: func(externalID string) (*model.CheckStatusResult, error) {
		switch externalID {
		case "task-a":
			return &model.CheckStatusResult{Status: model.CheckStateCompleted}, nil
		default:
			return nil, errors.New("upstream exploded")
		}
	}}
	svc, err := NewPollerService(PollerServiceOptions{
		Repo: repo, Status: checker, Config: testPollerConfig(), Lock: &fakes.MemoryLock{}, Now: clock.Now,
	})
	require.NoError(t, err)

	res, err := svc.PollOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, PollResult{Polled: 2, Completed: 1, Errors: 1}, res)
	assert.Equal(t, map[string]int{"task-a": 1, "task-b": 1}, checker.calls)
}

func TestPoller_SkipsWhenLockHeld(t *testing.T) {
	repo := fakes.NewMemoryRepository()
	seedGenerating(repo, "j1", "task-a", 1, time.Now())
	lock := &fakes.MemoryLock{}
	lock.Hold(pollerLockKey)
	checker := &recordingChecker{}

	svc, err := NewPollerService(PollerServiceOptions{
		Repo: repo, Status: checker, Config: testPollerConfig(), Lock: lock,
	})
	require.NoError(t, err)

	res, err := svc.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Polled)
	assert.Empty(t, checker.calls)
}

func TestPoller_ListErrorReturned(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockGenerationRepository(ctrl)
	repo.EXPECT().ListActive(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection reset"))

	svc, err := NewPollerService(PollerServiceOptions{
		Repo: repo, Status: &recordingChecker{}, Config: testPollerConfig(),
	})
	require.NoError(t, err)

	_, err = svc.PollOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list active generations")
}

func TestPoller_DrivesCompletionEndToEnd(t *testing.T) {
	h := newHarness(t)
	h.submitMusic(t, 2)
	h.stub.onPoll(completedPoll("a", "b"))

	svc, err := NewPollerService(PollerServiceOptions{
		Repo: h.repo, Status: h.status, Config: testPollerConfig(), Now: h.clock.Now,
	})
	require.NoError(t, err)

	res, err := svc.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PollResult{Polled: 1, Completed: 1}, res)
	for _, j := range h.repo.Snapshot() {
		assert.Equal(t, model.StatusCompleted, j.Status)
	}
}

func TestPoller_RunStopsOnCancel(t *testing.T) {
	repo := fakes.NewMemoryRepository()
	svc, err := NewPollerService(PollerServiceOptions{
		Repo: repo, Status: &recordingChecker{}, Config: config.PollerConfig{Interval: 10 * time.Millisecond, Concurrency: 1},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = svc.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
