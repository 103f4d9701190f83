package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-genstudio/internal/domain/model"
)

type fakeConn struct {
	subjects []string
	payloads [][]byte
	err      error
	drained  bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return nil
}

func (f *fakeConn) Drain() error {
	f.drained = true
	return nil
}

func TestNATSPublisher_Publish(t *testing.T) {
	conn := &fakeConn{}
	p := NewNATSPublisher(conn, "genstudio.generation", nil)

	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	err := p.PublishGenerationEvent(context.Background(), model.GenerationEvent{
		Type:         model.GenerationEventCompleted,
		JobID:        "job-1",
		GroupID:      "group-1",
		Kind:         model.KindMusic,
		VariantIndex: 2,
		AssetRef:     "generations/music/job-1.mp3",
		OccurredAt:   at,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"genstudio.generation.completed"}, conn.subjects)

	var decoded model.GenerationEvent
	require.NoError(t, json.Unmarshal(conn.payloads[0], &decoded))
	assert.Equal(t, "job-1", decoded.JobID)
	assert.Equal(t, 2, decoded.VariantIndex)
	assert.True(t, at.Equal(decoded.OccurredAt))

	require.NoError(t, p.Close())
	assert.True(t, conn.drained)
}

func TestNATSPublisher_Errors(t *testing.T) {
	conn := &fakeConn{err: errors.New("nats: connection closed")}
	p := NewNATSPublisher(conn, "", nil)

	err := p.PublishGenerationEvent(context.Background(), model.GenerationEvent{Type: model.GenerationEventFailed})
	require.ErrorContains(t, err, "publish failed")

	require.Error(t, p.PublishGenerationEvent(context.Background(), model.GenerationEvent{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, p.PublishGenerationEvent(ctx, model.GenerationEvent{Type: model.GenerationEventFailed}), context.Canceled)
}

func TestNopPublisher(t *testing.T) {
	require.NoError(t, NopPublisher{}.PublishGenerationEvent(context.Background(), model.GenerationEvent{}))
}
