package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-genstudio/internal/observability/statsd"
)

func TestEmitGenerationTransition(t *testing.T) {
	var sink statsd.MemorySink
	EmitGenerationTransition(&sink, GenerationMetric{
		Kind: "music", Transition: TransitionComplete, Result: ResultSuccess, Duration: 2 * time.Second,
	})
	EmitGenerationTransition(&sink, GenerationMetric{
		Kind: "video", Transition: TransitionPoll, Result: ResultError, Err: context.DeadlineExceeded,
	})

	recs := sink.Records()
	require.Len(t, recs, 3)
	assert.Equal(t, "generation.transition", recs[0].Name)
	assert.Equal(t, "generation.duration", recs[1].Name)
	assert.Equal(t, "timeout", recs[2].Tags["error_class"])

	EmitGenerationTransition(nil, GenerationMetric{})
}

func TestEmitReconcileSweep(t *testing.T) {
	var sink statsd.MemorySink
	EmitReconcileSweep(&sink, ReconcileMetric{Checked: 4, ForcedFailed: 1, Duration: time.Second})
	EmitReconcileSweep(&sink, ReconcileMetric{Skipped: true})

	assert.InDelta(t, 4, sink.Sum("generation.reconcile.checked", nil), 0.001)
	assert.InDelta(t, 1, sink.Sum("generation.reconcile.forced_failed", nil), 0.001)
	assert.InDelta(t, 1, sink.Sum("generation.reconcile.runs", map[string]string{"result": ResultNoop}), 0.001)
}
