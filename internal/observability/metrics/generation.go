// Package metrics names and tags the metrics emitted by the generation lifecycle.
package metrics

import (
	"time"

	obserrors "github.com/target/mmk-genstudio/internal/observability/errors"
	"github.com/target/mmk-genstudio/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// Transition names.
const (
	TransitionSubmit      = "submit"
	TransitionComplete    = "complete"
	TransitionFail        = "fail"
	TransitionMaterialize = "materialize"
	TransitionPoll        = "poll"
	TransitionForceFail   = "force_fail"
)

// GenerationMetric captures one lifecycle step for one job or group.
type GenerationMetric struct {
	Kind       string
	Transition string
	Result     string
	Duration   time.Duration
	Err        error
}

// EmitGenerationTransition emits generation.transition and, when a duration
// is known, generation.duration.
func EmitGenerationTransition(sink statsd.Sink, in GenerationMetric) {
	if sink == nil {
		return
	}
	tags := map[string]string{
		"kind":       in.Kind,
		"transition": in.Transition,
		"result":     in.Result,
	}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}
	sink.Count("generation.transition", 1, tags)
	if in.Duration > 0 {
		sink.Timing("generation.duration", in.Duration, CloneTags(tags))
	}
}

// ReconcileMetric summarises one reconciler sweep.
type ReconcileMetric struct {
	Checked      int
	ForcedFailed int
	Duration     time.Duration
	Err          error
	// Skipped is set when another instance held the sweep lock.
	Skipped bool
}

// EmitReconcileSweep emits generation.reconcile.* metrics.
func EmitReconcileSweep(sink statsd.Sink, in ReconcileMetric) {
	if sink == nil {
		return
	}
	result := ResultSuccess
	switch {
	case in.Err != nil:
		result = ResultError
	case in.Skipped:
		result = ResultNoop
	}
	tags := map[string]string{"result": result}
	if in.Err != nil {
		tags["error_class"] = obserrors.Classify(in.Err)
	}
	sink.Count("generation.reconcile.runs", 1, tags)
	if in.Skipped {
		return
	}
	sink.Count("generation.reconcile.checked", int64(in.Checked), CloneTags(tags))
	sink.Count("generation.reconcile.forced_failed", int64(in.ForcedFailed), CloneTags(tags))
	if in.Duration > 0 {
		sink.Timing("generation.reconcile.duration", in.Duration, CloneTags(tags))
	}
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
