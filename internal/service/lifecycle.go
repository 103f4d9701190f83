package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/target/mmk-genstudio/internal/core"
	"github.com/target/mmk-genstudio/internal/domain/model"
	"github.com/target/mmk-genstudio/internal/observability/metrics"
	"github.com/target/mmk-genstudio/internal/observability/statsd"
)

// terminalWriteTimeout bounds terminal writes that must outlive a canceled request.
const terminalWriteTimeout = 10 * time.Second

// lifecycle bundles the collaborators every terminal transition touches:
// the conditional repository write, the transition metric and the event.
type lifecycle struct {
	repo    core.GenerationRepository
	events  core.GenerationEventPublisher
	metrics statsd.Sink
	logger  *slog.Logger
	now     func() time.Time
}

func newLifecycle(
	repo core.GenerationRepository,
	events core.GenerationEventPublisher,
	sink statsd.Sink,
	logger *slog.Logger,
	now func() time.Time,
) lifecycle {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return lifecycle{repo: repo, events: events, metrics: sink, logger: logger, now: now}
}

// fail marks job failed with reason. It reports false when the job had
// already left the in-flight states.
func (l lifecycle) fail(ctx context.Context, job *model.GenerationJob, reason, transition string) (bool, error) {
	ok, err := l.repo.Fail(ctx, job.ID, reason)
	if err != nil {
		l.emit(job.Kind, transition, metrics.ResultError, err)
		return false, err
	}
	if !ok {
		l.emit(job.Kind, transition, metrics.ResultNoop, nil)
		return false, nil
	}
	l.emit(job.Kind, transition, metrics.ResultSuccess, nil)
	l.logger.InfoContext(ctx, "generation failed",
		"job_id", job.ID, "group_id", job.GroupID, "external_id", job.ExternalID, "reason", reason)
	l.publish(ctx, model.GenerationEvent{
		Type:         model.GenerationEventFailed,
		JobID:        job.ID,
		GroupID:      job.GroupID,
		ExternalID:   job.ExternalID,
		Kind:         job.Kind,
		VariantIndex: job.VariantIndex,
		Error:        reason,
		OccurredAt:   l.now().UTC(),
	})
	return true, nil
}

func (l lifecycle) emit(kind model.Kind, transition, result string, err error) {
	metrics.EmitGenerationTransition(l.metrics, metrics.GenerationMetric{
		Kind:       string(kind),
		Transition: transition,
		Result:     result,
		Err:        err,
	})
}

// publish sends evt; failures are logged and never fail the transition.
func (l lifecycle) publish(ctx context.Context, evt model.GenerationEvent) {
	if l.events == nil {
		return
	}
	if err := l.events.PublishGenerationEvent(context.WithoutCancel(ctx), evt); err != nil {
		l.logger.WarnContext(ctx, "failed to publish generation event",
			"type", evt.Type, "job_id", evt.JobID, "error", err)
	}
}

// detached returns a context for writes that must complete even if the caller
// has gone away.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), terminalWriteTimeout)
}

func isContextCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
