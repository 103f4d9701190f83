package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/target/mmk-genstudio/internal/core"
	"github.com/target/mmk-genstudio/internal/domain/model"
	apperrors "github.com/target/mmk-genstudio/internal/errors"
	"github.com/target/mmk-genstudio/internal/observability/metrics"
	"github.com/target/mmk-genstudio/internal/observability/statsd"
	"github.com/target/mmk-genstudio/internal/provider"
)

// SubmissionServiceOptions groups dependencies for SubmissionService.
type SubmissionServiceOptions struct {
	Repo        core.GenerationRepository     // Required: generation job repository
	Provider    core.ProviderClient           // Required: upstream provider client
	Events      core.GenerationEventPublisher // Optional: lifecycle event publisher
	Metrics     statsd.Sink                   // Optional: metrics sink
	Logger      *slog.Logger                  // Optional: structured logger
	CallbackURL string                        // Optional: forwarded to the provider
	NewID       func() string                 // Optional: id generator, defaults to uuid
	Now         func() time.Time              // Optional: clock
}

// SubmissionService creates placeholder jobs and starts provider work for them.
type SubmissionService struct {
	lifecycle
	provider    core.ProviderClient
	callbackURL string
	newID       func() string
}

// NewSubmissionService constructs a SubmissionService.
func NewSubmissionService(opts SubmissionServiceOptions) (*SubmissionService, error) {
	if opts.Repo == nil {
		return nil, errors.New("GenerationRepository is required")
	}
	if opts.Provider == nil {
		return nil, errors.New("ProviderClient is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &SubmissionService{
		lifecycle:   newLifecycle(opts.Repo, opts.Events, opts.Metrics, logger.With("component", "submission_service"), opts.Now),
		provider:    opts.Provider,
		callbackURL: opts.CallbackURL,
		newID:       newID,
	}, nil
}

// Submit creates one queued job per variant, submits the request to the
// provider once for the whole group and moves the group to generating. It
// never waits for the provider to finish.
//
// When the provider rejects the submission, or is unreachable after retries,
// every job in the group is failed with the provider's reason and the error
// is returned.
func (s *SubmissionService) Submit(ctx context.Context, req *model.SubmitRequest) (*model.SubmitResult, error) {
	if req == nil {
		return nil, errors.New("submit request is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validationf("invalid submission: %v", err)
	}

	jobs, err := s.createPlaceholders(ctx, req)
	if err != nil {
		return nil, err
	}
	result := &model.SubmitResult{GroupID: jobs[0].GroupID, JobIDs: make([]string, 0, len(jobs))}
	for _, j := range jobs {
		result.JobIDs = append(result.JobIDs, j.ID)
	}

	report, err := s.provider.Submit(ctx, model.ProviderSubmission{
		Kind:        req.Kind,
		DisplayName: req.DisplayName,
		Variants:    req.Variants,
		Attributes:  req.Attributes,
		CallbackURL: s.callbackURL,
	})
	if err != nil {
		s.emit(req.Kind, metrics.TransitionSubmit, metrics.ResultError, err)
		s.failGroup(ctx, jobs, submitFailureReason(err))
		return nil, submitError(err, result.GroupID)
	}

	result.ExternalID = report.ExternalID
	for _, j := range jobs {
		ok, markErr := s.repo.MarkGenerating(ctx, j.ID, report.ExternalID)
		if markErr != nil {
			s.emit(req.Kind, metrics.TransitionSubmit, metrics.ResultError, markErr)
			return nil, fmt.Errorf("record external id on job %s: %w", j.ID, markErr)
		}
		if !ok {
			s.logger.WarnContext(ctx, "placeholder left queued state before submit completed", "job_id", j.ID)
		}
	}
	s.emit(req.Kind, metrics.TransitionSubmit, metrics.ResultSuccess, nil)
	s.logger.InfoContext(ctx, "generation submitted",
		"group_id", result.GroupID, "external_id", result.ExternalID,
		"kind", req.Kind, "variants", len(jobs))
	return result, nil
}

func (s *SubmissionService) createPlaceholders(ctx context.Context, req *model.SubmitRequest) ([]*model.GenerationJob, error) {
	groupID := s.newID()
	jobs := make([]*model.GenerationJob, 0, req.Variants)
	for i := 1; i <= req.Variants; i++ {
		job, err := s.repo.Create(ctx, &model.CreateGenerationJobRequest{
			ID:           s.newID(),
			Kind:         req.Kind,
			Status:       model.StatusQueued,
			GroupID:      groupID,
			VariantIndex: i,
			DisplayName:  req.DisplayName,
			Attributes:   req.Attributes,
		})
		if err != nil {
			if len(jobs) > 0 {
				s.failGroup(ctx, jobs, "placeholder creation failed")
			}
			return nil, fmt.Errorf("create placeholder %d: %w", i, err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (s *SubmissionService) failGroup(ctx context.Context, jobs []*model.GenerationJob, reason string) {
	wctx, cancel := detached(ctx)
	defer cancel()
	for _, j := range jobs {
		if _, err := s.fail(wctx, j, reason, metrics.TransitionFail); err != nil {
			s.logger.ErrorContext(ctx, "failed to mark job failed after submit error",
				"job_id", j.ID, "error", err)
		}
	}
}

// submitFailureReason extracts the message recorded in attributes.error.
func submitFailureReason(err error) string {
	var statusErr *provider.HTTPStatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("provider rejected request (%d): %s", statusErr.StatusCode, statusErr.Reason())
	}
	return err.Error()
}

func submitError(err error, groupID string) error {
	if isContextCancellation(err) {
		return err
	}
	if provider.IsRetryable(err) {
		return apperrors.Wrapf(err, apperrors.ErrCodeUnavailable, "provider unavailable for group %s", groupID)
	}
	return apperrors.Wrapf(err, apperrors.ErrCodeUpstream, "provider rejected group %s", groupID)
}
