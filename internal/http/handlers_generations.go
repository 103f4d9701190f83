// Package httpx provides the HTTP surface of the generation lifecycle.
package httpx

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/target/mmk-genstudio/internal/core"
	"github.com/target/mmk-genstudio/internal/domain/model"
	"github.com/target/mmk-genstudio/internal/service"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	maxCallbackBytes = 1 << 20
)

// Submitter creates placeholder jobs and hands the request to the provider.
type Submitter interface {
	Submit(ctx context.Context, req *model.SubmitRequest) (*model.SubmitResult, error)
}

// GenerationReader serves the read model and the per-job operations.
type GenerationReader interface {
	List(ctx context.Context, opts *model.GenerationListOptions) ([]model.GenerationSummary, error)
	Get(ctx context.Context, id string) (*model.GenerationJob, error)
	Delete(ctx context.Context, id string) error
	StatAsset(ctx context.Context, id string) (core.BlobInfo, error)
	OpenAsset(ctx context.Context, id string, r *core.BlobRange) (*service.Asset, error)
}

// ExternalIDExtractor pulls the provider request id out of a callback body.
type ExternalIDExtractor interface {
	ExternalID(body []byte) string
}

// GenerationHandlers provides HTTP handlers for generation jobs.
type GenerationHandlers struct {
	Submissions Submitter
	Generations GenerationReader
	Status      service.StatusChecker
	Callbacks   ExternalIDExtractor
	Logger      *slog.Logger
}

func (h *GenerationHandlers) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

// Submit handles POST /api/generations.
func (h *GenerationHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	var req model.SubmitRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	res, err := h.Submissions.Submit(r.Context(), &req)
	if err != nil {
		WriteServiceError(w, r, h.logger(), err)
		return
	}
	WriteJSON(w, http.StatusAccepted, res)
}

// List handles GET /api/generations.
func (h *GenerationHandlers) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := ParseLimitOffset(r, defaultListLimit, maxListLimit)
	opts := &model.GenerationListOptions{Limit: limit, Offset: offset}

	q := r.URL.Query()
	if v := q.Get("kind"); v != "" {
		var kind model.Kind
		if err := kind.UnmarshalText([]byte(v)); err != nil {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_kind", Err: err})
			return
		}
		opts.Kind = &kind
	}
	if v := q.Get("status"); v != "" {
		var status model.Status
		if err := status.UnmarshalText([]byte(v)); err != nil {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_status", Err: err})
			return
		}
		opts.Status = &status
	}

	items, err := h.Generations.List(r.Context(), opts)
	if err != nil {
		WriteServiceError(w, r, h.logger(), err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"items": items, "limit": limit, "offset": offset})
}

// Get handles GET /api/generations/{id}.
func (h *GenerationHandlers) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.Generations.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, r, h.logger(), err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// Delete handles DELETE /api/generations/{id}.
func (h *GenerationHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Generations.Delete(r.Context(), r.PathValue("id")); err != nil {
		WriteServiceError(w, r, h.logger(), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CheckStatus handles POST /api/generations/status/{externalId}.
func (h *GenerationHandlers) CheckStatus(w http.ResponseWriter, r *http.Request) {
	h.checkStatus(w, r, strings.TrimSpace(r.PathValue("externalId")))
}

// Callback handles POST /api/generations/callback. The provider posts the
// task payload; the request id is extracted with the normalizer's id rules and
// the job state is then refreshed by polling, so the callback body itself is
// never trusted as a result.
func (h *GenerationHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBytes))
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_body", Err: err})
		return
	}
	externalID := h.Callbacks.ExternalID(body)
	if externalID == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_external_id",
			Err:     errors.New("callback carries no task id"),
		})
		return
	}
	h.checkStatus(w, r, externalID)
}

func (h *GenerationHandlers) checkStatus(w http.ResponseWriter, r *http.Request, externalID string) {
	if externalID == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_path",
			Err:     errors.New("external id is required"),
		})
		return
	}
	res, err := h.Status.CheckStatus(r.Context(), externalID)
	if err != nil {
		WriteServiceError(w, r, h.logger(), err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}
