package httpx

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/target/mmk-genstudio/internal/core"
	"github.com/target/mmk-genstudio/internal/storage"
)

// Asset handles GET and HEAD /api/generations/{id}/asset, honouring a single
// byte range.
func (h *GenerationHandlers) Asset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	info, err := h.Generations.StatAsset(ctx, id)
	if err != nil {
		WriteServiceError(w, r, h.logger(), err)
		return
	}

	w.Header().Set("Accept-Ranges", "bytes")
	rng, partial, err := storage.ParseRange(r.Header.Get("Range"), info.Size)
	if errors.Is(err, storage.ErrRangeNotSatisfiable) {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", info.Size))
		WriteError(w, ErrorParams{Code: http.StatusRequestedRangeNotSatisfiable, ErrCode: "invalid_range", Err: err})
		return
	}

	var want *core.BlobRange
	if partial {
		want = &rng
	}
	asset, err := h.Generations.OpenAsset(ctx, id, want)
	if err != nil {
		WriteServiceError(w, r, h.logger(), err)
		return
	}
	defer func() { _ = asset.Body.Close() }()

	if ct := asset.Info.ContentType; ct != "" {
		w.Header().Set("Content-Type", ct)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}

	status, length := http.StatusOK, asset.Info.Size
	if asset.Range != nil {
		status, length = http.StatusPartialContent, asset.Range.Length()
		w.Header().Set("Content-Range",
			fmt.Sprintf("bytes %d-%d/%d", asset.Range.Start, asset.Range.End, asset.Info.Size))
	}
	w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, asset.Body); err != nil {
		h.logger().DebugContext(ctx, "asset stream interrupted", "job_id", id, "error", err)
	}
}
