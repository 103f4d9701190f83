package httpx

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-genstudio/internal/core"
	"github.com/target/mmk-genstudio/internal/domain/model"
)

func nopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const trackBytes = "0123456789abcdefghij"

func seedTrack(t *testing.T, f *routerFixture) {
	t.Helper()
	_, err := f.blobs.Put(context.Background(), "generations/music/trk.mp3", bytes.NewReader([]byte(trackBytes)),
		core.BlobPutOptions{ContentType: "audio/mpeg", Size: int64(len(trackBytes))})
	require.NoError(t, err)
	f.seed(&model.GenerationJob{
		ID: "trk", Kind: model.KindMusic, Status: model.StatusCompleted, GroupID: "g",
		AssetRef: "generations/music/trk.mp3", Attributes: model.MusicAttributes{PromptText: "x"},
	})
}

func assetRequest(f *routerFixture, method, rangeHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/generations/trk/asset", nil)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestAssetFullBody(t *testing.T) {
	f := newRouterFixture(t)
	seedTrack(t, f)

	rec := assetRequest(f, http.MethodGet, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, trackBytes, rec.Body.String())
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "20", rec.Header().Get("Content-Length"))
	assert.Equal(t, "bytes", rec.Header().Get("Accept-Ranges"))
	assert.Empty(t, rec.Header().Get("Content-Range"))
}

func TestAssetRanges(t *testing.T) {
	tests := []struct {
		name         string
		rangeHeader  string
		wantBody     string
		contentRange string
	}{
		{"bounded", "bytes=2-5", "2345", "bytes 2-5/20"},
		{"open ended", "bytes=15-", "fghij", "bytes 15-19/20"},
		{"suffix", "bytes=-3", "hij", "bytes 17-19/20"},
		{"end clamped", "bytes=18-100", "ij", "bytes 18-19/20"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRouterFixture(t)
			seedTrack(t, f)

			rec := assetRequest(f, http.MethodGet, tt.rangeHeader)

			require.Equal(t, http.StatusPartialContent, rec.Code)
			assert.Equal(t, tt.wantBody, rec.Body.String())
			assert.Equal(t, tt.contentRange, rec.Header().Get("Content-Range"))
		})
	}
}

func TestAssetUnsatisfiableRange(t *testing.T) {
	f := newRouterFixture(t)
	seedTrack(t, f)

	rec := assetRequest(f, http.MethodGet, "bytes=50-60")

	assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, rec.Code)
	assert.Equal(t, "bytes */20", rec.Header().Get("Content-Range"))
}

func TestAssetMalformedRangeServesWholeObject(t *testing.T) {
	f := newRouterFixture(t)
	seedTrack(t, f)

	rec := assetRequest(f, http.MethodGet, "bytes=0-1,4-5")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, trackBytes, rec.Body.String())
}

func TestAssetHead(t *testing.T) {
	f := newRouterFixture(t)
	seedTrack(t, f)

	rec := assetRequest(f, http.MethodHead, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "20", rec.Header().Get("Content-Length"))
	assert.Zero(t, rec.Body.Len())
}

func TestAssetNotReady(t *testing.T) {
	f := newRouterFixture(t)
	f.seed(&model.GenerationJob{
		ID: "trk", Kind: model.KindMusic, Status: model.StatusGenerating, GroupID: "g",
		Attributes: model.MusicAttributes{PromptText: "x"},
	})

	rec := assetRequest(f, http.MethodGet, "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
