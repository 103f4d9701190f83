package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/mmk-genstudio/internal/core"
	"github.com/target/mmk-genstudio/internal/domain/model"
	"github.com/target/mmk-genstudio/internal/mocks"
	fakes "github.com/target/mmk-genstudio/internal/mocks/generation"
)

func TestAssetExtension(t *testing.T) {
	tests := []struct {
		contentType string
		url         string
		want        string
	}{
		{"audio/mpeg", "https://cdn.example.com/a/track.MP3?sig=1", ".mp3"},
		{"image/png", "https://cdn.example.com/render", ".png"},
		{"image/jpeg", "https://cdn.example.com/render/", ".jpg"},
		{"video/mp4; codecs=avc1", "https://cdn.example.com/clip", ".mp4"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, assetExtension(tt.contentType, tt.url))
		})
	}
}

func TestAssetKey(t *testing.T) {
	job := &model.GenerationJob{ID: "j-1", Kind: model.KindVideo}
	assert.Equal(t, "generations/video/j-1.mp4", AssetKey(job, ".mp4"))
}

func TestMaterializer_DownloadErrorLeavesJob(t *testing.T) {
	ctrl := gomock.NewController(t)
	prov := mocks.NewMockProviderClient(ctrl)
	repo := fakes.NewMemoryRepository()
	blobs := fakes.NewMemoryBlobStore()

	prov.EXPECT().Download(gomock.Any(), "https://cdn.example.com/a.mp3").Return(nil, errors.New("connection refused"))

	m, err := NewMaterializer(MaterializerOptions{Repo: repo, Provider: prov, Blobs: blobs})
	require.NoError(t, err)

	job := &model.GenerationJob{ID: "j1", Kind: model.KindMusic, Status: model.StatusGenerating, ExternalID: "t", GroupID: "g", VariantIndex: 1}
	repo.Put(job)

	done, err := m.Materialize(context.Background(), job, model.ProviderItem{AssetURL: "https://cdn.example.com/a.mp3", State: model.ItemComplete})
	require.Error(t, err)
	assert.False(t, done)
	assert.Zero(t, blobs.Puts)
	assert.Equal(t, model.StatusGenerating, repo.Snapshot()[0].Status)
}

func TestMaterializer_BlobWriteErrorIsMarked(t *testing.T) {
	ctrl := gomock.NewController(t)
	prov := mocks.NewMockProviderClient(ctrl)
	repo := fakes.NewMemoryRepository()
	blobs := fakes.NewMemoryBlobStore()
	blobs.PutErr = errors.New("bucket missing")

	prov.EXPECT().Download(gomock.Any(), gomock.Any()).Return(&core.AssetDownload{
		Body: io.NopCloser(strings.NewReader("png")), ContentType: "image/png", Size: 3,
	}, nil)

	m, err := NewMaterializer(MaterializerOptions{Repo: repo, Provider: prov, Blobs: blobs})
	require.NoError(t, err)
	job := &model.GenerationJob{ID: "j1", Kind: model.KindArtwork, Status: model.StatusGenerating, ExternalID: "t", GroupID: "g", VariantIndex: 1}
	repo.Put(job)

	_, err = m.Materialize(context.Background(), job, model.ProviderItem{AssetURL: "https://cdn.example.com/x", State: model.ItemComplete})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrBlobWrite)
}

func TestMaterializer_SkipsTerminalJobs(t *testing.T) {
	ctrl := gomock.NewController(t)
	prov := mocks.NewMockProviderClient(ctrl)
	prov.EXPECT().Download(gomock.Any(), gomock.Any()).Times(0)

	m, err := NewMaterializer(MaterializerOptions{
		Repo: fakes.NewMemoryRepository(), Provider: prov, Blobs: fakes.NewMemoryBlobStore(),
	})
	require.NoError(t, err)

	for _, job := range []*model.GenerationJob{
		{ID: "queued", Status: model.StatusQueued},
		{ID: "done", Status: model.StatusCompleted, AssetRef: "k"},
		{ID: "failed", Status: model.StatusFailed},
		{ID: "has-ref", Status: model.StatusGenerating, AssetRef: "k"},
	} {
		done, err := m.Materialize(context.Background(), job, model.ProviderItem{AssetURL: "https://x/y.png"})
		require.NoError(t, err)
		assert.False(t, done, job.ID)
	}
}
