package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/mmk-genstudio/internal/core"
	"github.com/target/mmk-genstudio/internal/domain/model"
	apperrors "github.com/target/mmk-genstudio/internal/errors"
	"github.com/target/mmk-genstudio/internal/mocks"
	fakes "github.com/target/mmk-genstudio/internal/mocks/generation"
)

func newTestGenerationService(t *testing.T) (*GenerationService, *fakes.MemoryRepository, *fakes.MemoryBlobStore) {
	t.Helper()
	repo := fakes.NewMemoryRepository()
	blobs := fakes.NewMemoryBlobStore()
	svc, err := NewGenerationService(GenerationServiceOptions{Repo: repo, Blobs: blobs})
	require.NoError(t, err)
	return svc, repo, blobs
}

func seedCompleted(t *testing.T, repo *fakes.MemoryRepository, blobs *fakes.MemoryBlobStore, id, content string) string {
	t.Helper()
	key := "generations/music/" + id + ".mp3"
	_, err := blobs.Put(context.Background(), key, bytes.NewBufferString(content), core.BlobPutOptions{ContentType: "audio/mpeg"})
	require.NoError(t, err)
	repo.Put(&model.GenerationJob{
		ID: id, Kind: model.KindMusic, Status: model.StatusCompleted, GroupID: "g-1", VariantIndex: 1,
		DisplayName: "Rain", AssetRef: key, Attributes: model.MusicAttributes{PromptText: "rain"},
		CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	return key
}

func TestGenerationService_List(t *testing.T) {
	svc, repo, blobs := newTestGenerationService(t)
	seedCompleted(t, repo, blobs, "j1", "abc")
	repo.Put(&model.GenerationJob{
		ID: "j2", Kind: model.KindArtwork, Status: model.StatusFailed, GroupID: "g-2", VariantIndex: 1,
		Attributes: model.WithError(model.ArtworkAttributes{PromptText: "fox"}, "moderation"),
		CreatedAt:  time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	})

	all, err := svc.List(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "j2", all[0].ID, "newest first")
	assert.Equal(t, "moderation", all[0].Error)
	assert.Equal(t, "generations/music/j1.mp3", all[1].AssetRef)

	kind := model.KindMusic
	music, err := svc.List(context.Background(), &model.GenerationListOptions{Kind: &kind})
	require.NoError(t, err)
	require.Len(t, music, 1)
	assert.Equal(t, "j1", music[0].ID)
}

func TestGenerationService_Delete(t *testing.T) {
	svc, repo, blobs := newTestGenerationService(t)
	key := seedCompleted(t, repo, blobs, "j1", "abc")

	require.NoError(t, svc.Delete(context.Background(), "j1"))

	_, found := blobs.Bytes(key)
	assert.False(t, found)
	assert.Empty(t, repo.Snapshot())

	err := svc.Delete(context.Background(), "j1")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestGenerationService_DeleteToleratesMissingAsset(t *testing.T) {
	svc, repo, blobs := newTestGenerationService(t)
	key := seedCompleted(t, repo, blobs, "j1", "abc")
	require.NoError(t, blobs.Delete(context.Background(), key))

	require.NoError(t, svc.Delete(context.Background(), "j1"))
	assert.Empty(t, repo.Snapshot())
}

func TestGenerationService_OpenAsset(t *testing.T) {
	svc, repo, blobs := newTestGenerationService(t)
	seedCompleted(t, repo, blobs, "j1", "0123456789")

	t.Run("full", func(t *testing.T) {
		asset, err := svc.OpenAsset(context.Background(), "j1", nil)
		require.NoError(t, err)
		defer asset.Body.Close()
		body, err := io.ReadAll(asset.Body)
		require.NoError(t, err)
		assert.Equal(t, "0123456789", string(body))
		assert.Equal(t, "audio/mpeg", asset.Info.ContentType)
		assert.Nil(t, asset.Range)
	})

	t.Run("range", func(t *testing.T) {
		asset, err := svc.OpenAsset(context.Background(), "j1", &core.BlobRange{Start: 2, End: 5})
		require.NoError(t, err)
		defer asset.Body.Close()
		body, err := io.ReadAll(asset.Body)
		require.NoError(t, err)
		assert.Equal(t, "2345", string(body))
		assert.EqualValues(t, 10, asset.Info.Size)
		require.NotNil(t, asset.Range)
		assert.EqualValues(t, 4, asset.Range.Length())
	})

	t.Run("stat", func(t *testing.T) {
		info, err := svc.StatAsset(context.Background(), "j1")
		require.NoError(t, err)
		assert.EqualValues(t, 10, info.Size)
	})
}

func TestGenerationService_OpenAssetNotReady(t *testing.T) {
	svc, repo, blobs := newTestGenerationService(t)
	repo.Put(&model.GenerationJob{
		ID: "j1", Kind: model.KindMusic, Status: model.StatusGenerating, ExternalID: "t", GroupID: "g", VariantIndex: 1,
	})
	seedCompleted(t, repo, blobs, "j2", "abc")
	require.NoError(t, blobs.Delete(context.Background(), "generations/music/j2.mp3"))

	tests := []struct {
		name string
		id   string
	}{
		{name: "unknown job", id: "missing"},
		{name: "still generating", id: "j1"},
		{name: "asset gone", id: "j2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.OpenAsset(context.Background(), tt.id, nil)
			require.Error(t, err)
			assert.True(t, apperrors.IsNotFound(err), "got %v", err)
		})
	}
}

func TestGenerationService_DeleteKeepsRowWhenBlobDeleteFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	blobs := mocks.NewMockBlobStore(ctrl)
	repo := fakes.NewMemoryRepository()
	repo.Put(&model.GenerationJob{
		ID: "j1", Kind: model.KindMusic, Status: model.StatusCompleted, GroupID: "g", VariantIndex: 1,
		AssetRef: "generations/music/j1.mp3",
	})
	blobs.EXPECT().Delete(gomock.Any(), "generations/music/j1.mp3").Return(errors.New("access denied"))

	svc, err := NewGenerationService(GenerationServiceOptions{Repo: repo, Blobs: blobs})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), "j1")
	require.Error(t, err)
	assert.Len(t, repo.Snapshot(), 1)
}
