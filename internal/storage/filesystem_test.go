package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-genstudio/internal/core"
)

func TestFileStore_PutGetRangeDelete(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	info, err := store.Put(ctx, "generations/music/job-1.mp3", strings.NewReader("0123456789"), core.BlobPutOptions{Size: 10})
	require.NoError(t, err)
	assert.Equal(t, "generations/music/job-1.mp3", info.Key)
	assert.Equal(t, int64(10), info.Size)
	assert.Equal(t, "audio/mpeg", info.ContentType)

	rc, got, err := store.Get(ctx, info.Key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(data))
	assert.Equal(t, int64(10), got.Size)

	rc, got, err = store.GetRange(ctx, info.Key, core.BlobRange{Start: 2, End: 5})
	require.NoError(t, err)
	data, err = io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "2345", string(data))
	assert.Equal(t, int64(10), got.Size)

	_, _, err = store.GetRange(ctx, info.Key, core.BlobRange{Start: 5, End: 10})
	require.ErrorIs(t, err, ErrRangeNotSatisfiable)

	require.NoError(t, store.Delete(ctx, info.Key))
	_, err = store.Stat(ctx, info.Key)
	require.ErrorIs(t, err, core.ErrBlobNotFound)
	require.NoError(t, store.Delete(ctx, info.Key), "deleting a missing key is a no-op")
}

func TestFileStore_OverwriteIsDeterministic(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := NewFileStore(root)
	require.NoError(t, err)

	_, err = store.Put(ctx, "a/b.png", strings.NewReader("first"), core.BlobPutOptions{Size: -1})
	require.NoError(t, err)
	_, err = store.Put(ctx, "a/b.png", strings.NewReader("second"), core.BlobPutOptions{Size: -1})
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(root, "a"))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not linger")

	data, err := os.ReadFile(filepath.Join(root, "a", "b.png"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestFileStore_ShortWriteLeavesNothing(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := NewFileStore(root)
	require.NoError(t, err)

	_, err = store.Put(ctx, "x/y.mp4", strings.NewReader("abc"), core.BlobPutOptions{Size: 10})
	require.Error(t, err)
	_, err = store.Stat(ctx, "x/y.mp4")
	require.ErrorIs(t, err, core.ErrBlobNotFound)
}

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "a/b.mp3", want: "a/b.mp3"},
		{in: "/a//b.mp3", want: "a/b.mp3"},
		{in: `a\b.mp3`, want: "a/b.mp3"},
		{in: "./a/./b", want: "a/b"},
		{in: "../etc/passwd", wantErr: true},
		{in: "a/../../x", wantErr: true},
		{in: "  ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := sanitizeKey(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
