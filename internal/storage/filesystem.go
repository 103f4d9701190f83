// Package storage provides the durable blob stores materialized assets are written to.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/target/mmk-genstudio/internal/core"
	"github.com/target/mmk-genstudio/internal/util"
)

// FileStore persists blobs on the local filesystem. Writes go to a temp file
// in the target directory and are renamed into place, so readers never see a
// partial object.
type FileStore struct {
	basePath string
}

var _ core.BlobStore = (*FileStore)(nil)

// NewFileStore initializes a FileStore rooted at basePath.
func NewFileStore(basePath string) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

// BasePath returns the configured root directory.
func (s *FileStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.basePath
}

func (s *FileStore) path(key string) (string, string, error) {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", "", err
	}
	return cleanKey, filepath.Join(s.basePath, filepath.FromSlash(cleanKey)), nil
}

// Put writes body under key, replacing any existing object.
func (s *FileStore) Put(ctx context.Context, key string, body io.Reader, opts core.BlobPutOptions) (core.BlobInfo, error) {
	if err := ctx.Err(); err != nil {
		return core.BlobInfo{}, err
	}
	cleanKey, fullPath, err := s.path(key)
	if err != nil {
		return core.BlobInfo{}, err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return core.BlobInfo{}, fmt.Errorf("storage: ensure directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".upload-*")
	if err != nil {
		return core.BlobInfo{}, fmt.Errorf("storage: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	n, err := io.Copy(tmp, ctxReader{ctx: ctx, r: body})
	if err != nil {
		return core.BlobInfo{}, fmt.Errorf("storage: write file: %w", err)
	}
	if opts.Size > 0 && n != opts.Size {
		return core.BlobInfo{}, fmt.Errorf("storage: short write: got %d bytes, expected %d", n, opts.Size)
	}
	if err := tmp.Sync(); err != nil {
		return core.BlobInfo{}, fmt.Errorf("storage: sync file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return core.BlobInfo{}, fmt.Errorf("storage: close file: %w", err)
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		return core.BlobInfo{}, fmt.Errorf("storage: commit file: %w", err)
	}
	committed = true

	contentType := opts.ContentType
	if contentType == "" {
		contentType = contentTypeFor(cleanKey)
	}
	return core.BlobInfo{Key: cleanKey, ContentType: contentType, Size: n}, nil
}

// Get opens the whole object.
func (s *FileStore) Get(ctx context.Context, key string) (io.ReadCloser, core.BlobInfo, error) {
	f, info, err := s.open(ctx, key)
	if err != nil {
		return nil, core.BlobInfo{}, err
	}
	return f, info, nil
}

// GetRange opens the object positioned at r.Start, limited to r.Length() bytes.
func (s *FileStore) GetRange(ctx context.Context, key string, r core.BlobRange) (io.ReadCloser, core.BlobInfo, error) {
	f, info, err := s.open(ctx, key)
	if err != nil {
		return nil, core.BlobInfo{}, err
	}
	if r.Start < 0 || r.End < r.Start || r.End >= info.Size {
		_ = f.Close()
		return nil, core.BlobInfo{}, ErrRangeNotSatisfiable
	}
	if _, err := f.Seek(r.Start, io.SeekStart); err != nil {
		_ = f.Close()
		return nil, core.BlobInfo{}, fmt.Errorf("storage: seek: %w", err)
	}
	return readCloser{Reader: io.LimitReader(f, r.Length()), Closer: f}, info, nil
}

// Stat returns object metadata.
func (s *FileStore) Stat(ctx context.Context, key string) (core.BlobInfo, error) {
	if err := ctx.Err(); err != nil {
		return core.BlobInfo{}, err
	}
	cleanKey, fullPath, err := s.path(key)
	if err != nil {
		return core.BlobInfo{}, err
	}
	fi, err := os.Stat(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return core.BlobInfo{}, core.ErrBlobNotFound
		}
		return core.BlobInfo{}, fmt.Errorf("storage: stat: %w", err)
	}
	return core.BlobInfo{Key: cleanKey, ContentType: contentTypeFor(cleanKey), Size: fi.Size()}, nil
}

// Delete removes the object. Deleting a missing key is not an error.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, fullPath, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: delete: %w", err)
	}
	return nil
}

func (s *FileStore) open(ctx context.Context, key string) (*os.File, core.BlobInfo, error) {
	info, err := s.Stat(ctx, key)
	if err != nil {
		return nil, core.BlobInfo{}, err
	}
	_, fullPath, _ := s.path(key)
	f, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, core.BlobInfo{}, core.ErrBlobNotFound
		}
		return nil, core.BlobInfo{}, fmt.Errorf("storage: open: %w", err)
	}
	return f, info, nil
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.ToSlash(filepath.Clean(key))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}

func contentTypeFor(key string) string {
	if ct := util.ContentTypeForPath(key); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

type readCloser struct {
	io.Reader
	io.Closer
}

// ctxReader stops a long copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
