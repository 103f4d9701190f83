package core

import (
	"context"
	"errors"
	"io"
)

// ErrBlobNotFound is returned when a blob key does not exist.
var ErrBlobNotFound = errors.New("blob not found")

// ErrBlobWrite marks failures persisting an asset into the blob store.
var ErrBlobWrite = errors.New("blob write failed")

// BlobInfo describes a stored object.
type BlobInfo struct {
	Key         string
	ContentType string
	Size        int64
}

// BlobRange is an inclusive byte range within an object.
type BlobRange struct {
	Start int64
	End   int64
}

// Length returns the number of bytes covered by the range.
func (r BlobRange) Length() int64 {
	return r.End - r.Start + 1
}

// BlobPutOptions carries metadata for a write.
type BlobPutOptions struct {
	ContentType string
	// Size is -1 when unknown.
	Size int64
}

// BlobStore is durable storage for materialized assets.
type BlobStore interface {
	Put(ctx context.Context, key string, body io.Reader, opts BlobPutOptions) (BlobInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, BlobInfo, error)
	// GetRange streams the bytes in r; BlobInfo.Size is the full object size.
	GetRange(ctx context.Context, key string, r BlobRange) (io.ReadCloser, BlobInfo, error)
	Stat(ctx context.Context, key string) (BlobInfo, error)
	Delete(ctx context.Context, key string) error
}
