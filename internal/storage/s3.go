package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/target/mmk-genstudio/config"
	"github.com/target/mmk-genstudio/internal/core"
)

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	manager.UploadAPIClient
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store persists blobs in an S3-compatible bucket. Uploads go through the
// transfer manager so bodies of unknown length stream in parts.
type S3Store struct {
	client   S3API
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

var _ core.BlobStore = (*S3Store)(nil)

// NewS3Store wraps an existing client.
func NewS3Store(client S3API, bucket, prefix string) (*S3Store, error) {
	if client == nil {
		return nil, errors.New("storage: s3 client is required")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("storage: s3 bucket is required")
	}
	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
	}, nil
}

// NewS3StoreFromConfig loads AWS credentials from the default chain and
// builds a store for cfg.
func NewS3StoreFromConfig(ctx context.Context, cfg config.StorageConfig) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3Region))
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.S3UsePathStyle
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
	})
	return NewS3Store(client, cfg.S3Bucket, cfg.S3Prefix)
}

func (s *S3Store) objectKey(key string) (string, string, error) {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", "", err
	}
	if s.prefix == "" {
		return cleanKey, cleanKey, nil
	}
	return cleanKey, s.prefix + "/" + cleanKey, nil
}

// Put uploads body under key.
func (s *S3Store) Put(ctx context.Context, key string, body io.Reader, opts core.BlobPutOptions) (core.BlobInfo, error) {
	cleanKey, objectKey, err := s.objectKey(key)
	if err != nil {
		return core.BlobInfo{}, err
	}
	contentType := opts.ContentType
	if contentType == "" {
		contentType = contentTypeFor(cleanKey)
	}
	counter := &countingReader{r: body}
	if _, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        counter,
		ContentType: aws.String(contentType),
	}); err != nil {
		return core.BlobInfo{}, fmt.Errorf("storage: s3 upload %s: %w", objectKey, err)
	}
	if opts.Size > 0 && counter.n != opts.Size {
		return core.BlobInfo{}, fmt.Errorf("storage: short upload: got %d bytes, expected %d", counter.n, opts.Size)
	}
	return core.BlobInfo{Key: cleanKey, ContentType: contentType, Size: counter.n}, nil
}

// Get opens the whole object.
func (s *S3Store) Get(ctx context.Context, key string) (io.ReadCloser, core.BlobInfo, error) {
	cleanKey, objectKey, err := s.objectKey(key)
	if err != nil {
		return nil, core.BlobInfo{}, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return nil, core.BlobInfo{}, mapS3Error("get", objectKey, err)
	}
	return out.Body, core.BlobInfo{
		Key:         cleanKey,
		ContentType: aws.ToString(out.ContentType),
		Size:        aws.ToInt64(out.ContentLength),
	}, nil
}

// GetRange fetches the inclusive byte range r. BlobInfo.Size is the full object size.
func (s *S3Store) GetRange(ctx context.Context, key string, r core.BlobRange) (io.ReadCloser, core.BlobInfo, error) {
	cleanKey, objectKey, err := s.objectKey(key)
	if err != nil {
		return nil, core.BlobInfo{}, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", r.Start, r.End)),
	})
	if err != nil {
		return nil, core.BlobInfo{}, mapS3Error("get range", objectKey, err)
	}
	size := totalFromContentRange(aws.ToString(out.ContentRange))
	if size < 0 {
		size = aws.ToInt64(out.ContentLength)
	}
	return out.Body, core.BlobInfo{Key: cleanKey, ContentType: aws.ToString(out.ContentType), Size: size}, nil
}

// Stat returns object metadata.
func (s *S3Store) Stat(ctx context.Context, key string) (core.BlobInfo, error) {
	cleanKey, objectKey, err := s.objectKey(key)
	if err != nil {
		return core.BlobInfo{}, err
	}
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return core.BlobInfo{}, mapS3Error("head", objectKey, err)
	}
	return core.BlobInfo{
		Key:         cleanKey,
		ContentType: aws.ToString(out.ContentType),
		Size:        aws.ToInt64(out.ContentLength),
	}, nil
}

// Delete removes the object. S3 treats deleting a missing key as success.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, objectKey, err := s.objectKey(key)
	if err != nil {
		return err
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	}); err != nil {
		return mapS3Error("delete", objectKey, err)
	}
	return nil
}

func mapS3Error(op, key string, err error) error {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return core.ErrBlobNotFound
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return core.ErrBlobNotFound
		case "InvalidRange":
			return ErrRangeNotSatisfiable
		}
	}
	return fmt.Errorf("storage: s3 %s %s: %w", op, key, err)
}

// totalFromContentRange extracts the size from "bytes 0-9/100"; -1 when unknown.
func totalFromContentRange(v string) int64 {
	_, total, ok := strings.Cut(v, "/")
	if !ok || total == "*" {
		return -1
	}
	n, err := strconv.ParseInt(total, 10, 64)
	if err != nil {
		return -1
	}
	return n
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
