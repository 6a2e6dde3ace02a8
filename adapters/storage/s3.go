package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/Skryldev/image-budget/core"
	apperrors "github.com/Skryldev/image-budget/errors"
)

// S3Client defines the minimal object-store surface used by the adapter, so
// an aws-sdk-go-v2 client (or a MinIO one) can be injected by the caller.
type S3Client interface {
	PutObject(ctx context.Context, bucket, key string, body io.Reader, meta map[string]string) error
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	DeleteObject(ctx context.Context, bucket, key string) error
	HeadObject(ctx context.Context, bucket, key string) (bool, error)
}

// S3 is the StorageAdapter backed by an S3-compatible store.
type S3 struct {
	client S3Client
	bucket string
	prefix string
}

// NewS3 creates an S3 adapter.  Keys without a bucket go to defaultBucket;
// every object path is placed under prefix.
func NewS3(client S3Client, defaultBucket, prefix string) (*S3, error) {
	if client == nil {
		return nil, fmt.Errorf("s3 storage: client must not be nil")
	}
	return &S3{client: client, bucket: defaultBucket, prefix: prefix}, nil
}

func (s *S3) locate(key core.StorageKey) (string, string) {
	bucket := key.Bucket
	if bucket == "" {
		bucket = s.bucket
	}
	return bucket, s.prefix + key.Path
}

func (s *S3) Put(ctx context.Context, key core.StorageKey, r io.Reader, meta map[string]string) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "s3.put", err)
	}
	bucket, path := s.locate(key)
	return apperrors.Wrap(apperrors.CategoryStorage, "s3.put", s.client.PutObject(ctx, bucket, path, r, meta))
}

func (s *S3) Get(ctx context.Context, key core.StorageKey) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "s3.get", err)
	}
	bucket, path := s.locate(key)
	rc, err := s.client.GetObject(ctx, bucket, path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "s3.get", err)
	}
	return rc, nil
}

func (s *S3) Delete(ctx context.Context, key core.StorageKey) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "s3.delete", err)
	}
	bucket, path := s.locate(key)
	return apperrors.Wrap(apperrors.CategoryStorage, "s3.delete", s.client.DeleteObject(ctx, bucket, path))
}

func (s *S3) Exists(ctx context.Context, key core.StorageKey) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, apperrors.Wrap(apperrors.CategoryStorage, "s3.exists", err)
	}
	bucket, path := s.locate(key)
	ok, err := s.client.HeadObject(ctx, bucket, path)
	return ok, apperrors.Wrap(apperrors.CategoryStorage, "s3.exists", err)
}

var _ core.StorageAdapter = (*S3)(nil)
