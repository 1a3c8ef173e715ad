package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jsonstash/jsonstash/internal/document"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOStorage is a thin wrapper around the minio client. It doubles as a
// document mirror: every stored document is uploaded as "<key>.json".
type MinIOStorage struct {
	client *minio.Client
	bucket string
}

// NewMinIOStorage creates a new MinIO storage client and ensures the bucket exists.
func NewMinIOStorage(ctx context.Context, cfg *MinIOConfig) (*MinIOStorage, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("minio config missing")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	s := &MinIOStorage{client: mc, bucket: cfg.Bucket}
	// ensure bucket exists (idempotent)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
		// ignore "already exists" style errors
		exist, xerr := mc.BucketExists(ctx, s.bucket)
		if xerr != nil || !exist {
			return nil, fmt.Errorf("minio bucket ensure: %w", err)
		}
	}
	return s, nil
}

// UploadFile uploads data from reader to the configured bucket using the provided key.
func (s *MinIOStorage) UploadFile(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{ContentType: contentType})
	return err
}

// RemoveFile deletes the object; removing a missing object is not an error.
func (s *MinIOStorage) RemoveFile(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

func (s *MinIOStorage) Name() string { return "minio" }

func (s *MinIOStorage) Put(ctx context.Context, e *document.Entry) error {
	return s.UploadFile(ctx, ObjectName(e.Key), bytes.NewReader(e.Body), int64(len(e.Body)), "application/json")
}

func (s *MinIOStorage) Delete(ctx context.Context, key string) error {
	return s.RemoveFile(ctx, ObjectName(key))
}
