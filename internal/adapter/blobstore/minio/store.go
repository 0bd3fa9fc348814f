// Package minio implements the blob store port for generated documents.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/merakitalent/fernando-format/internal/config"
)

// Store uploads generated documents and mints presigned download URLs.
// Implements domain.BlobStore.
type Store struct {
	client *minio.Client
	bucket string
}

// New constructs a Store and ensures the output bucket exists.
func New(ctx context.Context, cfg config.Config) (*Store, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	s := &Store{client: client, bucket: cfg.MinioBucket}
	exists, err := client.BucketExists(ctx, s.bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", s.bucket, err)
		}
	}
	return s, nil
}

// Upload stores the document and returns its object key as the handle.
func (s *Store) Upload(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	return name, nil
}

// SignURL mints a time-boxed presigned GET URL for a previously uploaded
// object.
func (s *Store) SignURL(ctx context.Context, handle string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, handle, ttl, nil)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", handle, err)
	}
	return u.String(), nil
}
