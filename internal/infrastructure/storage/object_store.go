// Package storage uploads menu item images to S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"canteen/internal/domain"
)

// Config holds object storage connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL is the base under which uploaded objects are served.
	PublicURL string
}

// MinioStore implements domain.ObjectStore.
type MinioStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewMinioStore creates a new object store client.
func NewMinioStore(cfg Config) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create object storage client: %w", err)
	}
	return &MinioStore{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
	}, nil
}

// EnsureBucket creates the bucket when it does not exist.
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}
	return nil
}

// Upload stores data at objectPath and returns its public URL.
func (s *MinioStore) Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, objectPath, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}
	return PublicURL(s.publicURL, s.bucket, objectPath), nil
}

// PublicURL joins the public base, bucket and object path.
func PublicURL(base, bucket, objectPath string) string {
	return strings.TrimRight(base, "/") + "/" + path.Join(bucket, objectPath)
}

// ItemImagePath returns a fresh object path under items/ and the detected
// content type. The extension comes from filename, or from the content when
// filename has none.
func ItemImagePath(filename string, data []byte) (objectPath, contentType string) {
	mt := mimetype.Detect(data)
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if ext == "" {
		ext = strings.TrimPrefix(mt.Extension(), ".")
	}
	name := uuid.NewString()
	if ext != "" {
		name += "." + ext
	}
	return "items/" + name, mt.String()
}
