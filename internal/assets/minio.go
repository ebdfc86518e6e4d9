package assets

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config holds MinIO connection settings.
type Config struct {
	Endpoint        string // e.g. "minio:9000" or "localhost:9000"
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	PublicURL       string // Base for object URLs; defaults to the endpoint
}

// MinioStore wraps MinIO and provides project-scoped object storage.
type MinioStore struct {
	mc      *minio.Client
	baseURL string
	enabled bool
}

// NewMinioStore creates a storage client. If cfg has an empty Endpoint the store
// is disabled and every operation returns ErrDisabled.
func NewMinioStore(cfg Config) (*MinioStore, error) {
	if cfg.Endpoint == "" {
		return &MinioStore{enabled: false}, nil
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	base := cfg.PublicURL
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = scheme + "://" + cfg.Endpoint
	}
	return &MinioStore{mc: mc, baseURL: base, enabled: true}, nil
}

// Enabled reports whether the store is configured.
func (s *MinioStore) Enabled() bool {
	return s.enabled
}

// EnsureBucket creates the project bucket if it does not exist (idempotent).
func (s *MinioStore) EnsureBucket(ctx context.Context, projectID string) error {
	if !s.enabled {
		return ErrDisabled
	}
	bucket := BucketForProject(projectID)
	exists, err := s.mc.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.mc.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	return nil
}

func (s *MinioStore) Put(ctx context.Context, projectID, key string, r io.Reader, size int64, contentType string) (string, error) {
	if !s.enabled {
		return "", ErrDisabled
	}
	if err := s.EnsureBucket(ctx, projectID); err != nil {
		return "", err
	}
	bucket := BucketForProject(projectID)
	if _, err := s.mc.PutObject(ctx, bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return "", fmt.Errorf("failed to upload %s/%s: %w", bucket, key, err)
	}
	return s.URL(projectID, key), nil
}

func (s *MinioStore) Delete(ctx context.Context, projectID, key string) error {
	if !s.enabled {
		return ErrDisabled
	}
	bucket := BucketForProject(projectID)
	if err := s.mc.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (s *MinioStore) URL(projectID, key string) string {
	u, err := url.JoinPath(s.baseURL, BucketForProject(projectID), key)
	if err != nil {
		return s.baseURL + "/" + BucketForProject(projectID) + "/" + key
	}
	return u
}
