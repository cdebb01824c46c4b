package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	gcs "cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/garyjia/invoice-insights/internal/application/port"
)

// GCSConfig holds Google Cloud Storage settings
type GCSConfig struct {
	Bucket string
	// CredentialsJSON is a service account key; empty uses Application
	// Default Credentials.
	CredentialsJSON string
}

// GCSStorage implements port.ObjectStorage on a Google Cloud Storage bucket
type GCSStorage struct {
	client *gcs.Client
	bucket string
	logger *zap.Logger
}

// NewGCSStorage connects to the bucket and checks it is accessible
func NewGCSStorage(ctx context.Context, cfg GCSConfig, logger *zap.Logger) (*GCSStorage, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("gcs bucket is required")
	}

	var opts []option.ClientOption
	if strings.TrimSpace(cfg.CredentialsJSON) != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs client: %w", err)
	}

	if _, err := client.Bucket(cfg.Bucket).Attrs(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("gcs bucket %q not found or not accessible: %w", cfg.Bucket, err)
	}

	logger.Info("Connected to GCS bucket", zap.String("bucket", cfg.Bucket))
	return &GCSStorage{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

// Upload writes content to the object named key and returns its gs:// URI
func (s *GCSStorage) Upload(ctx context.Context, key string, content []byte, contentType string) (string, error) {
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(content); err != nil {
		_ = w.Close()
		s.logger.Error("Failed to write GCS object", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	if err := w.Close(); err != nil {
		s.logger.Error("Failed to finalize GCS object", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("failed to finalize object: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", s.bucket, key), nil
}

// Read downloads the object named key
func (s *GCSStorage) Read(ctx context.Context, key string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open object: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return data, nil
}

// Delete removes the object named key. Missing objects are not an error.
func (s *GCSStorage) Delete(ctx context.Context, key string) error {
	err := s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// Close releases the client
func (s *GCSStorage) Close() error {
	return s.client.Close()
}

var _ port.ObjectStorage = (*GCSStorage)(nil)
