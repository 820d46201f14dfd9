package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/chartmuseum/storage"

	"github.com/andresuchdata/promo-dispatch/internal/config"
)

// BackendClient implements ObjectStorage on top of a chartmuseum storage backend.
type BackendClient struct {
	backend storage.Backend
}

// NewS3BackendClient builds a BackendClient backed by chartmuseum's Amazon storage backend.
func NewS3BackendClient(cfg config.StorageConfig) (*BackendClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("storage endpoint must be provided")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("storage credentials must be provided")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket must be provided")
	}

	endpoint := cfg.Endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		scheme := "https"
		if !cfg.UseSSL {
			scheme = "http"
		}
		endpoint = fmt.Sprintf("%s://%s", scheme, strings.TrimPrefix(cfg.Endpoint, "//"))
	}

	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	// The AWS SDK behind the backend only reads credentials from the environment.
	os.Setenv("AWS_ACCESS_KEY_ID", cfg.AccessKey)
	os.Setenv("AWS_SECRET_ACCESS_KEY", cfg.SecretKey)
	os.Setenv("AWS_REGION", region)
	os.Setenv("AWS_DEFAULT_REGION", region)

	backend := storage.NewAmazonS3BackendWithOptions(
		cfg.Bucket,
		"", // keys carry their own prefix
		region,
		endpoint,
		"",
		&storage.AmazonS3Options{
			S3ForcePathStyle: boolPtr(true),
		},
	)

	return &BackendClient{backend: backend}, nil
}

// NewLocalBackendClient stores objects as files below dir.
func NewLocalBackendClient(dir string) (*BackendClient, error) {
	if dir == "" {
		return nil, fmt.Errorf("local storage directory must be provided")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed creating storage directory %s: %w", dir, err)
	}
	return &BackendClient{backend: storage.NewLocalFilesystemBackend(dir)}, nil
}

// ListObjects lists all objects for a given prefix. Keys include the prefix.
func (c *BackendClient) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	files, err := c.backend.ListObjects(prefix)
	if err != nil {
		return nil, fmt.Errorf("storage list failed: %w", err)
	}
	// backends return paths relative to prefix
	results := make([]ObjectInfo, 0, len(files))
	for _, object := range files {
		key := object.Path
		if prefix != "" {
			key = path.Join(prefix, key)
		}
		results = append(results, ObjectInfo{
			Key:  key,
			Size: int64(len(object.Content)),
		})
	}
	return results, nil
}

// DownloadObject downloads an object to the provided destination path.
func (c *BackendClient) DownloadObject(ctx context.Context, key, destPath string) error {
	object, err := c.backend.GetObject(key)
	if err != nil {
		return fmt.Errorf("storage download of %s failed: %w", key, err)
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("failed creating directory for %s: %w", destPath, err)
	}
	if err := os.WriteFile(destPath, object.Content, 0o644); err != nil {
		return fmt.Errorf("failed writing %s: %w", destPath, err)
	}
	return nil
}

// UploadObject stores data under key.
func (c *BackendClient) UploadObject(ctx context.Context, key string, data []byte) error {
	if err := c.backend.PutObject(key, data); err != nil {
		return fmt.Errorf("storage upload of %s failed: %w", key, err)
	}
	return nil
}

var _ ObjectStorage = (*BackendClient)(nil)

func boolPtr(v bool) *bool {
	return &v
}
