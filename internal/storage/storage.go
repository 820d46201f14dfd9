package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/andresuchdata/promo-dispatch/internal/config"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Storage drivers selectable through STORAGE_DRIVER.
const (
	DriverMinio = "minio"
	DriverS3    = "s3"
	DriverLocal = "local"
)

// ObjectInfo represents metadata for a remote file/object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// ObjectStorage captures the minimal S3-compatible operations report archiving needs.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	DownloadObject(ctx context.Context, key string, destPath string) error
	UploadObject(ctx context.Context, key string, data []byte) error
}

// New builds the configured storage driver.
func New(cfg config.StorageConfig) (ObjectStorage, error) {
	var (
		store ObjectStorage
		err   error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverMinio:
		var c *MinioClient
		c, err = NewMinioClient(cfg)
		store = c
	case DriverS3:
		var c *BackendClient
		c, err = NewS3BackendClient(cfg)
		store = c
	case DriverLocal:
		var c *BackendClient
		c, err = NewLocalBackendClient(cfg.LocalDir)
		store = c
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

// ReportArchiver uploads generated reports under a fixed key prefix.
type ReportArchiver struct {
	store  ObjectStorage
	prefix string
}

func NewReportArchiver(store ObjectStorage, prefix string) *ReportArchiver {
	return &ReportArchiver{store: store, prefix: strings.Trim(prefix, "/")}
}

// Key returns the object key a report file name is stored under.
func (a *ReportArchiver) Key(fileName string) string {
	if a.prefix == "" {
		return fileName
	}
	return path.Join(a.prefix, fileName)
}

// Archive uploads the report bytes and returns the object key.
func (a *ReportArchiver) Archive(ctx context.Context, fileName string, report *bytes.Buffer) (string, error) {
	key := a.Key(fileName)
	if err := a.store.UploadObject(ctx, key, report.Bytes()); err != nil {
		return "", fmt.Errorf("failed to archive report %s: %w", key, err)
	}
	return key, nil
}

// List returns the archived reports.
func (a *ReportArchiver) List(ctx context.Context) ([]ObjectInfo, error) {
	return a.store.ListObjects(ctx, a.prefix)
}
