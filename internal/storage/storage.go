// Package storage archives issued passes to the local file system or S3
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/memalihaider/umttechverse02-sub001/internal/config"
)

// ErrNotFound is returned when an archived object does not exist
var ErrNotFound = errors.New("archived object not found")

// Backend stores and retrieves archived passes by key
type Backend interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Name() string
}

// New creates the backend selected by cfg.Backend. An empty backend
// disables archiving and returns nil.
func New(cfg *config.StorageConfig, log *slog.Logger) (Backend, error) {
	switch strings.ToLower(cfg.Backend) {
	case "":
		return nil, nil
	case "file":
		return NewFileBackend(cfg.FileDir, log)
	case "s3":
		return NewS3Backend(cfg.S3Bucket, cfg.S3Prefix, cfg.S3Region, cfg.S3Endpoint, log)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}

// cleanKey reduces key to a single safe path element
func cleanKey(key string) (string, error) {
	key = path.Base(strings.ReplaceAll(strings.TrimSpace(key), "\\", "/"))
	if key == "" || key == "." || key == "/" || key == ".." {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return key, nil
}
