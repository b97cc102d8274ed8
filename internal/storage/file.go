package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FileBackend implements a storage backend using the local file system
type FileBackend struct {
	baseDir string
	log     *slog.Logger
}

// NewFileBackend creates a new file storage backend, creating baseDir if needed
func NewFileBackend(baseDir string, log *slog.Logger) (*FileBackend, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &FileBackend{baseDir: baseDir, log: log}, nil
}

// Put writes body to baseDir/key, replacing any previous copy
func (b *FileBackend) Put(ctx context.Context, key string, body []byte, contentType string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}

	filePath := filepath.Join(b.baseDir, key)
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, filePath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to move file into place: %w", err)
	}

	b.log.Debug("Archived pass to file",
		slog.String("path", filePath),
		slog.String("content_type", contentType),
		slog.Int("size", len(body)))
	return nil
}

// Get reads an archived pass
func (b *FileBackend) Get(ctx context.Context, key string) ([]byte, error) {
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(b.baseDir, key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// Name returns a unique identifier for this storage backend
func (b *FileBackend) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(b.baseDir))
}
