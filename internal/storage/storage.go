package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/construehq/construe/internal/config"
	"github.com/construehq/construe/internal/lifecycle"
	"github.com/google/uuid"
)

// Object describes a stored document: the backend key it lives under and
// the URL at which external collaborators can retrieve it.
type Object struct {
	Key string
	URL string
}

// System defines the object storage operations interface.
// Implementations handle the underlying store (filesystem, GCS) while
// providing a consistent API for persisting uploaded documents.
type System interface {
	// Upload stores data under a key derived from filename and returns
	// the stored object. Keys are unique per call; uploading the same
	// filename twice stores two objects.
	Upload(ctx context.Context, data []byte, filename, contentType string) (*Object, error)

	// Delete removes the object at the specified key. Deleting a key
	// that does not exist is a no-op.
	Delete(ctx context.Context, key string) error

	// Start registers lifecycle hooks with the coordinator.
	Start(lc *lifecycle.Coordinator) error
}

// New creates the storage system selected by configuration.
func New(ctx context.Context, cfg *config.StorageConfig, logger *slog.Logger) (System, error) {
	switch cfg.Backend {
	case config.StorageBackendFilesystem:
		return newFilesystem(cfg, logger)
	case config.StorageBackendGCS:
		return newGCS(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}

// buildKey produces a unique storage key for an upload, namespaced by a
// generated id so identical filenames never collide.
func buildKey(filename string) string {
	return fmt.Sprintf("documents/%s/%s", uuid.New().String(), sanitizeFilename(filename))
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	replacer := strings.NewReplacer(
		" ", "_",
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return replacer.Replace(name)
}
