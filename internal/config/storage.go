package config

import (
	"fmt"
	"os"

	"github.com/docker/go-units"
)

// Environment overrides for storage configuration.
const (
	EnvStorageBackend       = "STORAGE_BACKEND"
	EnvStorageBasePath      = "STORAGE_BASE_PATH"
	EnvStoragePublicBaseURL = "STORAGE_PUBLIC_BASE_URL"
	EnvStorageBucket        = "STORAGE_BUCKET"
	EnvStorageMaxUploadSize = "STORAGE_MAX_UPLOAD_SIZE"
)

// Storage backend identifiers.
const (
	StorageBackendFilesystem = "filesystem"
	StorageBackendGCS        = "gcs"
)

// StorageConfig contains object storage configuration.
type StorageConfig struct {
	// Backend selects the object store implementation: filesystem or gcs.
	Backend string `toml:"backend"`

	// BasePath is the root directory for filesystem storage.
	// Default: ".data/blobs"
	BasePath string `toml:"base_path"`

	// PublicBaseURL is the URL prefix under which stored objects are
	// retrievable by the analysis service.
	PublicBaseURL string `toml:"public_base_url"`

	// Bucket is the GCS bucket name; required for the gcs backend.
	Bucket string `toml:"bucket"`

	MaxUploadSize    string `toml:"max_upload_size"`
	maxUploadSizeVal int64
}

// MaxUploadSizeBytes returns the parsed upload limit in bytes.
func (c *StorageConfig) MaxUploadSizeBytes() int64 {
	return c.maxUploadSizeVal
}

// Finalize applies defaults, loads environment overrides, and validates the storage configuration.
func (c *StorageConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *StorageConfig) Merge(overlay *StorageConfig) {
	if overlay.Backend != "" {
		c.Backend = overlay.Backend
	}
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.PublicBaseURL != "" {
		c.PublicBaseURL = overlay.PublicBaseURL
	}
	if overlay.Bucket != "" {
		c.Bucket = overlay.Bucket
	}
	if size, err := units.FromHumanSize(overlay.MaxUploadSize); err == nil {
		c.MaxUploadSize = overlay.MaxUploadSize
		c.maxUploadSizeVal = size
	}
}

func (c *StorageConfig) loadDefaults() {
	if c.Backend == "" {
		c.Backend = StorageBackendFilesystem
	}
	if c.BasePath == "" {
		c.BasePath = ".data/blobs"
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = "100MB"
	}
}

func (c *StorageConfig) loadEnv() {
	if v := os.Getenv(EnvStorageBackend); v != "" {
		c.Backend = v
	}
	if v := os.Getenv(EnvStorageBasePath); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv(EnvStoragePublicBaseURL); v != "" {
		c.PublicBaseURL = v
	}
	if v := os.Getenv(EnvStorageBucket); v != "" {
		c.Bucket = v
	}
	if v := os.Getenv(EnvStorageMaxUploadSize); v != "" {
		c.MaxUploadSize = v
	}
}

func (c *StorageConfig) validate() error {
	switch c.Backend {
	case StorageBackendFilesystem:
		if c.BasePath == "" {
			return fmt.Errorf("base_path required for filesystem backend")
		}
	case StorageBackendGCS:
		if c.Bucket == "" {
			return fmt.Errorf("bucket required for gcs backend")
		}
	default:
		return fmt.Errorf("invalid backend: %s (must be filesystem or gcs)", c.Backend)
	}

	size, err := units.FromHumanSize(c.MaxUploadSize)
	if err != nil {
		return fmt.Errorf("invalid max_upload_size: %w", err)
	}
	if size <= 0 {
		return fmt.Errorf("max_upload_size must be positive")
	}
	c.maxUploadSizeVal = size

	return nil
}
