package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	gcstorage "cloud.google.com/go/storage"
	"github.com/construehq/construe/internal/config"
	"github.com/construehq/construe/internal/lifecycle"
	"google.golang.org/api/googleapi"
)

// gcs implements System against a Google Cloud Storage bucket. Writes
// carry a DoesNotExist precondition so a retried upload of the same key
// is idempotent rather than an overwrite.
type gcs struct {
	client *gcstorage.Client
	bucket *gcstorage.BucketHandle
	name   string
	logger *slog.Logger
}

func newGCS(ctx context.Context, cfg *config.StorageConfig, logger *slog.Logger) (System, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket required")
	}

	client, err := gcstorage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}

	return &gcs{
		client: client,
		bucket: client.Bucket(cfg.Bucket),
		name:   cfg.Bucket,
		logger: logger.With("system", "storage", "backend", "gcs"),
	}, nil
}

func (g *gcs) Start(lc *lifecycle.Coordinator) error {
	g.logger.Info("starting storage system", "bucket", g.name)

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		if err := g.client.Close(); err != nil {
			g.logger.Error("gcs client close failed", "error", err)
		}
	})

	return nil
}

func (g *gcs) Upload(ctx context.Context, data []byte, filename, contentType string) (*Object, error) {
	key := buildKey(filename)

	writer := g.bucket.Object(key).If(gcstorage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		writer.Close()
		if !alreadyExists(err) {
			return nil, fmt.Errorf("write object: %w", err)
		}
	} else if err := writer.Close(); err != nil && !alreadyExists(err) {
		return nil, fmt.Errorf("finalize object: %w", err)
	}

	g.logger.Info("object stored", "key", key, "size", len(data), "content_type", contentType)
	return &Object{
		Key: key,
		URL: fmt.Sprintf("https://storage.googleapis.com/%s/%s", g.name, key),
	}, nil
}

func (g *gcs) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalidKey
	}

	if err := g.bucket.Object(key).Delete(ctx); err != nil {
		if errors.Is(err, gcstorage.ErrObjectNotExist) {
			return nil
		}
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// alreadyExists reports whether a write failed only because the object
// is already present (precondition 412).
func alreadyExists(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == 412
}
