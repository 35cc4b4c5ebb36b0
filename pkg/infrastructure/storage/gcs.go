package storage

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"

	shared "github.com/fitsocial/fitsocial-server/pkg"
)

// StorageAdapter writes objects in Google Cloud Storage
type StorageAdapter struct {
	Client *storage.Client
}

var _ shared.BlobStore = (*StorageAdapter)(nil)

func (a *StorageAdapter) Write(ctx context.Context, bucket, object string, data []byte) error {
	w := a.Client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write gs://%s/%s: %w", bucket, object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close gs://%s/%s: %w", bucket, object, err)
	}
	return nil
}
