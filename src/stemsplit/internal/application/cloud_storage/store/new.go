package store

import (
	"context"

	"github.com/veedubyou/stemsplitter/src/shared/config"
	cloudstorage "github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/cloud_storage/entity"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/cerr"
	"google.golang.org/api/option"
)

func NewFileStore(ctx context.Context, storageConfig config.CloudStorage) (cloudstorage.FileStore, error) {
	switch t := storageConfig.(type) {
	case config.GoogleCloudStorage:
		if t.SecretKey == "" {
			return NewGoogleFileStore(ctx)
		}
		return NewGoogleFileStore(ctx, option.WithCredentialsJSON([]byte(t.SecretKey)))

	case config.S3CloudStorage:
		return NewS3FileStore(t.Endpoint, t.AccessKey, t.SecretKey, t.Region, !t.Insecure)

	default:
		return nil, cerr.Field("scheme", storageConfig.GetScheme()).
			Error("Unrecognized cloud storage config")
	}
}
