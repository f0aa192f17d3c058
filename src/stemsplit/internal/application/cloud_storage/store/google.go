package store

import (
	"context"

	"cloud.google.com/go/storage"
	cloudstorage "github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/cloud_storage/entity"
	stemerrors "github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/errors"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/cerr"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/storagepath"
	"google.golang.org/api/option"
)

const wavContentType = "audio/wav"

var _ cloudstorage.FileStore = GoogleFileStore{}

type GoogleFileStore struct {
	client *storage.Client
}

func NewGoogleFileStore(ctx context.Context, options ...option.ClientOption) (GoogleFileStore, error) {
	client, err := storage.NewClient(ctx, options...)
	if err != nil {
		return GoogleFileStore{}, cerr.Wrap(err).Error("Failed to create cloud storage client")
	}

	return GoogleFileStore{client: client}, nil
}

func (g GoogleFileStore) WriteFile(ctx context.Context, fileURL string, data []byte) error {
	errctx := cerr.Field("file_url", fileURL).Mark(stemerrors.IOMark)

	bucket, key, err := storagepath.SplitURL(fileURL)
	if err != nil {
		return errctx.Wrap(err).Error("Failed to parse file URL")
	}

	writer := g.client.Bucket(bucket).Object(key).NewWriter(ctx)
	writer.ContentType = wavContentType

	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return errctx.Wrap(err).Error("Failed to write file contents to cloud storage")
	}

	if err := writer.Close(); err != nil {
		return errctx.Wrap(err).Error("Failed to finalize cloud storage object")
	}

	return nil
}
