package store

import (
	"bytes"
	"context"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	cloudstorage "github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/cloud_storage/entity"
	stemerrors "github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/errors"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/cerr"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/storagepath"
)

var _ cloudstorage.FileStore = S3FileStore{}

// S3FileStore writes to any S3 compatible endpoint, minio included.
type S3FileStore struct {
	client *minio.Client
}

func NewS3FileStore(endpoint string, accessKey string, secretKey string, region string, secure bool) (S3FileStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
		Region: region,
	})
	if err != nil {
		return S3FileStore{}, cerr.Field("endpoint", endpoint).
			Wrap(err).Error("Failed to create S3 client")
	}

	return S3FileStore{client: client}, nil
}

func (s S3FileStore) WriteFile(ctx context.Context, fileURL string, data []byte) error {
	errctx := cerr.Field("file_url", fileURL).Mark(stemerrors.IOMark)

	bucket, key, err := storagepath.SplitURL(fileURL)
	if err != nil {
		return errctx.Wrap(err).Error("Failed to parse file URL")
	}

	_, err = s.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: wavContentType,
	})
	if err != nil {
		return errctx.Wrap(err).Error("Failed to put object")
	}

	return nil
}
