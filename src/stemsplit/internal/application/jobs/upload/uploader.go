package upload

import (
	"context"
	"os"
	"path/filepath"

	"github.com/apex/log"
	cloudstorage "github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/cloud_storage/entity"
	stemerrors "github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/errors"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/cerr"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/storagepath"
)

func NewUploader(fileStore cloudstorage.FileStore, pathGenerator storagepath.Generator) Uploader {
	return Uploader{
		fileStore:     fileStore,
		pathGenerator: pathGenerator,
	}
}

// Uploader copies a job's finished stems to remote storage. The local stems
// stay where they are.
type Uploader struct {
	fileStore     cloudstorage.FileStore
	pathGenerator storagepath.Generator
}

// Upload returns the remote URLs in the same order as stemPaths.
func (u Uploader) Upload(ctx context.Context, outputDir string, stemPaths []string) ([]string, error) {
	jobDirName := filepath.Base(outputDir)
	urls := make([]string, 0, len(stemPaths))

	for _, stemPath := range stemPaths {
		errctx := cerr.Field("stem_path", stemPath).Mark(stemerrors.IOMark)

		if ctx.Err() != nil {
			return nil, errctx.Wrap(ctx.Err()).Error("Context cancelled during upload")
		}

		fileContent, err := os.ReadFile(stemPath)
		if err != nil {
			return nil, errctx.Wrap(err).Error("Failed to read stem for upload")
		}

		destinationURL := u.pathGenerator.GeneratePath(jobDirName, filepath.Base(stemPath))

		log.WithField("destination", destinationURL).Debug("Writing stem to remote file store")
		if err := u.fileStore.WriteFile(ctx, destinationURL, fileContent); err != nil {
			return nil, errctx.Field("destination", destinationURL).
				Wrap(err).Error("Failed to write stem to remote file store")
		}

		urls = append(urls, destinationURL)
	}

	return urls, nil
}
