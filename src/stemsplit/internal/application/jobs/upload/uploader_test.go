package upload_test

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/veedubyou/stemsplitter/src/shared/testing"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/cloud_storage/entity/cloudstoragefakes"
	stemerrors "github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/errors"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/jobs/upload"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/cerr"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/storagepath"
)

var _ = Describe("Uploader", func() {
	var (
		ctx       context.Context
		outputDir string
		stemPaths []string
		fileStore *cloudstoragefakes.FakeFileStore
		uploader  upload.Uploader
	)

	BeforeEach(func() {
		ctx = context.Background()
		dir := ExpectSuccess(os.MkdirTemp("", "upload-test-*"))
		DeferCleanup(os.RemoveAll, dir)

		outputDir = filepath.Join(dir, "stems", "song")
		Expect(os.MkdirAll(outputDir, os.ModePerm)).To(Succeed())

		stemPaths = nil
		for _, name := range []string{"vocals.wav", "drums.wav"} {
			path := filepath.Join(outputDir, name)
			WriteFile(path, name+" contents")
			stemPaths = append(stemPaths, path)
		}

		fileStore = &cloudstoragefakes.FakeFileStore{}
		generator := ExpectSuccess(storagepath.ParseGenerator("gs://stem-bucket/runs/today"))
		uploader = upload.NewUploader(fileStore, generator)
	})

	It("writes every stem under the job's directory name", func() {
		urls := ExpectSuccess(uploader.Upload(ctx, outputDir, stemPaths))

		Expect(urls).To(Equal([]string{
			"gs://stem-bucket/runs/today/song/vocals.wav",
			"gs://stem-bucket/runs/today/song/drums.wav",
		}))

		Expect(fileStore.WriteFileCallCount()).To(Equal(2))
		_, url, data := fileStore.WriteFileArgsForCall(0)
		Expect(url).To(Equal("gs://stem-bucket/runs/today/song/vocals.wav"))
		Expect(string(data)).To(Equal("vocals.wav contents"))
	})

	It("stops at the first failed write", func() {
		fileStore.WriteFileReturnsOnCall(0, cerr.Error("bucket is gone"))

		_, err := uploader.Upload(ctx, outputDir, stemPaths)
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, stemerrors.IOMark)).To(BeTrue())
		Expect(fileStore.WriteFileCallCount()).To(Equal(1))
	})

	It("does not write once the context is cancelled", func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := uploader.Upload(cancelled, outputDir, stemPaths)
		Expect(err).To(HaveOccurred())
		Expect(fileStore.WriteFileCallCount()).To(BeZero())
	})
})
