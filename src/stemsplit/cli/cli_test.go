package cli_test

import (
	"bytes"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/pflag"
	"github.com/veedubyou/stemsplitter/src/shared/config"
	. "github.com/veedubyou/stemsplitter/src/shared/testing"
	"github.com/veedubyou/stemsplitter/src/stemsplit/cli"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/device"
	stemerrors "github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/errors"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/separation"
)

var _ = Describe("Parse", func() {
	var usage *bytes.Buffer

	BeforeEach(func() {
		usage = &bytes.Buffer{}
	})

	It("defaults to a single file on the balanced model and auto device", func() {
		options := ExpectSuccess(cli.Parse([]string{"track.mp3"}, usage))

		Expect(options.App.InputPath).To(Equal("track.mp3"))
		Expect(options.App.Batch).To(BeFalse())
		Expect(options.App.Model).To(Equal(separation.Balanced))
		Expect(options.App.Device).To(Equal(device.RequestAuto))
		Expect(options.App.Timeout).To(BeZero())
		Expect(options.App.Upload).To(BeNil())
		Expect(options.App.History).To(BeNil())
		Expect(options.App.ProgressQueueName).To(BeEmpty())
		Expect(options.Verbose).To(BeFalse())
	})

	It("reads every flag", func() {
		options := ExpectSuccess(cli.Parse([]string{
			"--batch", "-r",
			"-m", "alternative-algorithm",
			"-d", "CPU",
			"-o", "/tmp/out",
			"--timeout", "90s",
			"--overlap",
			"--demucs-bin", "/opt/demucs",
			"--ffmpeg-bin", "/opt/ffmpeg",
			"--history", "sqlite:///tmp/history.db",
			"--status-addr", "127.0.0.1:0",
			"-v",
			"music",
		}, usage))

		Expect(options.App.Batch).To(BeTrue())
		Expect(options.App.Recursive).To(BeTrue())
		Expect(options.App.Model).To(Equal(separation.AlternativeAlgorithm))
		Expect(options.App.Device).To(Equal(device.RequestCPU))
		Expect(options.App.OutputDir).To(Equal("/tmp/out"))
		Expect(options.App.Timeout).To(Equal(90 * time.Second))
		Expect(options.App.Overlap).To(BeTrue())
		Expect(options.App.DemucsBinPath).To(Equal("/opt/demucs"))
		Expect(options.App.FFmpegBinPath).To(Equal("/opt/ffmpeg"))
		Expect(options.App.History).NotTo(BeNil())
		Expect(options.App.History.SQLitePath).To(Equal("/tmp/history.db"))
		Expect(options.App.StatusAddr).To(Equal("127.0.0.1:0"))
		Expect(options.Verbose).To(BeTrue())
	})

	It("returns ErrHelp for --help", func() {
		_, err := cli.Parse([]string{"--help"}, usage)
		Expect(err).To(MatchError(pflag.ErrHelp))
		Expect(usage.String()).To(ContainSubstring("Usage: stemsplit"))
	})

	DescribeTable("rejects unusable arguments",
		func(args []string) {
			_, err := cli.Parse(args, usage)
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, stemerrors.InputMark)).To(BeTrue())
		},
		Entry("no input", []string{}),
		Entry("two inputs", []string{"a.wav", "b.wav"}),
		Entry("unknown model", []string{"-m", "karaoke", "a.wav"}),
		Entry("unknown device", []string{"-d", "tpu", "a.wav"}),
		Entry("negative timeout", []string{"--timeout", "-1s", "a.wav"}),
		Entry("recursive without batch", []string{"-r", "music"}),
		Entry("unknown flag", []string{"--fast", "a.wav"}),
		Entry("upload to an unknown scheme", []string{"--upload", "ftp://bucket/stems", "a.wav"}),
		Entry("upload without a bucket", []string{"--upload", "gs://", "a.wav"}),
		Entry("bad history target", []string{"--history", "history.db", "a.wav"}),
	)

	Describe("uploads", func() {
		It("uses google cloud storage for gs targets", func() {
			os.Setenv("GOOGLE_CLOUD_KEY", "{}")
			DeferCleanup(os.Unsetenv, "GOOGLE_CLOUD_KEY")

			options := ExpectSuccess(cli.Parse([]string{"--upload", "gs://stems-bucket/runs", "a.wav"}, usage))
			Expect(options.App.Upload).NotTo(BeNil())
			Expect(options.App.Upload.PathGenerator.Bucket).To(Equal("stems-bucket"))

			google := ExpectType[config.GoogleCloudStorage](options.App.Upload.CloudStorageConfig)
			Expect(google.SecretKey).To(Equal("{}"))
		})

		It("uses S3 settings from the environment for s3 targets", func() {
			os.Setenv("S3_ENDPOINT", "localhost:9000")
			os.Setenv("S3_ACCESS_KEY", "minioadmin")
			os.Setenv("S3_SECRET_KEY", "minioadmin")
			os.Setenv("S3_INSECURE", "true")
			DeferCleanup(func() {
				for _, key := range []string{"S3_ENDPOINT", "S3_ACCESS_KEY", "S3_SECRET_KEY", "S3_INSECURE"} {
					os.Unsetenv(key)
				}
			})

			options := ExpectSuccess(cli.Parse([]string{"--upload", "s3://stems/out", "a.wav"}, usage))

			s3 := ExpectType[config.S3CloudStorage](options.App.Upload.CloudStorageConfig)
			Expect(s3.Endpoint).To(Equal("localhost:9000"))
			Expect(s3.AccessKey).To(Equal("minioadmin"))
			Expect(s3.Insecure).To(BeTrue())
		})
	})

	Describe("progress queue", func() {
		It("uses the local broker when RABBITMQ_URL is unset", func() {
			os.Unsetenv("RABBITMQ_URL")

			options := ExpectSuccess(cli.Parse([]string{"--progress-queue", "progress", "a.wav"}, usage))
			Expect(options.App.ProgressQueueName).To(Equal("progress"))
			Expect(options.App.RabbitMQURL).To(Equal("amqp://localhost:5672"))
		})
	})

	Describe("config file", func() {
		var configPath string

		BeforeEach(func() {
			configPath = filepath.Join(GinkgoT().TempDir(), "stemsplit.yaml")
		})

		It("fills in flags that were not given", func() {
			WriteFile(configPath, "model: fine-tuned-high-quality\ndevice: cpu\ntimeout: 2m\noverlap: true\nbatch: true\n")

			options := ExpectSuccess(cli.Parse([]string{"--config", configPath, "music"}, usage))
			Expect(options.App.Model).To(Equal(separation.FineTunedHighQuality))
			Expect(options.App.Device).To(Equal(device.RequestCPU))
			Expect(options.App.Timeout).To(Equal(2 * time.Minute))
			Expect(options.App.Overlap).To(BeTrue())
			Expect(options.App.Batch).To(BeTrue())
		})

		It("lets the command line win", func() {
			WriteFile(configPath, "model: fine-tuned-high-quality\ndevice: cpu\n")

			options := ExpectSuccess(cli.Parse([]string{"--config", configPath, "-d", "cuda", "a.wav"}, usage))
			Expect(options.App.Model).To(Equal(separation.FineTunedHighQuality))
			Expect(options.App.Device).To(Equal(device.RequestCUDA))
		})

		It("rejects unknown keys", func() {
			WriteFile(configPath, "modle: balanced\n")

			_, err := cli.Parse([]string{"--config", configPath, "a.wav"}, usage)
			Expect(errors.Is(err, stemerrors.InputMark)).To(BeTrue())
		})

		It("rejects bad values", func() {
			WriteFile(configPath, "timeout: soon\n")

			_, err := cli.Parse([]string{"--config", configPath, "a.wav"}, usage)
			Expect(errors.Is(err, stemerrors.InputMark)).To(BeTrue())
		})

		It("rejects a missing file", func() {
			_, err := cli.Parse([]string{"--config", "/does/not/exist.yaml", "a.wav"}, usage)
			Expect(errors.Is(err, stemerrors.InputMark)).To(BeTrue())
		})
	})
})
