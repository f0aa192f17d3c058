package batch_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/veedubyou/stemsplitter/src/shared/testing"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/audio"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/audio/audiofakes"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/cloud_storage/entity/cloudstoragefakes"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/device"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/device/devicefakes"
	stemerrors "github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/errors"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/history/historyfakes"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/integration_test/dummy"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/jobs/batch"
	jobentity "github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/jobs/entity"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/jobs/input"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/jobs/output"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/jobs/upload"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/progress"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/separation"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/storagepath"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/working_dir"
)

var _ = Describe("Scheduler", func() {
	var (
		ctx       context.Context
		dir       string
		inputDir  string
		outputDir string

		config    batch.Config
		available map[device.Kind]bool
		engine    *dummy.StubEngine
		decoder   audio.Decoder
		bus       *progress.EventBus
		reporter  *progress.Reporter
		scheduler *batch.Scheduler
	)

	writeInputs := func(names ...string) {
		for _, name := range names {
			WriteToneWAV(filepath.Join(inputDir, name), 44100, 2, 4410)
		}
	}

	resolve := func() []*jobentity.Job {
		resolver := input.NewResolver(input.Options{OutputDir: outputDir})
		return ExpectSuccess(resolver.Resolve(inputDir, true))
	}

	// run closes the reporter so every event has reached the bus
	run := func(jobs []*jobentity.Job) batch.Result {
		result := scheduler.Run(ctx, jobs)
		reporter.Close()
		return result
	}

	eventsFor := func(jobID string) []progress.Event {
		var events []progress.Event
		for _, event := range bus.Since(0) {
			if event.JobID == jobID {
				events = append(events, event)
			}
		}
		return events
	}

	BeforeEach(func() {
		ctx = context.Background()

		By("Creating the input and output directories", func() {
			dir = ExpectSuccess(os.MkdirTemp("", "batch-test-*"))
			DeferCleanup(os.RemoveAll, dir)

			inputDir = filepath.Join(dir, "input")
			outputDir = filepath.Join(dir, "output")
			Expect(os.MkdirAll(inputDir, os.ModePerm)).To(Succeed())
		})

		By("Setting up the collaborators", func() {
			config = batch.Config{
				Model:  separation.Balanced,
				Device: device.RequestAuto,
			}
			available = map[device.Kind]bool{}
			engine = dummy.NewStubEngine()

			workingDir := ExpectSuccess(working_dir.NewWorkingDir(filepath.Join(dir, "wd")))
			decoder = audio.NewFileDecoder("ffmpeg", "ffprobe", workingDir, dummy.NewDummyMediaExecutor())

			bus = progress.NewEventBus(0)
		})
	})

	JustBeforeEach(func() {
		prober := &devicefakes.FakeProber{}
		prober.AvailableCalls(func(kind device.Kind) bool {
			return available[kind]
		})

		reporter = progress.NewReporter("run-1", 0, bus)
		scheduler = batch.NewScheduler(
			config,
			decoder,
			device.NewSelector(prober, reporter),
			separation.NewAdapter(engine),
			output.NewWriter(),
			reporter,
		)
	})

	Describe("a clean batch", func() {
		BeforeEach(func() {
			writeInputs("a.wav", "b.mp3", "c.flac")
		})

		It("completes every job in order with four stems each", func() {
			jobs := resolve()
			result := run(jobs)

			Expect(result.Completed).To(Equal(3))
			Expect(result.Failed).To(BeZero())
			Expect(result.ExitCode()).To(Equal(batch.ExitSuccess))
			Expect(result.Summary()).To(Equal("3/3 files processed successfully"))
			Expect(result.Errors()).To(BeEmpty())

			for _, job := range jobs {
				Expect(job.Status).To(Equal(jobentity.Completed))
				Expect(job.StemPaths).To(HaveLen(4))
				Expect(ListFiles(job.OutputDir)).To(ConsistOf("vocals.wav", "drums.wav", "bass.wav", "other.wav"))

				format := ReadWAVFormat(filepath.Join(job.OutputDir, "vocals.wav"))
				Expect(format).To(Equal(WAVFormat{SampleRate: 44100, Channels: 2, BitDepth: 24, Frames: 4410}))
			}
		})

		It("loads the model once and never overlaps inference", func() {
			run(resolve())

			Expect(engine.Loads()).To(Equal([]separation.ModelID{separation.Balanced}))
			Expect(engine.Separations()).To(HaveLen(3))
			Expect(engine.MaxInFlight()).To(Equal(1))
		})

		It("reports non-decreasing progress for every job", func() {
			jobs := resolve()
			run(jobs)

			for _, job := range jobs {
				events := eventsFor(job.ID)
				Expect(events).NotTo(BeEmpty())

				stages := []progress.Stage{}
				last := 0
				for _, event := range events {
					Expect(event.RunID).To(Equal("run-1"))
					Expect(event.Percent).To(BeNumerically(">=", last))
					last = event.Percent
					stages = append(stages, event.Stage)
				}

				Expect(stages[len(stages)-1]).To(Equal(progress.StageDone))
				Expect(last).To(Equal(100))
			}

			Expect(eventsFor(jobs[0].ID)).To(ContainElement(HaveField("Stage", progress.StageLoadingModel)))
			Expect(eventsFor(jobs[1].ID)).NotTo(ContainElement(HaveField("Stage", progress.StageLoadingModel)))
		})

		It("ends with a run summary event", func() {
			run(resolve())

			latest, ok := bus.Latest()
			Expect(ok).To(BeTrue())
			Expect(latest.JobID).To(BeEmpty())
			Expect(latest.Stage).To(Equal(progress.StageDone))
			Expect(latest.Message).To(Equal("3/3 files processed successfully"))
		})

		It("writes byte-identical stems on a rerun and leaves no temp files", func() {
			jobs := resolve()
			run(jobs)

			first := map[string][]byte{}
			for _, job := range jobs {
				for _, path := range job.StemPaths {
					first[path] = ExpectSuccess(os.ReadFile(path))
				}
			}

			By("Running the same input again", func() {
				reporter = progress.NewReporter("run-2", 0, bus)
				scheduler = batch.NewScheduler(
					config,
					decoder,
					device.NewSelector(&devicefakes.FakeProber{}, reporter),
					separation.NewAdapter(dummy.NewStubEngine()),
					output.NewWriter(),
					reporter,
				)
				rerun := resolve()
				Expect(run(rerun).Completed).To(Equal(3))
			})

			for path, contents := range first {
				Expect(os.ReadFile(path)).To(Equal(contents))
			}

			for _, file := range ListFiles(outputDir) {
				Expect(file).NotTo(HaveSuffix(".partial"))
			}
		})

		Context("with overlap enabled", func() {
			BeforeEach(func() {
				config.Overlap = true
			})

			It("produces the same results with a single inference in flight", func() {
				jobs := resolve()
				result := run(jobs)

				Expect(result.Completed).To(Equal(3))
				Expect(engine.MaxInFlight()).To(Equal(1))
				for _, job := range jobs {
					Expect(ListFiles(job.OutputDir)).To(HaveLen(4))
				}
			})

			It("decodes each source exactly once", func() {
				fakeDecoder := &audiofakes.FakeDecoder{}
				fakeDecoder.DecodeReturns(audio.NewBuffer(44100, 2, 100), nil)
				decoder = fakeDecoder

				jobs := resolve()
				scheduler = batch.NewScheduler(
					config,
					fakeDecoder,
					device.NewSelector(&devicefakes.FakeProber{}, reporter),
					separation.NewAdapter(engine),
					output.NewWriter(),
					reporter,
				)
				Expect(run(jobs).Completed).To(Equal(3))

				Expect(fakeDecoder.DecodeCallCount()).To(Equal(3))
				decoded := []string{}
				for i := 0; i < 3; i++ {
					_, path := fakeDecoder.DecodeArgsForCall(i)
					decoded = append(decoded, path)
				}
				Expect(decoded).To(ConsistOf(jobs[0].SourcePath, jobs[1].SourcePath, jobs[2].SourcePath))
			})
		})
	})

	Describe("a batch with a corrupt file", func() {
		BeforeEach(func() {
			writeInputs("a.wav", "b.wav", "d.wav")
			WriteFile(filepath.Join(inputDir, "c.wav"), "definitely not a wav file")
		})

		It("attempts every job and fails only the corrupt one", func() {
			jobs := resolve()
			Expect(jobs).To(HaveLen(4))

			result := run(jobs)
			Expect(result.Completed).To(Equal(3))
			Expect(result.Failed).To(Equal(1))
			Expect(result.ExitCode()).To(Equal(batch.ExitFailure))
			Expect(result.Summary()).To(Equal("3/4 files processed successfully"))

			corrupt := jobs[2]
			Expect(corrupt.SourcePath).To(HaveSuffix("c.wav"))
			Expect(corrupt.Status).To(Equal(jobentity.Failed))
			Expect(corrupt.ErrKind).To(Equal(stemerrors.IOError))
			Expect(jobs[3].Status).To(Equal(jobentity.Completed))

			jobErrors := result.Errors()
			Expect(jobErrors).To(HaveLen(1))
			Expect(jobErrors[0].SourcePath).To(Equal(corrupt.SourcePath))
			Expect(jobErrors[0].Kind).To(Equal(stemerrors.IOError))

			Expect(corrupt.OutputDir).NotTo(BeADirectory())
		})

		It("reports the failure as an event for that job", func() {
			jobs := resolve()
			run(jobs)

			events := eventsFor(jobs[2].ID)
			failed := events[len(events)-1]
			Expect(failed.Stage).To(Equal(progress.StageFailed))
			Expect(failed.Level).To(Equal(progress.LevelError))
			Expect(failed.ErrorKind).To(Equal(stemerrors.IOError))
			Expect(failed.Message).To(HavePrefix("c.wav: "))
		})
	})

	Describe("an unsupported sample rate", func() {
		BeforeEach(func() {
			writeInputs("a.wav")
			WriteToneWAV(filepath.Join(inputDir, "b.wav"), 4000, 1, 400)
		})

		It("fails that job only", func() {
			jobs := resolve()
			result := run(jobs)

			Expect(result.Completed).To(Equal(1))
			Expect(jobs[1].ErrKind).To(Equal(stemerrors.UnsupportedSampleRateError))
		})
	})

	Describe("device selection", func() {
		BeforeEach(func() {
			writeInputs("a.wav", "b.wav")
		})

		Context("when cuda is requested but unavailable", func() {
			BeforeEach(func() {
				config.Device = device.RequestCUDA
			})

			It("runs on the cpu and warns exactly once", func() {
				result := run(resolve())
				Expect(result.ExitCode()).To(Equal(batch.ExitSuccess))

				for _, dev := range engine.Separations() {
					Expect(dev.Kind).To(Equal(device.CPU))
				}

				var warnings []progress.Event
				for _, event := range bus.Since(0) {
					if event.Level == progress.LevelWarning {
						warnings = append(warnings, event)
					}
				}
				Expect(warnings).To(HaveLen(1))
				Expect(warnings[0].ErrorKind).To(Equal(stemerrors.DeviceError))
				Expect(warnings[0].JobID).To(BeEmpty())
			})
		})

		Context("when the accelerator runs out of memory", func() {
			BeforeEach(func() {
				available[device.CUDA] = true
				engine.OutOfMemoryOnDevice = map[device.Kind]bool{device.CUDA: true}
			})

			It("retries each job once on the cpu", func() {
				jobs := resolve()
				result := run(jobs)
				Expect(result.Completed).To(Equal(2))

				kinds := []device.Kind{}
				for _, dev := range engine.Separations() {
					kinds = append(kinds, dev.Kind)
				}
				Expect(kinds).To(Equal([]device.Kind{device.CUDA, device.CPU, device.CUDA, device.CPU}))

				Expect(jobs[0].Device.Kind).To(Equal(device.CUDA))
				Expect(jobs[0].EffectiveDevice().Kind).To(Equal(device.CPU))
			})
		})

		Context("when the cpu runs out of memory", func() {
			BeforeEach(func() {
				engine.OutOfMemoryOnDevice = map[device.Kind]bool{device.CPU: true}
			})

			It("fails without a retry", func() {
				jobs := resolve()
				result := run(jobs)

				Expect(result.Failed).To(Equal(2))
				Expect(jobs[0].ErrKind).To(Equal(stemerrors.OutOfMemoryError))
				Expect(engine.Separations()).To(HaveLen(2))
			})
		})

		Context("when both attempts run out of memory", func() {
			BeforeEach(func() {
				available[device.CUDA] = true
				engine.OutOfMemoryOnDevice = map[device.Kind]bool{device.CUDA: true, device.CPU: true}
			})

			It("fails the job after the single retry", func() {
				jobs := resolve()
				result := run(jobs)

				Expect(result.Failed).To(Equal(2))
				Expect(jobs[0].ErrKind).To(Equal(stemerrors.OutOfMemoryError))
				Expect(engine.Separations()).To(HaveLen(4))
			})
		})
	})

	Describe("a model that cannot load", func() {
		var fakeDecoder *audiofakes.FakeDecoder

		BeforeEach(func() {
			writeInputs("a.wav", "b.wav", "c.wav")
			engine.Unavailable = true

			fakeDecoder = &audiofakes.FakeDecoder{}
			fakeDecoder.DecodeReturns(audio.NewBuffer(44100, 2, 100), nil)
			decoder = fakeDecoder
		})

		It("fails the whole run after the first attempt", func() {
			jobs := resolve()
			result := run(jobs)

			Expect(result.Failed).To(Equal(3))
			Expect(result.ExitCode()).To(Equal(batch.ExitFailure))
			for _, job := range jobs {
				Expect(job.ErrKind).To(Equal(stemerrors.ModelLoadError))
			}

			Expect(fakeDecoder.DecodeCallCount()).To(Equal(1))
			Expect(engine.Separations()).To(BeEmpty())
			Expect(jobs[1].StartedAt.IsZero()).To(BeTrue())
		})
	})

	Describe("cancellation", func() {
		var cancel context.CancelFunc

		BeforeEach(func() {
			writeInputs("a.wav", "b.wav", "c.wav", "d.wav")
			ctx, cancel = context.WithCancel(ctx)
			DeferCleanup(cancel)
		})

		It("skips every job when cancelled up front", func() {
			cancel()
			jobs := resolve()
			result := run(jobs)

			Expect(result.Skipped).To(Equal(4))
			Expect(result.ExitCode()).To(Equal(batch.ExitFailure))
			Expect(jobs[0].ErrKind).To(Equal(stemerrors.CancelledError))
			Expect(outputDir).NotTo(BeADirectory())
		})

		It("keeps finished work, discards the in-flight job and skips the rest", func() {
			realDecoder := decoder
			fakeDecoder := &audiofakes.FakeDecoder{}
			fakeDecoder.DecodeCalls(func(decodeCtx context.Context, path string) (audio.Buffer, error) {
				if strings.HasSuffix(path, "b.wav") {
					cancel()
				}
				return realDecoder.Decode(context.Background(), path)
			})
			decoder = fakeDecoder

			jobs := resolve()
			scheduler = batch.NewScheduler(
				config,
				fakeDecoder,
				device.NewSelector(&devicefakes.FakeProber{}, reporter),
				separation.NewAdapter(engine),
				output.NewWriter(),
				reporter,
			)
			result := run(jobs)

			Expect(jobs[0].Status).To(Equal(jobentity.Completed))
			Expect(ListFiles(jobs[0].OutputDir)).To(HaveLen(4))

			By("Letting the in-flight inference finish but never committing it", func() {
				Expect(engine.Separations()).To(HaveLen(2))
				Expect(jobs[1].Status).To(Equal(jobentity.Failed))
				Expect(jobs[1].ErrKind).To(Equal(stemerrors.CancelledError))
				Expect(jobs[1].OutputDir).NotTo(BeADirectory())
			})

			Expect(jobs[2].Status).To(Equal(jobentity.Skipped))
			Expect(jobs[3].Status).To(Equal(jobentity.Skipped))
			Expect(result.Completed).To(Equal(1))
			Expect(result.Skipped).To(Equal(2))
		})
	})

	Describe("per-job timeout", func() {
		BeforeEach(func() {
			writeInputs("a.wav", "b.wav")
			config.Timeout = 200 * time.Millisecond
			engine.SeparationDelay = 400 * time.Millisecond
		})

		It("fails jobs whose inference outlives the timeout", func() {
			jobs := resolve()
			result := run(jobs)

			Expect(result.Failed).To(Equal(2))
			for _, job := range jobs {
				Expect(job.ErrKind).To(Equal(stemerrors.TimeoutError))
				Expect(job.OutputDir).NotTo(BeADirectory())
			}

			Expect(engine.Separations()).To(HaveLen(2))
		})
	})

	Describe("history and upload", func() {
		var (
			store     *historyfakes.FakeStore
			fileStore *cloudstoragefakes.FakeFileStore
		)

		BeforeEach(func() {
			writeInputs("a.wav", "b.wav")
			WriteFile(filepath.Join(inputDir, "c.wav"), "broken")

			store = &historyfakes.FakeStore{}
			fileStore = &cloudstoragefakes.FakeFileStore{}
		})

		JustBeforeEach(func() {
			generator := ExpectSuccess(storagepath.ParseGenerator("s3://stems/run"))
			scheduler.WithHistory(store).WithUploader(upload.NewUploader(fileStore, generator))
		})

		It("records every job and uploads completed stems", func() {
			jobs := resolve()
			result := run(jobs)

			Expect(store.RecordCallCount()).To(Equal(3))
			_, first := store.RecordArgsForCall(0)
			Expect(first.RunID).To(Equal("run-1"))
			Expect(first.Status).To(Equal("completed"))
			Expect(first.Uploads).To(ContainElement("s3://stems/run/a/vocals.wav"))

			_, broken := store.RecordArgsForCall(2)
			Expect(broken.Status).To(Equal("failed"))
			Expect(broken.ErrorKind).To(Equal("IOError"))

			Expect(fileStore.WriteFileCallCount()).To(Equal(8))
			Expect(result.Uploads[jobs[1].ID]).To(HaveLen(4))
		})

		It("fails the job when its upload fails", func() {
			fileStore.WriteFileReturns(os.ErrPermission)

			jobs := resolve()
			result := run(jobs)

			Expect(result.Completed).To(BeZero())
			Expect(jobs[0].ErrKind).To(Equal(stemerrors.IOError))
			Expect(ListFiles(jobs[0].OutputDir)).To(HaveLen(4))
		})

		It("does not fail jobs when history cannot be written", func() {
			store.RecordReturns(os.ErrPermission)

			result := run(resolve())
			Expect(result.Completed).To(Equal(2))
		})
	})
})
