package application

import (
	"context"
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/veedubyou/stemsplitter/src/shared/config"
	"github.com/veedubyou/stemsplitter/src/shared/lib/rabbitmq"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/audio"
	filestore "github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/cloud_storage/store"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/device"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/executor"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/history"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/jobs/batch"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/jobs/input"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/jobs/output"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/jobs/upload"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/progress"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/separation"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/separation/demucs"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/status"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/cerr"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/storagepath"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/working_dir"
)

const statusShutdownTimeout = 5 * time.Second

type UploadConfig struct {
	PathGenerator      storagepath.Generator
	CloudStorageConfig config.CloudStorage
}

// Config is the validated description of one run. Optional integrations are
// off when their pointer or string is empty.
type Config struct {
	InputPath string
	Batch     bool
	Recursive bool
	OutputDir string

	Model   separation.ModelID
	Device  device.Requested
	Timeout time.Duration
	Overlap bool

	DemucsBinPath  string
	DemucsRepoPath string
	FFmpegBinPath  string
	FFprobeBinPath string
	WorkingDirPath string

	Upload            *UploadConfig
	History           *history.Target
	RabbitMQURL       string
	ProgressQueueName string
	StatusAddr        string

	// Executor and Prober default to the host's.
	Executor executor.Executor
	Prober   device.Prober
}

type App struct {
	config Config

	resolver  input.Resolver
	scheduler *batch.Scheduler
	adapter   *separation.Adapter
	reporter  *progress.Reporter

	history   history.Store
	publisher rabbitmq.Publisher
	status    *status.Server
}

func NewApp(ctx context.Context, appConfig Config) (*App, error) {
	if appConfig.Executor == nil {
		appConfig.Executor = executor.BinaryFileExecutor{}
	}

	workingDir, err := working_dir.NewWorkingDir(appConfig.WorkingDirPath)
	if err != nil {
		return nil, cerr.Wrap(err).Error("Failed to prepare working dir")
	}

	app := &App{config: appConfig}
	runID := uuid.New().String()

	bus := progress.NewEventBus(progress.DefaultBusSize)
	sinks := []progress.Sink{progress.NewLogSink(), bus}

	if appConfig.ProgressQueueName != "" {
		publisher, err := rabbitmq.NewQueuePublisher(appConfig.RabbitMQURL, appConfig.ProgressQueueName)
		if err != nil {
			return nil, cerr.Field("queue_name", appConfig.ProgressQueueName).
				Wrap(err).Error("Failed to connect the progress queue")
		}
		app.publisher = publisher
		sinks = append(sinks, progress.NewRabbitMQSink(publisher))
	}

	if appConfig.History != nil {
		store, err := history.Open(ctx, *appConfig.History)
		if err != nil {
			app.closeIntegrations()
			return nil, cerr.Wrap(err).Error("Failed to open run history")
		}
		app.history = store
	}

	var uploader *upload.Uploader
	if appConfig.Upload != nil {
		fileStore, err := filestore.NewFileStore(ctx, appConfig.Upload.CloudStorageConfig)
		if err != nil {
			app.closeIntegrations()
			return nil, cerr.Wrap(err).Error("Failed to create remote file store")
		}
		u := upload.NewUploader(fileStore, appConfig.Upload.PathGenerator)
		uploader = &u
	}

	app.reporter = progress.NewReporter(runID, progress.DefaultCapacity, sinks...)

	if appConfig.StatusAddr != "" {
		app.status = status.NewServer(appConfig.StatusAddr, runID, bus)
	}

	app.resolver = input.NewResolver(input.Options{
		OutputDir: appConfig.OutputDir,
		Recursive: appConfig.Recursive,
	})

	app.adapter = separation.NewAdapter(
		demucs.NewEngine(appConfig.DemucsBinPath, appConfig.DemucsRepoPath, workingDir, appConfig.Executor))

	app.scheduler = newScheduler(appConfig, workingDir, app.adapter, app.reporter)
	if app.history != nil {
		app.scheduler.WithHistory(app.history)
	}
	if uploader != nil {
		app.scheduler.WithUploader(*uploader)
	}

	return app, nil
}

func newScheduler(appConfig Config, workingDir working_dir.WorkingDir, adapter *separation.Adapter, reporter *progress.Reporter) *batch.Scheduler {
	prober := appConfig.Prober
	if prober == nil {
		prober = device.NewHostProber(appConfig.Executor)
	}

	decoder := audio.NewFileDecoder(appConfig.FFmpegBinPath, appConfig.FFprobeBinPath, workingDir, appConfig.Executor)

	return batch.NewScheduler(
		batch.Config{
			Model:   appConfig.Model,
			Device:  appConfig.Device,
			Timeout: appConfig.Timeout,
			Overlap: appConfig.Overlap,
		},
		decoder,
		device.NewSelector(prober, reporter),
		adapter,
		output.NewWriter(),
		reporter,
	)
}

func (a *App) RunID() string {
	return a.reporter.RunID()
}

// Run resolves the input, processes every job and tears the run down. The
// returned value is the process exit code.
func (a *App) Run(ctx context.Context) int {
	defer a.teardown()

	jobs, err := a.resolver.Resolve(a.config.InputPath, a.config.Batch)
	if err != nil {
		cerr.Log(err)
		return batch.ExitUsage
	}

	if a.status != nil {
		go func() {
			if err := a.status.Start(); err != nil {
				cerr.Log(cerr.Wrap(err).Error("Status server stopped"))
			}
		}()
	}

	result := a.scheduler.Run(ctx, jobs)
	a.reportResult(result)
	return result.ExitCode()
}

func (a *App) reportResult(result batch.Result) {
	for _, jobError := range result.Errors() {
		log.WithFields(log.Fields{
			"source": jobError.SourcePath,
			"kind":   jobError.Kind,
		}).Error(jobError.Message)
	}

	logger := log.WithFields(log.Fields{
		"run_id":    result.RunID,
		"completed": result.Completed,
		"failed":    result.Failed,
		"skipped":   result.Skipped,
	})

	if result.ExitCode() == batch.ExitSuccess {
		logger.Info(result.Summary())
	} else {
		logger.Warn(result.Summary())
	}
}

func (a *App) teardown() {
	if err := a.adapter.Close(); err != nil {
		cerr.Log(err)
	}

	a.reporter.Close()

	if a.status != nil {
		ctx, cancel := context.WithTimeout(context.Background(), statusShutdownTimeout)
		defer cancel()

		if err := a.status.Shutdown(ctx); err != nil {
			cerr.Log(err)
		}
	}

	a.closeIntegrations()
}

func (a *App) closeIntegrations() {
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			log.WithError(err).Warn("Failed to close run history")
		}
	}

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			log.WithError(err).Warn("Failed to close progress publisher")
		}
	}
}
