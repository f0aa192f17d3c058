package batch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/audio"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/device"
	stemerrors "github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/errors"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/history"
	jobentity "github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/jobs/entity"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/jobs/output"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/jobs/upload"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/progress"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/separation"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/cerr"
)

type Config struct {
	Model  separation.ModelID
	Device device.Requested
	// Timeout bounds each job, checked before and after inference. Zero
	// disables it.
	Timeout time.Duration
	// Overlap decodes the next file while the current one is in inference.
	Overlap bool
}

// Reporter is where the scheduler sends progress. It must not block.
type Reporter interface {
	RunID() string
	Report(jobID string, stage progress.Stage, message string)
	Fail(jobID string, kind stemerrors.Kind, message string)
	Warn(kind stemerrors.Kind, message string)
}

func NewScheduler(
	config Config,
	decoder audio.Decoder,
	selector *device.Selector,
	adapter *separation.Adapter,
	writer *output.Writer,
	reporter Reporter,
) *Scheduler {
	return &Scheduler{
		config:   config,
		decoder:  decoder,
		selector: selector,
		adapter:  adapter,
		writer:   writer,
		reporter: reporter,
	}
}

// Scheduler drives a run's jobs in order. A failing job never stops the run;
// only a model that cannot load does.
type Scheduler struct {
	config   Config
	decoder  audio.Decoder
	selector *device.Selector
	adapter  *separation.Adapter
	writer   *output.Writer
	reporter Reporter

	history  history.Store
	uploader *upload.Uploader

	// at most one inference call in flight
	inference sync.Mutex
}

func (s *Scheduler) WithHistory(store history.Store) *Scheduler {
	s.history = store
	return s
}

func (s *Scheduler) WithUploader(uploader upload.Uploader) *Scheduler {
	s.uploader = &uploader
	return s
}

func (s *Scheduler) Run(ctx context.Context, jobs []*jobentity.Job) Result {
	dev := s.selector.Resolve(s.config.Device)

	log.WithFields(log.Fields{
		"run_id": s.reporter.RunID(),
		"device": dev.Kind,
		"model":  s.config.Model,
		"files":  len(jobs),
	}).Info("Starting stem separation")

	result := Result{
		RunID:   s.reporter.RunID(),
		Jobs:    jobs,
		Uploads: map[string][]string{},
	}

	var (
		fatal    error
		prefetch *decodeTask
		skipped  int
	)

	for i, job := range jobs {
		switch {
		case fatal != nil:
			s.failUnattempted(job, fatal)

		case ctx.Err() != nil:
			s.skip(job, ctx.Err())
			skipped++

		default:
			decode := prefetch
			prefetch = nil

			var next *jobentity.Job
			if s.config.Overlap && i+1 < len(jobs) {
				next = jobs[i+1]
			}

			var (
				uploads []string
				err     error
			)
			prefetch, uploads, err = s.process(ctx, job, dev, decode, next)
			if len(uploads) > 0 {
				result.Uploads[job.ID] = uploads
			}

			if err != nil && stemerrors.IsRunFatal(err) {
				fatal = err
				prefetch = nil
			}
		}

		s.record(ctx, job, result.Uploads[job.ID])
	}

	if skipped > 0 {
		s.reporter.Warn(stemerrors.CancelledError,
			fmt.Sprintf("Run cancelled, skipped %d remaining files", skipped))
	}

	result.tally()
	s.reporter.Report("", progress.StageDone, result.Summary())
	return result
}

func (s *Scheduler) process(
	ctx context.Context,
	job *jobentity.Job,
	dev device.Device,
	decode *decodeTask,
	next *jobentity.Job,
) (*decodeTask, []string, error) {
	logger := log.WithFields(log.Fields{
		"job_id": job.ID,
		"source": job.SourcePath,
	})

	if err := job.Start(s.config.Model, dev); err != nil {
		return nil, nil, s.fail(job, err)
	}

	jobCtx, cancel := s.jobContext(ctx)
	defer cancel()

	name := filepath.Base(job.SourcePath)
	s.reporter.Report(job.ID, progress.StageResolving, "Decoding "+name)

	if decode == nil || decode.path != job.SourcePath {
		decode = startDecode(jobCtx, s.decoder, job.SourcePath)
	}

	buffer, err := decode.wait()
	if err != nil {
		return nil, nil, s.fail(job, cerr.Field("source", job.SourcePath).
			Wrap(err).Error("Failed to decode source"))
	}

	logger.WithFields(log.Fields{
		"sample_rate": buffer.SampleRate,
		"channels":    buffer.Channels,
		"duration":    buffer.Duration().String(),
	}).Debug("Decoded source")

	var prefetch *decodeTask
	if next != nil {
		prefetch = startDecode(ctx, s.decoder, next.SourcePath)
	}

	stems, err := s.separate(jobCtx, job, buffer, dev)
	if err != nil {
		return prefetch, nil, s.fail(job, err)
	}

	s.reporter.Report(job.ID, progress.StageWriting, "Writing stems to "+job.OutputDir)

	// the run context, not the job's: the timeout only bounds inference
	paths, err := s.writer.Write(ctx, stems, job.OutputDir)
	if err != nil {
		return prefetch, nil, s.fail(job, err)
	}

	var uploads []string
	if s.uploader != nil {
		uploads, err = s.uploader.Upload(ctx, job.OutputDir, paths)
		if err != nil {
			return prefetch, nil, s.fail(job, err)
		}
	}

	if err := job.Complete(paths); err != nil {
		return prefetch, uploads, s.fail(job, err)
	}

	s.reporter.Report(job.ID, progress.StageDone, "Finished "+name)
	logger.Debug("Job completed")
	return prefetch, uploads, nil
}

// separate holds the inference lock for the whole attempt, CPU retry
// included.
func (s *Scheduler) separate(ctx context.Context, job *jobentity.Job, buffer audio.Buffer, dev device.Device) (separation.StemSet, error) {
	s.inference.Lock()
	defer s.inference.Unlock()

	if err := checkTimeout(ctx); err != nil {
		return nil, err
	}

	if !s.adapter.IsLoaded(s.config.Model) {
		s.reporter.Report(job.ID, progress.StageLoadingModel,
			fmt.Sprintf("Loading %s model", s.config.Model))
	}

	s.reporter.Report(job.ID, progress.StageSeparating, "Separating on "+dev.String())
	stems, err := s.adapter.Separate(ctx, s.config.Model, buffer, dev)

	if err != nil && errors.Is(err, stemerrors.OutOfMemoryMark) && dev.IsAccelerator() {
		cpu := s.selector.ForceCPU()
		if retryErr := job.RetryOn(cpu); retryErr != nil {
			return nil, retryErr
		}

		log.WithFields(log.Fields{
			"job_id": job.ID,
			"device": dev.Kind,
		}).Warn("Out of memory on accelerator, retrying on cpu")

		s.reporter.Report(job.ID, progress.StageSeparating,
			fmt.Sprintf("Out of memory on %s, retrying on %s", dev, cpu))
		stems, err = s.adapter.Separate(ctx, s.config.Model, buffer, cpu)
	}

	if err != nil {
		return nil, cerr.Field("model", s.config.Model).
			Wrap(err).Error("Failed to separate audio")
	}

	if err := checkTimeout(ctx); err != nil {
		return nil, err
	}

	return stems, nil
}

func (s *Scheduler) jobContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.Timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, s.config.Timeout)
}

func checkTimeout(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return cerr.Mark(stemerrors.TimeoutMark).
			Wrap(ctx.Err()).Error("Job exceeded its timeout")
	}

	return nil
}

func (s *Scheduler) fail(job *jobentity.Job, err error) error {
	if transitionErr := job.Fail(err); transitionErr != nil {
		cerr.Log(transitionErr)
		return err
	}

	log.WithFields(cerr.CollectFields(err)).
		WithField("job_id", job.ID).
		WithError(err).
		Debug("Job failed")

	s.reporter.Fail(job.ID, job.ErrKind, fmt.Sprintf("%s: %s", filepath.Base(job.SourcePath), err.Error()))
	return err
}

func (s *Scheduler) failUnattempted(job *jobentity.Job, fatal error) {
	err := cerr.Field("source", job.SourcePath).
		Wrap(fatal).Error("Not attempted, the model could not be loaded")
	_ = s.fail(job, err)
}

func (s *Scheduler) skip(job *jobentity.Job, cause error) {
	err := cerr.Mark(stemerrors.CancelledMark).
		Wrap(cause).Error("Run cancelled before the job started")

	if transitionErr := job.Skip(err); transitionErr != nil {
		cerr.Log(transitionErr)
	}
}

// record never fails the job; history is best effort.
func (s *Scheduler) record(ctx context.Context, job *jobentity.Job, uploads []string) {
	if s.history == nil {
		return
	}

	record := history.RecordFromJob(s.reporter.RunID(), job, uploads)
	if err := s.history.Record(context.WithoutCancel(ctx), record); err != nil {
		log.WithError(err).
			WithField("job_id", job.ID).
			Warn("Failed to record job history")
	}
}
