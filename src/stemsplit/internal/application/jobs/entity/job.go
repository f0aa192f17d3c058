package jobentity

import (
	"time"

	"github.com/google/uuid"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/device"
	stemerrors "github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/errors"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/separation"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/cerr"
)

type Status string

const (
	Pending   Status = "pending"
	Running   Status = "running"
	Completed Status = "completed"
	Failed    Status = "failed"
	Skipped   Status = "skipped"
)

func (s Status) IsTerminal() bool {
	return s == Completed || s == Failed || s == Skipped
}

// transitions only move forward; nothing leaves a terminal status
var transitions = map[Status][]Status{
	Pending: {Running, Failed, Skipped},
	Running: {Completed, Failed},
}

// Job is one source file's trip through separation. Only the scheduler
// mutates it, through the transition methods.
type Job struct {
	ID         string
	SourcePath string
	OutputDir  string

	Model  separation.ModelID
	Device device.Device
	// RetryDevice is set when the job fell back to the CPU after running out
	// of memory on an accelerator.
	RetryDevice *device.Device

	Status  Status
	Err     error
	ErrKind stemerrors.Kind

	StemPaths []string

	StartedAt  time.Time
	FinishedAt time.Time
}

func NewJob(sourcePath string, outputDir string) *Job {
	return &Job{
		ID:         uuid.New().String(),
		SourcePath: sourcePath,
		OutputDir:  outputDir,
		Status:     Pending,
	}
}

// EffectiveDevice is the device the job's final attempt ran on.
func (j *Job) EffectiveDevice() device.Device {
	if j.RetryDevice != nil {
		return *j.RetryDevice
	}

	return j.Device
}

func (j *Job) Start(model separation.ModelID, dev device.Device) error {
	if err := j.transition(Running); err != nil {
		return err
	}

	j.Model = model
	j.Device = dev
	j.StartedAt = time.Now()
	return nil
}

func (j *Job) RetryOn(dev device.Device) error {
	if j.Status != Running {
		return cerr.Fields(cerr.F{
			"job_id": j.ID,
			"status": j.Status,
		}).Error("Only a running job can be retried")
	}

	if j.RetryDevice != nil {
		return cerr.Field("job_id", j.ID).Error("Job has already been retried")
	}

	j.RetryDevice = &dev
	return nil
}

func (j *Job) Complete(stemPaths []string) error {
	if err := j.transition(Completed); err != nil {
		return err
	}

	j.StemPaths = stemPaths
	j.FinishedAt = time.Now()
	return nil
}

func (j *Job) Fail(reason error) error {
	if err := j.transition(Failed); err != nil {
		return err
	}

	j.Err = reason
	j.ErrKind = stemerrors.KindOf(reason)
	j.FinishedAt = time.Now()
	return nil
}

func (j *Job) Skip(reason error) error {
	if err := j.transition(Skipped); err != nil {
		return err
	}

	j.Err = reason
	j.ErrKind = stemerrors.KindOf(reason)
	j.FinishedAt = time.Now()
	return nil
}

func (j *Job) transition(to Status) error {
	for _, allowed := range transitions[j.Status] {
		if allowed == to {
			j.Status = to
			return nil
		}
	}

	return cerr.Fields(cerr.F{
		"job_id": j.ID,
		"from":   j.Status,
		"to":     to,
	}).Error("Illegal job status transition")
}
