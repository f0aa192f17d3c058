package history

import (
	"context"
	"time"

	jobentity "github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/jobs/entity"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

// Record is a job's terminal state as stored in run history.
type Record struct {
	JobID      string    `dynamo:"job_id,hash" dynamodbav:"job_id"`
	RunID      string    `dynamo:"run_id" dynamodbav:"run_id"`
	Source     string    `dynamo:"source" dynamodbav:"source"`
	OutputDir  string    `dynamo:"output_dir" dynamodbav:"output_dir"`
	Model      string    `dynamo:"model" dynamodbav:"model"`
	Device     string    `dynamo:"device" dynamodbav:"device"`
	Status     string    `dynamo:"status" dynamodbav:"status"`
	ErrorKind  string    `dynamo:"error_kind" dynamodbav:"error_kind"`
	Error      string    `dynamo:"error" dynamodbav:"error"`
	Uploads    []string  `dynamo:"uploads" dynamodbav:"uploads"`
	StartedAt  time.Time `dynamo:"started_at" dynamodbav:"started_at"`
	FinishedAt time.Time `dynamo:"finished_at" dynamodbav:"finished_at"`
}

func RecordFromJob(runID string, job *jobentity.Job, uploads []string) Record {
	record := Record{
		JobID:      job.ID,
		RunID:      runID,
		Source:     job.SourcePath,
		OutputDir:  job.OutputDir,
		Model:      string(job.Model),
		Device:     string(job.EffectiveDevice().Kind),
		Status:     string(job.Status),
		ErrorKind:  string(job.ErrKind),
		Uploads:    uploads,
		StartedAt:  job.StartedAt.UTC(),
		FinishedAt: job.FinishedAt.UTC(),
	}

	if job.Err != nil {
		record.Error = job.Err.Error()
	}

	if record.Uploads == nil {
		record.Uploads = []string{}
	}

	return record
}

//counterfeiter:generate . Store
type Store interface {
	Record(ctx context.Context, record Record) error
	ListRun(ctx context.Context, runID string) ([]Record, error)
	Close() error
}
