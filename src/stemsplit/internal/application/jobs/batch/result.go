package batch

import (
	"fmt"

	stemerrors "github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/errors"
	jobentity "github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/jobs/entity"
)

const (
	ExitSuccess = 0
	ExitFailure = 1
	ExitUsage   = 2
)

type JobError struct {
	JobID      string
	SourcePath string
	Kind       stemerrors.Kind
	Message    string
}

// Result is the run's aggregate, in resolver order.
type Result struct {
	RunID string
	Jobs  []*jobentity.Job
	// Uploads holds the remote stem URLs by job ID.
	Uploads map[string][]string

	Completed int
	Failed    int
	Skipped   int
}

func (r *Result) tally() {
	r.Completed, r.Failed, r.Skipped = 0, 0, 0

	for _, job := range r.Jobs {
		switch job.Status {
		case jobentity.Completed:
			r.Completed++
		case jobentity.Failed:
			r.Failed++
		case jobentity.Skipped:
			r.Skipped++
		}
	}
}

func (r Result) Total() int {
	return len(r.Jobs)
}

func (r Result) Errors() []JobError {
	var jobErrors []JobError
	for _, job := range r.Jobs {
		if job.Status != jobentity.Failed {
			continue
		}

		jobErrors = append(jobErrors, JobError{
			JobID:      job.ID,
			SourcePath: job.SourcePath,
			Kind:       job.ErrKind,
			Message:    job.Err.Error(),
		})
	}

	return jobErrors
}

// ExitCode is 0 only when every job completed. An interrupted run counts as
// a partial failure.
func (r Result) ExitCode() int {
	if r.Failed > 0 || r.Skipped > 0 {
		return ExitFailure
	}

	return ExitSuccess
}

func (r Result) Summary() string {
	return fmt.Sprintf("%d/%d files processed successfully", r.Completed, r.Total())
}
