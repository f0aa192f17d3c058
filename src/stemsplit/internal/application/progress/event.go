package progress

import (
	"time"

	stemerrors "github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/errors"
)

type Stage string

const (
	StageResolving    Stage = "resolving"
	StageLoadingModel Stage = "loading-model"
	StageSeparating   Stage = "separating"
	StageWriting      Stage = "writing"
	StageDone         Stage = "done"
	StageFailed       Stage = "failed"
)

// stagePercent is where each stage starts on a job's progress bar.
var stagePercent = map[Stage]int{
	StageResolving:    0,
	StageLoadingModel: 10,
	StageSeparating:   20,
	StageWriting:      80,
	StageDone:         100,
}

func (s Stage) Percent() int {
	return stagePercent[s]
}

type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Event is one progress update. Run-scoped events have an empty JobID.
type Event struct {
	Seq       uint64          `json:"seq"`
	RunID     string          `json:"run_id"`
	JobID     string          `json:"job_id,omitempty"`
	Stage     Stage           `json:"stage"`
	Percent   int             `json:"percent"`
	Message   string          `json:"message"`
	Level     Level           `json:"level"`
	ErrorKind stemerrors.Kind `json:"error_kind,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
