package progress

import (
	"github.com/apex/log"
)

var _ Sink = LogSink{}

// LogSink renders events through apex/log.
type LogSink struct {
	Logger log.Interface
}

func NewLogSink() LogSink {
	return LogSink{Logger: log.Log}
}

func (l LogSink) Publish(event Event) error {
	entry := l.Logger.WithFields(log.Fields{
		"stage":   event.Stage,
		"percent": event.Percent,
	})

	if event.JobID != "" {
		entry = entry.WithField("job_id", event.JobID)
	}

	if event.ErrorKind != "" {
		entry = entry.WithField("kind", event.ErrorKind)
	}

	switch event.Level {
	case LevelError:
		entry.Error(event.Message)
	case LevelWarning:
		entry.Warn(event.Message)
	default:
		entry.Info(event.Message)
	}

	return nil
}
