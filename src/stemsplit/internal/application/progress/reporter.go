package progress

import (
	"sync"
	"time"

	"github.com/apex/log"
	stemerrors "github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/errors"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

const DefaultCapacity = 256

//counterfeiter:generate . Sink
type Sink interface {
	Publish(event Event) error
}

func NewReporter(runID string, capacity int, sinks ...Sink) *Reporter {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	reporter := &Reporter{
		runID:    runID,
		sinks:    sinks,
		events:   make(chan Event, capacity),
		done:     make(chan struct{}),
		percents: map[string]int{},
	}

	go reporter.dispatch()
	return reporter
}

// Reporter never blocks its callers: events go into a bounded channel and
// are dropped, and counted, when it is full. One goroutine fans them out to
// the sinks in order.
type Reporter struct {
	runID string
	sinks []Sink

	mutex    sync.Mutex
	seq      uint64
	dropped  uint64
	closed   bool
	percents map[string]int

	events chan Event
	done   chan struct{}
}

func (r *Reporter) RunID() string {
	return r.runID
}

func (r *Reporter) Report(jobID string, stage Stage, message string) {
	r.emit(Event{
		JobID:   jobID,
		Stage:   stage,
		Percent: stage.Percent(),
		Message: message,
		Level:   LevelInfo,
	})
}

// Fail reports a failed job. Its percent stays wherever the job got to.
func (r *Reporter) Fail(jobID string, kind stemerrors.Kind, message string) {
	r.emit(Event{
		JobID:     jobID,
		Stage:     StageFailed,
		Message:   message,
		Level:     LevelError,
		ErrorKind: kind,
	})
}

// Warn reports a non-fatal, run-scoped problem.
func (r *Reporter) Warn(kind stemerrors.Kind, message string) {
	r.emit(Event{
		Stage:     StageResolving,
		Message:   message,
		Level:     LevelWarning,
		ErrorKind: kind,
	})
}

func (r *Reporter) Dropped() uint64 {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return r.dropped
}

func (r *Reporter) emit(event Event) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.closed {
		return
	}

	// percent never goes backwards within a job
	last := r.percents[event.JobID]
	if event.Percent < last {
		event.Percent = last
	}
	r.percents[event.JobID] = event.Percent

	r.seq++
	event.Seq = r.seq
	event.RunID = r.runID
	event.Timestamp = time.Now().UTC()

	select {
	case r.events <- event:
	default:
		r.dropped++
	}
}

func (r *Reporter) dispatch() {
	defer close(r.done)

	for event := range r.events {
		for _, sink := range r.sinks {
			if err := sink.Publish(event); err != nil {
				log.WithError(err).
					WithField("seq", event.Seq).
					Debug("Progress sink failed to take event")
			}
		}
	}
}

// Close stops accepting events, drains what is queued and waits for the
// sinks to finish.
func (r *Reporter) Close() {
	r.mutex.Lock()
	if !r.closed {
		r.closed = true
		close(r.events)
	}
	r.mutex.Unlock()

	<-r.done

	if dropped := r.Dropped(); dropped > 0 {
		log.WithField("dropped", dropped).Warn("Some progress events were dropped")
	}
}
