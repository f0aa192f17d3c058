package progress

import (
	"sync"
)

const DefaultBusSize = 500

var _ Sink = &EventBus{}

// EventBus keeps the most recent events in memory for incremental reads.
type EventBus struct {
	mutex     sync.RWMutex
	maxEvents int
	events    []Event
}

func NewEventBus(maxEvents int) *EventBus {
	if maxEvents <= 0 {
		maxEvents = DefaultBusSize
	}

	return &EventBus{
		maxEvents: maxEvents,
		events:    make([]Event, 0, maxEvents),
	}
}

func (b *EventBus) Publish(event Event) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.events = append(b.events, event)
	if len(b.events) > b.maxEvents {
		trim := len(b.events) - b.maxEvents
		b.events = append([]Event(nil), b.events[trim:]...)
	}

	return nil
}

// Since returns retained events with a sequence strictly greater than seq.
func (b *EventBus) Since(seq uint64) []Event {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	out := make([]Event, 0, len(b.events))
	for _, event := range b.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}

	return out
}

func (b *EventBus) Latest() (Event, bool) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	if len(b.events) == 0 {
		return Event{}, false
	}

	return b.events[len(b.events)-1], true
}
