package dummy

import (
	"context"
	"sync"
	"time"

	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/audio"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/device"
	stemerrors "github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/errors"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/separation"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/cerr"
)

var _ separation.Engine = &StubEngine{}

func NewStubEngine() *StubEngine {
	return &StubEngine{}
}

// StubEngine separates deterministically by scaling the source with
// StemGains. The toggles inject the engine failures the scheduler handles.
type StubEngine struct {
	Unavailable         bool
	OutOfMemoryOnDevice map[device.Kind]bool
	// SeparationDelay makes every separation take at least this long, and
	// like the real engine it does not watch the context.
	SeparationDelay time.Duration

	mutex       sync.Mutex
	loads       []separation.ModelID
	separations []device.Device
	inFlight    int
	maxInFlight int
}

func (s *StubEngine) Load(ctx context.Context, descriptor separation.Descriptor) (separation.Model, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.Unavailable {
		return nil, cerr.Field("engine_name", descriptor.EngineName).
			Mark(stemerrors.ModelLoadMark).
			Error("weights could not be downloaded")
	}

	s.loads = append(s.loads, descriptor.ID)
	return stubModel{engine: s}, nil
}

func (s *StubEngine) Loads() []separation.ModelID {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return append([]separation.ModelID(nil), s.loads...)
}

// Separations lists the device of every separation attempt, in order.
func (s *StubEngine) Separations() []device.Device {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return append([]device.Device(nil), s.separations...)
}

func (s *StubEngine) MaxInFlight() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.maxInFlight
}

func (s *StubEngine) enter(dev device.Device) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.separations = append(s.separations, dev)
	s.inFlight++
	if s.inFlight > s.maxInFlight {
		s.maxInFlight = s.inFlight
	}

	if s.OutOfMemoryOnDevice[dev.Kind] {
		return cerr.Field("device", dev.Kind).
			Mark(stemerrors.OutOfMemoryMark).
			Error("CUDA out of memory")
	}

	return nil
}

func (s *StubEngine) leave() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.inFlight--
}

type stubModel struct {
	engine *StubEngine
}

func (m stubModel) Separate(ctx context.Context, buffer audio.Buffer, dev device.Device) (separation.StemSet, error) {
	defer m.engine.leave()
	if err := m.engine.enter(dev); err != nil {
		return nil, err
	}

	if m.engine.SeparationDelay > 0 {
		time.Sleep(m.engine.SeparationDelay)
	}

	stems := separation.StemSet{}
	for name, gain := range StemGains {
		stems[name] = Scale(buffer, gain)
	}

	return stems, nil
}

func (m stubModel) Close() error {
	return nil
}
