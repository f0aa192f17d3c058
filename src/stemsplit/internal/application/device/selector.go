package device

import (
	"fmt"
	"sync"

	"github.com/apex/log"
	stemerrors "github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/errors"
)

// Warner receives the non-fatal warning raised when a requested accelerator
// is missing.
type Warner interface {
	Warn(kind stemerrors.Kind, message string)
}

func NewSelector(prober Prober, warner Warner) *Selector {
	return &Selector{
		prober: prober,
		warner: warner,
	}
}

// Selector resolves the run's device once. Later calls return the memoized
// device whatever they request.
type Selector struct {
	prober Prober
	warner Warner

	once     sync.Once
	resolved Device
}

func (s *Selector) Resolve(requested Requested) Device {
	s.once.Do(func() {
		s.resolved = s.resolve(requested)
		log.WithFields(log.Fields{
			"requested": requested,
			"resolved":  s.resolved.Kind,
		}).Debug("Resolved compute device")
	})

	return s.resolved
}

// ForceCPU is the device for the out-of-memory retry. It does not change the
// memoized device.
func (s *Selector) ForceCPU() Device {
	return CPUDevice
}

func (s *Selector) resolve(requested Requested) Device {
	switch requested {
	case RequestCPU:
		return CPUDevice

	case RequestCUDA:
		return s.explicit(CUDA)

	case RequestMPS:
		return s.explicit(MPS)

	default:
		for _, kind := range []Kind{CUDA, MPS} {
			if s.prober.Available(kind) {
				return s.available(kind)
			}
		}
		return CPUDevice
	}
}

func (s *Selector) explicit(kind Kind) Device {
	if s.prober.Available(kind) {
		return s.available(kind)
	}

	message := fmt.Sprintf("Requested device %s is not available, falling back to cpu", kind)
	if s.warner == nil {
		log.WithField("requested", kind).Warn(message)
		return CPUDevice
	}

	s.warner.Warn(stemerrors.DeviceError, message)
	return CPUDevice
}

func (s *Selector) available(kind Kind) Device {
	return Device{Kind: kind, Available: true, Priority: priorities[kind]}
}
