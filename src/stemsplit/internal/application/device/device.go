package device

import (
	"strings"

	stemerrors "github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/errors"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/cerr"
)

type Kind string

const (
	CPU  Kind = "cpu"
	CUDA Kind = "cuda"
	MPS  Kind = "mps"
)

// Requested is what the user asked for on the command line.
type Requested string

const (
	RequestAuto Requested = "auto"
	RequestCUDA Requested = "cuda"
	RequestMPS  Requested = "mps"
	RequestCPU  Requested = "cpu"
)

func ParseRequested(value string) (Requested, error) {
	switch requested := Requested(strings.ToLower(strings.TrimSpace(value))); requested {
	case RequestAuto, RequestCUDA, RequestMPS, RequestCPU:
		return requested, nil
	case "":
		return RequestAuto, nil
	default:
		return "", cerr.Field("device", value).
			Mark(stemerrors.InputMark).
			Error("Device must be one of auto, cuda, mps, cpu")
	}
}

// Device is immutable once resolved. Lower priority wins in auto mode.
type Device struct {
	Kind      Kind
	Available bool
	Priority  int
}

func (d Device) String() string {
	return string(d.Kind)
}

func (d Device) IsAccelerator() bool {
	return d.Kind != CPU
}

var priorities = map[Kind]int{
	CUDA: 0,
	MPS:  1,
	CPU:  2,
}

var CPUDevice = Device{Kind: CPU, Available: true, Priority: priorities[CPU]}
