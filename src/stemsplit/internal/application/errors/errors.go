package stemerrors

import (
	"context"

	"github.com/cockroachdb/errors"
)

// Marks are attached with errors.Mark (or cerr's Mark) and matched with
// errors.Is anywhere up the chain.
var (
	InputMark                 = errors.New("input_error")
	DeviceMark                = errors.New("device_error")
	ModelLoadMark             = errors.New("model_load_error")
	OutOfMemoryMark           = errors.New("out_of_memory_error")
	UnsupportedSampleRateMark = errors.New("unsupported_sample_rate_error")
	IOMark                    = errors.New("io_error")
	TimeoutMark               = errors.New("timeout_error")
	CancelledMark             = errors.New("cancelled_error")
)

type Kind string

const (
	UnknownError               Kind = "UnknownError"
	InputError                 Kind = "InputError"
	DeviceError                Kind = "DeviceError"
	ModelLoadError             Kind = "ModelLoadError"
	OutOfMemoryError           Kind = "OutOfMemoryError"
	UnsupportedSampleRateError Kind = "UnsupportedSampleRateError"
	IOError                    Kind = "IOError"
	TimeoutError               Kind = "TimeoutError"
	CancelledError             Kind = "CancelledError"
)

// checked in order: the most specific failure wins when several marks apply
var kindOrder = []struct {
	mark error
	kind Kind
}{
	{ModelLoadMark, ModelLoadError},
	{OutOfMemoryMark, OutOfMemoryError},
	{UnsupportedSampleRateMark, UnsupportedSampleRateError},
	{TimeoutMark, TimeoutError},
	{CancelledMark, CancelledError},
	{InputMark, InputError},
	{IOMark, IOError},
	{DeviceMark, DeviceError},
}

func KindOf(err error) Kind {
	if err == nil {
		return ""
	}

	for _, k := range kindOrder {
		if errors.Is(err, k.mark) {
			return k.kind
		}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return TimeoutError
	case errors.Is(err, context.Canceled):
		return CancelledError
	}

	return UnknownError
}

// IsRunFatal reports whether no further job in the run can succeed.
func IsRunFatal(err error) bool {
	return errors.Is(err, ModelLoadMark)
}
