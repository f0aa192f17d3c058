package separation

import (
	"context"

	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/audio"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/device"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

//counterfeiter:generate . Engine
type Engine interface {
	Load(ctx context.Context, descriptor Descriptor) (Model, error)
}

// Model is a loaded set of weights. Separate must not modify the buffer it
// is given.
//
//counterfeiter:generate . Model
type Model interface {
	Separate(ctx context.Context, buffer audio.Buffer, device device.Device) (StemSet, error)
	Close() error
}
