package separation

import (
	"context"
	"sort"
	"sync"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/audio"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/device"
	stemerrors "github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/errors"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/cerr"
)

const (
	MinSampleRate = 8000
	MaxSampleRate = 192000
)

func NewAdapter(engine Engine) *Adapter {
	return &Adapter{
		engine: engine,
		models: map[ModelID]Model{},
	}
}

// Adapter owns the run's model cache: at most one loaded instance per model
// identifier, released by Close.
type Adapter struct {
	engine Engine

	mutex  sync.Mutex
	models map[ModelID]Model
}

func (a *Adapter) IsLoaded(id ModelID) bool {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	_, ok := a.models[id]
	return ok
}

func (a *Adapter) Loaded() []ModelID {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	ids := make([]ModelID, 0, len(a.models))
	for id := range a.models {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (a *Adapter) Separate(ctx context.Context, id ModelID, buffer audio.Buffer, dev device.Device) (StemSet, error) {
	errctx := cerr.Fields(cerr.F{
		"model":  id,
		"device": dev.Kind,
	})

	if err := buffer.Validate(); err != nil {
		return nil, errctx.Wrap(err).Error("Cannot separate an invalid buffer")
	}

	if buffer.SampleRate < MinSampleRate || buffer.SampleRate > MaxSampleRate {
		return nil, errctx.Field("sample_rate", buffer.SampleRate).
			Mark(stemerrors.UnsupportedSampleRateMark).
			Error("Sample rate is outside the supported range")
	}

	model, err := a.load(ctx, id)
	if err != nil {
		return nil, errctx.Wrap(err).Error("Failed to load model")
	}

	stems, err := model.Separate(ctx, buffer.Clone(), dev)
	if err != nil {
		return nil, errctx.Wrap(err).Error("Model failed to separate audio")
	}

	conformed, err := stems.Conform(buffer)
	if err != nil {
		return nil, errctx.Wrap(err).Error("Model output does not match the source")
	}

	return conformed, nil
}

func (a *Adapter) load(ctx context.Context, id ModelID) (Model, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if model, ok := a.models[id]; ok {
		return model, nil
	}

	// a job running out of time is not a broken model
	if ctx.Err() != nil {
		return nil, cerr.Field("model", id).Wrap(ctx.Err()).Error("Context ended before the model was loaded")
	}

	descriptor, err := Describe(id)
	if err != nil {
		return nil, err
	}

	logger := log.WithFields(log.Fields{
		"model":       id,
		"engine_name": descriptor.EngineName,
		"footprint":   descriptor.Footprint,
	})
	logger.Info("Loading model")

	model, err := a.engine.Load(ctx, descriptor)
	if err != nil {
		if ctx.Err() == nil && !errors.Is(err, stemerrors.ModelLoadMark) {
			err = errors.Mark(err, stemerrors.ModelLoadMark)
		}
		return nil, cerr.Field("engine_name", descriptor.EngineName).
			Wrap(err).Error("Engine could not load model")
	}

	a.models[id] = model
	logger.Info("Model loaded")
	return model, nil
}

func (a *Adapter) Close() error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	var closeErr error
	for id, model := range a.models {
		if err := model.Close(); err != nil {
			closeErr = errors.CombineErrors(closeErr,
				cerr.Field("model", id).Wrap(err).Error("Failed to release model"))
		}
	}

	a.models = map[ModelID]Model{}
	return closeErr
}
