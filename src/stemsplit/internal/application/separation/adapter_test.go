package separation_test

import (
	"context"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/veedubyou/stemsplitter/src/shared/testing"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/audio"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/device"
	stemerrors "github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/errors"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/integration_test/dummy"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/separation"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/separation/separationfakes"
)

func tone(sampleRate int, channels int, frames int) audio.Buffer {
	buffer := audio.NewBuffer(sampleRate, channels, frames)
	for i := range buffer.Samples {
		buffer.Samples[i] = float32(i%50) / 100
	}
	return buffer
}

var _ = Describe("Adapter", func() {
	var (
		ctx     context.Context
		source  audio.Buffer
		engine  *dummy.StubEngine
		adapter *separation.Adapter
	)

	BeforeEach(func() {
		ctx = context.Background()
		source = tone(44100, 2, 1000)
		engine = dummy.NewStubEngine()
		adapter = separation.NewAdapter(engine)
	})

	It("produces four stems shaped like the source", func() {
		stems := ExpectSuccess(adapter.Separate(ctx, separation.Balanced, source, device.CPUDevice))

		Expect(stems).To(HaveLen(4))
		for _, name := range separation.StemNames {
			Expect(stems).To(HaveKey(name))
			Expect(stems[name].SampleRate).To(Equal(44100))
			Expect(stems[name].Channels).To(Equal(2))
			Expect(stems[name].Frames()).To(Equal(1000))
		}
	})

	It("does not modify the input buffer", func() {
		original := source.Clone()
		ExpectSuccess(adapter.Separate(ctx, separation.Balanced, source, device.CPUDevice))

		Expect(source).To(Equal(original))
	})

	It("is deterministic", func() {
		first := ExpectSuccess(adapter.Separate(ctx, separation.Balanced, source, device.CPUDevice))
		second := ExpectSuccess(adapter.Separate(ctx, separation.Balanced, source, device.CPUDevice))

		Expect(second).To(Equal(first))
	})

	It("loads each model once per run", func() {
		ExpectSuccess(adapter.Separate(ctx, separation.Balanced, source, device.CPUDevice))
		ExpectSuccess(adapter.Separate(ctx, separation.Balanced, source, device.CPUDevice))
		ExpectSuccess(adapter.Separate(ctx, separation.AlternativeAlgorithm, source, device.CPUDevice))

		Expect(engine.Loads()).To(Equal([]separation.ModelID{separation.Balanced, separation.AlternativeAlgorithm}))
		Expect(adapter.IsLoaded(separation.Balanced)).To(BeTrue())
		Expect(adapter.Loaded()).To(HaveLen(2))
	})

	It("keeps separate caches for separate runs", func() {
		other := separation.NewAdapter(engine)
		ExpectSuccess(adapter.Separate(ctx, separation.Balanced, source, device.CPUDevice))
		ExpectSuccess(other.Separate(ctx, separation.Balanced, source, device.CPUDevice))

		Expect(engine.Loads()).To(HaveLen(2))
	})

	Describe("sample rates", func() {
		for _, rate := range []int{7999, 192001} {
			rate := rate
			It("rejects unsupported rates", func() {
				_, err := adapter.Separate(ctx, separation.Balanced, tone(rate, 1, 100), device.CPUDevice)
				Expect(stemerrors.KindOf(err)).To(Equal(stemerrors.UnsupportedSampleRateError))
				Expect(engine.Loads()).To(BeEmpty())
			})
		}

		for _, rate := range []int{8000, 192000} {
			rate := rate
			It("accepts the edges of the range", func() {
				ExpectSuccess(adapter.Separate(ctx, separation.Balanced, tone(rate, 1, 100), device.CPUDevice))
			})
		}
	})

	It("reports load failures as ModelLoadError", func() {
		engine.Unavailable = true

		_, err := adapter.Separate(ctx, separation.Balanced, source, device.CPUDevice)
		Expect(stemerrors.KindOf(err)).To(Equal(stemerrors.ModelLoadError))
		Expect(stemerrors.IsRunFatal(err)).To(BeTrue())
		Expect(adapter.IsLoaded(separation.Balanced)).To(BeFalse())
	})

	It("passes out of memory errors through", func() {
		engine.OutOfMemoryOnDevice = map[device.Kind]bool{device.CUDA: true}
		cuda := device.Device{Kind: device.CUDA, Available: true}

		_, err := adapter.Separate(ctx, separation.Balanced, source, cuda)
		Expect(stemerrors.KindOf(err)).To(Equal(stemerrors.OutOfMemoryError))
	})

	Describe("with a misbehaving model", func() {
		var (
			fakeEngine *separationfakes.FakeEngine
			fakeModel  *separationfakes.FakeModel
		)

		BeforeEach(func() {
			fakeModel = &separationfakes.FakeModel{}
			fakeEngine = &separationfakes.FakeEngine{}
			fakeEngine.LoadReturns(fakeModel, nil)
			adapter = separation.NewAdapter(fakeEngine)
		})

		It("conforms mono sources back from stereo output", func() {
			mono := tone(44100, 1, 1000)
			stereo := mono.Conform(2, 1010)
			fakeModel.SeparateReturns(separation.StemSet{
				separation.Vocals: stereo,
				separation.Drums:  stereo,
				separation.Bass:   stereo,
				separation.Other:  stereo,
			}, nil)

			stems := ExpectSuccess(adapter.Separate(ctx, separation.Balanced, mono, device.CPUDevice))
			for _, name := range separation.StemNames {
				Expect(stems[name].Channels).To(Equal(1))
				Expect(stems[name].Frames()).To(Equal(1000))
			}
		})

		It("rejects output missing a stem", func() {
			fakeModel.SeparateReturns(separation.StemSet{
				separation.Vocals: source,
				separation.Drums:  source,
				separation.Bass:   source,
			}, nil)

			_, err := adapter.Separate(ctx, separation.Balanced, source, device.CPUDevice)
			Expect(err).To(HaveOccurred())
		})

		It("marks unmarked engine load errors as ModelLoadError", func() {
			fakeEngine.LoadReturns(nil, errors.New("weights corrupt"))

			_, err := adapter.Separate(ctx, separation.FineTunedHighQuality, source, device.CPUDevice)
			Expect(stemerrors.KindOf(err)).To(Equal(stemerrors.ModelLoadError))

			_, descriptor := fakeEngine.LoadArgsForCall(0)
			Expect(descriptor.EngineName).To(Equal("htdemucs_ft"))
		})

		It("does not blame the model when the job has run out of time", func() {
			expired, cancel := context.WithTimeout(ctx, 0)
			defer cancel()

			_, err := adapter.Separate(expired, separation.Balanced, source, device.CPUDevice)
			Expect(stemerrors.KindOf(err)).To(Equal(stemerrors.TimeoutError))
			Expect(stemerrors.IsRunFatal(err)).To(BeFalse())
			Expect(fakeEngine.LoadCallCount()).To(BeZero())
		})

		It("releases every loaded model on Close", func() {
			fakeModel.SeparateReturns(separation.StemSet{
				separation.Vocals: source,
				separation.Drums:  source,
				separation.Bass:   source,
				separation.Other:  source,
			}, nil)
			ExpectSuccess(adapter.Separate(ctx, separation.Balanced, source, device.CPUDevice))
			ExpectSuccess(adapter.Separate(ctx, separation.AlternativeAlgorithm, source, device.CPUDevice))

			Expect(adapter.Close()).To(Succeed())
			Expect(fakeModel.CloseCallCount()).To(Equal(2))
			Expect(adapter.Loaded()).To(BeEmpty())
		})

		It("surfaces close failures", func() {
			fakeModel.SeparateReturns(separation.StemSet{
				separation.Vocals: source,
				separation.Drums:  source,
				separation.Bass:   source,
				separation.Other:  source,
			}, nil)
			fakeModel.CloseReturns(errors.New("device busy"))
			ExpectSuccess(adapter.Separate(ctx, separation.Balanced, source, device.CPUDevice))

			Expect(adapter.Close()).NotTo(Succeed())
		})
	})
})
