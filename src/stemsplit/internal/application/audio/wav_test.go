package audio_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/veedubyou/stemsplitter/src/shared/testing"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/audio"
)

var _ = Describe("WAV codec", func() {
	var (
		dir    string
		path   string
		source audio.Buffer
	)

	BeforeEach(func() {
		dir = ExpectSuccess(os.MkdirTemp("", "wav-test-*"))
		DeferCleanup(os.RemoveAll, dir)
		path = filepath.Join(dir, "out.wav")

		source = audio.NewBuffer(44100, 2, 1000)
		for i := range source.Samples {
			source.Samples[i] = float32(i%200-100) / 200
		}
	})

	encode := func(buffer audio.Buffer) {
		file := ExpectSuccess(os.Create(path))
		defer file.Close()
		Expect(audio.EncodeWAV(file, buffer, audio.StemBitDepth)).To(Succeed())
	}

	decode := func() audio.Buffer {
		file := ExpectSuccess(os.Open(path))
		defer file.Close()
		return ExpectSuccess(audio.DecodeWAV(file))
	}

	It("writes 24-bit PCM at the source rate and channel count", func() {
		encode(source)

		format := ReadWAVFormat(path)
		Expect(format).To(Equal(WAVFormat{
			SampleRate: 44100,
			Channels:   2,
			BitDepth:   24,
			Frames:     1000,
		}))
	})

	It("round trips samples within quantization error", func() {
		encode(source)
		decoded := decode()

		Expect(decoded.SampleRate).To(Equal(source.SampleRate))
		Expect(decoded.Channels).To(Equal(source.Channels))
		Expect(decoded.Samples).To(HaveLen(len(source.Samples)))
		for i := range source.Samples {
			Expect(decoded.Samples[i]).To(BeNumerically("~", source.Samples[i], 1e-6))
		}
	})

	It("clips samples outside the unit range", func() {
		loud := audio.Buffer{SampleRate: 8000, Channels: 1, Samples: []float32{2, -2, 0}}
		encode(loud)
		decoded := decode()

		Expect(decoded.Samples[0]).To(BeNumerically("~", 1, 1e-6))
		Expect(decoded.Samples[1]).To(BeNumerically("~", -1, 1e-6))
		Expect(decoded.Samples[2]).To(BeZero())
	})

	It("reads 16-bit fixtures", func() {
		WriteToneWAV(path, 22050, 1, 500)
		decoded := decode()

		Expect(decoded.SampleRate).To(Equal(22050))
		Expect(decoded.Channels).To(Equal(1))
		Expect(decoded.Frames()).To(Equal(500))
	})

	It("rejects files that are not WAV", func() {
		WriteFile(path, "definitely not riff")

		file := ExpectSuccess(os.Open(path))
		defer file.Close()

		_, err := audio.DecodeWAV(file)
		Expect(err).To(HaveOccurred())
	})
})
