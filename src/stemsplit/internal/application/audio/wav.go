package audio

import (
	"io"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	stemerrors "github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/errors"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/cerr"
)

const (
	StemBitDepth = 24

	wavFormatPCM = 1
)

var ErrNotPCM = cerr.Error("WAV payload is not integer PCM")

// EncodeWAV writes the buffer as uncompressed integer PCM at the given bit
// depth. The writer is left open; the encoder seeks back to patch the header.
func EncodeWAV(w io.WriteSeeker, buffer Buffer, bitDepth int) error {
	if err := buffer.Validate(); err != nil {
		return cerr.Wrap(err).Error("Refusing to encode an invalid buffer")
	}

	errctx := cerr.Fields(cerr.F{
		"sample_rate": buffer.SampleRate,
		"channels":    buffer.Channels,
		"bit_depth":   bitDepth,
	}).Mark(stemerrors.IOMark)

	encoder := wav.NewEncoder(w, buffer.SampleRate, bitDepth, buffer.Channels, wavFormatPCM)

	intBuffer := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: buffer.Channels,
			SampleRate:  buffer.SampleRate,
		},
		Data:           make([]int, len(buffer.Samples)),
		SourceBitDepth: bitDepth,
	}

	peak := float64(int64(1)<<(bitDepth-1)) - 1
	for i, sample := range buffer.Samples {
		intBuffer.Data[i] = quantize(sample, peak)
	}

	if err := encoder.Write(intBuffer); err != nil {
		return errctx.Wrap(err).Error("Failed to write PCM data")
	}

	if err := encoder.Close(); err != nil {
		return errctx.Wrap(err).Error("Failed to finalize WAV header")
	}

	return nil
}

// DecodeWAV reads an integer PCM WAV. ErrNotPCM is returned (wrapped) for
// float or compressed payloads so callers can route those elsewhere.
func DecodeWAV(r io.ReadSeeker) (Buffer, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return Buffer{}, cerr.Mark(stemerrors.IOMark).Error("Not a valid WAV file")
	}

	errctx := cerr.Fields(cerr.F{
		"wav_format": decoder.WavAudioFormat,
		"bit_depth":  decoder.BitDepth,
	})

	if decoder.WavAudioFormat != wavFormatPCM {
		return Buffer{}, errctx.Wrap(ErrNotPCM).Error("Unsupported WAV encoding")
	}

	switch decoder.BitDepth {
	case 16, 24, 32:
	default:
		return Buffer{}, errctx.Wrap(ErrNotPCM).Error("Unsupported WAV bit depth")
	}

	intBuffer, err := decoder.FullPCMBuffer()
	if err != nil {
		return Buffer{}, errctx.Mark(stemerrors.IOMark).
			Wrap(err).Error("Failed to read PCM data")
	}

	buffer := Buffer{
		SampleRate: int(decoder.SampleRate),
		Channels:   int(decoder.NumChans),
		Samples:    make([]float32, len(intBuffer.Data)),
	}

	scale := float32(int64(1) << (decoder.BitDepth - 1))
	for i, sample := range intBuffer.Data {
		buffer.Samples[i] = float32(sample) / scale
	}

	if err := buffer.Validate(); err != nil {
		return Buffer{}, errctx.Wrap(err).Error("Decoded WAV is malformed")
	}

	return buffer, nil
}

func quantize(sample float32, peak float64) int {
	scaled := math.Round(float64(sample) * (peak + 1))
	if scaled > peak {
		return int(peak)
	}

	if scaled < -peak-1 {
		return int(-peak - 1)
	}

	return int(scaled)
}
