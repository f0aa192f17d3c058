package audio

import (
	"time"

	stemerrors "github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/errors"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/cerr"
)

// Buffer is decoded PCM audio. Samples are interleaved by channel and
// normalized to [-1, 1].
type Buffer struct {
	SampleRate int
	Channels   int
	Samples    []float32
}

func NewBuffer(sampleRate int, channels int, frames int) Buffer {
	return Buffer{
		SampleRate: sampleRate,
		Channels:   channels,
		Samples:    make([]float32, frames*channels),
	}
}

func (b Buffer) Frames() int {
	if b.Channels <= 0 {
		return 0
	}

	return len(b.Samples) / b.Channels
}

func (b Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}

	return time.Duration(b.Frames()) * time.Second / time.Duration(b.SampleRate)
}

func (b Buffer) Clone() Buffer {
	clone := b
	clone.Samples = append([]float32(nil), b.Samples...)
	return clone
}

func (b Buffer) Validate() error {
	errctx := cerr.Fields(cerr.F{
		"sample_rate": b.SampleRate,
		"channels":    b.Channels,
		"samples":     len(b.Samples),
	})

	if b.SampleRate <= 0 {
		return errctx.Mark(stemerrors.IOMark).Error("Buffer has no sample rate")
	}

	if b.Channels <= 0 {
		return errctx.Mark(stemerrors.IOMark).Error("Buffer has no channels")
	}

	if len(b.Samples)%b.Channels != 0 {
		return errctx.Mark(stemerrors.IOMark).Error("Buffer samples are not a whole number of frames")
	}

	return nil
}

// Conform returns a new buffer with the given channel count and frame count.
// Extra channels are folded down by averaging, missing channels repeat the
// existing ones, and frames are zero padded or truncated.
func (b Buffer) Conform(channels int, frames int) Buffer {
	out := NewBuffer(b.SampleRate, channels, frames)
	srcFrames := b.Frames()
	if b.Channels <= 0 || channels <= 0 {
		return out
	}

	for frame := 0; frame < frames && frame < srcFrames; frame++ {
		src := b.Samples[frame*b.Channels : (frame+1)*b.Channels]
		dst := out.Samples[frame*channels : (frame+1)*channels]

		switch {
		case channels == b.Channels:
			copy(dst, src)

		case channels < b.Channels:
			// fold source channel i into destination channel i % channels
			counts := make([]int, channels)
			for i, sample := range src {
				dst[i%channels] += sample
				counts[i%channels]++
			}
			for i := range dst {
				dst[i] /= float32(counts[i])
			}

		default:
			for i := range dst {
				dst[i] = src[i%b.Channels]
			}
		}
	}

	return out
}
