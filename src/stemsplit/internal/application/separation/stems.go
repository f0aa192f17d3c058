package separation

import (
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/audio"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/cerr"
)

type StemName string

const (
	Vocals StemName = "vocals"
	Drums  StemName = "drums"
	Bass   StemName = "bass"
	Other  StemName = "other"
)

// StemNames is the order stems are written and reported in.
var StemNames = []StemName{Vocals, Drums, Bass, Other}

func (s StemName) FileName() string {
	return string(s) + ".wav"
}

// StemSet holds exactly one buffer per name in StemNames.
type StemSet map[StemName]audio.Buffer

// FrameTolerance is how far a raw engine output may drift from the source
// length before it is treated as broken rather than padded or trimmed.
const FrameTolerance = 4096

// Conform checks every stem is present and reshapes each to the source's
// sample rate, channel count and frame count.
func (s StemSet) Conform(source audio.Buffer) (StemSet, error) {
	if len(s) != len(StemNames) {
		return nil, cerr.Field("stem_count", len(s)).Error("Engine returned the wrong number of stems")
	}

	conformed := make(StemSet, len(StemNames))
	for _, name := range StemNames {
		stem, ok := s[name]
		if !ok {
			return nil, cerr.Field("stem", name).Error("Engine output is missing a stem")
		}

		errctx := cerr.Fields(cerr.F{
			"stem":          name,
			"stem_rate":     stem.SampleRate,
			"source_rate":   source.SampleRate,
			"stem_frames":   stem.Frames(),
			"source_frames": source.Frames(),
		})

		if err := stem.Validate(); err != nil {
			return nil, errctx.Wrap(err).Error("Engine produced a malformed stem")
		}

		if stem.SampleRate != source.SampleRate {
			return nil, errctx.Error("Stem sample rate does not match the source")
		}

		drift := stem.Frames() - source.Frames()
		if drift > FrameTolerance || drift < -FrameTolerance {
			return nil, errctx.Error("Stem length drifted too far from the source")
		}

		conformed[name] = stem.Conform(source.Channels, source.Frames())
	}

	return conformed, nil
}
