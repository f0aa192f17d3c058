package dummy

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/audio"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/separation"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/cerr"
)

// StemGains is what the dummy demucs and the stub engine multiply the source
// by to make each stem.
var StemGains = map[separation.StemName]float32{
	separation.Vocals: 0.4,
	separation.Drums:  0.3,
	separation.Bass:   0.2,
	separation.Other:  0.1,
}

// NewDummyMediaExecutor stands in for ffprobe and ffmpeg. Fixture sources of
// any extension hold WAV bytes, which the handlers read to answer.
func NewDummyMediaExecutor() *Executor {
	executor := NewDummyExecutor()
	executor.Handlers["ffprobe"] = ffprobe
	executor.Handlers["ffmpeg"] = ffmpeg
	return executor
}

// NewDummyDemucsExecutor stands in for demucs. Devices listed in
// OutOfMemory fail with the CUDA out of memory message.
func NewDummyDemucsExecutor() *DemucsExecutor {
	demucs := &DemucsExecutor{
		Executor:    NewDummyMediaExecutor(),
		OutOfMemory: map[string]bool{},
	}
	demucs.Handlers["demucs"] = demucs.run
	return demucs
}

type DemucsExecutor struct {
	*Executor
	OutOfMemory map[string]bool
}

func readFixture(path string) (audio.Buffer, error) {
	file, err := os.Open(path)
	if err != nil {
		return audio.Buffer{}, err
	}
	defer file.Close()

	return audio.DecodeWAV(file)
}

func ffprobe(args []string) ([]byte, error) {
	path := args[len(args)-1]
	buffer, err := readFixture(path)
	if err != nil {
		return []byte(path + ": Invalid data found when processing input"), cerr.Wrap(err).Error("exit status 1")
	}

	return json.Marshal(map[string]any{
		"streams": []map[string]any{
			{
				"sample_rate": strconv.Itoa(buffer.SampleRate),
				"channels":    buffer.Channels,
			},
		},
	})
}

func ffmpeg(args []string) ([]byte, error) {
	input := flagValue(args, "-i")
	output := args[len(args)-1]

	buffer, err := readFixture(input)
	if err != nil {
		return []byte(input + ": Invalid data found when processing input"), cerr.Wrap(err).Error("exit status 1")
	}

	if err := audio.WriteFloat32File(output, buffer.Samples); err != nil {
		return nil, err
	}

	return []byte("size=N/A time=00:00:01.00 bitrate=N/A speed= 100x"), nil
}

func (d *DemucsExecutor) run(args []string) ([]byte, error) {
	modelName := flagValue(args, "-n")
	deviceName := flagValue(args, "-d")
	outputDir := flagValue(args, "-o")
	input := args[len(args)-1]

	if d.OutOfMemory[deviceName] {
		return []byte("RuntimeError: CUDA out of memory. Tried to allocate 2.00 GiB"), cerr.Error("exit status 1")
	}

	source, err := readFixture(input)
	if err != nil {
		return []byte("Could not load file " + input), cerr.Wrap(err).Error("exit status 1")
	}

	// demucs always produces stereo
	stereo := source.Conform(2, source.Frames())

	stemDir := filepath.Join(outputDir, modelName)
	if err := os.MkdirAll(stemDir, 0o755); err != nil {
		return nil, err
	}

	for name, gain := range StemGains {
		if err := writeStem(filepath.Join(stemDir, name.FileName()), Scale(stereo, gain)); err != nil {
			return nil, err
		}
	}

	return []byte("Separated tracks will be stored in " + stemDir), nil
}

func writeStem(path string, buffer audio.Buffer) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return audio.EncodeWAV(file, buffer, audio.StemBitDepth)
}

func Scale(buffer audio.Buffer, gain float32) audio.Buffer {
	scaled := buffer.Clone()
	for i := range scaled.Samples {
		scaled.Samples[i] *= gain
	}

	return scaled
}

func flagValue(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}

	return ""
}
