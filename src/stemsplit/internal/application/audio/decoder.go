package audio

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	stemerrors "github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/errors"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/executor"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/cerr"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/working_dir"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

//counterfeiter:generate . Decoder
type Decoder interface {
	Decode(ctx context.Context, path string) (Buffer, error)
}

var _ Decoder = FileDecoder{}

func NewFileDecoder(ffmpegBinPath string, ffprobeBinPath string, workingDir working_dir.WorkingDir, executor executor.Executor) FileDecoder {
	return FileDecoder{
		ffmpegBinPath:  ffmpegBinPath,
		ffprobeBinPath: ffprobeBinPath,
		workingDir:     workingDir,
		executor:       executor,
	}
}

// FileDecoder reads integer PCM WAV files directly and hands every other
// container to ffmpeg, which converts it to raw float32 at the source rate.
type FileDecoder struct {
	ffmpegBinPath  string
	ffprobeBinPath string
	workingDir     working_dir.WorkingDir
	executor       executor.Executor
}

func (f FileDecoder) Decode(ctx context.Context, path string) (Buffer, error) {
	errctx := cerr.Field("source_path", path)

	if ctx.Err() != nil {
		return Buffer{}, errctx.Wrap(ctx.Err()).Error("Context cancelled before decoding")
	}

	if strings.EqualFold(filepath.Ext(path), ".wav") {
		buffer, err := f.decodeWAVFile(path)
		if err == nil {
			return buffer, nil
		}

		if !errors.Is(err, ErrNotPCM) {
			return Buffer{}, errctx.Wrap(err).Error("Failed to decode WAV file")
		}

		log.WithField("source_path", path).
			Debug("WAV file is not integer PCM, falling back to ffmpeg")
	}

	buffer, err := f.transcode(path)
	if err != nil {
		return Buffer{}, errctx.Wrap(err).Error("Failed to decode audio file")
	}

	return buffer, nil
}

func (f FileDecoder) decodeWAVFile(path string) (Buffer, error) {
	file, err := os.Open(path)
	if err != nil {
		return Buffer{}, cerr.Mark(stemerrors.IOMark).Wrap(err).Error("Failed to open WAV file")
	}
	defer file.Close()

	return DecodeWAV(file)
}

type streamInfo struct {
	SampleRate int
	Channels   int
}

type ffprobeOutput struct {
	Streams []struct {
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
	} `json:"streams"`
}

func (f FileDecoder) probe(path string) (streamInfo, error) {
	args := []string{
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=sample_rate,channels",
		"-of", "json",
		path,
	}

	errctx := cerr.Field("ffprobe_bin_path", f.ffprobeBinPath).
		Field("ffprobe_args", args).
		Mark(stemerrors.IOMark)

	cmd := f.executor.Command(f.ffprobeBinPath, args...)
	cmd.SetDir(f.workingDir.Root())

	output, err := cmd.CombinedOutput()
	if err != nil {
		return streamInfo{}, errctx.Field("ffprobe_output", string(output)).
			Wrap(err).Error(fmt.Sprintf("Error occurred while running ffprobe: %s", string(output)))
	}

	var parsed ffprobeOutput
	if err := json.Unmarshal(output, &parsed); err != nil {
		return streamInfo{}, errctx.Field("ffprobe_output", string(output)).
			Wrap(err).Error("Failed to parse ffprobe output")
	}

	if len(parsed.Streams) == 0 {
		return streamInfo{}, errctx.Error("Source has no audio stream")
	}

	stream := parsed.Streams[0]
	sampleRate, err := strconv.Atoi(stream.SampleRate)
	if err != nil {
		return streamInfo{}, errctx.Field("sample_rate", stream.SampleRate).
			Wrap(err).Error("ffprobe reported a non-numeric sample rate")
	}

	if stream.Channels <= 0 {
		return streamInfo{}, errctx.Field("channels", stream.Channels).
			Error("ffprobe reported no channels")
	}

	return streamInfo{SampleRate: sampleRate, Channels: stream.Channels}, nil
}

func (f FileDecoder) transcode(path string) (Buffer, error) {
	info, err := f.probe(path)
	if err != nil {
		return Buffer{}, cerr.Wrap(err).Error("Failed to probe source")
	}

	tempDir, cleanup, err := f.workingDir.MakeTempDir("decode-*")
	if err != nil {
		return Buffer{}, cerr.Mark(stemerrors.IOMark).Wrap(err).Error("Failed to create decode directory")
	}
	defer cleanup()

	rawPath := filepath.Join(tempDir, "decoded.f32")
	args := []string{
		"-hide_banner", "-nostdin", "-y",
		"-i", path,
		"-vn",
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ar", strconv.Itoa(info.SampleRate),
		"-ac", strconv.Itoa(info.Channels),
		rawPath,
	}

	errctx := cerr.Field("ffmpeg_bin_path", f.ffmpegBinPath).
		Field("ffmpeg_args", args).
		Mark(stemerrors.IOMark)

	logger := log.WithFields(log.Fields{
		"sourcePath": path,
		"sampleRate": info.SampleRate,
		"channels":   info.Channels,
	})
	logger.Debug("Running ffmpeg command")

	cmd := f.executor.Command(f.ffmpegBinPath, args...)
	cmd.SetDir(f.workingDir.Root())

	output, err := cmd.CombinedOutput()
	if err != nil {
		return Buffer{}, errctx.Field("ffmpeg_output", string(output)).
			Wrap(err).Error(fmt.Sprintf("Error occurred while running ffmpeg: %s", string(output)))
	}

	samples, err := readFloat32File(rawPath)
	if err != nil {
		return Buffer{}, errctx.Wrap(err).Error("Failed to read transcoded samples")
	}

	buffer := Buffer{
		SampleRate: info.SampleRate,
		Channels:   info.Channels,
		Samples:    samples,
	}

	if err := buffer.Validate(); err != nil {
		return Buffer{}, errctx.Wrap(err).Error("Transcoded audio is malformed")
	}

	logger.Debug("Finished ffmpeg command")
	return buffer, nil
}

func readFloat32File(path string) ([]float32, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, cerr.Wrap(err).Error("Failed to open raw sample file")
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, cerr.Wrap(err).Error("Failed to stat raw sample file")
	}

	samples := make([]float32, stat.Size()/4)
	if err := binary.Read(bufio.NewReader(file), binary.LittleEndian, samples); err != nil && err != io.EOF {
		return nil, cerr.Wrap(err).Error("Failed to read raw samples")
	}

	return samples, nil
}

// WriteFloat32File writes interleaved samples in the f32le layout ffmpeg
// produces for raw output.
func WriteFloat32File(path string, samples []float32) error {
	file, err := os.Create(path)
	if err != nil {
		return cerr.Wrap(err).Error("Failed to create raw sample file")
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if err := binary.Write(writer, binary.LittleEndian, samples); err != nil {
		return cerr.Wrap(err).Error("Failed to write raw samples")
	}

	if err := writer.Flush(); err != nil {
		return cerr.Wrap(err).Error("Failed to flush raw samples")
	}

	return nil
}
