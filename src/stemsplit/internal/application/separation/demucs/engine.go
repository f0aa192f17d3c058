package demucs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/audio"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/device"
	stemerrors "github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/errors"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/executor"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/separation"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/cerr"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/working_dir"
)

var _ separation.Engine = Engine{}

const outOfMemoryMarker = "out of memory"

func NewEngine(binPath string, repoPath string, workingDir working_dir.WorkingDir, executor executor.Executor) Engine {
	return Engine{
		binPath:    binPath,
		repoPath:   repoPath,
		workingDir: workingDir,
		executor:   executor,
	}
}

// Engine runs the demucs CLI once per separation. A "loaded" model is only a
// verified binary and model name; demucs itself reloads weights per call.
type Engine struct {
	binPath    string
	repoPath   string
	workingDir working_dir.WorkingDir
	executor   executor.Executor
}

func (e Engine) Load(ctx context.Context, descriptor separation.Descriptor) (separation.Model, error) {
	errctx := cerr.Fields(cerr.F{
		"demucs_bin_path": e.binPath,
		"engine_name":     descriptor.EngineName,
	}).Mark(stemerrors.ModelLoadMark)

	if ctx.Err() != nil {
		return nil, errctx.Wrap(ctx.Err()).Error("Context cancelled before loading model")
	}

	binPath, err := e.executor.LookPath(e.binPath)
	if err != nil {
		return nil, errctx.Wrap(err).Error("Demucs executable not found")
	}

	if e.repoPath != "" {
		modelFile := filepath.Join(e.repoPath, descriptor.EngineName+".yaml")
		if _, err := os.Stat(modelFile); err != nil {
			return nil, errctx.Field("model_file", modelFile).
				Wrap(err).Error("Model is missing from the local repo")
		}
	}

	return model{
		engine:     e,
		binPath:    binPath,
		descriptor: descriptor,
	}, nil
}

type model struct {
	engine     Engine
	binPath    string
	descriptor separation.Descriptor
}

func (m model) Separate(ctx context.Context, buffer audio.Buffer, dev device.Device) (separation.StemSet, error) {
	errctx := cerr.Fields(cerr.F{
		"engine_name": m.descriptor.EngineName,
		"device":      dev.Kind,
	})

	// demucs can't be interrupted once started, so this is the last exit
	if ctx.Err() != nil {
		return nil, errctx.Wrap(ctx.Err()).Error("Context cancelled before separating")
	}

	tempDir, cleanup, err := m.engine.workingDir.MakeTempDir("demucs-*")
	if err != nil {
		return nil, errctx.Mark(stemerrors.IOMark).Wrap(err).Error("Failed to create demucs directory")
	}
	defer cleanup()

	inputPath := filepath.Join(tempDir, "input.wav")
	if err := writeInput(inputPath, buffer); err != nil {
		return nil, errctx.Wrap(err).Error("Failed to stage demucs input")
	}

	outputDir := filepath.Join(tempDir, "out")
	if err := m.run(inputPath, outputDir, dev); err != nil {
		return nil, errctx.Wrap(err).Error("Failed to execute demucs")
	}

	stems, err := collectStems(filepath.Join(outputDir, m.descriptor.EngineName))
	if err != nil {
		return nil, errctx.Wrap(err).Error("Failed to collect demucs output")
	}

	return stems, nil
}

func (m model) Close() error {
	return nil
}

func (m model) args(inputPath string, outputDir string, dev device.Device) []string {
	args := []string{
		"-n", m.descriptor.EngineName,
		"-d", string(dev.Kind),
		"-o", outputDir,
		"--filename", "{stem}.{ext}",
		"--int24",
	}

	if m.engine.repoPath != "" {
		args = append(args, "--repo", m.engine.repoPath)
	}

	return append(args, inputPath)
}

func (m model) run(inputPath string, outputDir string, dev device.Device) error {
	logger := log.WithFields(log.Fields{
		"inputPath":  inputPath,
		"outputDir":  outputDir,
		"model":      m.descriptor.EngineName,
		"device":     dev.Kind,
		"workingDir": m.engine.workingDir,
	})

	logger.Info("Running demucs command")

	args := m.args(inputPath, outputDir, dev)
	errctx := cerr.Field("demucs_bin_path", m.binPath).Field("demucs_args", args)

	cmd := m.engine.executor.Command(m.binPath, args...)
	cmd.SetDir(m.engine.workingDir.Root())

	output, err := cmd.CombinedOutput()
	if err != nil {
		errctx = errctx.Field("demucs_output", string(output))
		if strings.Contains(strings.ToLower(string(output)), outOfMemoryMarker) {
			errctx = errctx.Mark(stemerrors.OutOfMemoryMark)
		}

		return errctx.Wrap(err).
			Error(fmt.Sprintf("Error occurred while running demucs: %s", lastLine(output)))
	}

	logger.Debug(string(output))
	logger.Info("Finished demucs command")

	return nil
}

func writeInput(path string, buffer audio.Buffer) error {
	file, err := os.Create(path)
	if err != nil {
		return cerr.Mark(stemerrors.IOMark).Wrap(err).Error("Failed to create input file")
	}
	defer file.Close()

	if err := audio.EncodeWAV(file, buffer, audio.StemBitDepth); err != nil {
		return cerr.Wrap(err).Error("Failed to encode input file")
	}

	return nil
}

func collectStems(dir string) (separation.StemSet, error) {
	logger := log.WithFields(log.Fields{
		"dir": dir,
	})

	logger.Debug("Reading directory to collect stems")

	stems := separation.StemSet{}
	for _, name := range separation.StemNames {
		stemPath := filepath.Join(dir, name.FileName())
		buffer, err := readStem(stemPath)
		if err != nil {
			return nil, cerr.Field("stem_path", stemPath).
				Wrap(err).Error("Failed to read stem")
		}

		stems[name] = buffer
	}

	return stems, nil
}

func readStem(path string) (audio.Buffer, error) {
	file, err := os.Open(path)
	if err != nil {
		return audio.Buffer{}, cerr.Mark(stemerrors.IOMark).Wrap(err).Error("Stem file missing")
	}
	defer file.Close()

	return audio.DecodeWAV(file)
}

func lastLine(output []byte) string {
	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	return lines[len(lines)-1]
}
