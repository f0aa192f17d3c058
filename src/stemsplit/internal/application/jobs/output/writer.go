package output

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/apex/log"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/audio"
	stemerrors "github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/errors"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/separation"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/cerr"
)

const (
	tempSuffix = ".partial"
	stemMode   = 0o644
)

var rename = os.Rename

func NewWriter() *Writer {
	return &Writer{}
}

// Writer materializes a StemSet as four WAV files. Every stem is staged to a
// temp file in the target directory first; final names only appear once all
// four are safely on disk, and a rewrite that fails half way puts the
// previous set back.
type Writer struct {
	mutex sync.Mutex
}

type stagedStem struct {
	tempPath   string
	finalPath  string
	backupPath string
}

func (w *Writer) Write(ctx context.Context, stems separation.StemSet, outputDir string) ([]string, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	errctx := cerr.Field("output_dir", outputDir)

	if ctx.Err() != nil {
		return nil, errctx.Wrap(ctx.Err()).Error("Context cancelled before writing stems")
	}

	if err := os.MkdirAll(outputDir, os.ModePerm); err != nil {
		return nil, errctx.Mark(stemerrors.IOMark).Wrap(err).Error("Failed to create output directory")
	}

	var staged []stagedStem
	discard := func() {
		for _, stem := range staged {
			_ = os.Remove(stem.tempPath)
		}
	}

	for _, name := range separation.StemNames {
		if ctx.Err() != nil {
			discard()
			return nil, errctx.Wrap(ctx.Err()).Error("Context cancelled while staging stems")
		}

		buffer, ok := stems[name]
		if !ok {
			discard()
			return nil, errctx.Field("stem", name).Mark(stemerrors.IOMark).Error("Stem set is missing a stem")
		}

		tempPath, err := stage(outputDir, name, buffer)
		if tempPath != "" {
			staged = append(staged, stagedStem{
				tempPath:  tempPath,
				finalPath: filepath.Join(outputDir, name.FileName()),
			})
		}

		if err != nil {
			discard()
			return nil, errctx.Field("stem", name).Wrap(err).Error("Failed to stage stem")
		}
	}

	// last point where the job can still back out without touching final names
	if ctx.Err() != nil {
		discard()
		return nil, errctx.Wrap(ctx.Err()).Error("Context cancelled before committing stems")
	}

	paths, err := commit(staged)
	if err != nil {
		return nil, errctx.Wrap(err).Error("Failed to commit stems")
	}

	syncDir(outputDir)

	log.WithFields(log.Fields{
		"output_dir": outputDir,
		"stems":      len(paths),
	}).Debug("Committed stems")

	return paths, nil
}

// commit renames every staged stem into place. Stems already under the final
// names are set aside first and restored when any rename fails.
func commit(staged []stagedStem) ([]string, error) {
	removeTemps := func(stems []stagedStem) {
		for _, stem := range stems {
			_ = os.Remove(stem.tempPath)
		}
	}

	var backedUp []stagedStem
	restore := func() {
		for _, stem := range backedUp {
			if err := rename(stem.backupPath, stem.finalPath); err != nil {
				log.WithError(err).WithField("stem_path", stem.finalPath).Error("Failed to restore previous stem")
			}
		}
	}

	for i := range staged {
		stem := &staged[i]
		if _, err := os.Lstat(stem.finalPath); err != nil {
			continue
		}

		stem.backupPath = filepath.Join(filepath.Dir(stem.finalPath), "."+filepath.Base(stem.finalPath)+"-previous"+tempSuffix)
		if err := rename(stem.finalPath, stem.backupPath); err != nil {
			restore()
			removeTemps(staged)
			return nil, cerr.Field("stem_path", stem.finalPath).
				Mark(stemerrors.IOMark).
				Wrap(err).Error("Failed to set aside previous stem")
		}
		backedUp = append(backedUp, *stem)
	}

	paths := make([]string, 0, len(staged))
	for i, stem := range staged {
		if err := rename(stem.tempPath, stem.finalPath); err != nil {
			for _, committed := range staged[:i] {
				_ = os.Remove(committed.finalPath)
			}
			removeTemps(staged[i:])
			restore()

			return nil, cerr.Field("stem_path", stem.finalPath).
				Mark(stemerrors.IOMark).
				Wrap(err).Error("Failed to commit stem")
		}

		paths = append(paths, stem.finalPath)
	}

	for _, stem := range backedUp {
		_ = os.Remove(stem.backupPath)
	}

	return paths, nil
}

// stage writes one stem to a temp file and fsyncs it. The temp path is
// returned even on failure so the caller can remove it.
func stage(outputDir string, name separation.StemName, buffer audio.Buffer) (string, error) {
	file, err := os.CreateTemp(outputDir, "."+string(name)+"-*.wav"+tempSuffix)
	if err != nil {
		return "", cerr.Mark(stemerrors.IOMark).Wrap(err).Error("Failed to create temp file")
	}

	tempPath := file.Name()
	errctx := cerr.Field("temp_path", tempPath).Mark(stemerrors.IOMark)

	// CreateTemp files are owner-only
	if err := file.Chmod(stemMode); err != nil {
		_ = file.Close()
		return tempPath, errctx.Wrap(err).Error("Failed to set stem permissions")
	}

	if err := audio.EncodeWAV(file, buffer, audio.StemBitDepth); err != nil {
		_ = file.Close()
		return tempPath, errctx.Wrap(err).Error("Failed to encode stem")
	}

	if err := file.Sync(); err != nil {
		_ = file.Close()
		return tempPath, errctx.Wrap(err).Error("Failed to flush stem to disk")
	}

	if err := file.Close(); err != nil {
		return tempPath, errctx.Wrap(err).Error("Failed to close stem file")
	}

	return tempPath, nil
}

// syncDir persists the renames. Not every platform supports syncing a
// directory, so failures are only logged.
func syncDir(dir string) {
	handle, err := os.Open(dir)
	if err != nil {
		return
	}
	defer handle.Close()

	if err := handle.Sync(); err != nil {
		log.WithError(err).WithField("dir", dir).Debug("Could not sync output directory")
	}
}
