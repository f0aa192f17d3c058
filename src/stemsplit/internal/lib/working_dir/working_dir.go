package working_dir

import (
	"os"
	"path/filepath"

	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/cerr"
)

const tempDirName = "tmp"

// WorkingDir is an absolute scratch root with a temp subdirectory that
// external tools write into.
type WorkingDir struct {
	root string
}

func NewWorkingDir(root string) (WorkingDir, error) {
	if root == "" {
		root = filepath.Join(os.TempDir(), "stemsplit")
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return WorkingDir{}, cerr.Field("root", root).
			Wrap(err).Error("Failed to convert working dir to absolute format")
	}

	workingDir := WorkingDir{root: absRoot}
	if err := os.MkdirAll(workingDir.TempDir(), os.ModePerm); err != nil {
		return WorkingDir{}, cerr.Field("temp_dir", workingDir.TempDir()).
			Wrap(err).Error("Failed to create working temp dir")
	}

	return workingDir, nil
}

func (w WorkingDir) Root() string {
	return w.root
}

func (w WorkingDir) TempDir() string {
	return filepath.Join(w.root, tempDirName)
}

// MakeTempDir creates a fresh directory under TempDir and returns it with a
// cleanup func that removes it.
func (w WorkingDir) MakeTempDir(pattern string) (string, func(), error) {
	tempDir, err := os.MkdirTemp(w.TempDir(), pattern)
	if err != nil {
		return "", nil, cerr.Field("temp_dir", w.TempDir()).
			Wrap(err).Error("Failed to create temp dir")
	}

	cleanup := func() {
		_ = os.RemoveAll(tempDir)
	}

	return tempDir, cleanup, nil
}

func (w WorkingDir) String() string {
	return w.root
}
