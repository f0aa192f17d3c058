package input

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/apex/log"
	stemerrors "github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/errors"
	jobentity "github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/jobs/entity"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/separation"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/cerr"
)

// DefaultBatchOutputDirName is created inside the input directory when a
// batch run has no explicit output directory.
const DefaultBatchOutputDirName = "stems"

var supportedExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".flac": true,
	".m4a":  true,
	".aac":  true,
	".ogg":  true,
}

func IsSupported(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

type Options struct {
	OutputDir string
	Recursive bool
}

func NewResolver(options Options) Resolver {
	return Resolver{options: options}
}

// Resolver turns an input path into Pending jobs. It only reads the
// filesystem.
type Resolver struct {
	options Options
}

// OutputDir is where the run writes: the configured directory, or next to
// the input when none was given.
func (r Resolver) OutputDir(path string, batch bool) (string, error) {
	outputDir := r.options.OutputDir
	if outputDir == "" {
		if batch {
			outputDir = filepath.Join(path, DefaultBatchOutputDirName)
		} else {
			outputDir = filepath.Dir(path)
		}
	}

	absOutputDir, err := filepath.Abs(outputDir)
	if err != nil {
		return "", cerr.Field("output_dir", outputDir).
			Mark(stemerrors.InputMark).
			Wrap(err).Error("Cannot convert output dir to absolute format")
	}

	return absOutputDir, nil
}

func (r Resolver) Resolve(path string, batch bool) ([]*jobentity.Job, error) {
	errctx := cerr.Fields(cerr.F{
		"input_path": path,
		"batch":      batch,
	}).Mark(stemerrors.InputMark)

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errctx.Wrap(err).Error("Cannot convert input path to absolute format")
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, errctx.Wrap(err).Error("Input path does not exist")
	}

	outputDir, err := r.OutputDir(absPath, batch)
	if err != nil {
		return nil, err
	}

	var sources []string
	if batch {
		if !info.IsDir() {
			return nil, errctx.Error("Batch mode needs a directory")
		}

		sources, err = r.collect(absPath, outputDir)
		if err != nil {
			return nil, errctx.Wrap(err).Error("Failed to read input directory")
		}

		if len(sources) == 0 {
			return nil, errctx.Error("No supported audio files found in directory")
		}
	} else {
		if !info.Mode().IsRegular() {
			return nil, errctx.Error("Input is not a regular file, use --batch for directories")
		}

		if !IsSupported(absPath) {
			return nil, errctx.Field("extension", filepath.Ext(absPath)).
				Error("Unsupported file extension")
		}

		sources = []string{absPath}
	}

	jobs := make([]*jobentity.Job, 0, len(sources))
	for _, source := range sources {
		jobs = append(jobs, jobentity.NewJob(source, ""))
	}
	assignOutputDirs(jobs, outputDir)

	log.WithFields(log.Fields{
		"input_path": absPath,
		"output_dir": outputDir,
		"jobs":       len(jobs),
	}).Debug("Resolved input")

	return jobs, nil
}

func (r Resolver) collect(dir string, outputDir string) ([]string, error) {
	// an output dir at or above the input also holds the sources, so only a
	// dedicated one below the input is skipped wholesale
	skipOutputDir := outputDir != dir && isWithin(outputDir, dir)

	var sources []string

	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.IsDir() {
			if path == dir {
				return nil
			}
			if !r.options.Recursive || (skipOutputDir && isWithin(path, outputDir)) || isStemDir(path) {
				return filepath.SkipDir
			}
			return nil
		}

		if !entry.Type().IsRegular() || !IsSupported(path) {
			return nil
		}

		if skipOutputDir && isWithin(path, outputDir) {
			return nil
		}

		sources = append(sources, path)
		return nil
	})

	if err != nil {
		return nil, err
	}

	sort.Strings(sources)
	return sources, nil
}

// isStemDir reports whether dir holds a complete set of stems from an earlier
// run.
func isStemDir(dir string) bool {
	for _, name := range separation.StemNames {
		info, err := os.Stat(filepath.Join(dir, name.FileName()))
		if err != nil || !info.Mode().IsRegular() {
			return false
		}
	}

	return true
}

// assignOutputDirs gives each job <outputDir>/<base name>, suffixing -2, -3
// and so on when base names collide, in job order.
func assignOutputDirs(jobs []*jobentity.Job, outputDir string) {
	taken := map[string]bool{}

	for _, job := range jobs {
		base := filepath.Base(job.SourcePath)
		base = strings.TrimSuffix(base, filepath.Ext(base))

		name := base
		for suffix := 2; taken[name]; suffix++ {
			name = fmt.Sprintf("%s-%d", base, suffix)
		}

		taken[name] = true
		job.OutputDir = filepath.Join(outputDir, name)
	}
}

func isWithin(path string, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}

	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
