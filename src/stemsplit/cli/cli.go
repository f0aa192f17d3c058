package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"github.com/veedubyou/stemsplitter/src/shared/config"
	"github.com/veedubyou/stemsplitter/src/shared/config/dev"
	"github.com/veedubyou/stemsplitter/src/shared/config/envvar"
	"github.com/veedubyou/stemsplitter/src/stemsplit/application"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/device"
	stemerrors "github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/errors"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/history"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/separation"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/cerr"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/storagepath"
)

const (
	defaultS3Endpoint = "s3.amazonaws.com"
	defaultS3Region   = "us-east-1"
)

// Options is everything the command line decides.
type Options struct {
	App     application.Config
	Verbose bool
}

// FileConfig is the --config YAML document. Keys mirror the long flag names
// and only fill in flags that were not given on the command line.
type FileConfig struct {
	Batch         *bool  `yaml:"batch"`
	Recursive     *bool  `yaml:"recursive"`
	Model         string `yaml:"model"`
	Device        string `yaml:"device"`
	Output        string `yaml:"output"`
	Timeout       string `yaml:"timeout"`
	Overlap       *bool  `yaml:"overlap"`
	DemucsBin     string `yaml:"demucs-bin"`
	DemucsRepo    string `yaml:"demucs-repo"`
	FFmpegBin     string `yaml:"ffmpeg-bin"`
	FFprobeBin    string `yaml:"ffprobe-bin"`
	WorkDir       string `yaml:"work-dir"`
	Upload        string `yaml:"upload"`
	History       string `yaml:"history"`
	ProgressQueue string `yaml:"progress-queue"`
	StatusAddr    string `yaml:"status-addr"`
	Verbose       *bool  `yaml:"verbose"`
}

func (f FileConfig) flagValues() map[string]string {
	values := map[string]string{}

	setString := func(name string, value string) {
		if value != "" {
			values[name] = value
		}
	}
	setBool := func(name string, value *bool) {
		if value != nil {
			values[name] = strconv.FormatBool(*value)
		}
	}

	setBool("batch", f.Batch)
	setBool("recursive", f.Recursive)
	setString("model", f.Model)
	setString("device", f.Device)
	setString("output", f.Output)
	setString("timeout", f.Timeout)
	setBool("overlap", f.Overlap)
	setString("demucs-bin", f.DemucsBin)
	setString("demucs-repo", f.DemucsRepo)
	setString("ffmpeg-bin", f.FFmpegBin)
	setString("ffprobe-bin", f.FFprobeBin)
	setString("work-dir", f.WorkDir)
	setString("upload", f.Upload)
	setString("history", f.History)
	setString("progress-queue", f.ProgressQueue)
	setString("status-addr", f.StatusAddr)
	setBool("verbose", f.Verbose)

	return values
}

type flagValues struct {
	configPath string

	batch     bool
	recursive bool
	model     string
	device    string
	output    string
	timeout   time.Duration
	overlap   bool

	demucsBin  string
	demucsRepo string
	ffmpegBin  string
	ffprobeBin string
	workDir    string

	upload        string
	history       string
	progressQueue string
	statusAddr    string

	verbose bool
}

func newFlagSet(values *flagValues, usageOutput io.Writer) *pflag.FlagSet {
	flags := pflag.NewFlagSet("stemsplit", pflag.ContinueOnError)
	flags.SetOutput(usageOutput)
	flags.SortFlags = false
	flags.Usage = func() {
		fmt.Fprintln(usageOutput, "Usage: stemsplit [flags] <input path>")
		fmt.Fprintln(usageOutput)
		flags.PrintDefaults()
	}

	flags.BoolVar(&values.batch, "batch", false, "treat the input path as a directory of audio files")
	flags.BoolVarP(&values.recursive, "recursive", "r", false, "descend into subdirectories in batch mode")
	flags.StringVarP(&values.model, "model", "m", string(separation.Balanced), "balanced | fine-tuned-high-quality | alternative-algorithm")
	flags.StringVarP(&values.device, "device", "d", string(device.RequestAuto), "auto | cuda | mps | cpu")
	flags.StringVarP(&values.output, "output", "o", "", "output directory (default alongside the input)")
	flags.DurationVar(&values.timeout, "timeout", 0, "per-job timeout, 0 for none")
	flags.BoolVar(&values.overlap, "overlap", false, "decode the next file while the current one is separating")
	flags.StringVar(&values.configPath, "config", "", "YAML file providing defaults for these flags")

	flags.StringVar(&values.demucsBin, "demucs-bin", envvar.GetOr(envvar.DEMUCS_BIN_PATH, "demucs"), "demucs executable")
	flags.StringVar(&values.demucsRepo, "demucs-repo", "", "local demucs model repository")
	flags.StringVar(&values.ffmpegBin, "ffmpeg-bin", envvar.GetOr(envvar.FFMPEG_BIN_PATH, "ffmpeg"), "ffmpeg executable")
	flags.StringVar(&values.ffprobeBin, "ffprobe-bin", "ffprobe", "ffprobe executable")
	flags.StringVar(&values.workDir, "work-dir", "", "scratch directory (default under the OS temp dir)")

	flags.StringVar(&values.upload, "upload", "", "also upload stems to gs://bucket/prefix or s3://bucket/prefix")
	flags.StringVar(&values.history, "history", "", "record jobs to sqlite:///path.db or dynamo://Table?region=...&endpoint=...")
	flags.StringVar(&values.progressQueue, "progress-queue", "", "RabbitMQ queue to publish progress events to")
	flags.StringVar(&values.statusAddr, "status-addr", "", "serve progress events over HTTP at this address")
	flags.BoolVarP(&values.verbose, "verbose", "v", false, "debug logging")

	return flags
}

// Parse turns argv (without the program name) into validated options.
// pflag.ErrHelp is returned as is when help was requested.
func Parse(args []string, usageOutput io.Writer) (Options, error) {
	var values flagValues
	flags := newFlagSet(&values, usageOutput)

	if err := flags.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return Options{}, err
		}
		return Options{}, usageError(err, "Invalid flags")
	}

	if values.configPath != "" {
		var fileConfig FileConfig
		if err := config.LoadYAMLFile(values.configPath, &fileConfig); err != nil {
			return Options{}, usageError(err, "Invalid config file")
		}

		for name, value := range fileConfig.flagValues() {
			if flags.Changed(name) {
				continue
			}
			if err := flags.Set(name, value); err != nil {
				return Options{}, usageError(err, fmt.Sprintf("Invalid %s in config file", name))
			}
		}
	}

	if flags.NArg() != 1 {
		return Options{}, cerr.Field("args", flags.Args()).
			Mark(stemerrors.InputMark).
			Error("Expected exactly one input path")
	}

	appConfig, err := values.appConfig(flags.Arg(0))
	if err != nil {
		return Options{}, err
	}

	return Options{
		App:     appConfig,
		Verbose: values.verbose,
	}, nil
}

func (v flagValues) appConfig(inputPath string) (application.Config, error) {
	model, err := separation.ParseModelID(v.model)
	if err != nil {
		return application.Config{}, err
	}

	requested, err := device.ParseRequested(v.device)
	if err != nil {
		return application.Config{}, err
	}

	if v.timeout < 0 {
		return application.Config{}, cerr.Field("timeout", v.timeout).
			Mark(stemerrors.InputMark).
			Error("Timeout cannot be negative")
	}

	if v.recursive && !v.batch {
		return application.Config{}, cerr.Mark(stemerrors.InputMark).
			Error("--recursive only applies with --batch")
	}

	appConfig := application.Config{
		InputPath: inputPath,
		Batch:     v.batch,
		Recursive: v.recursive,
		OutputDir: v.output,

		Model:   model,
		Device:  requested,
		Timeout: v.timeout,
		Overlap: v.overlap,

		DemucsBinPath:  v.demucsBin,
		DemucsRepoPath: v.demucsRepo,
		FFmpegBinPath:  v.ffmpegBin,
		FFprobeBinPath: v.ffprobeBin,
		WorkingDirPath: v.workDir,

		StatusAddr: v.statusAddr,
	}

	if v.upload != "" {
		uploadConfig, err := parseUpload(v.upload)
		if err != nil {
			return application.Config{}, err
		}
		appConfig.Upload = &uploadConfig
	}

	if v.history != "" {
		target, err := history.ParseTarget(v.history)
		if err != nil {
			return application.Config{}, err
		}
		appConfig.History = &target
	}

	if v.progressQueue != "" {
		appConfig.ProgressQueueName = v.progressQueue
		appConfig.RabbitMQURL = envvar.GetOr(envvar.RABBITMQ_URL, dev.RabbitMQHost)
	}

	return appConfig, nil
}

func parseUpload(target string) (application.UploadConfig, error) {
	errctx := cerr.Field("upload", target).Mark(stemerrors.InputMark)

	generator, err := storagepath.ParseGenerator(target)
	if err != nil {
		return application.UploadConfig{}, errctx.Wrap(err).Error("Invalid upload target")
	}

	var storageConfig config.CloudStorage
	switch generator.Scheme {
	case config.GoogleCloudStorage{}.GetScheme():
		storageConfig = config.GoogleCloudStorage{
			SecretKey: envvar.Get(envvar.GOOGLE_CLOUD_KEY),
		}

	case config.S3CloudStorage{}.GetScheme():
		insecure, _ := strconv.ParseBool(envvar.Get(envvar.S3_INSECURE))
		storageConfig = config.S3CloudStorage{
			Endpoint:  envvar.GetOr(envvar.S3_ENDPOINT, defaultS3Endpoint),
			AccessKey: envvar.GetOr(envvar.S3_ACCESS_KEY, envvar.Get(envvar.AWS_ACCESS_KEY_ID)),
			SecretKey: envvar.GetOr(envvar.S3_SECRET_KEY, envvar.Get(envvar.AWS_SECRET_ACCESS_KEY)),
			Region:    defaultS3Region,
			Insecure:  insecure,
		}

	default:
		return application.UploadConfig{}, errctx.Field("scheme", generator.Scheme).
			Error("Upload target must be gs:// or s3://")
	}

	return application.UploadConfig{
		PathGenerator:      generator,
		CloudStorageConfig: storageConfig,
	}, nil
}

func usageError(err error, msg string) error {
	return cerr.Mark(stemerrors.InputMark).Wrap(err).Error(msg)
}
