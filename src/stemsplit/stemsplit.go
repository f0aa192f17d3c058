package main

import (
	"context"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/veedubyou/stemsplitter/src/stemsplit/application"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/jobs/batch"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/cerr"

	stemcli "github.com/veedubyou/stemsplitter/src/stemsplit/cli"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	log.SetHandler(cli.New(os.Stderr))

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.WithError(err).Warn("Failed to load .env file")
	}

	options, err := stemcli.Parse(args, os.Stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return batch.ExitSuccess
		}
		cerr.Log(err)
		return batch.ExitUsage
	}

	if options.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := application.NewApp(ctx, options.App)
	if err != nil {
		cerr.Log(err)
		return batch.ExitUsage
	}

	log.WithField("run_id", app.RunID()).Info("Starting stem separation")
	return app.Run(ctx)
}
