package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/transcribeflow/internal/services"
	"github.com/desertthunder/transcribeflow/internal/shared"
	"github.com/desertthunder/transcribeflow/internal/upload"
	"github.com/urfave/cli/v3"
)

// Exit codes.
const (
	exitError        = 1
	exitTrialLimited = 2
)

func configPath() string {
	if p := os.Getenv("TFLOW_CONFIG"); p != "" {
		return p
	}
	return "config.toml"
}

func main() {
	logger := shared.NewLogger(nil)

	path := configPath()
	config, err := shared.LoadConfigOrDefault(path)
	if err != nil {
		logger.Warn("failed to load config, using defaults", "path", path, "error", err)
		config = shared.DefaultConfig()
	}
	logger.SetLevel(shared.ParseLogLevel(config.Log.Level))

	timeout, err := config.API.RequestTimeout()
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}
	httpClient := &http.Client{Timeout: timeout}

	api := services.NewAPIService(config.API.BaseURL, httpClient).
		WithRateLimit(config.API.RequestsPerSecond).
		WithLogger(shared.WithLogger(logger, "component", "api"))

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: path,
		API:        api,
		HTTPClient: httpClient,
		Logger:     logger,
	})
	defer runner.Close()

	app := &cli.Command{
		Name:    "tflow",
		Usage:   "Transcribe, summarize and analyze audio with TranscribeFlow",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "Upload with this bearer token instead of the stored session",
				Sources: cli.EnvVars("TFLOW_TOKEN"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("verbose") {
				runner.logger.SetLevel(log.DebugLevel)
			}
			if token := cmd.String("token"); token != "" {
				runner.useToken(token)
			}
			return ctx, nil
		},
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		runner.Close()
		switch {
		case errors.Is(err, shared.ErrNotImplemented):
			logger.Warn("not implemented")
			os.Exit(0)
		case errors.Is(err, upload.ErrTrialLimitReached), errors.Is(err, upload.ErrUploadsLocked):
			os.Exit(exitTrialLimited)
		case errors.Is(err, upload.ErrUploadFailed), errors.Is(err, upload.ErrApplication):
			// already reported by the notifier
			os.Exit(exitError)
		default:
			logger.Error("application error", "error", err)
			os.Exit(exitError)
		}
	}
}
