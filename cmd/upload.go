package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/transcribeflow/internal/models"
	"github.com/desertthunder/transcribeflow/internal/repositories"
	"github.com/desertthunder/transcribeflow/internal/shared"
	"github.com/desertthunder/transcribeflow/internal/upload"
	"github.com/urfave/cli/v3"
)

// Upload sends one audio file for transcription and prints the result.
func (r *Runner) Upload(ctx context.Context, cmd *cli.Command) error {
	path := shared.CleanDroppedPath(cmd.StringArg("file"))
	if path == "" {
		return fmt.Errorf("%w: audio file path", shared.ErrMissingArgument)
	}
	if err := shared.VerifyFile(path); err != nil {
		return err
	}

	svc, err := r.service()
	if err != nil {
		return err
	}

	gate, provider, err := r.gate(ctx)
	if err != nil {
		return err
	}

	db, err := r.database()
	if err != nil {
		return err
	}

	renderer := &cliRenderer{out: r.output, status: r.errOutput, json: cmd.Bool("json"), logger: r.logger}
	orchestrator := upload.NewOrchestrator(upload.Options{
		Gate:     gate,
		Tokens:   provider,
		Backend:  svc,
		Notifier: &cliNotifier{w: r.errOutput},
		Renderer: renderer,
		Journal:  repositories.NewUploadRepository(db),
		Logger:   shared.WithLogger(r.logger, "component", "upload"),
	})

	opts := models.UploadOptions{
		TargetLanguage: cmd.String("lang"),
		Diarization:    cmd.Bool("diarize"),
	}

	if _, err := orchestrator.Upload(ctx, models.NewAudioFile(path), opts); err != nil {
		return err
	}
	return renderer.err
}
