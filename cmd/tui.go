package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/transcribeflow/internal/models"
	"github.com/desertthunder/transcribeflow/internal/repositories"
	"github.com/desertthunder/transcribeflow/internal/shared"
	"github.com/desertthunder/transcribeflow/internal/ui"
	"github.com/desertthunder/transcribeflow/internal/upload"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for uploads and history.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.service()
	if err != nil {
		return err
	}

	// Redirect logs (ours and the backend client's) to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.Log.TUIFile)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	gate, provider, err := r.gate(ctx)
	if err != nil {
		return err
	}

	db, err := r.database()
	if err != nil {
		return err
	}

	bridge := ui.NewBridge()
	orchestrator := upload.NewOrchestrator(upload.Options{
		Gate:     gate,
		Tokens:   provider,
		Backend:  svc,
		Notifier: bridge,
		Renderer: bridge,
		Journal:  repositories.NewUploadRepository(db),
		Logger:   shared.WithLogger(r.logger, "component", "upload"),
	})

	model := ui.NewModel(ctx, ui.Options{
		Uploader: orchestrator,
		History:  svc,
		Account:  gate,
		User:     provider.CurrentUser(),
		Defaults: models.UploadOptions{
			TargetLanguage: r.config.Upload.TargetLanguage,
			Diarization:    r.config.Upload.Diarization,
		},
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	bridge.Attach(p)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
