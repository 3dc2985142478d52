package main

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/transcribeflow/internal/formatter"
	"github.com/desertthunder/transcribeflow/internal/models"
	"github.com/desertthunder/transcribeflow/internal/trial"
	"github.com/desertthunder/transcribeflow/internal/upload"
)

var (
	_ upload.Notifier = (*cliNotifier)(nil)
	_ upload.Renderer = (*cliRenderer)(nil)
)

var (
	toastSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	toastError   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
	toastWarning = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500"))
	toastInfo    = lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6"))
)

// cliNotifier prints notifications as one styled line each. Durations have no meaning on a terminal stream.
type cliNotifier struct {
	w io.Writer
}

func (n *cliNotifier) Success(msg string, _ time.Duration) { n.print(toastSuccess, "✓", msg) }
func (n *cliNotifier) Error(msg string, _ time.Duration)   { n.print(toastError, "✗", msg) }
func (n *cliNotifier) Warning(msg string, _ time.Duration) { n.print(toastWarning, "!", msg) }
func (n *cliNotifier) Info(msg string, _ time.Duration)    { n.print(toastInfo, "•", msg) }

func (n *cliNotifier) print(style lipgloss.Style, icon, msg string) {
	fmt.Fprintln(n.w, style.Render(icon+" "+msg))
}

// cliRenderer writes the upload result to out, as text or JSON, and progress to status.
type cliRenderer struct {
	out    io.Writer
	status io.Writer
	json   bool
	logger *log.Logger
	err    error
}

func (c *cliRenderer) StateChanged(state upload.State, busy bool) {
	c.logger.Debug("upload state", "state", state, "busy", busy)
	if state == upload.InFlight {
		fmt.Fprintln(c.status, toastInfo.Render("• Uploading & processing..."))
	}
}

func (c *cliRenderer) RenderResult(filename string, result *models.UploadResult) {
	doc := formatter.FromResult(filename, result)

	format := formatter.FormatText
	if c.json {
		format = formatter.FormatJSON
	}

	data, err := formatter.Export([]formatter.Document{doc}, format)
	if err != nil {
		c.err = err
		return
	}
	if _, err := c.out.Write(append(data, '\n')); err != nil {
		c.err = fmt.Errorf("failed to write output: %w", err)
	}
}

func (c *cliRenderer) RenderHistoryCount(n int) {
	fmt.Fprintln(c.status, toastInfo.Render(fmt.Sprintf("• %d transcriptions in history", n)))
}

func (c *cliRenderer) LimitReached(remaining int) {
	fmt.Fprintln(c.status, toastWarning.Render(fmt.Sprintf("! Trial uploads remaining: %d/%d. Run 'tflow auth login' to continue.", remaining, trial.MaxTrialUploads)))
}
