package upload

import (
	"context"
	"time"

	"github.com/desertthunder/transcribeflow/internal/models"
)

// Gate decides whether an upload may start and meters trial uploads.
type Gate interface {
	CanUpload() bool
	RemainingTrials() int
	RecordSuccessfulUpload(ctx context.Context) error
}

// TokenSource mints an optional bearer token. "" with a nil error means no session.
type TokenSource interface {
	SessionToken(ctx context.Context) (string, error)
}

// Backend performs the network calls an upload needs.
type Backend interface {
	Upload(ctx context.Context, req models.UploadRequest) (*models.UploadResult, error)
	History(ctx context.Context) ([]models.HistoryItem, error)
}

// Notifier shows transient messages. d is how long the message stays visible.
type Notifier interface {
	Success(msg string, d time.Duration)
	Error(msg string, d time.Duration)
	Warning(msg string, d time.Duration)
	Info(msg string, d time.Duration)
}

// Renderer presents orchestrator output. It makes no decisions.
type Renderer interface {
	StateChanged(state State, busy bool)
	RenderResult(filename string, result *models.UploadResult)
	RenderHistoryCount(n int)
	LimitReached(remaining int)
}

// Journal records submissions that reach the network.
type Journal interface {
	Create(record *models.UploadRecord) error
	Update(record *models.UploadRecord) error
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) Success(string, time.Duration) {}
func (NopNotifier) Error(string, time.Duration)   {}
func (NopNotifier) Warning(string, time.Duration) {}
func (NopNotifier) Info(string, time.Duration)    {}

// NopRenderer discards rendering calls.
type NopRenderer struct{}

func (NopRenderer) StateChanged(State, bool)                  {}
func (NopRenderer) RenderResult(string, *models.UploadResult) {}
func (NopRenderer) RenderHistoryCount(int)                    {}
func (NopRenderer) LimitReached(int)                          {}
