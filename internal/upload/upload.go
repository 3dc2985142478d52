// Package upload drives a single audio upload from file selection to rendered result.
//
// An [Orchestrator] walks each submission through
//
//	Idle → Gating → (Blocked | TokenAcquisition) → InFlight → (Succeeded | Failed) → Idle
//
// and talks to the outside only through its ports: a [Gate] for trial metering,
// a [TokenSource] for the optional bearer token, a [Backend] for the network and a
// [Notifier] and [Renderer] for presentation. At most one submission runs at a
// time; a second one is rejected, not queued.
package upload

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/desertthunder/transcribeflow/internal/models"
)

// Notification durations.
const (
	DefaultDuration      = 3000 * time.Millisecond
	TrialWarningDuration = 5000 * time.Millisecond
)

// TrialLimitMessage is shown when an unauthenticated user has used every trial upload.
const TrialLimitMessage = "Free trial limit reached! Please sign in to continue uploading."

var (
	ErrTrialLimitReached = errors.New("free trial limit reached")
	ErrUploadsLocked     = errors.New("uploads are locked until sign-in")
	ErrUploadInFlight    = errors.New("an upload is already in progress")
	ErrNoFileSelected    = errors.New("no file selected")
	// ErrUploadFailed wraps transport, status and decoding failures.
	ErrUploadFailed = errors.New("upload failed")
	// ErrApplication is returned when the backend answers with an error field.
	ErrApplication = errors.New("processing error")
)

// Options wires an [Orchestrator]. Gate and Backend are required.
type Options struct {
	Gate     Gate
	Tokens   TokenSource
	Backend  Backend
	Notifier Notifier
	Renderer Renderer
	Journal  Journal
	Logger   *log.Logger
}

// Orchestrator runs uploads one at a time.
type Orchestrator struct {
	gate     Gate
	tokens   TokenSource
	backend  Backend
	notifier Notifier
	renderer Renderer
	journal  Journal
	logger   *log.Logger

	mu      sync.Mutex
	state   State
	active  bool
	busy    bool
	locked  bool
	pending *models.AudioFile
}

// NewOrchestrator creates an idle Orchestrator. Missing presentation ports are replaced with no-ops.
func NewOrchestrator(opts Options) *Orchestrator {
	if opts.Notifier == nil {
		opts.Notifier = NopNotifier{}
	}
	if opts.Renderer == nil {
		opts.Renderer = NopRenderer{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Orchestrator{
		gate:     opts.Gate,
		tokens:   opts.Tokens,
		backend:  opts.Backend,
		notifier: opts.Notifier,
		renderer: opts.Renderer,
		journal:  opts.Journal,
		logger:   opts.Logger,
	}
}

// Status returns the current state.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Status{State: o.state, Busy: o.busy, Locked: o.locked, Pending: o.pending != nil}
}

// Select records file as the next one to submit, replacing any earlier selection not yet in flight.
func (o *Orchestrator) Select(file models.AudioFile) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = &file
}

// Upload selects file and submits it.
func (o *Orchestrator) Upload(ctx context.Context, file models.AudioFile, opts models.UploadOptions) (*models.UploadResult, error) {
	o.Select(file)
	return o.Submit(ctx, opts)
}

// Submit runs the selected file through the upload procedure.
//
// It returns [ErrUploadsLocked] after the trial limit has been hit, [ErrUploadInFlight] while another
// submission runs and [ErrTrialLimitReached] when the gate refuses. Network and processing failures
// have already been reported through the Notifier when they are returned.
func (o *Orchestrator) Submit(ctx context.Context, opts models.UploadOptions) (*models.UploadResult, error) {
	o.mu.Lock()
	switch {
	case o.locked:
		o.mu.Unlock()
		return nil, ErrUploadsLocked
	case o.active:
		o.mu.Unlock()
		return nil, ErrUploadInFlight
	case o.pending == nil:
		o.mu.Unlock()
		return nil, ErrNoFileSelected
	}
	file := *o.pending
	o.pending = nil
	o.active = true
	o.mu.Unlock()

	defer o.finish()

	o.transition(Gating, false)
	if !o.gate.CanUpload() {
		return nil, o.block()
	}

	o.transition(TokenAcquisition, false)
	req := models.NewUploadRequest(file, opts, o.acquireToken(ctx))
	req.RequestID = uuid.NewString()

	record := o.journalBegin(req)

	o.transition(InFlight, true)
	o.logger.Info("uploading", "file", file.Name, "mode", req.Mode, "lang", req.TargetLanguage, "diarize", req.Diarization, "request_id", req.RequestID)

	result, err := o.backend.Upload(ctx, req)
	if err == nil && result == nil {
		err = errors.New("empty response")
	}
	if err != nil {
		o.fail(record, "Upload/Processing failed: "+err.Error(), err.Error())
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	if result.Error != "" {
		o.fail(record, "Error: "+result.Error, result.Error)
		return result, fmt.Errorf("%w: %s", ErrApplication, result.Error)
	}

	o.transition(Succeeded, true)
	if req.Mode == models.ModeTrial {
		if err := o.gate.RecordSuccessfulUpload(ctx); err != nil {
			o.logger.Warn("trial upload not persisted", "error", err)
		}
	}
	o.journalEnd(record, models.UploadSucceeded, "")

	o.renderer.RenderResult(file.Name, result)
	o.RefreshHistoryCount(ctx)
	return result, nil
}

// RefreshHistoryCount fetches the history list and renders its length. Failures are only logged.
func (o *Orchestrator) RefreshHistoryCount(ctx context.Context) {
	items, err := o.backend.History(ctx)
	if err != nil {
		o.logger.Warn("failed to refresh history count", "error", err)
		return
	}
	o.renderer.RenderHistoryCount(len(items))
}

func (o *Orchestrator) block() error {
	o.transition(Blocked, false)

	o.mu.Lock()
	o.locked = true
	o.mu.Unlock()

	o.notifier.Warning(TrialLimitMessage, TrialWarningDuration)
	o.renderer.LimitReached(o.gate.RemainingTrials())
	o.logger.Info("upload blocked by trial limit")
	return ErrTrialLimitReached
}

// acquireToken returns a bearer token or "". Errors and panics in the source mean no token.
func (o *Orchestrator) acquireToken(ctx context.Context) (token string) {
	if o.tokens == nil {
		return ""
	}

	defer func() {
		if r := recover(); r != nil {
			o.logger.Warn("token source panicked, uploading without token", "panic", r)
			token = ""
		}
	}()

	token, err := o.tokens.SessionToken(ctx)
	if err != nil {
		o.logger.Warn("could not get session token, uploading without token", "error", err)
		return ""
	}
	return token
}

func (o *Orchestrator) fail(record *models.UploadRecord, msg, reason string) {
	o.transition(Failed, true)
	o.logger.Error("upload failed", "reason", reason)
	o.journalEnd(record, models.UploadFailed, reason)
	o.notifier.Error(msg, DefaultDuration)
}

func (o *Orchestrator) journalBegin(req models.UploadRequest) *models.UploadRecord {
	if o.journal == nil {
		return nil
	}
	record := models.NewUploadRecord(req)
	if err := o.journal.Create(record); err != nil {
		o.logger.Warn("failed to journal upload", "error", err)
		return nil
	}
	return record
}

func (o *Orchestrator) journalEnd(record *models.UploadRecord, status models.UploadStatus, reason string) {
	if o.journal == nil || record == nil {
		return
	}
	record.Status = status
	record.Error = reason
	if err := o.journal.Update(record); err != nil {
		o.logger.Warn("failed to update upload journal", "id", record.ID(), "error", err)
	}
}

func (o *Orchestrator) transition(state State, busy bool) {
	o.mu.Lock()
	o.state = state
	o.busy = busy
	o.mu.Unlock()

	o.logger.Debug("upload state", "state", state, "busy", busy)
	o.renderer.StateChanged(state, busy)
}

func (o *Orchestrator) finish() {
	o.mu.Lock()
	o.state = Idle
	o.busy = false
	o.active = false
	o.mu.Unlock()

	o.renderer.StateChanged(Idle, false)
}
