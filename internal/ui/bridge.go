package ui

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/transcribeflow/internal/models"
	"github.com/desertthunder/transcribeflow/internal/upload"
)

var (
	_ upload.Notifier = (*Bridge)(nil)
	_ upload.Renderer = (*Bridge)(nil)
)

// Bridge forwards orchestrator output into a running bubbletea program.
//
// Calls made before [Bridge.Attach] are dropped.
type Bridge struct {
	mu   sync.RWMutex
	send func(tea.Msg)
}

func NewBridge() *Bridge {
	return &Bridge{}
}

// Attach routes messages to p.
func (b *Bridge) Attach(p *tea.Program) {
	b.attach(p.Send)
}

func (b *Bridge) attach(send func(tea.Msg)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.send = send
}

func (b *Bridge) dispatch(msg tea.Msg) {
	b.mu.RLock()
	send := b.send
	b.mu.RUnlock()
	if send != nil {
		send(msg)
	}
}

func (b *Bridge) Success(msg string, d time.Duration) { b.dispatch(toastMsg(kindSuccess, msg, d)) }
func (b *Bridge) Error(msg string, d time.Duration)   { b.dispatch(toastMsg(kindError, msg, d)) }
func (b *Bridge) Warning(msg string, d time.Duration) { b.dispatch(toastMsg(kindWarning, msg, d)) }
func (b *Bridge) Info(msg string, d time.Duration)    { b.dispatch(toastMsg(kindInfo, msg, d)) }

func (b *Bridge) StateChanged(state upload.State, busy bool) {
	b.dispatch(stateChangedMsg(state, busy))
}

func (b *Bridge) RenderResult(filename string, result *models.UploadResult) {
	b.dispatch(resultMsg(filename, result))
}

func (b *Bridge) RenderHistoryCount(n int)   { b.dispatch(historyCountMsg(n)) }
func (b *Bridge) LimitReached(remaining int) { b.dispatch(limitReachedMsg(remaining)) }
