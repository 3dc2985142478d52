package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/transcribeflow/internal/models"
	"github.com/desertthunder/transcribeflow/internal/upload"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgToast MsgKind = iota
	MsgToastExpired
	MsgStateChanged
	MsgResult
	MsgHistoryCount
	MsgLimitReached
	MsgUploadDone
	MsgHistoryFetched
	MsgHistoryDeleted
)

// Notification kinds.
const (
	kindSuccess = "success"
	kindError   = "error"
	kindWarning = "warning"
	kindInfo    = "info"
)

type toast struct {
	id       int
	kind     string
	text     string
	duration time.Duration
}

type stateChange struct {
	state upload.State
	busy  bool
}

type renderedResult struct {
	filename string
	result   *models.UploadResult
}

type uploadDone struct {
	result *models.UploadResult
	err    error
}

type historyFetched struct {
	items []models.HistoryItem
	err   error
}

type historyDeleted struct {
	id  int64
	all bool
	msg string
	err error
}

// toastMsg is the constructor for [MsgToast]
func toastMsg(kind, text string, d time.Duration) Msg {
	return Msg{kind: MsgToast, data: toast{kind: kind, text: text, duration: d}}
}

// toastExpiredMsg is the constructor for [MsgToastExpired]
func toastExpiredMsg(id int) Msg {
	return Msg{kind: MsgToastExpired, data: id}
}

// stateChangedMsg is the constructor for [MsgStateChanged]
func stateChangedMsg(state upload.State, busy bool) Msg {
	return Msg{kind: MsgStateChanged, data: stateChange{state: state, busy: busy}}
}

// resultMsg is the constructor for [MsgResult]
func resultMsg(filename string, result *models.UploadResult) Msg {
	return Msg{kind: MsgResult, data: renderedResult{filename: filename, result: result}}
}

// historyCountMsg is the constructor for [MsgHistoryCount]
func historyCountMsg(n int) Msg {
	return Msg{kind: MsgHistoryCount, data: n}
}

// limitReachedMsg is the constructor for [MsgLimitReached]
func limitReachedMsg(remaining int) Msg {
	return Msg{kind: MsgLimitReached, data: remaining}
}

// uploadDoneMsg is the constructor for [MsgUploadDone]
func uploadDoneMsg(result *models.UploadResult, err error) Msg {
	return Msg{kind: MsgUploadDone, data: uploadDone{result: result, err: err}}
}

// historyFetchedMsg is the constructor for [MsgHistoryFetched]
func historyFetchedMsg(items []models.HistoryItem, err error) Msg {
	return Msg{kind: MsgHistoryFetched, data: historyFetched{items: items, err: err}}
}

// historyDeletedMsg is the constructor for [MsgHistoryDeleted]
func historyDeletedMsg(id int64, all bool, msg string, err error) Msg {
	return Msg{kind: MsgHistoryDeleted, data: historyDeleted{id: id, all: all, msg: msg, err: err}}
}
