// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for transcribing audio:
//  1. [UploadView] : Pick a file, cycle the target language (tab) and toggle diarization (d)
//  2. [ProcessingView] : Spinner while the orchestrator gates, signs and uploads
//  3. [ResultView] : Transcript, summary, highlights, keyword badges and sonic DNA bars
//  4. [HistoryView] : Stored transcriptions with single (x) and bulk (X) delete
//  5. [DetailsView] : A stored transcription
//
// The upload itself runs in the [upload.Orchestrator]. A [Bridge] implements its Notifier and
// Renderer ports and forwards every call into the running program as a [Msg], so toasts,
// state changes and results arrive through the normal Update loop.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
