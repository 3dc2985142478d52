package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/transcribeflow/internal/formatter"
	"github.com/desertthunder/transcribeflow/internal/models"
	"github.com/desertthunder/transcribeflow/internal/shared"
	"github.com/desertthunder/transcribeflow/internal/trial"
	"github.com/desertthunder/transcribeflow/internal/upload"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	UploadView ViewState = iota
	ProcessingView
	ResultView
	HistoryView
	DetailsView
)

// Languages offered by the language selector, in cycle order.
var Languages = []string{"original", "en", "es", "fr", "de", "it", "pt", "hi", "ja", "zh-CN", "ar"}

const maxToasts = 3

// Uploader is the part of [upload.Orchestrator] the TUI drives.
type Uploader interface {
	Select(file models.AudioFile)
	Submit(ctx context.Context, opts models.UploadOptions) (*models.UploadResult, error)
	Status() upload.Status
	RefreshHistoryCount(ctx context.Context)
}

// HistoryService lists and deletes stored transcriptions.
type HistoryService interface {
	History(ctx context.Context) ([]models.HistoryItem, error)
	DeleteHistory(ctx context.Context, id int64) (*models.DeleteResult, error)
	DeleteAllHistory(ctx context.Context) (*models.DeleteResult, error)
}

// Account reports trial allowance for the header.
type Account interface {
	RemainingTrials() int
	Authenticated() bool
}

// Options wires a [Model].
type Options struct {
	Uploader Uploader
	History  HistoryService
	Account  Account
	User     *models.User
	Defaults models.UploadOptions
}

type confirmKind int

const (
	confirmNone confirmKind = iota
	confirmDelete
	confirmDeleteAll
)

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	uploader Uploader
	history  HistoryService
	account  Account
	user     *models.User

	width  int
	height int

	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model
	list     list.Model
	help     help.Model
	keys     keyMap

	selected     *models.AudioFile
	langIdx      int
	diarize      bool
	state        upload.State
	busy         bool
	locked       bool
	historyCount int
	result       *models.UploadResult
	resultFile   string
	details      *models.HistoryItem
	confirm      confirmKind
	toasts       []toast
	nextToast    int
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts Options) *Model {
	input := textinput.New()
	input.Placeholder = "Path to an audio file (drag & drop works)"
	input.Prompt = "♪ "
	input.Width = 60
	input.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.ok))

	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "History"
	l.SetShowHelp(false)

	m := &Model{
		ctx:          ctx,
		view:         UploadView,
		uploader:     opts.Uploader,
		history:      opts.History,
		account:      opts.Account,
		user:         opts.User,
		input:        input,
		spinner:      sp,
		viewport:     viewport.New(80, 20),
		list:         l,
		help:         help.New(),
		keys:         newKeyMap(),
		diarize:      opts.Defaults.Diarization,
		historyCount: -1,
	}
	m.setLanguage(opts.Defaults.Language())
	if a := opts.Account; a != nil && !a.Authenticated() && a.RemainingTrials() == 0 {
		m.locked = true
	}
	return m
}

func (m *Model) setLanguage(lang string) {
	for i, l := range Languages {
		if l == lang {
			m.langIdx = i
			return
		}
	}
}

func (m *Model) language() string { return Languages[m.langIdx] }

func (m *Model) options() models.UploadOptions {
	return models.UploadOptions{TargetLanguage: m.language(), Diarization: m.diarize}
}

// Init focuses the path input and loads the initial history count.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.refreshHistoryCount())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-10)
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = max(msg.Height-10, 5)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.view {
		case UploadView:
			return m.handleUploadKeys(msg)
		case ProcessingView:
			return m, nil
		case ResultView, DetailsView:
			return m.handleReaderKeys(msg)
		case HistoryView:
			return m.handleHistoryKeys(msg)
		}

	case spinner.TickMsg:
		if m.view != ProcessingView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateComponents(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgToast:
		t := msg.data.(toast)
		return m, m.pushToast(t.kind, t.text, t.duration)

	case MsgToastExpired:
		id := msg.data.(int)
		kept := m.toasts[:0]
		for _, t := range m.toasts {
			if t.id != id {
				kept = append(kept, t)
			}
		}
		m.toasts = kept
		return m, nil

	case MsgStateChanged:
		sc := msg.data.(stateChange)
		m.state = sc.state
		m.busy = sc.busy
		return m, nil

	case MsgResult:
		r := msg.data.(renderedResult)
		m.showResult(r.filename, r.result)
		return m, nil

	case MsgHistoryCount:
		m.historyCount = msg.data.(int)
		return m, nil

	case MsgLimitReached:
		m.locked = true
		return m, nil

	case MsgUploadDone:
		return m.handleUploadDone(msg.data.(uploadDone))

	case MsgHistoryFetched:
		hf := msg.data.(historyFetched)
		if hf.err != nil {
			return m, m.pushToast(kindError, "Failed to load history: "+hf.err.Error(), upload.DefaultDuration)
		}
		m.historyCount = len(hf.items)
		return m, m.list.SetItems(historyListItems(hf.items))

	case MsgHistoryDeleted:
		hd := msg.data.(historyDeleted)
		if hd.err != nil {
			return m, m.pushToast(kindError, "Delete failed: "+hd.err.Error(), upload.DefaultDuration)
		}
		return m, tea.Batch(m.pushToast(kindSuccess, hd.msg, upload.DefaultDuration), m.fetchHistory())
	}
	return m, nil
}

func (m *Model) handleUploadDone(done uploadDone) (tea.Model, tea.Cmd) {
	if done.err == nil {
		if m.view == ProcessingView && done.result != nil {
			m.showResult(m.resultFile, done.result)
		}
		return m, nil
	}

	m.view = UploadView
	switch {
	case errors.Is(done.err, upload.ErrUploadsLocked):
		m.locked = true
		return m, m.pushToast(kindWarning, upload.TrialLimitMessage, upload.TrialWarningDuration)
	case errors.Is(done.err, upload.ErrUploadInFlight):
		return m, m.pushToast(kindWarning, "An upload is already in progress.", upload.DefaultDuration)
	case errors.Is(done.err, upload.ErrNoFileSelected):
		m.selected = nil
		return m, m.pushToast(kindWarning, "Select an audio file first.", upload.DefaultDuration)
	case errors.Is(done.err, upload.ErrTrialLimitReached):
		m.locked = true
		return m, nil
	}

	// Submit consumed the selection; arm it again so enter retries the same file.
	if m.selected != nil {
		m.uploader.Select(*m.selected)
	}
	return m, nil
}

func (m *Model) showResult(filename string, result *models.UploadResult) {
	m.result = result
	m.resultFile = filename
	m.selected = nil
	m.view = ResultView
	m.viewport.SetContent(renderDocument(formatter.FromResult(filename, result), m.viewport.Width))
	m.viewport.GotoTop()
}

func (m *Model) handleUploadKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.language) {
		m.langIdx = (m.langIdx + 1) % len(Languages)
		return m, nil
	}

	if m.input.Focused() {
		switch msg.Type {
		case tea.KeyEnter:
			return m, m.selectFile()
		case tea.KeyEsc:
			if m.selected != nil {
				m.input.Blur()
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		return m, m.submit()
	case key.Matches(msg, m.keys.diarize):
		m.diarize = !m.diarize
	case key.Matches(msg, m.keys.edit):
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.history):
		return m, m.openHistory()
	}
	return m, nil
}

func (m *Model) selectFile() tea.Cmd {
	path := shared.CleanDroppedPath(m.input.Value())
	if path == "" {
		return m.pushToast(kindWarning, "Enter a path to an audio file.", upload.DefaultDuration)
	}
	if err := shared.VerifyFile(path); err != nil {
		return m.pushToast(kindError, err.Error(), upload.DefaultDuration)
	}

	file := models.NewAudioFile(path)
	m.uploader.Select(file)
	m.selected = &file
	m.input.Blur()
	return m.pushToast(kindInfo, "Selected "+file.Name, upload.DefaultDuration)
}

func (m *Model) submit() tea.Cmd {
	if m.selected == nil {
		return m.pushToast(kindWarning, "Select an audio file first.", upload.DefaultDuration)
	}
	if m.locked {
		return m.pushToast(kindWarning, upload.TrialLimitMessage, upload.TrialWarningDuration)
	}

	m.view = ProcessingView
	m.resultFile = m.selected.Name
	opts := m.options()
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		result, err := m.uploader.Submit(m.ctx, opts)
		return uploadDoneMsg(result, err)
	})
}

func (m *Model) handleReaderKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		if m.view == DetailsView {
			m.view = HistoryView
			return m, nil
		}
		return m, m.newUpload()
	case key.Matches(msg, m.keys.enter) && m.view == ResultView:
		return m, m.newUpload()
	case key.Matches(msg, m.keys.history):
		return m, m.openHistory()
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) newUpload() tea.Cmd {
	m.view = UploadView
	m.input.SetValue("")
	return m.input.Focus()
}

func (m *Model) handleHistoryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirm != confirmNone {
		switch {
		case key.Matches(msg, m.keys.yes):
			kind := m.confirm
			m.confirm = confirmNone
			if kind == confirmDeleteAll {
				return m, m.deleteAll()
			}
			if sel, ok := m.list.SelectedItem().(historyItem); ok {
				return m, m.deleteOne(sel.item.ID)
			}
		case key.Matches(msg, m.keys.no):
			m.confirm = confirmNone
		}
		return m, nil
	}

	if m.list.SettingFilter() {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		return m, m.newUpload()
	case key.Matches(msg, m.keys.refresh):
		return m, m.fetchHistory()
	case key.Matches(msg, m.keys.enter):
		if sel, ok := m.list.SelectedItem().(historyItem); ok {
			item := sel.item
			m.details = &item
			m.view = DetailsView
			m.viewport.SetContent(renderDocument(formatter.FromHistory(item), m.viewport.Width))
			m.viewport.GotoTop()
		}
		return m, nil
	case key.Matches(msg, m.keys.delete):
		if m.list.SelectedItem() != nil {
			m.confirm = confirmDelete
		}
		return m, nil
	case key.Matches(msg, m.keys.deleteAll):
		if len(m.list.Items()) > 0 {
			m.confirm = confirmDeleteAll
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) openHistory() tea.Cmd {
	m.view = HistoryView
	m.confirm = confirmNone
	return m.fetchHistory()
}

func (m *Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case UploadView:
		m.input, cmd = m.input.Update(msg)
	case HistoryView:
		m.list, cmd = m.list.Update(msg)
	case ResultView, DetailsView:
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

// pushToast shows a notification and schedules its removal.
func (m *Model) pushToast(kind, text string, d time.Duration) tea.Cmd {
	if d <= 0 {
		d = upload.DefaultDuration
	}
	m.nextToast++
	id := m.nextToast
	m.toasts = append(m.toasts, toast{id: id, kind: kind, text: text, duration: d})
	if len(m.toasts) > maxToasts {
		m.toasts = m.toasts[len(m.toasts)-maxToasts:]
	}
	return tea.Tick(d, func(time.Time) tea.Msg { return toastExpiredMsg(id) })
}

func (m *Model) refreshHistoryCount() tea.Cmd {
	if m.uploader == nil {
		return nil
	}
	return func() tea.Msg {
		m.uploader.RefreshHistoryCount(m.ctx)
		return nil
	}
}

func (m *Model) fetchHistory() tea.Cmd {
	return func() tea.Msg {
		items, err := m.history.History(m.ctx)
		return historyFetchedMsg(items, err)
	}
}

func (m *Model) deleteOne(id int64) tea.Cmd {
	return func() tea.Msg {
		res, err := m.history.DeleteHistory(m.ctx, id)
		msg := "Item deleted successfully"
		if res != nil && res.Message != "" {
			msg = res.Message
		}
		return historyDeletedMsg(id, false, msg, err)
	}
}

func (m *Model) deleteAll() tea.Cmd {
	return func() tea.Msg {
		res, err := m.history.DeleteAllHistory(m.ctx)
		msg := "All history deleted successfully"
		if res != nil && res.Message != "" {
			msg = res.Message
		}
		return historyDeletedMsg(0, true, msg, err)
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case UploadView:
		body = m.renderUpload()
	case ProcessingView:
		body = m.renderProcessing()
	case ResultView:
		body = m.renderReader("Transcription Result", []key.Binding{m.keys.up, m.keys.down, m.keys.enter, m.keys.history, m.keys.quit})
	case HistoryView:
		body = m.renderHistory()
	case DetailsView:
		body = m.renderReader("Details", []key.Binding{m.keys.up, m.keys.down, m.keys.back, m.keys.quit})
	}

	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), body, m.renderToasts())
}

func (m *Model) renderHeader() string {
	var account string
	switch {
	case m.account != nil && m.account.Authenticated():
		account = styles.ok.Render("● " + m.user.DisplayName())
	case m.account != nil:
		remaining := m.account.RemainingTrials()
		style := styles.info
		if remaining == 0 {
			style = styles.warn
		}
		account = style.Render(fmt.Sprintf("Trial %d/%d remaining", remaining, trial.MaxTrialUploads))
	}

	parts := []string{"TranscribeFlow", account}
	if m.historyCount >= 0 {
		parts = append(parts, fmt.Sprintf("History: %d", m.historyCount))
	}
	return styles.header.Render(strings.Join(parts, "  •  "))
}

func (m *Model) renderUpload() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Upload Audio"))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	if m.selected != nil {
		fmt.Fprintf(&b, "File:        %s\n", styles.ok.Render(m.selected.Name))
	} else {
		fmt.Fprintf(&b, "File:        %s\n", styles.help.Render("none selected"))
	}
	fmt.Fprintf(&b, "Language:    %s\n", styles.badge.Render(m.language()))
	diarize := "off"
	if m.diarize {
		diarize = "on"
	}
	fmt.Fprintf(&b, "Diarization: %s\n", diarize)

	if m.locked {
		b.WriteString("\n")
		b.WriteString(styles.warn.Render(upload.TrialLimitMessage))
		b.WriteString("\n")
	}

	var keys []key.Binding
	if m.input.Focused() {
		keys = []key.Binding{key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select file")), m.keys.language}
	} else {
		keys = []key.Binding{key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "upload")), m.keys.language, m.keys.diarize, m.keys.edit, m.keys.history, m.keys.quit}
	}
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(keys))
	return b.String()
}

func (m *Model) renderProcessing() string {
	var phase string
	switch m.state {
	case upload.Gating:
		phase = "Checking upload allowance..."
	case upload.TokenAcquisition:
		phase = "Preparing request..."
	case upload.InFlight:
		phase = "Uploading & processing audio..."
	case upload.Succeeded:
		phase = "Rendering result..."
	default:
		phase = "Starting..."
	}

	return fmt.Sprintf("%s\n%s %s\n\n%s",
		styles.title.Render("Processing "+m.resultFile),
		m.spinner.View(), phase,
		styles.help.Render(fmt.Sprintf("language: %s • diarization: %t", m.language(), m.diarize)))
}

func (m *Model) renderReader(title string, keys []key.Binding) string {
	return fmt.Sprintf("%s\n%s\n\n%s", styles.title.Render(title), m.viewport.View(), m.help.ShortHelpView(keys))
}

func (m *Model) renderHistory() string {
	var footer string
	switch m.confirm {
	case confirmDelete:
		name := ""
		if sel, ok := m.list.SelectedItem().(historyItem); ok {
			name = sel.item.Filename
		}
		footer = styles.warn.Render(fmt.Sprintf("Delete %q? (y/n)", name))
	case confirmDeleteAll:
		footer = styles.err.Render("Delete ALL history? This cannot be undone. (y/n)")
	default:
		footer = m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.delete, m.keys.deleteAll, m.keys.refresh, m.keys.back, m.keys.quit})
	}
	return fmt.Sprintf("%s\n\n%s", m.list.View(), footer)
}

func (m *Model) renderToasts() string {
	if len(m.toasts) == 0 {
		return ""
	}
	rendered := make([]string, len(m.toasts))
	for i, t := range m.toasts {
		rendered[i] = styles.toastStyle(t.kind).Render(t.text)
	}
	return lipgloss.JoinVertical(lipgloss.Left, rendered...)
}

// renderDocument lays out a transcription for the result and details viewports.
func renderDocument(doc formatter.Document, width int) string {
	if width <= 0 {
		width = 80
	}
	wrap := lipgloss.NewStyle().Width(width)

	var b strings.Builder
	b.WriteString(styles.ok.Render(doc.Filename))
	if doc.Timestamp != "" {
		b.WriteString("  " + styles.help.Render(formatter.FormatTimestamp(doc.Timestamp)))
	}
	stats := fmt.Sprintf("%d words • confidence %s • %s", doc.WordCount, formatter.FormatConfidence(doc.Confidence), formatter.FormatDuration(doc.SonicDNA.Duration))
	if doc.NumSpeakers > 1 {
		stats += fmt.Sprintf(" • %d speakers", doc.NumSpeakers)
	}
	b.WriteString("\n" + stats + "\n")

	section := func(title, content string) {
		b.WriteString(styles.section.Render(title) + "\n")
		b.WriteString(wrap.Render(content) + "\n")
	}

	section("Summary", orDefault(doc.Summary, formatter.NoSummary))

	var highlights string
	if len(doc.BulletPoints) == 0 {
		highlights = formatter.NoHighlights
	} else {
		lines := make([]string, len(doc.BulletPoints))
		for i, p := range doc.BulletPoints {
			lines[i] = "• " + p
		}
		highlights = strings.Join(lines, "\n")
	}
	section("Highlights", highlights)

	b.WriteString(styles.section.Render("Keywords") + "\n")
	if len(doc.Keywords) == 0 {
		b.WriteString(styles.help.Render(formatter.NoKeywords) + "\n")
	} else {
		badges := make([]string, len(doc.Keywords))
		for i, k := range doc.Keywords {
			badges[i] = styles.badge.Render(k)
		}
		b.WriteString(strings.Join(badges, " ") + "\n")
	}

	b.WriteString(styles.section.Render("Sonic DNA") + "\n")
	fmt.Fprintf(&b, "Energy   %s %d\n", formatter.Bar(doc.SonicDNA.Energy, 20), doc.SonicDNA.Energy)
	fmt.Fprintf(&b, "Pace     %s %d\n", formatter.Bar(doc.SonicDNA.Pace, 20), doc.SonicDNA.Pace)
	fmt.Fprintf(&b, "Clarity  %s %d\n", formatter.Bar(doc.SonicDNA.Clarity, 20), doc.SonicDNA.Clarity)

	section("Transcript", orDefault(doc.Transcript, formatter.NoTranscript))
	if doc.Original != "" {
		section("Original Transcript", doc.Original)
	}
	return b.String()
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
