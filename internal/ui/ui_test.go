package ui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/transcribeflow/internal/formatter"
	"github.com/desertthunder/transcribeflow/internal/models"
	tu "github.com/desertthunder/transcribeflow/internal/testing"
	"github.com/desertthunder/transcribeflow/internal/upload"
)

type fakeUploader struct {
	mu        sync.Mutex
	selected  []models.AudioFile
	submitted []models.UploadOptions
	result    *models.UploadResult
	err       error
	refreshes int
}

func (f *fakeUploader) Select(file models.AudioFile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selected = append(f.selected, file)
}

func (f *fakeUploader) Submit(ctx context.Context, opts models.UploadOptions) (*models.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, opts)
	return f.result, f.err
}

func (f *fakeUploader) Status() upload.Status { return upload.Status{} }

func (f *fakeUploader) RefreshHistoryCount(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
}

type openGate struct{}

func (openGate) CanUpload() bool                              { return true }
func (openGate) RemainingTrials() int                         { return 2 }
func (openGate) RecordSuccessfulUpload(context.Context) error { return nil }

type fakeAccount struct {
	remaining int
	signedIn  bool
}

func (a fakeAccount) RemainingTrials() int { return a.remaining }
func (a fakeAccount) Authenticated() bool  { return a.signedIn }

func newTestModel(t *testing.T, up *fakeUploader, svc *tu.MockService) *Model {
	t.Helper()
	m := NewModel(context.Background(), Options{
		Uploader: up,
		History:  svc,
		Account:  fakeAccount{remaining: 2},
	})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m
}

func keyRunes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	enterKey = tea.KeyMsg{Type: tea.KeyEnter}
	tabKey   = tea.KeyMsg{Type: tea.KeyTab}
	escKey   = tea.KeyMsg{Type: tea.KeyEsc}
)

// run executes cmd and feeds every resulting message back into the model, expanding batches.
// Commands that do not return promptly (toast expiry ticks, cursor blinks) are dropped.
func run(m *Model, cmd tea.Cmd) {
	if cmd == nil {
		return
	}

	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()

	var msg tea.Msg
	select {
	case msg = <-done:
	case <-time.After(200 * time.Millisecond):
		return
	}

	switch msg := msg.(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			run(m, c)
		}
	case Msg:
		_, next := m.Update(msg)
		run(m, next)
	}
}

func typePath(m *Model, path string) {
	for _, r := range path {
		m.Update(keyRunes(string(r)))
	}
}

func TestUploadView(t *testing.T) {
	t.Run("selects a file and blurs the input", func(t *testing.T) {
		up := &fakeUploader{}
		m := newTestModel(t, up, &tu.MockService{})
		path := tu.WriteAudioFixture(t, "talk.mp3")

		typePath(m, path)
		m.Update(enterKey)

		if m.selected == nil || m.selected.Name != "talk.mp3" {
			t.Fatalf("expected talk.mp3 to be selected, got %+v", m.selected)
		}
		if len(up.selected) != 1 {
			t.Errorf("expected orchestrator Select to be called once, got %d", len(up.selected))
		}
		if m.input.Focused() {
			t.Errorf("input should blur after selection")
		}
	})

	t.Run("rejects a missing file", func(t *testing.T) {
		up := &fakeUploader{}
		m := newTestModel(t, up, &tu.MockService{})

		typePath(m, "/does/not/exist.mp3")
		m.Update(enterKey)

		if m.selected != nil || len(up.selected) != 0 {
			t.Errorf("missing file should not be selected")
		}
		if len(m.toasts) != 1 || m.toasts[0].kind != kindError {
			t.Errorf("expected an error toast, got %+v", m.toasts)
		}
	})

	t.Run("tab cycles the language and d toggles diarization", func(t *testing.T) {
		m := newTestModel(t, &fakeUploader{}, &tu.MockService{})

		if m.language() != "original" {
			t.Fatalf("expected default language original, got %s", m.language())
		}
		m.Update(tabKey)
		if m.language() != Languages[1] {
			t.Errorf("expected %s after tab, got %s", Languages[1], m.language())
		}

		m.Update(keyRunes("d"))
		if m.diarize {
			t.Errorf("d should be typed into the focused input, not toggle diarization")
		}

		m.selected = &models.AudioFile{Name: "a.mp3"}
		m.Update(escKey)
		m.Update(keyRunes("d"))
		if !m.diarize {
			t.Errorf("d should toggle diarization when the input is blurred")
		}
	})

	t.Run("language wraps around", func(t *testing.T) {
		m := newTestModel(t, &fakeUploader{}, &tu.MockService{})
		for range Languages {
			m.Update(tabKey)
		}
		if m.language() != "original" {
			t.Errorf("expected language to wrap to original, got %s", m.language())
		}
	})

	t.Run("defaults come from options", func(t *testing.T) {
		m := NewModel(context.Background(), Options{Defaults: models.UploadOptions{TargetLanguage: "es", Diarization: true}})
		if m.language() != "es" || !m.diarize {
			t.Errorf("unexpected defaults: %s %t", m.language(), m.diarize)
		}
	})
}

func TestSubmit(t *testing.T) {
	t.Run("success shows the result", func(t *testing.T) {
		up := &fakeUploader{result: &models.UploadResult{Transcript: "hello there", Keywords: []string{"greeting"}}}
		m := newTestModel(t, up, &tu.MockService{})
		m.selected = &models.AudioFile{Name: "talk.mp3", Path: "/tmp/talk.mp3"}
		m.input.Blur()
		m.Update(tabKey)

		_, cmd := m.Update(enterKey)
		if m.view != ProcessingView {
			t.Fatalf("expected processing view, got %d", m.view)
		}
		run(m, cmd)

		if m.view != ResultView {
			t.Fatalf("expected result view, got %d", m.view)
		}
		if len(up.submitted) != 1 || up.submitted[0].TargetLanguage != Languages[1] {
			t.Errorf("unexpected submissions: %+v", up.submitted)
		}
		if !strings.Contains(m.viewport.View(), "hello there") {
			t.Errorf("result viewport missing transcript")
		}
	})

	t.Run("failure returns to the upload view", func(t *testing.T) {
		up := &fakeUploader{err: upload.ErrUploadFailed}
		m := newTestModel(t, up, &tu.MockService{})
		m.selected = &models.AudioFile{Name: "talk.mp3"}
		m.input.Blur()

		_, cmd := m.Update(enterKey)
		run(m, cmd)

		if m.view != UploadView {
			t.Errorf("expected upload view after failure, got %d", m.view)
		}
	})

	t.Run("retry after a failed upload sends the same file again", func(t *testing.T) {
		svc := &tu.MockService{UploadErr: errors.New("connection refused")}
		orch := upload.NewOrchestrator(upload.Options{Gate: openGate{}, Backend: svc})
		m := NewModel(context.Background(), Options{
			Uploader: orch,
			History:  svc,
			Account:  fakeAccount{remaining: 2},
		})
		m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

		path := tu.WriteAudioFixture(t, "take.mp3")
		typePath(m, path)
		m.Update(enterKey)

		_, cmd := m.Update(enterKey)
		run(m, cmd)
		if m.view != UploadView || m.selected == nil {
			t.Fatalf("expected upload view with the file still selected, got view=%d selected=%v", m.view, m.selected)
		}
		if !orch.Status().Pending {
			t.Fatal("orchestrator should hold the file again after a failure")
		}

		svc.UploadErr = nil
		svc.UploadResult = &models.UploadResult{Transcript: "second try"}
		_, cmd = m.Update(enterKey)
		run(m, cmd)

		if svc.UploadCount() != 2 {
			t.Fatalf("expected 2 uploads, got %d", svc.UploadCount())
		}
		if svc.Uploads[1].File.Path != path {
			t.Errorf("retry sent %q, want %q", svc.Uploads[1].File.Path, path)
		}
		if m.view != ResultView {
			t.Errorf("expected result view after retry, got %d", m.view)
		}
		for _, toast := range m.toasts {
			if toast.text == "Select an audio file first." {
				t.Errorf("retry should not ask for a file again")
			}
		}
	})

	t.Run("application error also re-arms the selection", func(t *testing.T) {
		up := &fakeUploader{}
		m := newTestModel(t, up, &tu.MockService{})
		m.selected = &models.AudioFile{Name: "talk.mp3", Path: "/tmp/talk.mp3"}
		m.view = ProcessingView

		m.Update(uploadDoneMsg(nil, upload.ErrApplication))

		if len(up.selected) != 1 || up.selected[0].Path != "/tmp/talk.mp3" {
			t.Errorf("expected the file to be selected again, got %+v", up.selected)
		}
	})

	t.Run("locked uploads warn without submitting", func(t *testing.T) {
		up := &fakeUploader{}
		m := newTestModel(t, up, &tu.MockService{})
		m.selected = &models.AudioFile{Name: "talk.mp3"}
		m.input.Blur()
		m.Update(limitReachedMsg(0))

		m.Update(enterKey)

		if len(up.submitted) != 0 {
			t.Errorf("locked model should not submit")
		}
		if len(m.toasts) != 1 || m.toasts[0].text != upload.TrialLimitMessage {
			t.Errorf("expected trial limit toast, got %+v", m.toasts)
		}
		if !strings.Contains(m.View(), upload.TrialLimitMessage) {
			t.Errorf("upload view should show the limit banner")
		}
	})

	t.Run("exhausted trials lock the model at start", func(t *testing.T) {
		up := &fakeUploader{}
		m := NewModel(context.Background(), Options{
			Uploader: up,
			History:  &tu.MockService{},
			Account:  fakeAccount{remaining: 0},
		})
		m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

		if !m.locked {
			t.Fatal("expected model to start locked")
		}
		if !strings.Contains(m.View(), upload.TrialLimitMessage) {
			t.Errorf("upload view should show the limit banner before any attempt")
		}

		m.selected = &models.AudioFile{Name: "talk.mp3"}
		m.input.Blur()
		m.Update(enterKey)
		if len(up.submitted) != 0 {
			t.Errorf("locked model should not submit")
		}
	})

	t.Run("signed-in accounts start unlocked", func(t *testing.T) {
		m := NewModel(context.Background(), Options{
			Uploader: &fakeUploader{},
			History:  &tu.MockService{},
			Account:  fakeAccount{signedIn: true},
		})
		if m.locked {
			t.Error("signed-in account should not be locked")
		}
	})

	t.Run("orchestrator lock error locks the model", func(t *testing.T) {
		m := newTestModel(t, &fakeUploader{}, &tu.MockService{})
		m.view = ProcessingView
		m.Update(uploadDoneMsg(nil, upload.ErrUploadsLocked))
		if !m.locked || m.view != UploadView {
			t.Errorf("expected locked upload view, got locked=%t view=%d", m.locked, m.view)
		}
	})

	t.Run("no selection", func(t *testing.T) {
		up := &fakeUploader{}
		m := newTestModel(t, up, &tu.MockService{})
		m.input.Blur()
		m.Update(enterKey)
		if len(up.submitted) != 0 || m.view != UploadView {
			t.Errorf("submit without a file should stay on the upload view")
		}
	})
}

func TestBridge(t *testing.T) {
	var got []Msg
	b := NewBridge()

	b.Info("dropped", time.Second)

	b.attach(func(msg tea.Msg) { got = append(got, msg.(Msg)) })
	b.Success("ok", time.Second)
	b.Error("bad", time.Second)
	b.Warning("careful", time.Second)
	b.StateChanged(upload.InFlight, true)
	b.RenderResult("a.mp3", &models.UploadResult{})
	b.RenderHistoryCount(4)
	b.LimitReached(0)

	want := []MsgKind{MsgToast, MsgToast, MsgToast, MsgStateChanged, MsgResult, MsgHistoryCount, MsgLimitReached}
	if len(got) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(got))
	}
	for i, kind := range want {
		if got[i].kind != kind {
			t.Errorf("message %d: expected kind %d, got %d", i, kind, got[i].kind)
		}
	}
	if got[1].data.(toast).kind != kindError {
		t.Errorf("Error should produce an error toast")
	}
}

func TestToasts(t *testing.T) {
	m := newTestModel(t, &fakeUploader{}, &tu.MockService{})

	_, cmd := m.Update(toastMsg(kindSuccess, "Transcription complete", 0))
	if cmd == nil {
		t.Fatal("toast should schedule its expiry")
	}
	if len(m.toasts) != 1 || m.toasts[0].duration != upload.DefaultDuration {
		t.Fatalf("expected one toast with the default duration, got %+v", m.toasts)
	}
	if !strings.Contains(m.View(), "Transcription complete") {
		t.Errorf("toast should render")
	}

	m.Update(toastExpiredMsg(m.toasts[0].id))
	if len(m.toasts) != 0 {
		t.Errorf("toast should be removed after expiry")
	}

	for i := 0; i < maxToasts+2; i++ {
		m.Update(toastMsg(kindInfo, "x", time.Second))
	}
	if len(m.toasts) != maxToasts {
		t.Errorf("expected at most %d toasts, got %d", maxToasts, len(m.toasts))
	}
}

func TestHeader(t *testing.T) {
	t.Run("trial counter", func(t *testing.T) {
		m := newTestModel(t, &fakeUploader{}, &tu.MockService{})
		m.Update(historyCountMsg(3))
		header := m.renderHeader()
		if !strings.Contains(header, "Trial 2/2 remaining") || !strings.Contains(header, "History: 3") {
			t.Errorf("unexpected header %q", header)
		}
	})

	t.Run("signed in user", func(t *testing.T) {
		m := NewModel(context.Background(), Options{
			Account: fakeAccount{signedIn: true},
			User:    &models.User{ID: "1", Email: "ada@example.com"},
		})
		if header := m.renderHeader(); !strings.Contains(header, "ada@example.com") {
			t.Errorf("unexpected header %q", header)
		}
	})
}

func TestHistoryView(t *testing.T) {
	items := []models.HistoryItem{
		{ID: 1, Filename: "one.mp3", Transcript: "first"},
		{ID: 2, Filename: "two.mp3", Transcript: "second"},
	}

	t.Run("loads items and opens details", func(t *testing.T) {
		svc := &tu.MockService{Items: append([]models.HistoryItem(nil), items...)}
		m := newTestModel(t, &fakeUploader{}, svc)
		m.input.Blur()

		_, cmd := m.Update(keyRunes("h"))
		run(m, cmd)

		if m.view != HistoryView || len(m.list.Items()) != 2 {
			t.Fatalf("expected 2 history items, got view=%d items=%d", m.view, len(m.list.Items()))
		}
		if m.historyCount != 2 {
			t.Errorf("history count should follow the list, got %d", m.historyCount)
		}

		m.Update(enterKey)
		if m.view != DetailsView || m.details == nil || m.details.ID != 1 {
			t.Fatalf("expected details for item 1, got %+v", m.details)
		}

		m.Update(escKey)
		if m.view != HistoryView {
			t.Errorf("esc from details should return to history")
		}
	})

	t.Run("delete asks for confirmation", func(t *testing.T) {
		svc := &tu.MockService{Items: append([]models.HistoryItem(nil), items...)}
		m := newTestModel(t, &fakeUploader{}, svc)
		run(m, m.openHistory())

		m.Update(keyRunes("x"))
		if m.confirm != confirmDelete {
			t.Fatalf("x should ask for confirmation")
		}
		m.Update(keyRunes("n"))
		if m.confirm != confirmNone || len(svc.Deleted) != 0 {
			t.Fatalf("n should cancel the delete")
		}

		m.Update(keyRunes("x"))
		_, cmd := m.Update(keyRunes("y"))
		run(m, cmd)

		if len(svc.Deleted) != 1 || svc.Deleted[0] != 1 {
			t.Errorf("expected item 1 deleted, got %v", svc.Deleted)
		}
		if len(m.list.Items()) != 1 {
			t.Errorf("list should be refreshed after delete, got %d items", len(m.list.Items()))
		}
	})

	t.Run("delete all", func(t *testing.T) {
		svc := &tu.MockService{Items: append([]models.HistoryItem(nil), items...)}
		m := newTestModel(t, &fakeUploader{}, svc)
		run(m, m.openHistory())

		m.Update(keyRunes("X"))
		if m.confirm != confirmDeleteAll {
			t.Fatalf("X should ask for confirmation")
		}
		_, cmd := m.Update(keyRunes("y"))
		run(m, cmd)

		if svc.DeletedAll != 1 || len(m.list.Items()) != 0 {
			t.Errorf("expected all history deleted, got %d calls and %d items", svc.DeletedAll, len(m.list.Items()))
		}
	})

	t.Run("delete failure shows an error", func(t *testing.T) {
		svc := &tu.MockService{Items: append([]models.HistoryItem(nil), items...), DeleteErr: errors.New("boom")}
		m := newTestModel(t, &fakeUploader{}, svc)
		run(m, m.openHistory())

		m.Update(keyRunes("x"))
		_, cmd := m.Update(keyRunes("y"))
		run(m, cmd)

		if len(m.toasts) == 0 || m.toasts[len(m.toasts)-1].kind != kindError {
			t.Errorf("expected an error toast, got %+v", m.toasts)
		}
	})

	t.Run("fetch failure", func(t *testing.T) {
		m := newTestModel(t, &fakeUploader{}, &tu.MockService{HistoryErr: errors.New("offline")})
		run(m, m.openHistory())
		if len(m.toasts) != 1 || !strings.Contains(m.toasts[0].text, "offline") {
			t.Errorf("expected an error toast, got %+v", m.toasts)
		}
	})
}

func TestInitRefreshesHistoryCount(t *testing.T) {
	up := &fakeUploader{}
	m := newTestModel(t, up, &tu.MockService{})

	run(m, m.refreshHistoryCount())
	if up.refreshes != 1 {
		t.Errorf("expected one history count refresh, got %d", up.refreshes)
	}
}

func TestRenderDocumentPlaceholders(t *testing.T) {
	out := renderDocument(formatterDoc(), 80)
	for _, want := range []string{"No summary available.", "No highlights extracted.", "No keywords found", "No transcript generated.", "N/A"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered document missing %q", want)
		}
	}
}

func formatterDoc() formatter.Document { return formatter.Document{Filename: "empty.wav"} }
