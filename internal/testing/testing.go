// package testing contains shared testing utilities
package testing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/transcribeflow/internal/models"
)

// MockService is a test double for services.Service.
//
// Zero values answer successfully with empty data.
type MockService struct {
	mu sync.Mutex

	UploadResult *models.UploadResult
	UploadErr    error
	Items        []models.HistoryItem
	HistoryErr   error
	DeleteErr    error
	Audio        []byte
	AudioErr     error
	HealthErr    error

	Uploads      []models.UploadRequest
	Deleted      []int64
	DeletedAll   int
	HistoryCalls int
}

func (m *MockService) Upload(ctx context.Context, req models.UploadRequest) (*models.UploadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Uploads = append(m.Uploads, req)
	if m.UploadErr != nil {
		return nil, m.UploadErr
	}
	if m.UploadResult == nil {
		return &models.UploadResult{}, nil
	}
	return m.UploadResult, nil
}

func (m *MockService) History(ctx context.Context) ([]models.HistoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HistoryCalls++
	if m.HistoryErr != nil {
		return nil, m.HistoryErr
	}
	return append([]models.HistoryItem(nil), m.Items...), nil
}

func (m *MockService) HistoryItem(ctx context.Context, id int64) (*models.HistoryItem, error) {
	items, err := m.History(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == id {
			return &items[i], nil
		}
	}
	return nil, fmt.Errorf("history item %d not found", id)
}

func (m *MockService) DeleteHistory(ctx context.Context, id int64) (*models.DeleteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return nil, m.DeleteErr
	}
	m.Deleted = append(m.Deleted, id)
	kept := m.Items[:0]
	for _, item := range m.Items {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	m.Items = kept
	return &models.DeleteResult{Success: true, Message: "Item deleted successfully"}, nil
}

func (m *MockService) DeleteAllHistory(ctx context.Context) (*models.DeleteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return nil, m.DeleteErr
	}
	m.DeletedAll++
	m.Items = nil
	return &models.DeleteResult{Success: true, Message: "All history deleted successfully"}, nil
}

func (m *MockService) DownloadAudio(ctx context.Context, audioURL string, w io.Writer) (int64, error) {
	if m.AudioErr != nil {
		return 0, m.AudioErr
	}
	return io.Copy(w, bytes.NewReader(m.Audio))
}

func (m *MockService) Health(ctx context.Context) error { return m.HealthErr }

// UploadCount returns the number of Upload calls so far.
func (m *MockService) UploadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Uploads)
}

// Toast is one notification captured by [RecordingNotifier].
type Toast struct {
	Kind     string
	Message  string
	Duration time.Duration
}

// RecordingNotifier captures notifications in order.
type RecordingNotifier struct {
	mu     sync.Mutex
	Toasts []Toast
}

func (n *RecordingNotifier) add(kind, msg string, d time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Toasts = append(n.Toasts, Toast{Kind: kind, Message: msg, Duration: d})
}

func (n *RecordingNotifier) Success(msg string, d time.Duration) { n.add("success", msg, d) }
func (n *RecordingNotifier) Error(msg string, d time.Duration)   { n.add("error", msg, d) }
func (n *RecordingNotifier) Warning(msg string, d time.Duration) { n.add("warning", msg, d) }
func (n *RecordingNotifier) Info(msg string, d time.Duration)    { n.add("info", msg, d) }

// Kinds returns the kind of each captured toast.
func (n *RecordingNotifier) Kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	kinds := make([]string, len(n.Toasts))
	for i, t := range n.Toasts {
		kinds[i] = t.Kind
	}
	return kinds
}

// WriteAudioFixture writes a small placeholder audio file into a temp dir and returns its path.
func WriteAudioFixture(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("ID3\x03\x00fake-audio"), 0644); err != nil {
		t.Fatalf("Failed to write audio fixture: %v", err)
	}
	return path
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
