// API service for the transcription backend
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/desertthunder/transcribeflow/internal/models"
	"github.com/desertthunder/transcribeflow/internal/shared"
)

// DefaultBaseURL is the backend address used when none is configured.
const DefaultBaseURL = "http://127.0.0.1:5000"

// APIService provides methods for calling the transcription backend.
type APIService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewAPIService creates a new API service instance for the backend at baseURL.
func NewAPIService(baseURL string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		limiter:    rate.NewLimiter(rate.Inf, 1),
		logger:     log.Default(),
	}
}

// WithRateLimit limits requests to rps per second. Zero or less removes the limit.
func (a *APIService) WithRateLimit(rps float64) *APIService {
	if rps <= 0 {
		a.limiter = rate.NewLimiter(rate.Inf, 1)
	} else {
		a.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return a
}

// WithLogger sets the logger used for request tracing.
func (a *APIService) WithLogger(l *log.Logger) *APIService {
	if l != nil {
		a.logger = l
	}
	return a
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// OK reports whether the status is 2xx.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// errorMessage extracts the "error" field of a JSON body, if any.
func (r *APIResponse) errorMessage() string {
	if obj, ok := r.JSONData.(map[string]any); ok {
		if msg, ok := obj["error"].(string); ok {
			return msg
		}
	}
	return ""
}

func (r *APIResponse) statusError() error {
	if msg := r.errorMessage(); msg != "" {
		return fmt.Errorf("%w: status %d: %s", ErrHTTPStatus, r.StatusCode, msg)
	}
	return fmt.Errorf("%w: status %d", ErrHTTPStatus, r.StatusCode)
}

func (a *APIService) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return a.baseURL + path
}

// newRequest waits on the limiter and builds a request tagged with requestID (generated when empty).
func (a *APIService) newRequest(ctx context.Context, method, path string, body io.Reader, requestID string) (*http.Request, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.resolve(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (a *APIService) do(req *http.Request) (*APIResponse, error) {
	a.logger.Debug("api request", "method", req.Method, "url", req.URL.String(), "request_id", req.Header.Get("X-Request-ID"))

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrAPIRequest, err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}

	var jsonData any
	if err := json.Unmarshal(body, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	a.logger.Debug("api response", "status", resp.StatusCode, "bytes", len(body))
	return apiResp, nil
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	req, err := a.newRequest(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	return a.do(req)
}

// Delete performs a DELETE request to the specified path and returns the raw response.
func (a *APIService) Delete(ctx context.Context, path string) (*APIResponse, error) {
	req, err := a.newRequest(ctx, http.MethodDelete, path, nil, "")
	if err != nil {
		return nil, err
	}
	return a.do(req)
}

// Upload sends the audio file as multipart/form-data to /upload.
func (a *APIService) Upload(ctx context.Context, upload models.UploadRequest) (*models.UploadResult, error) {
	body, contentType, err := encodeUpload(upload)
	if err != nil {
		return nil, err
	}

	req, err := a.newRequest(ctx, http.MethodPost, "/upload", body, upload.RequestID)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	if upload.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+upload.AuthToken)
	}

	resp, err := a.do(req)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, resp.statusError()
	}

	var result models.UploadResult
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &result, nil
}

func encodeUpload(upload models.UploadRequest) (*bytes.Buffer, string, error) {
	f, err := os.Open(upload.File.Path)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	defer f.Close()

	name := upload.File.Name
	if name == "" {
		name = models.NewAudioFile(upload.File.Path).Name
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("audio", name)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("failed to read audio file: %w", err)
	}

	lang := upload.TargetLanguage
	if lang == "" {
		lang = models.DefaultTargetLanguage
	}
	mode := upload.Mode
	if mode == "" {
		mode = models.ModeTrial
	}

	fields := [][2]string{
		{"target_lang", lang},
		{"enable_diarization", strconv.FormatBool(upload.Diarization)},
		{"upload_mode", string(mode)},
	}
	for _, kv := range fields {
		if err := mw.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", fmt.Errorf("failed to write form field %s: %w", kv[0], err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize form: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

// History fetches /history. Entries that fail to decode are skipped.
func (a *APIService) History(ctx context.Context) ([]models.HistoryItem, error) {
	resp, err := a.Get(ctx, "/history")
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, resp.statusError()
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(resp.Body, &raw); err != nil {
		a.logger.Warn("history response is not a list", "error", err)
		return []models.HistoryItem{}, nil
	}

	items := make([]models.HistoryItem, 0, len(raw))
	for i, r := range raw {
		var item models.HistoryItem
		if err := json.Unmarshal(r, &item); err != nil {
			a.logger.Warn("skipping malformed history entry", "index", i, "error", err)
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// HistoryItem finds a history entry by ID in the full list.
func (a *APIService) HistoryItem(ctx context.Context, id int64) (*models.HistoryItem, error) {
	items, err := a.History(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == id {
			return &items[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrHistoryNotFound, id)
}

// DeleteHistory deletes one history entry.
func (a *APIService) DeleteHistory(ctx context.Context, id int64) (*models.DeleteResult, error) {
	resp, err := a.Delete(ctx, "/history/"+strconv.FormatInt(id, 10))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %d", ErrHistoryNotFound, id)
	}
	return decodeDelete(resp)
}

// DeleteAllHistory clears the history.
func (a *APIService) DeleteAllHistory(ctx context.Context) (*models.DeleteResult, error) {
	resp, err := a.Delete(ctx, "/history/delete-all")
	if err != nil {
		return nil, err
	}
	return decodeDelete(resp)
}

func decodeDelete(resp *APIResponse) (*models.DeleteResult, error) {
	var result models.DeleteResult
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		if !resp.OK() {
			return nil, resp.statusError()
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if !result.Success {
		msg := result.Error
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return &result, fmt.Errorf("%w: %s", ErrDeleteFailed, msg)
	}
	return &result, nil
}

// AudioPath maps an audio_url or bare filename to the path it is served from.
func AudioPath(audioURL string) string {
	switch {
	case audioURL == "":
		return ""
	case strings.HasPrefix(audioURL, "http://"), strings.HasPrefix(audioURL, "https://"), strings.HasPrefix(audioURL, "/"):
		return audioURL
	default:
		return "/uploads/" + url.PathEscape(audioURL)
	}
}

// DownloadAudio streams the audio at audioURL (an audio_url value or a bare filename) into w.
func (a *APIService) DownloadAudio(ctx context.Context, audioURL string, w io.Writer) (int64, error) {
	path := AudioPath(audioURL)
	if path == "" {
		return 0, fmt.Errorf("%w: audio URL is empty", shared.ErrMissingArgument)
	}

	req, err := a.newRequest(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "*/*")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: request failed: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("%w: status %d", ErrHTTPStatus, resp.StatusCode)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("failed to write audio: %w", err)
	}
	return n, nil
}

// Health checks that the backend answers on its root path.
func (a *APIService) Health(ctx context.Context) error {
	resp, err := a.Get(ctx, "/")
	if err != nil {
		return errors.Join(shared.ErrServiceUnavailable, err)
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: %w", shared.ErrServiceUnavailable, resp.statusError())
	}
	return nil
}
