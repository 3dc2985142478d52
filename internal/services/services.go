// package services defines the client for the TranscribeFlow backend HTTP API
package services

import (
	"context"
	"errors"
	"io"

	"github.com/desertthunder/transcribeflow/internal/models"
)

var (
	// ErrHTTPStatus wraps any non-2xx response.
	ErrHTTPStatus = errors.New("unexpected HTTP status")
	// ErrHistoryNotFound is returned when a history item does not exist.
	ErrHistoryNotFound = errors.New("history item not found")
	// ErrDeleteFailed is returned when the backend reports success=false for a delete.
	ErrDeleteFailed = errors.New("delete failed")
	// ErrMalformedResponse is returned when a success response body is not the expected JSON.
	ErrMalformedResponse = errors.New("malformed response")
)

// Service defines the operations the client performs against the transcription backend.
type Service interface {
	// Upload sends one audio file for transcription and returns the processed result.
	// A result with a non-empty Error field is returned as-is; callers decide how to treat it.
	Upload(ctx context.Context, req models.UploadRequest) (*models.UploadResult, error)

	// History lists stored transcriptions. A body that is not a JSON array yields an empty list.
	History(ctx context.Context) ([]models.HistoryItem, error)

	// HistoryItem returns a single stored transcription by ID.
	HistoryItem(ctx context.Context, id int64) (*models.HistoryItem, error)

	// DeleteHistory removes a stored transcription by ID.
	DeleteHistory(ctx context.Context, id int64) (*models.DeleteResult, error)

	// DeleteAllHistory removes every stored transcription.
	DeleteAllHistory(ctx context.Context) (*models.DeleteResult, error)

	// DownloadAudio streams an uploaded audio file to w and returns the bytes written.
	DownloadAudio(ctx context.Context, audioURL string, w io.Writer) (int64, error)

	// Health checks that the backend is reachable.
	Health(ctx context.Context) error
}
