// package models defines the data model for the transcription client
package models

import (
	"errors"
	"path/filepath"
	"time"
)

// Model defines the base interface for persistent models kept by the client.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// UploadMode tells the backend whether an upload was made by a signed-in user or counts against the trial.
type UploadMode string

const (
	ModeAuthenticated UploadMode = "authenticated"
	ModeTrial         UploadMode = "trial"
)

// DefaultTargetLanguage keeps the transcript in the spoken language.
const DefaultTargetLanguage = "original"

// AudioFile is a local file selected for upload.
type AudioFile struct {
	Name string // base name sent as the multipart filename
	Path string
}

// NewAudioFile builds an [AudioFile] from a filesystem path.
func NewAudioFile(path string) AudioFile {
	return AudioFile{Name: filepath.Base(path), Path: path}
}

// UploadOptions are the form options chosen alongside a file.
type UploadOptions struct {
	TargetLanguage string
	Diarization    bool
}

// Language returns the target language, falling back to [DefaultTargetLanguage].
func (o UploadOptions) Language() string {
	if o.TargetLanguage == "" {
		return DefaultTargetLanguage
	}
	return o.TargetLanguage
}

// UploadRequest is a single outgoing upload.
//
// Mode is [ModeAuthenticated] exactly when AuthToken is set.
type UploadRequest struct {
	File           AudioFile
	TargetLanguage string
	Diarization    bool
	Mode           UploadMode
	AuthToken      string
	RequestID      string
}

// NewUploadRequest builds a request for file, deriving Mode from token.
func NewUploadRequest(file AudioFile, opts UploadOptions, token string) UploadRequest {
	mode := ModeTrial
	if token != "" {
		mode = ModeAuthenticated
	}
	return UploadRequest{
		File:           file,
		TargetLanguage: opts.Language(),
		Diarization:    opts.Diarization,
		Mode:           mode,
		AuthToken:      token,
	}
}

// SonicDNA holds the audio metrics computed by the backend, each scaled 0-100 except Duration (seconds).
type SonicDNA struct {
	Energy   int `json:"energy"`
	Pace     int `json:"pace"`
	Clarity  int `json:"clarity"`
	Duration int `json:"duration"`
	RMS      int `json:"rms,omitempty"`
	RawPace  int `json:"raw_pace,omitempty"`
}

// UploadResult is the processed response to an upload.
//
// A non-empty Error marks an application-level failure even on a 2xx response.
type UploadResult struct {
	Transcript         string   `json:"transcript"`
	Summary            string   `json:"summary"`
	OriginalTranscript string   `json:"original_transcript,omitempty"`
	OriginalSummary    string   `json:"original_summary,omitempty"`
	Keywords           []string `json:"keywords"`
	BulletPoints       []string `json:"bullet_points"`
	WordCount          int      `json:"word_count"`
	ConfidenceScore    *float64 `json:"confidence_score,omitempty"`
	SonicDNA           SonicDNA `json:"sonic_dna"`
	AudioURL           string   `json:"audio_url,omitempty"`
	NumSpeakers        int      `json:"num_speakers,omitempty"`
	Error              string   `json:"error,omitempty"`
}

// Translated reports whether the transcript differs from the original-language transcript.
func (r *UploadResult) Translated() bool {
	return r.OriginalTranscript != "" && r.OriginalTranscript != r.Transcript
}

// HistoryTimeLayout is the timestamp layout used by the history endpoint.
const HistoryTimeLayout = "2006-01-02 15:04:05"

// HistoryItem is a stored transcription.
//
// ID is the unix time the item was created.
type HistoryItem struct {
	ID              int64    `json:"id"`
	Filename        string   `json:"filename"`
	Timestamp       string   `json:"timestamp"`
	Transcript      string   `json:"transcript"`
	Summary         string   `json:"summary"`
	SonicDNA        SonicDNA `json:"sonic_dna"`
	BulletPoints    []string `json:"bullet_points"`
	Keywords        []string `json:"keywords"`
	ConfidenceScore *float64 `json:"confidence_score,omitempty"`
	WordCount       int      `json:"word_count"`
}

// Time parses Timestamp, falling back to ID as unix seconds.
func (h HistoryItem) Time() time.Time {
	if t, err := time.ParseInLocation(HistoryTimeLayout, h.Timestamp, time.Local); err == nil {
		return t
	}
	return time.Unix(h.ID, 0)
}

// DeleteResult is the body returned by the history delete endpoints.
type DeleteResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// User is the identity of the signed-in person.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// DisplayName returns the most readable identifier available.
func (u *User) DisplayName() string {
	switch {
	case u == nil:
		return ""
	case u.Name != "":
		return u.Name
	case u.Email != "":
		return u.Email
	default:
		return u.ID
	}
}

// UploadStatus is the outcome recorded for a journaled upload.
type UploadStatus string

const (
	UploadInFlight  UploadStatus = "in_flight"
	UploadSucceeded UploadStatus = "succeeded"
	UploadFailed    UploadStatus = "failed"
)

// UploadRecord is the local journal entry for one submission that reached the network.
type UploadRecord struct {
	id             string
	Filename       string
	Mode           UploadMode
	TargetLanguage string
	Diarization    bool
	Status         UploadStatus
	Error          string
	createdAt      time.Time
	updatedAt      time.Time
}

// NewUploadRecord creates an in-flight [UploadRecord] for req.
func NewUploadRecord(req UploadRequest) *UploadRecord {
	now := time.Now()
	return &UploadRecord{
		Filename:       req.File.Name,
		Mode:           req.Mode,
		TargetLanguage: req.TargetLanguage,
		Diarization:    req.Diarization,
		Status:         UploadInFlight,
		createdAt:      now,
		updatedAt:      now,
	}
}

func (r *UploadRecord) ID() string           { return r.id }
func (r *UploadRecord) CreatedAt() time.Time { return r.createdAt }
func (r *UploadRecord) UpdatedAt() time.Time { return r.updatedAt }

func (r *UploadRecord) SetID(id string)          { r.id = id }
func (r *UploadRecord) SetCreatedAt(t time.Time) { r.createdAt = t }
func (r *UploadRecord) SetUpdatedAt(t time.Time) { r.updatedAt = t }

// Validate checks required fields and enumerations.
func (r *UploadRecord) Validate() error {
	if r.Filename == "" {
		return errors.New("filename is required")
	}
	switch r.Mode {
	case ModeAuthenticated, ModeTrial:
	default:
		return errors.New("invalid upload mode")
	}
	switch r.Status {
	case UploadInFlight, UploadSucceeded, UploadFailed:
	default:
		return errors.New("invalid upload status")
	}
	return nil
}
