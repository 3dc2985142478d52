// package repositories provides the SQLite persistence layer for client-side state.
//
// [MetadataRepository] is a key/value store over the metadata table and backs the
// trial counter and the identity session. [UploadRepository] implements
// models.Repository for the local upload journal.
package repositories

import (
	"errors"
)

// Metadata keys.
const (
	KeyTrialUploads = "trial_uploads"
	KeySessionToken = "session_token"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")
