package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/transcribeflow/internal/models"
	"github.com/desertthunder/transcribeflow/internal/shared"
)

// UploadRepository implements [models.Repository] for the local upload journal.
type UploadRepository struct {
	db *sql.DB
}

// NewUploadRepository creates a new [UploadRepository] with the given database connection
func NewUploadRepository(db *sql.DB) *UploadRepository {
	return &UploadRepository{db: db}
}

// Create inserts a new upload record with a generated ID
func (r *UploadRepository) Create(record *models.UploadRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	id := shared.GenerateID()
	record.SetID(id)

	query := `
		INSERT INTO uploads (id, filename, mode, target_language, diarization, status, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query, id, record.Filename, string(record.Mode), record.TargetLanguage,
		record.Diarization, string(record.Status), record.Error, record.CreatedAt(), record.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert upload: %w", err)
	}
	return nil
}

// Get retrieves an upload record by ID
func (r *UploadRepository) Get(id string) (*models.UploadRecord, error) {
	query := `
		SELECT id, filename, mode, target_language, diarization, status, error, created_at, updated_at
		FROM uploads
		WHERE id = ?
	`

	record, err := scanUpload(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: upload %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query upload: %w", err)
	}
	return record, nil
}

// Update records the outcome of an upload
func (r *UploadRepository) Update(record *models.UploadRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	record.SetUpdatedAt(now)

	query := `
		UPDATE uploads
		SET status = ?, error = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query, string(record.Status), record.Error, now, record.ID())
	if err != nil {
		return fmt.Errorf("failed to update upload: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: upload %s", ErrNotFound, record.ID())
	}
	return nil
}

// Delete removes an upload record by ID
func (r *UploadRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM uploads WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete upload: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: upload %s", ErrNotFound, id)
	}
	return nil
}

// List retrieves upload records, newest first.
//
// Supported criteria: "status" and "mode" (string) and "limit" (int).
func (r *UploadRepository) List(criteria map[string]any) ([]*models.UploadRecord, error) {
	query := `
		SELECT id, filename, mode, target_language, diarization, status, error, created_at, updated_at
		FROM uploads
		WHERE 1 = 1
	`

	args := []any{}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	if mode, ok := criteria["mode"].(string); ok && mode != "" {
		query += " AND mode = ?"
		args = append(args, mode)
	}

	query += " ORDER BY created_at DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query uploads: %w", err)
	}
	defer rows.Close()

	var records []*models.UploadRecord
	for rows.Next() {
		record, err := scanUpload(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan upload: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUpload(row rowScanner) (*models.UploadRecord, error) {
	var (
		id, filename, mode, lang, status string
		errMsg                           sql.NullString
		diarization                      bool
		createdAt, updatedAt             time.Time
	)

	if err := row.Scan(&id, &filename, &mode, &lang, &diarization, &status, &errMsg, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	record := &models.UploadRecord{
		Filename:       filename,
		Mode:           models.UploadMode(mode),
		TargetLanguage: lang,
		Diarization:    diarization,
		Status:         models.UploadStatus(status),
		Error:          errMsg.String,
	}
	record.SetID(id)
	record.SetCreatedAt(createdAt)
	record.SetUpdatedAt(updatedAt)
	return record, nil
}
