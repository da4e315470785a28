package feedback

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/health-triage-server/internal/domain"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite feedback store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanFeedback scans a row into a Feedback struct.
func scanFeedback(s scanner) (*domain.Feedback, error) {
	fb := &domain.Feedback{}
	var actualDiagnosis, comments sql.NullString
	var rating sql.NullInt64

	err := s.Scan(
		&fb.ID, &fb.PredictionID, &fb.IsAccurate,
		&actualDiagnosis, &rating, &comments, &fb.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	fb.ActualDiagnosis = actualDiagnosis.String
	fb.Comments = comments.String
	if rating.Valid {
		r := int(rating.Int64)
		fb.Rating = &r
	}
	return fb, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		prediction_id INTEGER NOT NULL UNIQUE,
		is_accurate INTEGER NOT NULL,
		actual_diagnosis TEXT,
		rating INTEGER CHECK (rating >= 1 AND rating <= 5),
		comments TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_feedback_created_at ON feedback(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

const feedbackColumns = `id, prediction_id, is_accurate, actual_diagnosis, rating, comments, created_at`

// Create stores feedback for a prediction.
func (s *SQLiteStore) Create(ctx context.Context, fb *domain.Feedback) error {
	var existingID int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM feedback WHERE prediction_id = ?",
		fb.PredictionID,
	).Scan(&existingID)

	if err == nil {
		return domain.ErrDuplicateFeedback
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to check existing: %w", err)
	}

	now := time.Now()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (prediction_id, is_accurate, actual_diagnosis, rating, comments, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		fb.PredictionID,
		fb.IsAccurate,
		fb.ActualDiagnosis,
		fb.Rating,
		fb.Comments,
		now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return domain.ErrDuplicateFeedback
		}
		return fmt.Errorf("failed to insert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	fb.ID = id
	fb.CreatedAt = now

	return nil
}

// GetByPredictionID retrieves the feedback attached to a prediction.
func (s *SQLiteStore) GetByPredictionID(ctx context.Context, predictionID int64) (*domain.Feedback, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+feedbackColumns+`
		FROM feedback
		WHERE prediction_id = ?
		LIMIT 1
	`, predictionID)

	fb, err := scanFeedback(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return fb, nil
}

// ListByPredictionIDs retrieves feedback for the given predictions.
func (s *SQLiteStore) ListByPredictionIDs(ctx context.Context, predictionIDs []int64) (map[int64]*domain.Feedback, error) {
	result := make(map[int64]*domain.Feedback)
	if len(predictionIDs) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(predictionIDs))
	args := make([]interface{}, len(predictionIDs))
	for i, id := range predictionIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	query := `
		SELECT ` + feedbackColumns + `
		FROM feedback
		WHERE prediction_id IN (` + strings.Join(placeholders, ", ") + `)`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		fb, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result[fb.PredictionID] = fb
	}
	return result, rows.Err()
}

// SummaryForPredictions aggregates feedback across the given predictions.
func (s *SQLiteStore) SummaryForPredictions(ctx context.Context, predictionIDs []int64) (*domain.FeedbackSummary, error) {
	summary := &domain.FeedbackSummary{}
	if len(predictionIDs) == 0 {
		return summary, nil
	}

	all, err := s.ListByPredictionIDs(ctx, predictionIDs)
	if err != nil {
		return nil, err
	}

	var ratingSum, ratingCount int
	for _, fb := range all {
		summary.Total++
		if fb.IsAccurate {
			summary.AccurateCount++
		}
		if fb.Rating != nil {
			ratingSum += *fb.Rating
			ratingCount++
		}
	}
	if ratingCount > 0 {
		summary.AverageRating = float64(ratingSum) / float64(ratingCount)
	}

	return summary, nil
}

// Count returns the total number of feedback entries.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM feedback").Scan(&count)
	return count, err
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
