package feedback

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/health-triage-server/internal/domain"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL feedback store.
// It expects the database and schema to already exist (created via migrations).
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL feedback store from a connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Create stores feedback for a prediction. An existence check catches
// duplicates up front; the unique constraint on prediction_id covers the
// race between concurrent submissions.
func (s *PostgresStore) Create(ctx context.Context, fb *domain.Feedback) error {
	existing, err := s.GetByPredictionID(ctx, fb.PredictionID)
	if err != nil {
		return fmt.Errorf("failed to check existing: %w", err)
	}
	if existing != nil {
		return domain.ErrDuplicateFeedback
	}

	query := `
		INSERT INTO feedback (prediction_id, is_accurate, actual_diagnosis, rating, comments)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err = s.db.QueryRowContext(ctx, query,
		fb.PredictionID,
		fb.IsAccurate,
		fb.ActualDiagnosis,
		fb.Rating,
		fb.Comments,
	).Scan(&fb.ID, &fb.CreatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return domain.ErrDuplicateFeedback
		}
		return fmt.Errorf("failed to save feedback: %w", err)
	}

	return nil
}

// GetByPredictionID retrieves the feedback attached to a prediction.
func (s *PostgresStore) GetByPredictionID(ctx context.Context, predictionID int64) (*domain.Feedback, error) {
	query := `
		SELECT id, prediction_id, is_accurate, actual_diagnosis, rating, comments, created_at
		FROM feedback
		WHERE prediction_id = $1
		LIMIT 1
	`

	fb := &domain.Feedback{}
	var actualDiagnosis, comments sql.NullString
	var rating sql.NullInt64

	err := s.db.QueryRowContext(ctx, query, predictionID).Scan(
		&fb.ID, &fb.PredictionID, &fb.IsAccurate,
		&actualDiagnosis, &rating, &comments, &fb.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}

	fb.ActualDiagnosis = actualDiagnosis.String
	fb.Comments = comments.String
	if rating.Valid {
		r := int(rating.Int64)
		fb.Rating = &r
	}
	return fb, nil
}

// ListByPredictionIDs retrieves feedback for the given predictions.
func (s *PostgresStore) ListByPredictionIDs(ctx context.Context, predictionIDs []int64) (map[int64]*domain.Feedback, error) {
	result := make(map[int64]*domain.Feedback)
	if len(predictionIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT id, prediction_id, is_accurate, actual_diagnosis, rating, comments, created_at
		FROM feedback
		WHERE prediction_id = ANY($1)
	`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(predictionIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		fb := &domain.Feedback{}
		var actualDiagnosis, comments sql.NullString
		var rating sql.NullInt64

		err := rows.Scan(
			&fb.ID, &fb.PredictionID, &fb.IsAccurate,
			&actualDiagnosis, &rating, &comments, &fb.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		fb.ActualDiagnosis = actualDiagnosis.String
		fb.Comments = comments.String
		if rating.Valid {
			r := int(rating.Int64)
			fb.Rating = &r
		}
		result[fb.PredictionID] = fb
	}

	return result, rows.Err()
}

// SummaryForPredictions aggregates feedback across the given predictions.
func (s *PostgresStore) SummaryForPredictions(ctx context.Context, predictionIDs []int64) (*domain.FeedbackSummary, error) {
	summary := &domain.FeedbackSummary{}
	if len(predictionIDs) == 0 {
		return summary, nil
	}

	query := `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN is_accurate THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(rating), 0)
		FROM feedback
		WHERE prediction_id = ANY($1)
	`

	err := s.db.QueryRowContext(ctx, query, pq.Array(predictionIDs)).Scan(
		&summary.Total, &summary.AccurateCount, &summary.AverageRating,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize feedback: %w", err)
	}

	return summary, nil
}

// Count returns the total number of feedback entries.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM feedback").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count feedback: %w", err)
	}
	return count, nil
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
