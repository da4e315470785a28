// Package repository implements postgres persistence for predictions,
// notifications and users over pgx connection pools.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/health-triage-server/internal/domain"
)

// PredictionRepository handles prediction row persistence
type PredictionRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewPredictionRepository creates a new prediction repository
func NewPredictionRepository(db *pgxpool.Pool, logger *logrus.Logger) *PredictionRepository {
	return &PredictionRepository{
		db:  db,
		log: logger,
	}
}

// Create inserts a new prediction and fills in its generated ID and
// creation time.
func (r *PredictionRepository) Create(ctx context.Context, rec *domain.PredictionRecord) error {
	symptoms, err := json.Marshal(rec.Symptoms)
	if err != nil {
		return fmt.Errorf("marshaling symptoms: %w", err)
	}

	var info []byte
	if rec.AdditionalInfo != nil {
		info, err = json.Marshal(rec.AdditionalInfo)
		if err != nil {
			return fmt.Errorf("marshaling additional info: %w", err)
		}
	}

	query := `
		INSERT INTO predictions (user_id, symptoms, predicted_disease, confidence_score, additional_info)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err = r.db.QueryRow(ctx, query,
		rec.UserID,
		symptoms,
		string(rec.Disease),
		rec.ConfidenceScore,
		info,
	).Scan(&rec.ID, &rec.CreatedAt)

	if err != nil {
		r.log.WithFields(logrus.Fields{
			"user_id": rec.UserID,
			"disease": rec.Disease,
			"error":   err,
		}).Error("Failed to create prediction")
		return fmt.Errorf("creating prediction: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"prediction_id": rec.ID,
		"user_id":       rec.UserID,
		"disease":       rec.Disease,
	}).Info("Prediction created successfully")

	return nil
}

const predictionColumns = `id, user_id, symptoms, predicted_disease, confidence_score, additional_info, created_at`

func scanPrediction(row pgx.Row) (*domain.PredictionRecord, error) {
	var rec domain.PredictionRecord
	var symptoms []byte
	var info []byte

	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&symptoms,
		&rec.Disease,
		&rec.ConfidenceScore,
		&info,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(symptoms, &rec.Symptoms); err != nil {
		return nil, fmt.Errorf("unmarshaling symptoms: %w", err)
	}
	if len(info) > 0 {
		rec.AdditionalInfo = &domain.AdditionalInfo{}
		if err := json.Unmarshal(info, rec.AdditionalInfo); err != nil {
			return nil, fmt.Errorf("unmarshaling additional info: %w", err)
		}
	}

	return &rec, nil
}

// GetByID retrieves a prediction scoped to its owner. Rows belonging to
// other users are reported as not found.
func (r *PredictionRepository) GetByID(ctx context.Context, userID, id int64) (*domain.PredictionRecord, error) {
	query := `
		SELECT ` + predictionColumns + `
		FROM predictions
		WHERE id = $1 AND user_id = $2`

	rec, err := scanPrediction(r.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("prediction not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"prediction_id": id,
			"user_id":       userID,
			"error":         err,
		}).Error("Failed to get prediction by ID")
		return nil, fmt.Errorf("getting prediction by ID: %w", err)
	}

	return rec, nil
}

// ListByUser retrieves the user's most recent predictions, newest first.
func (r *PredictionRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]*domain.PredictionRecord, error) {
	query := `
		SELECT ` + predictionColumns + `
		FROM predictions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	return r.queryMany(ctx, query, userID, limit)
}

// RecentSince retrieves the user's predictions created after the given
// time, newest first, capped at limit.
func (r *PredictionRepository) RecentSince(ctx context.Context, userID int64, since time.Time, limit int) ([]*domain.PredictionRecord, error) {
	query := `
		SELECT ` + predictionColumns + `
		FROM predictions
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT $3`

	return r.queryMany(ctx, query, userID, since, limit)
}

func (r *PredictionRepository) queryMany(ctx context.Context, query string, args ...any) ([]*domain.PredictionRecord, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.WithError(err).Error("Failed to query predictions")
		return nil, fmt.Errorf("querying predictions: %w", err)
	}
	defer rows.Close()

	var recs []*domain.PredictionRecord
	for rows.Next() {
		rec, err := scanPrediction(rows)
		if err != nil {
			r.log.WithError(err).Error("Failed to scan prediction row")
			return nil, fmt.Errorf("scanning prediction row: %w", err)
		}
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating prediction rows: %w", err)
	}

	return recs, nil
}

// CountByUser returns the number of predictions stored for a user.
func (r *PredictionRepository) CountByUser(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM predictions WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting predictions: %w", err)
	}
	return count, nil
}

// OldestIDs returns the IDs of the user's n oldest predictions,
// oldest first.
func (r *PredictionRepository) OldestIDs(ctx context.Context, userID int64, n int) ([]int64, error) {
	query := `
		SELECT id
		FROM predictions
		WHERE user_id = $1
		ORDER BY created_at ASC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, userID, n)
	if err != nil {
		return nil, fmt.Errorf("querying oldest predictions: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning prediction id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating prediction ids: %w", err)
	}

	return ids, nil
}

// DeleteWithFeedback removes the given predictions and their feedback rows
// in one transaction, feedback first.
func (r *PredictionRepository) DeleteWithFeedback(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning delete transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM feedback WHERE prediction_id = ANY($1)`, ids); err != nil {
		r.log.WithError(err).Error("Failed to delete feedback for trimmed predictions")
		return fmt.Errorf("deleting feedback rows: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM predictions WHERE id = ANY($1)`, ids); err != nil {
		r.log.WithError(err).Error("Failed to delete trimmed predictions")
		return fmt.Errorf("deleting prediction rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing delete transaction: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"deleted": len(ids),
	}).Info("Old predictions deleted")

	return nil
}
