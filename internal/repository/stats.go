package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/health-triage-server/internal/domain"
)

// StatsRepository aggregates platform-wide counters for the admin
// dashboard.
type StatsRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db *pgxpool.Pool, logger *logrus.Logger) *StatsRepository {
	return &StatsRepository{
		db:  db,
		log: logger,
	}
}

// Collect gathers the admin dashboard aggregates in one round trip per
// concern. Averages are zero when there is no data yet.
func (r *StatsRepository) Collect(ctx context.Context) (*domain.AdminStats, error) {
	stats := &domain.AdminStats{}

	query := `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM predictions),
			(SELECT COUNT(*) FROM feedback),
			(SELECT COALESCE(AVG(confidence_score), 0) FROM predictions),
			(SELECT COALESCE(AVG(CASE WHEN is_accurate THEN 1.0 ELSE 0.0 END), 0) FROM feedback)`

	err := r.db.QueryRow(ctx, query).Scan(
		&stats.TotalUsers,
		&stats.TotalPredictions,
		&stats.TotalFeedback,
		&stats.AverageConfidence,
		&stats.AccuracyRate,
	)
	if err != nil {
		r.log.WithError(err).Error("Failed to collect platform stats")
		return nil, fmt.Errorf("collecting platform stats: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT predicted_disease, COUNT(*) AS n
		FROM predictions
		GROUP BY predicted_disease
		ORDER BY n DESC
		LIMIT 5`)
	if err != nil {
		return nil, fmt.Errorf("querying top diseases: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var dc domain.DiseaseCount
		if err := rows.Scan(&dc.Disease, &dc.Count); err != nil {
			return nil, fmt.Errorf("scanning disease count: %w", err)
		}
		stats.TopDiseases = append(stats.TopDiseases, dc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating disease counts: %w", err)
	}

	return stats, nil
}
