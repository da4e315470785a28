// Package feedback provides storage for user feedback on disease
// predictions. Each prediction accepts at most one feedback entry.
package feedback

import (
	"context"

	"github.com/health-triage-server/internal/domain"
)

// Store defines the interface for feedback storage operations.
type Store interface {
	// Create stores feedback for a prediction. A second submission for the
	// same prediction returns domain.ErrDuplicateFeedback.
	Create(ctx context.Context, fb *domain.Feedback) error

	// GetByPredictionID retrieves the feedback attached to a prediction,
	// or nil when none exists.
	GetByPredictionID(ctx context.Context, predictionID int64) (*domain.Feedback, error)

	// ListByPredictionIDs retrieves feedback for the given predictions,
	// keyed by prediction ID.
	ListByPredictionIDs(ctx context.Context, predictionIDs []int64) (map[int64]*domain.Feedback, error)

	// SummaryForPredictions aggregates feedback across the given
	// predictions.
	SummaryForPredictions(ctx context.Context, predictionIDs []int64) (*domain.FeedbackSummary, error)

	// Count returns the total number of feedback entries.
	Count(ctx context.Context) (int64, error)

	// Close closes the store and releases resources.
	Close() error
}
