package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/health-triage-server/internal/domain"
)

// RetentionPolicy bounds each user's stored prediction history to a fixed
// cap, deleting oldest records first.
type RetentionPolicy struct {
	predictions domain.PredictionStore
	maxPerUser  int
	logger      *logrus.Logger
}

// NewRetentionPolicy creates a new retention policy
func NewRetentionPolicy(predictions domain.PredictionStore, maxPerUser int, logger *logrus.Logger) *RetentionPolicy {
	if maxPerUser <= 0 {
		maxPerUser = 10
	}
	return &RetentionPolicy{
		predictions: predictions,
		maxPerUser:  maxPerUser,
		logger:      logger,
	}
}

// Trim deletes the user's oldest predictions until the count is within the
// cap. Feedback rows are removed with their predictions. Idempotent: a
// second run on the same state deletes nothing.
func (p *RetentionPolicy) Trim(ctx context.Context, userID int64) error {
	count, err := p.predictions.CountByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("counting predictions for trim: %w", err)
	}

	excess := count - p.maxPerUser
	if excess <= 0 {
		return nil
	}

	ids, err := p.predictions.OldestIDs(ctx, userID, excess)
	if err != nil {
		return fmt.Errorf("selecting predictions to trim: %w", err)
	}

	if err := p.predictions.DeleteWithFeedback(ctx, ids); err != nil {
		return fmt.Errorf("deleting trimmed predictions: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"deleted": len(ids),
		"cap":     p.maxPerUser,
	}).Info("Prediction history trimmed")

	return nil
}

// TrimQuietly runs Trim and logs any failure instead of returning it. The
// prediction pipeline must not fail because cleanup did.
func (p *RetentionPolicy) TrimQuietly(ctx context.Context, userID int64) {
	if err := p.Trim(ctx, userID); err != nil {
		p.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"error":   err,
		}).Warn("History trim failed")
	}
}
