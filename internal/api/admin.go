package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/health-triage-server/internal/domain"
)

type adminNotificationRequest struct {
	UserID  *int64 `json:"user_id"`
	Title   string `json:"title" binding:"required"`
	Message string `json:"message" binding:"required"`
	Type    string `json:"type" binding:"required"`
}

// handleAdminCreateNotification creates an announcement (everyone) or a
// direct notification (one existing user).
func (s *Server) handleAdminCreateNotification(c *gin.Context) {
	var req adminNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title, message and type are required"})
		return
	}

	n := &domain.Notification{
		UserID:  req.UserID,
		Title:   req.Title,
		Message: req.Message,
		Type:    domain.NotificationType(req.Type),
	}

	if err := s.validateAdminNotification(c, n); err != nil {
		s.respondError(c, err)
		return
	}

	if err := s.deps.Notifications.Create(c.Request.Context(), n); err != nil {
		s.respondError(c, err)
		return
	}

	s.deps.Logger.WithFields(logrus.Fields{
		"type":      n.Type,
		"broadcast": n.IsBroadcast(),
	}).Info("Admin notification created")

	s.hub.publish(n)
	c.JSON(http.StatusCreated, n)
}

// validateAdminNotification enforces the type/target pairing: announcements
// have no target, direct notifications need an existing user.
func (s *Server) validateAdminNotification(c *gin.Context, n *domain.Notification) error {
	switch n.Type {
	case domain.NotificationAnnouncement:
		if n.UserID != nil {
			return fmt.Errorf("%w: announcements cannot target a single user", domain.ErrInvalidNotification)
		}
	case domain.NotificationDirect:
		if n.UserID == nil {
			return fmt.Errorf("%w: direct notifications require a user_id", domain.ErrInvalidNotification)
		}
		if _, err := s.deps.Users.GetByID(c.Request.Context(), *n.UserID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("%w: target user does not exist", domain.ErrInvalidNotification)
			}
			return err
		}
	default:
		return fmt.Errorf("%w: type must be announcement or direct", domain.ErrInvalidNotification)
	}
	return nil
}

type adminUserView struct {
	*domain.User
	FeedbackSummary *domain.FeedbackSummary `json:"feedback_summary"`
}

// handleAdminListUsers lists non-admin accounts with their feedback
// aggregates.
func (s *Server) handleAdminListUsers(c *gin.Context) {
	users, err := s.deps.Users.ListNonAdmins(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}

	views := make([]adminUserView, 0, len(users))
	for _, user := range users {
		view := adminUserView{User: user}

		count, err := s.deps.Predictions.CountByUser(c.Request.Context(), user.ID)
		if err == nil && count > 0 {
			if recs, err := s.deps.Predictions.ListByUser(c.Request.Context(), user.ID, count); err == nil {
				ids := make([]int64, 0, len(recs))
				for _, rec := range recs {
					ids = append(ids, rec.ID)
				}
				if summary, err := s.deps.Feedback.SummaryForPredictions(c.Request.Context(), ids); err == nil {
					view.FeedbackSummary = summary
				}
			}
		}

		views = append(views, view)
	}

	c.JSON(http.StatusOK, gin.H{"users": views, "count": len(views)})
}

// handleAdminBroadcastAI generates a personalized notification for every
// non-admin user.
func (s *Server) handleAdminBroadcastAI(c *gin.Context) {
	lang := domain.ParseLanguage(c.Query("lang"))

	created, err := s.deps.Notifier.BroadcastPersonalized(c.Request.Context(), lang)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications_created": created})
}

// handleAdminStats returns platform-wide aggregates.
func (s *Server) handleAdminStats(c *gin.Context) {
	stats, err := s.deps.Stats.Collect(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
