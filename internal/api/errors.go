package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/health-triage-server/internal/domain"
)

// respondError maps domain sentinels to HTTP status codes. Anything
// unrecognized is a 500 with a generic message.
func (s *Server) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, domain.ErrDuplicateFeedback):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Feedback already submitted for this prediction"})
	case errors.Is(err, domain.ErrInvalidNotification):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.deps.Logger.WithError(err).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
