package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/health-triage-server/internal/domain"
)

// userContextKey is where the identity middleware stores the resolved user.
const userContextKey = "current_user"

// Identity resolves the authenticated user from the X-User-ID header set by
// the upstream auth proxy. Requests without a valid, active account are
// rejected.
func Identity(users domain.UserStore, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("X-User-ID")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing user identity"})
			return
		}

		id, err := strconv.ParseInt(header, 10, 64)
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid user identity"})
			return
		}

		user, err := users.GetByID(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unknown user"})
				return
			}
			logger.WithFields(logrus.Fields{
				"user_id": id,
				"error":   err,
			}).Error("Identity lookup failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not resolve user identity"})
			return
		}

		if !user.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Account is inactive"})
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// RequireAdmin rejects requests from non-admin accounts. Must run after
// Identity.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok || !user.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the user resolved by the Identity middleware.
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*domain.User)
	return user, ok
}
