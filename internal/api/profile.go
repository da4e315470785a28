package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/health-triage-server/internal/domain"
	"github.com/health-triage-server/internal/middleware"
)

// handleGetProfile returns the current user's account and demographics.
func (s *Server) handleGetProfile(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	c.JSON(http.StatusOK, user)
}

type profileUpdateRequest struct {
	FullName *string  `json:"full_name"`
	Age      *int     `json:"age"`
	Gender   *string  `json:"gender"`
	Weight   *float64 `json:"weight"`
}

// handleUpdateProfile applies a partial demographics update. Absent fields
// keep their stored values.
func (s *Server) handleUpdateProfile(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var req profileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid profile payload"})
		return
	}

	if req.Age != nil && (*req.Age < 0 || *req.Age > 150) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "age must be between 0 and 150"})
		return
	}
	if req.Weight != nil && (*req.Weight <= 0 || *req.Weight > 500) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "weight must be between 0 and 500 kg"})
		return
	}

	var gender *domain.Gender
	if req.Gender != nil {
		g := domain.Gender(*req.Gender)
		if g != domain.GenderMale && g != domain.GenderFemale && g != domain.GenderOther {
			c.JSON(http.StatusBadRequest, gin.H{"error": "gender must be M, F or O"})
			return
		}
		gender = &g
	}

	updated, err := s.deps.Users.UpdateProfile(c.Request.Context(), user.ID, &domain.PartialProfile{
		FullName: req.FullName,
		Age:      req.Age,
		Gender:   gender,
		Weight:   req.Weight,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}
