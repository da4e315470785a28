package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/health-triage-server/internal/domain"
	"github.com/health-triage-server/internal/middleware"
	"github.com/health-triage-server/internal/service"
)

const defaultHistoryLimit = 10

type predictRequest struct {
	Symptoms          []string `json:"symptoms" binding:"required,min=1"`
	AdditionalDetails string   `json:"additional_details"`
	Age               *int     `json:"age"`
	Gender            *string  `json:"gender"`
	DurationDays      *int     `json:"duration_days"`
}

// handlePredict runs the full triage pipeline. Request-supplied age and
// gender override the stored profile for this prediction. Enrichment
// failures never fail the request; only a storage failure does.
func (s *Server) handlePredict(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var req predictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one symptom is required"})
		return
	}

	if req.Age != nil && (*req.Age < 0 || *req.Age > 150) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "age must be between 0 and 150"})
		return
	}
	if req.DurationDays != nil && *req.DurationDays < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "duration_days must be at least 1"})
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

	lang := domain.ParseLanguage(c.Query("lang"))

	out, err := s.deps.Pipeline.Predict(c.Request.Context(), service.PredictInput{
		User:         user,
		Symptoms:     req.Symptoms,
		FreeText:     req.AdditionalDetails,
		Language:     lang,
		Age:          req.Age,
		Gender:       gender,
		DurationDays: req.DurationDays,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, out)
}

// handleHistory returns the user's most recent predictions.
func (s *Server) handleHistory(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	records, err := s.deps.Predictions.ListByUser(c.Request.Context(), user.ID, limit)
	if err != nil {
		s.respondError(c, err)
		return
	}

	if records == nil {
		records = []*domain.PredictionRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"predictions": records, "count": len(records)})
}

// handleGetPrediction returns one prediction, owner-scoped. Someone else's
// record is indistinguishable from a missing one.
func (s *Server) handleGetPrediction(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	rec, err := s.deps.Predictions.GetByID(c.Request.Context(), user.ID, id)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, rec)
}

type feedbackRequest struct {
	PredictionID    int64  `json:"prediction_id" binding:"required"`
	IsAccurate      bool   `json:"is_accurate"`
	ActualDiagnosis string `json:"actual_diagnosis"`
	Rating          *int   `json:"rating"`
	Comments        string `json:"comments"`
}

// handleFeedback attaches feedback to one of the user's predictions.
func (s *Server) handleFeedback(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prediction_id is required"})
		return
	}
	if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 5) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rating must be between 1 and 5"})
		return
	}

	// Ownership check: feedback on another user's prediction is a 404.
	if _, err := s.deps.Predictions.GetByID(c.Request.Context(), user.ID, req.PredictionID); err != nil {
		s.respondError(c, err)
		return
	}

	fb := &domain.Feedback{
		PredictionID:    req.PredictionID,
		IsAccurate:      req.IsAccurate,
		ActualDiagnosis: req.ActualDiagnosis,
		Rating:          req.Rating,
		Comments:        req.Comments,
	}
	if err := s.deps.Feedback.Create(c.Request.Context(), fb); err != nil {
		s.respondError(c, err)
		return
	}

	s.deps.Logger.WithFields(logrus.Fields{
		"user_id":       user.ID,
		"prediction_id": req.PredictionID,
	}).Info("Feedback recorded")

	c.JSON(http.StatusCreated, fb)
}

// handleSymptoms returns the classifier's symptom vocabulary.
func (s *Server) handleSymptoms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"symptoms": service.SymptomVocabulary})
}
