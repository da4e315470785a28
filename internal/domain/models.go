package domain

import (
	"time"
)

// Core Data Models

// User represents an account row. Authentication happens upstream; the
// service trusts the identity header and only checks is_active / is_admin.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Age       *int      `json:"age,omitempty"`
	Gender    *Gender   `json:"gender,omitempty"`
	Weight    *float64  `json:"weight,omitempty"`
	IsActive  bool      `json:"is_active"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PartialProfile carries an optional-field profile update; nil fields are
// left untouched.
type PartialProfile struct {
	FullName *string  `json:"full_name,omitempty"`
	Age      *int     `json:"age,omitempty"`
	Gender   *Gender  `json:"gender,omitempty"`
	Weight   *float64 `json:"weight,omitempty"`
}

// Classification is the outcome of the rule-based symptom classifier.
type Classification struct {
	Disease         Disease  `json:"disease"`
	Confidence      float64  `json:"confidence"`
	Precautions     []string `json:"precautions"`
	Recommendations []string `json:"recommendations"`
}

// AdviceResult is the dosage advisor output: generated recommendation text
// plus the language-matched static disclaimer.
type AdviceResult struct {
	Recommendation string   `json:"recommendation"`
	Disclaimer     string   `json:"disclaimer"`
	Language       Language `json:"language"`
}

// FreeTextAnalysis is the structured extraction from a free-text symptom
// description. Degraded marks results built from an unparseable gateway
// response; Skipped marks inputs too short to analyze.
type FreeTextAnalysis struct {
	AdditionalSymptoms []string `json:"additional_symptoms"`
	Severity           string   `json:"severity"`
	Context            string   `json:"context"`
	RedFlags           []string `json:"red_flags"`
	LanguageDetected   string   `json:"language_detected"`
	Summary            string   `json:"summary"`
	Degraded           bool     `json:"degraded,omitempty"`
	Skipped            bool     `json:"skipped,omitempty"`
	Raw                string   `json:"-"`
}

// AdditionalInfo is the JSON blob persisted alongside each prediction: the
// raw inputs and whichever enrichments succeeded.
type AdditionalInfo struct {
	FreeText       string            `json:"free_text,omitempty"`
	Age            *int              `json:"age,omitempty"`
	Gender         *Gender           `json:"gender,omitempty"`
	DurationDays   *int              `json:"duration_days,omitempty"`
	TextAnalysis   *FreeTextAnalysis `json:"text_analysis,omitempty"`
	MedicineAdvice *AdviceResult     `json:"medicine_advice,omitempty"`
	Language       Language          `json:"language"`
}

// PredictionRecord represents a stored prediction row.
type PredictionRecord struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	Symptoms        []string        `json:"symptoms"`
	Disease         Disease         `json:"predicted_disease"`
	ConfidenceScore float64         `json:"confidence_score"`
	AdditionalInfo  *AdditionalInfo `json:"additional_info,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Feedback represents user feedback on a single prediction. At most one
// feedback row exists per prediction.
type Feedback struct {
	ID              int64     `json:"id"`
	PredictionID    int64     `json:"prediction_id"`
	IsAccurate      bool      `json:"is_accurate"`
	ActualDiagnosis string    `json:"actual_diagnosis,omitempty"`
	Rating          *int      `json:"rating,omitempty"`
	Comments        string    `json:"comments,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// FeedbackSummary aggregates a user's feedback for prompt building and the
// admin user listing.
type FeedbackSummary struct {
	Total         int     `json:"total"`
	AccurateCount int     `json:"accurate_count"`
	AverageRating float64 `json:"average_rating"`
}

// Notification represents a notification row. A nil UserID marks a
// broadcast visible to every user.
type Notification struct {
	ID        int64            `json:"id"`
	UserID    *int64           `json:"user_id,omitempty"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}

// IsBroadcast reports whether the notification targets all users.
func (n *Notification) IsBroadcast() bool {
	return n.UserID == nil
}

// ChatMessage is one turn of the health assistant conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AdminStats aggregates platform-wide counters for the admin dashboard.
type AdminStats struct {
	TotalUsers        int64          `json:"total_users"`
	TotalPredictions  int64          `json:"total_predictions"`
	TotalFeedback     int64          `json:"total_feedback"`
	AverageConfidence float64        `json:"average_confidence"`
	AccuracyRate      float64        `json:"accuracy_rate"`
	TopDiseases       []DiseaseCount `json:"top_diseases"`
}

// DiseaseCount is one entry of the top-diseases breakdown.
type DiseaseCount struct {
	Disease Disease `json:"disease"`
	Count   int64   `json:"count"`
}
