// Package domain contains core business entities and types for the symptom
// triage service: rule-based disease classification, demographic-aware
// medicine advice, prediction history, feedback, and notifications.
package domain

import (
	"errors"
	"strings"
)

// Disease is the closed set of diagnosis labels the rule-based classifier
// can produce. The set is fixed; there is no open-ended model output.
type Disease string

const (
	DiseaseCommonCold      Disease = "Common Cold"
	DiseaseFlu             Disease = "Flu (Influenza)"
	DiseaseCOVID19         Disease = "COVID-19"
	DiseaseGastroenteritis Disease = "Gastroenteritis"
	DiseaseMigraine        Disease = "Migraine"
)

// Diseases lists every label the classifier can produce, in rule-priority
// order. Useful for exhaustiveness checks and admin listings.
var Diseases = []Disease{
	DiseaseCOVID19,
	DiseaseFlu,
	DiseaseCommonCold,
	DiseaseGastroenteritis,
	DiseaseMigraine,
}

// IsValid reports whether the disease label belongs to the closed set.
func (d Disease) IsValid() bool {
	switch d {
	case DiseaseCommonCold, DiseaseFlu, DiseaseCOVID19, DiseaseGastroenteritis, DiseaseMigraine:
		return true
	default:
		return false
	}
}

// String returns the user-facing disease name.
func (d Disease) String() string {
	return string(d)
}

// Gender is the small fixed tag set used for demographic personalization.
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
	GenderOther  Gender = "O"
)

// IsValid reports whether the gender tag is one of the known values.
func (g Gender) IsValid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	default:
		return false
	}
}

// Language selects the language of generated advice and notifications.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageHindi   Language = "hi"
)

// IsValid reports whether the language tag is supported.
func (l Language) IsValid() bool {
	switch l {
	case LanguageEnglish, LanguageHindi:
		return true
	default:
		return false
	}
}

// ParseLanguage normalizes a language query parameter, defaulting to English
// for anything unrecognized.
func ParseLanguage(s string) Language {
	switch Language(strings.ToLower(strings.TrimSpace(s))) {
	case LanguageHindi:
		return LanguageHindi
	default:
		return LanguageEnglish
	}
}

// NotificationType classifies how a notification was produced and who may
// see it.
type NotificationType string

const (
	// NotificationPersonalized is generated for a single user from their
	// prediction history.
	NotificationPersonalized NotificationType = "personalized"
	// NotificationAnnouncement is an admin broadcast visible to all users.
	NotificationAnnouncement NotificationType = "announcement"
	// NotificationDirect is an admin message to one specific user.
	NotificationDirect NotificationType = "direct"
)

// IsValid reports whether the notification type is one of the known values.
func (nt NotificationType) IsValid() bool {
	switch nt {
	case NotificationPersonalized, NotificationAnnouncement, NotificationDirect:
		return true
	default:
		return false
	}
}

// Sentinel errors surfaced across the storage and service layers.
var (
	// ErrNotFound covers records that do not exist or do not belong to the
	// requesting user; the HTTP layer maps it to 404.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateFeedback is returned when a prediction already has
	// feedback attached; at most one feedback row exists per prediction.
	ErrDuplicateFeedback = errors.New("feedback already submitted for this prediction")

	// ErrGenerationFailed wraps any text-generation gateway failure:
	// timeout, non-2xx status, or a response missing the expected shape.
	// Callers treat the enrichment as absent and continue.
	ErrGenerationFailed = errors.New("text generation failed")

	// ErrInvalidNotification is returned for admin notification payloads
	// that violate the broadcast/direct targeting rules.
	ErrInvalidNotification = errors.New("invalid notification payload")
)
