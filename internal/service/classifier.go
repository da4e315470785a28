// Package service implements the triage pipeline: rule-based symptom
// classification, demographic-aware medicine advice, free-text analysis,
// history retention and notification generation.
package service

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/health-triage-server/internal/domain"
)

// SymptomClassifier maps a symptom set to a disease label using fixed
// priority rules. Classification is total: every input yields a result.
type SymptomClassifier struct {
	logger *logrus.Logger
}

// NewSymptomClassifier creates a new symptom classifier
func NewSymptomClassifier(logger *logrus.Logger) *SymptomClassifier {
	return &SymptomClassifier{logger: logger}
}

// Classify applies the priority rules to the symptom set. Matching is
// case-insensitive; unrecognized symptoms still count toward the symptom
// total used by the migraine rule.
func (c *SymptomClassifier) Classify(symptoms []string) domain.Classification {
	present := make(map[string]bool, len(symptoms))
	for _, s := range symptoms {
		present[strings.ToLower(strings.TrimSpace(s))] = true
	}

	var disease domain.Disease
	var confidence float64

	switch {
	case present["fever"] && present["cough"] && (present["loss of taste"] || present["loss of smell"]):
		disease = domain.DiseaseCOVID19
		confidence = 0.85
	case present["fever"] && present["cough"] && present["body ache"] && present["fatigue"]:
		disease = domain.DiseaseFlu
		confidence = 0.78
	case present["fever"] && present["cough"]:
		disease = domain.DiseaseCommonCold
		confidence = 0.72
	case present["nausea"] || present["vomiting"] || present["diarrhea"]:
		disease = domain.DiseaseGastroenteritis
		confidence = 0.81
	case present["headache"] && len(symptoms) <= 2:
		disease = domain.DiseaseMigraine
		confidence = 0.69
	default:
		disease = domain.DiseaseCommonCold
		confidence = 0.65
	}

	guidance := diseaseInfo[disease]

	c.logger.WithFields(logrus.Fields{
		"symptoms":   len(symptoms),
		"disease":    disease,
		"confidence": confidence,
	}).Debug("Symptoms classified")

	return domain.Classification{
		Disease:         disease,
		Confidence:      confidence,
		Precautions:     guidance.Precautions,
		Recommendations: guidance.Recommendations,
	}
}
