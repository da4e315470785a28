package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/health-triage-server/internal/domain"
)

// PredictInput carries one prediction request through the pipeline.
// Age and Gender, when supplied, override the stored profile for this
// run only.
type PredictInput struct {
	User         *domain.User
	Symptoms     []string
	FreeText     string
	Language     domain.Language
	Age          *int
	Gender       *domain.Gender
	DurationDays *int
}

// PredictOutput is the pipeline result. Advice and TextAnalysis are nil
// when their enrichment failed; the prediction itself always succeeds.
type PredictOutput struct {
	PredictionID    int64                    `json:"prediction_id"`
	Disease         domain.Disease           `json:"disease"`
	Confidence      float64                  `json:"confidence"`
	Precautions     []string                 `json:"precautions"`
	Recommendations []string                 `json:"recommendations"`
	MedicineAdvice  *domain.AdviceResult     `json:"medicine_advice,omitempty"`
	TextAnalysis    *domain.FreeTextAnalysis `json:"text_analysis,omitempty"`
	CreatedAt       time.Time                `json:"created_at"`
}

// PredictionPipeline runs the full triage flow: classify, enrich with
// advice and free-text analysis, persist, then trim history.
type PredictionPipeline struct {
	classifier  *SymptomClassifier
	advisor     *DosageAdvisor
	analyzer    *FreeTextAnalyzer
	predictions domain.PredictionStore
	retention   *RetentionPolicy
	logger      *logrus.Logger
}

// NewPredictionPipeline creates a new prediction pipeline
func NewPredictionPipeline(
	classifier *SymptomClassifier,
	advisor *DosageAdvisor,
	analyzer *FreeTextAnalyzer,
	predictions domain.PredictionStore,
	retention *RetentionPolicy,
	logger *logrus.Logger,
) *PredictionPipeline {
	return &PredictionPipeline{
		classifier:  classifier,
		advisor:     advisor,
		analyzer:    analyzer,
		predictions: predictions,
		retention:   retention,
		logger:      logger,
	}
}

// Predict runs the pipeline. Enrichment failures are logged and recorded
// as absent values; only persistence failure returns an error.
func (p *PredictionPipeline) Predict(ctx context.Context, in PredictInput) (*PredictOutput, error) {
	classification := p.classifier.Classify(in.Symptoms)

	p.logger.WithFields(logrus.Fields{
		"user_id":    in.User.ID,
		"disease":    classification.Disease,
		"confidence": classification.Confidence,
	}).Info("Running prediction pipeline")

	age := in.Age
	if age == nil {
		age = in.User.Age
	}
	gender := in.Gender
	if gender == nil {
		gender = in.User.Gender
	}

	// Enrichments run concurrently; each failure leaves its result nil.
	adviceCh := make(chan *domain.AdviceResult, 1)
	analysisCh := make(chan *domain.FreeTextAnalysis, 1)

	go func() {
		advice, err := p.advisor.Advise(ctx, AdviceRequest{
			Disease:      classification.Disease,
			Symptoms:     in.Symptoms,
			Language:     in.Language,
			Age:          age,
			Gender:       gender,
			Weight:       in.User.Weight,
			DurationDays: in.DurationDays,
		})
		if err != nil {
			p.logger.WithError(err).Warn("Medicine advice unavailable")
			adviceCh <- nil
			return
		}
		adviceCh <- advice
	}()

	go func() {
		analysis, err := p.analyzer.Analyze(ctx, in.FreeText, in.Symptoms, in.Language)
		if err != nil {
			p.logger.WithError(err).Warn("Free-text analysis unavailable")
			analysisCh <- nil
			return
		}
		if analysis.Skipped {
			analysisCh <- nil
			return
		}
		analysisCh <- analysis
	}()

	advice := <-adviceCh
	analysis := <-analysisCh

	rec := &domain.PredictionRecord{
		UserID:          in.User.ID,
		Symptoms:        in.Symptoms,
		Disease:         classification.Disease,
		ConfidenceScore: classification.Confidence,
		AdditionalInfo: &domain.AdditionalInfo{
			FreeText:       in.FreeText,
			Age:            age,
			Gender:         gender,
			DurationDays:   in.DurationDays,
			TextAnalysis:   analysis,
			MedicineAdvice: advice,
			Language:       in.Language,
		},
	}

	if err := p.predictions.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("persisting prediction: %w", err)
	}

	// Cleanup runs after the record is committed and never fails the
	// request.
	p.retention.TrimQuietly(ctx, in.User.ID)

	return &PredictOutput{
		PredictionID:    rec.ID,
		Disease:         classification.Disease,
		Confidence:      classification.Confidence,
		Precautions:     classification.Precautions,
		Recommendations: classification.Recommendations,
		MedicineAdvice:  advice,
		TextAnalysis:    analysis,
		CreatedAt:       rec.CreatedAt,
	}, nil
}
