package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/health-triage-server/internal/domain"
)

// minAnalyzableLength is the shortest trimmed input worth a gateway call.
const minAnalyzableLength = 4

var (
	fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*\\})\\s*```")
	bareJSONPattern   = regexp.MustCompile(`(?s)\{.*\}`)
)

// FreeTextAnalyzer extracts structured symptom information from free-form
// text in English, Hindi or Hinglish.
type FreeTextAnalyzer struct {
	generator domain.TextGenerator
	logger    *logrus.Logger
}

// NewFreeTextAnalyzer creates a new free-text analyzer
func NewFreeTextAnalyzer(generator domain.TextGenerator, logger *logrus.Logger) *FreeTextAnalyzer {
	return &FreeTextAnalyzer{
		generator: generator,
		logger:    logger,
	}
}

// analysisPayload is the JSON shape requested from the model. red_flags
// arrives as either a list or the literal string "None".
type analysisPayload struct {
	AdditionalSymptoms []string        `json:"additional_symptoms"`
	Severity           string          `json:"severity"`
	Context            string          `json:"context"`
	RedFlags           json.RawMessage `json:"red_flags"`
	LanguageDetected   string          `json:"language_detected"`
	Summary            string          `json:"summary"`
}

// Analyze extracts structure from the user's free text. Inputs shorter
// than four characters after trimming are skipped without a gateway call.
// An unparseable model response degrades to a summary-only result; only
// gateway failures return an error.
func (a *FreeTextAnalyzer) Analyze(ctx context.Context, text string, selected []string, lang domain.Language) (*domain.FreeTextAnalysis, error) {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < minAnalyzableLength {
		return &domain.FreeTextAnalysis{Skipped: true}, nil
	}

	prompt := a.buildPrompt(trimmed, selected, lang)

	a.logger.WithFields(logrus.Fields{
		"text_length": len(trimmed),
		"language":    lang,
	}).Info("Analyzing additional symptom details")

	raw, err := a.generator.Generate(ctx, domain.GenerateRequest{UserPrompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("analyzing free text: %w", err)
	}

	return a.parse(raw), nil
}

// parse walks the extraction chain: fenced JSON block, first brace-to-brace
// span, then the whole body. Total failure yields a degraded result built
// from the raw text instead of an error.
func (a *FreeTextAnalyzer) parse(raw string) *domain.FreeTextAnalysis {
	candidates := make([]string, 0, 3)
	if m := fencedJSONPattern.FindStringSubmatch(raw); m != nil {
		candidates = append(candidates, m[1])
	}
	if m := bareJSONPattern.FindString(raw); m != "" {
		candidates = append(candidates, m)
	}
	candidates = append(candidates, raw)

	for _, candidate := range candidates {
		var payload analysisPayload
		if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
			continue
		}

		return &domain.FreeTextAnalysis{
			AdditionalSymptoms: payload.AdditionalSymptoms,
			Severity:           payload.Severity,
			Context:            payload.Context,
			RedFlags:           parseRedFlags(payload.RedFlags),
			LanguageDetected:   payload.LanguageDetected,
			Summary:            payload.Summary,
			Raw:                raw,
		}
	}

	a.logger.Warn("Could not parse analysis response, returning degraded result")

	// Truncate by runes; Hindi responses are multi-byte and a byte slice
	// would cut mid-character.
	summary := raw
	if runes := []rune(summary); len(runes) > 500 {
		summary = string(runes[:500])
	}
	return &domain.FreeTextAnalysis{
		Summary:  summary,
		RedFlags: []string{"Check raw response"},
		Degraded: true,
		Raw:      raw,
	}
}

// parseRedFlags accepts both the list form and the literal string "None".
func parseRedFlags(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if strings.EqualFold(single, "none") || single == "" {
			return nil
		}
		return []string{single}
	}

	return nil
}

func (a *FreeTextAnalyzer) buildPrompt(text string, selected []string, lang domain.Language) string {
	selectedStr := strings.Join(selected, ", ")

	return fmt.Sprintf(`You are a medical symptom analyzer. The user has written additional health details.

**User's selected symptoms:** %s

**User's additional details (in their own language):**
"%s"

**Your task:**
Analyze the text and extract:

1. **Additional Symptoms** - Any symptoms NOT already in the selected list: %s
   - List each new symptom clearly
   - If no new symptoms, say "None"

2. **Severity Indicators** - Duration, intensity, frequency
   - Example: "3 days", "very painful", "getting worse"

3. **Important Context** - Medical history, medications, recent events
   - Example: "after eating", "pregnant", "diabetic"

4. **Red Flags** - Serious warning signs needing immediate attention
   - Example: "severe pain", "blood", "difficulty breathing"

5. **Language Used** - Detect if user wrote in: English, Hindi, or Hinglish

**Format your response as JSON:**
`+"```json"+`
{
  "additional_symptoms": ["symptom1", "symptom2"],
  "severity": "mild/moderate/severe with details",
  "context": "important background information",
  "red_flags": ["warning1", "warning2"] or "None",
  "language_detected": "English/Hindi/Hinglish",
  "summary": "Brief summary in %s language for display"
}
`+"```"+`

**IMPORTANT:**
- Be thorough but concise
- Recognize Hindi, English, and Hinglish text
- Extract symptoms even if written in local language
- Identify red flags that need doctor consultation`,
		selectedStr, text, selectedStr, lang)
}
