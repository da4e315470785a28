package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/health-triage-server/internal/domain"
	"github.com/health-triage-server/internal/feedback"
)

// historyWindow and historyCap bound how much prediction history feeds a
// personalized notification prompt.
const (
	historyWindow     = 30 * 24 * time.Hour
	historyCap        = 10
	summaryCap        = 5
	notifierMaxTokens = 300
)

const notifierSystemPrompt = `You are a compassionate healthcare AI assistant. Generate a personalized health notification
based on the user's prediction history. The notification should:
- Be encouraging and supportive
- Provide actionable health advice
- Be concise (2-3 sentences, max 200 words)
- Be warm and professional
- Focus on prevention and wellness
- NOT diagnose or replace medical advice`

// NotificationGenerator produces personalized health notifications from a
// user's prediction history, falling back to static texts when there is no
// history or the gateway is down.
type NotificationGenerator struct {
	predictions   domain.PredictionStore
	feedbackStore feedback.Store
	notifications domain.NotificationStore
	users         domain.UserStore
	generator     domain.TextGenerator
	logger        *logrus.Logger
}

// NewNotificationGenerator creates a new notification generator
func NewNotificationGenerator(
	predictions domain.PredictionStore,
	feedbackStore feedback.Store,
	notifications domain.NotificationStore,
	users domain.UserStore,
	generator domain.TextGenerator,
	logger *logrus.Logger,
) *NotificationGenerator {
	return &NotificationGenerator{
		predictions:   predictions,
		feedbackStore: feedbackStore,
		notifications: notifications,
		users:         users,
		generator:     generator,
		logger:        logger,
	}
}

// GenerateForUser creates and persists a personalized notification. Users
// without recent history get a static welcome; gateway failures fall back
// to a static wellness tip. The notification is always persisted.
func (g *NotificationGenerator) GenerateForUser(ctx context.Context, user *domain.User, lang domain.Language) (*domain.Notification, error) {
	since := time.Now().Add(-historyWindow)
	predictions, err := g.predictions.RecentSince(ctx, user.ID, since, historyCap)
	if err != nil {
		return nil, fmt.Errorf("loading prediction history: %w", err)
	}

	if len(predictions) == 0 {
		title, message := welcomeNotification(lang)
		return g.persist(ctx, user.ID, title, message)
	}

	title, message := g.generateFromHistory(ctx, user, predictions, lang)
	return g.persist(ctx, user.ID, title, message)
}

func (g *NotificationGenerator) persist(ctx context.Context, userID int64, title, message string) (*domain.Notification, error) {
	n := &domain.Notification{
		UserID:  &userID,
		Title:   title,
		Message: message,
		Type:    domain.NotificationPersonalized,
	}
	if err := g.notifications.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("persisting notification: %w", err)
	}
	return n, nil
}

// generateFromHistory builds the summarization prompt and calls the
// gateway. Any failure yields the static fallback texts.
func (g *NotificationGenerator) generateFromHistory(ctx context.Context, user *domain.User, predictions []*domain.PredictionRecord, lang domain.Language) (string, string) {
	prompt := g.buildPrompt(ctx, user, predictions, lang)

	text, err := g.generator.Generate(ctx, domain.GenerateRequest{
		SystemPrompt: g.systemPrompt(lang),
		UserPrompt:   prompt,
		MaxTokens:    notifierMaxTokens,
	})
	if err != nil {
		g.logger.WithFields(logrus.Fields{
			"user_id": user.ID,
			"error":   err,
		}).Warn("Personalized notification generation failed, using fallback")
		return fallbackNotification(lang)
	}

	title := "Your Personalized Health Insight 💡"
	if lang == domain.LanguageHindi {
		title = "आपकी व्यक्तिगत स्वास्थ्य सलाह 💡"
	}
	return title, strings.TrimSpace(text)
}

func (g *NotificationGenerator) systemPrompt(lang domain.Language) string {
	if lang == domain.LanguageHindi {
		return notifierSystemPrompt + "\n- Respond in Hindi language"
	}
	return notifierSystemPrompt
}

func (g *NotificationGenerator) buildPrompt(ctx context.Context, user *domain.User, predictions []*domain.PredictionRecord, lang domain.Language) string {
	capped := predictions
	if len(capped) > summaryCap {
		capped = capped[:summaryCap]
	}

	var predictionLines []string
	ids := make([]int64, 0, len(predictions))
	for _, p := range predictions {
		ids = append(ids, p.ID)
	}
	for _, p := range capped {
		predictionLines = append(predictionLines, fmt.Sprintf(
			"- Predicted: %s, Confidence: %.0f%%, Date: %s",
			p.Disease, p.ConfidenceScore*100, p.CreatedAt.Format("2006-01-02"),
		))
	}

	feedbackSummary := "No feedback provided yet."
	if fbs, err := g.feedbackStore.ListByPredictionIDs(ctx, ids); err != nil {
		g.logger.WithError(err).Warn("Could not load feedback for notification prompt")
	} else if len(fbs) > 0 {
		var lines []string
		for _, fb := range fbs {
			if len(lines) >= summaryCap {
				break
			}
			rating := "N/A"
			if fb.Rating != nil {
				rating = fmt.Sprintf("%d/5", *fb.Rating)
			}
			accurate := "No"
			if fb.IsAccurate {
				accurate = "Yes"
			}
			lines = append(lines, fmt.Sprintf("- Rating: %s, Accurate: %s", rating, accurate))
		}
		feedbackSummary = strings.Join(lines, "\n")
	}

	age := "N/A"
	if user.Age != nil {
		age = fmt.Sprintf("%d", *user.Age)
	}
	gender := "N/A"
	if user.Gender != nil {
		gender = string(*user.Gender)
	}
	userInfo := fmt.Sprintf("Age: %s, Gender: %s", age, gender)

	if lang == domain.LanguageHindi {
		return fmt.Sprintf(`उपयोगकर्ता की जानकारी:
%s

हाल की भविष्यवाणियां:
%s

फीडबैक:
%s

उपयोगकर्ता के स्वास्थ्य इतिहास के आधार पर एक व्यक्तिगत स्वास्थ्य सूचना तैयार करें। सकारात्मक, प्रोत्साहित करने वाला और कार्रवाई योग्य सलाह दें।`,
			userInfo, strings.Join(predictionLines, "\n"), feedbackSummary)
	}

	return fmt.Sprintf(`User Information:
%s

Recent Predictions:
%s

Feedback:
%s

Create a personalized health notification based on the user's history. Be positive, encouraging, and provide actionable advice.`,
		userInfo, strings.Join(predictionLines, "\n"), feedbackSummary)
}

func welcomeNotification(lang domain.Language) (string, string) {
	if lang == domain.LanguageHindi {
		return "स्वागत है! 🏥",
			"आपके स्वास्थ्य यात्रा में आपका स्वागत है। लक्षणों का विश्लेषण शुरू करें और व्यक्तिगत स्वास्थ्य सुझाव प्राप्त करें।"
	}
	return "Welcome to Health Symptom Predictor! 🏥",
		"Start analyzing your symptoms to get personalized health insights and recommendations powered by AI."
}

func fallbackNotification(lang domain.Language) (string, string) {
	if lang == domain.LanguageHindi {
		return "स्वास्थ्य सलाह 💡",
			"नियमित व्यायाम, संतुलित आहार और पर्याप्त नींद आपके स्वास्थ्य के लिए महत्वपूर्ण हैं। अपनी देखभाल करते रहें!"
	}
	return "Health Tip 💡",
		"Regular exercise, balanced diet, and adequate sleep are key to maintaining good health. Keep taking care of yourself!"
}

// BroadcastPersonalized generates a personalized notification for every
// active non-admin user. Per-user failures are logged and skipped; the
// count of created notifications is returned.
func (g *NotificationGenerator) BroadcastPersonalized(ctx context.Context, lang domain.Language) (int, error) {
	users, err := g.users.ListNonAdmins(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing users for broadcast: %w", err)
	}

	created := 0
	for _, user := range users {
		if _, err := g.GenerateForUser(ctx, user, lang); err != nil {
			g.logger.WithFields(logrus.Fields{
				"user_id": user.ID,
				"error":   err,
			}).Warn("Skipping user in personalized broadcast")
			continue
		}
		created++
	}

	g.logger.WithFields(logrus.Fields{
		"users":   len(users),
		"created": created,
	}).Info("Personalized broadcast completed")

	return created, nil
}
