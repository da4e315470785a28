package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/health-triage-server/internal/domain"
	"github.com/health-triage-server/internal/middleware"
)

// maxChatHistory bounds how many prior turns are forwarded to the model.
const maxChatHistory = 10

const chatSystemPrompt = `You are a helpful health assistant for a Health Symptom Predictor app.

CRITICAL INSTRUCTION - MUST FOLLOW:
**You MUST respond in the EXACT same language as the user's question.**
- User writes in English → You respond ONLY in English
- User writes in Hindi → You respond ONLY in Hindi
- User writes in Hinglish → You respond ONLY in Hinglish
- DO NOT change or translate the language
- MATCH the user's language precisely

Example:
- User: "What are symptoms of fever?" → Answer in ENGLISH only
- User: "बुखार के लक्षण क्या हैं?" → Answer in HINDI only
- User: "Fever ke symptoms kya hain?" → Answer in HINGLISH only

Your responsibilities:
- Provide general health information and guidance
- Help users understand symptoms and when to seek medical care
- Always be empathetic, clear, and concise
- Use simple language that's easy to understand

IMPORTANT GUIDELINES:
1. Always include a disclaimer that this is not a substitute for professional medical advice
2. Recommend consulting healthcare professionals for serious concerns
3. Keep responses brief and to the point (2-3 paragraphs max)
4. Use bullet points for symptoms or lists when appropriate
5. Never provide specific medical diagnoses or prescribe treatments
6. Encourage users to seek emergency care for serious symptoms

Remember: You are an assistant, not a replacement for doctors. RESPOND IN THE USER'S LANGUAGE!`

type chatRequest struct {
	Message string               `json:"message" binding:"required"`
	History []domain.ChatMessage `json:"history"`
}

// handleChat forwards a conversational turn to the health assistant
// persona. History is passed through verbatim, newest turns last.
func (s *Server) handleChat(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	history := req.History
	if len(history) > maxChatHistory {
		history = history[len(history)-maxChatHistory:]
	}

	reply, err := s.deps.Generator.Generate(c.Request.Context(), domain.GenerateRequest{
		SystemPrompt: chatSystemPrompt,
		UserPrompt:   req.Message,
		History:      history,
	})
	if err != nil {
		s.deps.Logger.WithError(err).WithField("user_id", user.ID).Warn("Chat generation failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "The assistant is temporarily unavailable. Please try again."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"response": reply})
}
