package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"health-assistant-backend/models"
	"health-assistant-backend/services"
)

type ChatbotController struct {
	chatbotService *services.ChatbotService
}

func NewChatbotController(chatbotService *services.ChatbotService) *ChatbotController {
	return &ChatbotController{
		chatbotService: chatbotService,
	}
}

// HandleChat processes chat messages
func (cc *ChatbotController) HandleChat(c *gin.Context) {
	var req models.ChatRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request format",
			"details": err.Error(),
		})
		return
	}
	if req.Channel == "" {
		req.Channel = models.ChannelWeb
	}

	response, err := cc.chatbotService.ProcessMessage(c.Request.Context(), req)
	if errors.Is(err, services.ErrEmptyMessage) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message must not be empty"})
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process message"})
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetSession returns the history, profile and booking state of a session.
func (cc *ChatbotController) GetSession(c *gin.Context) {
	id := c.Param("id")
	session, err := cc.chatbotService.GetSession(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load session"})
		return
	}
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found", "sessionId": id})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session":         session,
		"appointmentStep": services.StepOf(session.Appointment),
		"messageCount":    len(session.Turns),
	})
}

var intentExamples = map[models.MessageIntent][]string{
	models.IntentEmergency:   {"I think I'm having a heart attack", "Severe chest pain", "I can't breathe"},
	models.IntentGreeting:    {"Hi", "Good morning"},
	models.IntentGoodbye:     {"Bye", "That's all, thanks"},
	models.IntentHelp:        {"What can you do?", "Help"},
	models.IntentSymptom:     {"I have a headache", "My throat is sore"},
	models.IntentAppointment: {"Book an appointment", "I need to see a doctor"},
	models.IntentMedication:  {"Can I take aspirin with warfarin?", "What are the side effects of metformin?"},
	models.IntentWellness:    {"Tips for better sleep", "How can I reduce stress?"},
	models.IntentSpecialty:   {"Do you have a cardiologist?", "I need a specialist"},
	models.IntentTriage:      {"Is it serious?", "Should I go to the ER?"},
	models.IntentGeneral:     {"Tell me about your clinic"},
}

// GetSupportedIntents returns list of supported intents in evaluation order
func (cc *ChatbotController) GetSupportedIntents(c *gin.Context) {
	intents := cc.chatbotService.SupportedIntents()
	out := make([]gin.H, 0, len(intents))
	for _, intent := range intents {
		out = append(out, gin.H{
			"intent":   intent,
			"examples": intentExamples[intent],
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"intents": out,
	})
}

func (cc *ChatbotController) GetMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, cc.chatbotService.Metrics())
}
