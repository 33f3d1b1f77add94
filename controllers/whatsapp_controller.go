package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"health-assistant-backend/models"
	"health-assistant-backend/services"
)

const whatsAppSessionPrefix = "wa:"

type WhatsAppController struct {
	whatsappService *services.WhatsAppService
	chatbotService  *services.ChatbotService
	logger          *slog.Logger

	inflight sync.WaitGroup
}

func NewWhatsAppController(whatsappService *services.WhatsAppService, chatbotService *services.ChatbotService, logger *slog.Logger) *WhatsAppController {
	return &WhatsAppController{
		whatsappService: whatsappService,
		chatbotService:  chatbotService,
		logger:          logger,
	}
}

// VerifyWebhook handles the webhook verification request from WhatsApp
func (wc *WhatsAppController) VerifyWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token != "" && token == wc.whatsappService.VerifyToken() {
		c.String(http.StatusOK, challenge)
		return
	}

	wc.logger.Warn("whatsapp webhook verification failed", "mode", mode)
	c.JSON(http.StatusForbidden, gin.H{"error": "Verification failed"})
}

// HandleWebhook acknowledges immediately and processes the payload in the
// background, as the Cloud API expects a fast 200.
func (wc *WhatsAppController) HandleWebhook(c *gin.Context) {
	var webhookData models.WhatsAppWebhookData

	if err := c.ShouldBindJSON(&webhookData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook data"})
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	wc.inflight.Add(1)
	go func() {
		defer wc.inflight.Done()
		wc.processWebhookData(ctx, webhookData)
	}()

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

// Wait blocks until every accepted webhook has been processed.
func (wc *WhatsAppController) Wait() {
	wc.inflight.Wait()
}

func (wc *WhatsAppController) processWebhookData(ctx context.Context, webhookData models.WhatsAppWebhookData) {
	for _, entry := range webhookData.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}
			for _, message := range change.Value.Messages {
				wc.handleIncomingMessage(ctx, message)
			}
			for _, status := range change.Value.Statuses {
				wc.handleStatusUpdate(status)
			}
		}
	}
}

func (wc *WhatsAppController) handleIncomingMessage(ctx context.Context, message models.WhatsAppMessage) {
	wc.whatsappService.MarkReceived()

	text := message.Body()
	if text == "" {
		wc.logger.Debug("ignoring unsupported whatsapp message", "type", message.Type)
		return
	}

	from := services.CleanPhoneNumber(message.From)
	if err := wc.whatsappService.MarkMessageAsRead(ctx, message.ID); err != nil {
		wc.logger.Debug("failed to mark message as read", "message_id", message.ID, "error", err)
	}

	response, err := wc.chatbotService.ProcessMessage(ctx, models.ChatRequest{
		Message:   text,
		SessionID: whatsAppSessionPrefix + from,
		Channel:   models.ChannelWhatsApp,
	})
	if err != nil {
		wc.logger.Warn("failed to process whatsapp message", "from", from, "error", err)
		return
	}

	if err := wc.whatsappService.SendReply(ctx, from, response); err != nil {
		wc.logger.Error("failed to send whatsapp reply", "to", from, "error", err)
	}
}

func (wc *WhatsAppController) handleStatusUpdate(status models.WhatsAppStatus) {
	wc.logger.Debug("whatsapp message status",
		"message_id", status.ID,
		"recipient", status.RecipientID,
		"status", status.Status,
	)
	for _, e := range status.Errors {
		wc.logger.Warn("whatsapp delivery error", "code", e.Code, "title", e.Title, "message", e.Message)
	}
}

// SendMessage lets staff push a plain text message to a number.
func (wc *WhatsAppController) SendMessage(c *gin.Context) {
	var req struct {
		To      string `json:"to" binding:"required"`
		Message string `json:"message" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	to := services.CleanPhoneNumber(req.To)
	if err := wc.whatsappService.SendTextMessage(c.Request.Context(), to, req.Message); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to send message"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "sent",
		"to":     to,
	})
}

// GetStatus returns WhatsApp service status
func (wc *WhatsAppController) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, wc.whatsappService.GetStatus())
}
