package routes

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"health-assistant-backend/controllers"
	"health-assistant-backend/middleware"
	"health-assistant-backend/services"
)

type Dependencies struct {
	ChatbotService  *services.ChatbotService
	Hub             *services.NotificationHub
	WhatsAppService *services.WhatsAppService
	WhatsAppSecret  string
	AllowedOrigins  []string
	// HealthCheck reports storage health; nil means always healthy.
	HealthCheck func(ctx context.Context) error
	Logger      *slog.Logger
}

// SetupRoutes registers every endpoint and returns the WhatsApp controller so
// callers can wait for in-flight webhooks on shutdown.
func SetupRoutes(router *gin.Engine, deps Dependencies) *controllers.WhatsAppController {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	chatbotController := controllers.NewChatbotController(deps.ChatbotService)
	wsController := controllers.NewWebSocketController(deps.ChatbotService, deps.Hub, deps.AllowedOrigins, logger)
	whatsappController := controllers.NewWhatsAppController(deps.WhatsAppService, deps.ChatbotService, logger)

	router.GET("/health", healthHandler(deps))

	public := router.Group("/api/v1")
	{
		public.POST("/chat", chatbotController.HandleChat)
		public.GET("/sessions/:id", chatbotController.GetSession)
		public.GET("/intents", chatbotController.GetSupportedIntents)
		public.GET("/metrics", chatbotController.GetMetrics)

		public.GET("/ws", wsController.HandleWebSocket)
		public.GET("/alerts/ws", wsController.HandleAlerts)
	}

	whatsapp := router.Group("/api/whatsapp")
	{
		// Meta calls these without auth; POSTs are signed
		whatsapp.GET("/webhook", whatsappController.VerifyWebhook)
		whatsapp.POST("/webhook", middleware.VerifyWhatsAppSignature(deps.WhatsAppSecret), whatsappController.HandleWebhook)

		// TODO: require staff authentication on the admin endpoints
		whatsapp.POST("/admin/send", whatsappController.SendMessage)
		whatsapp.GET("/admin/status", whatsappController.GetStatus)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Route not found",
			"path":  c.Request.URL.Path,
		})
	})

	return whatsappController
}

func healthHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, code := "ok", http.StatusOK
		body := gin.H{
			"timestamp":          time.Now().UTC(),
			"whatsappConfigured": deps.WhatsAppService != nil && deps.WhatsAppService.Enabled(),
		}
		if deps.Hub != nil {
			body["alertSubscribers"] = deps.Hub.Subscribers()
		}
		if deps.HealthCheck != nil {
			if err := deps.HealthCheck(c.Request.Context()); err != nil {
				status, code = "degraded", http.StatusServiceUnavailable
				body["database"] = err.Error()
			}
		}
		body["status"] = status
		c.JSON(code, body)
	}
}
