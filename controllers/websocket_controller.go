package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"health-assistant-backend/models"
	"health-assistant-backend/services"
)

type wsChatFrame struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

type WebSocketController struct {
	chatbotService *services.ChatbotService
	hub            *services.NotificationHub
	upgrader       websocket.Upgrader
	logger         *slog.Logger
}

// NewWebSocketController accepts upgrades from the given origins; "*" or an
// empty list accepts any origin.
func NewWebSocketController(chatbotService *services.ChatbotService, hub *services.NotificationHub, allowedOrigins []string, logger *slog.Logger) *WebSocketController {
	return &WebSocketController{
		chatbotService: chatbotService,
		hub:            hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

// HandleWebSocket serves the chat contract over a socket: one request frame
// in, one response frame out. The session id sticks to the connection once
// assigned.
func (wc *WebSocketController) HandleWebSocket(c *gin.Context) {
	conn, err := wc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		wc.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sessionID := c.Query("sessionId")

	for {
		var frame wsChatFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wc.logger.Debug("websocket read failed", "error", err)
			}
			return
		}
		if frame.SessionID != "" {
			sessionID = frame.SessionID
		}

		response, err := wc.chatbotService.ProcessMessage(c.Request.Context(), models.ChatRequest{
			Message:   frame.Message,
			SessionID: sessionID,
			Channel:   models.ChannelWebSocket,
		})
		if err != nil {
			msg := "Failed to process message"
			if errors.Is(err, services.ErrEmptyMessage) {
				msg = "Message must not be empty"
			}
			if err := conn.WriteJSON(gin.H{"error": msg}); err != nil {
				return
			}
			continue
		}

		sessionID = response.SessionID
		if err := conn.WriteJSON(response); err != nil {
			wc.logger.Debug("websocket write failed", "error", err)
			return
		}
	}
}

// HandleAlerts subscribes the socket to emergency alerts.
func (wc *WebSocketController) HandleAlerts(c *gin.Context) {
	conn, err := wc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		wc.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	wc.hub.Serve(conn)
}
