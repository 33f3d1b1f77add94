package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"health-assistant-backend/models"
)

var ErrEmptyMessage = errors.New("message must not be empty")

const apologyText = "I'm sorry, something went wrong while I was preparing a response. " +
	"Please try again, or call us at %s if you need help right away."

// ChatbotService is the boundary every transport goes through: HTTP, WebSocket
// and WhatsApp. It owns session id assignment and per-session ordering.
type ChatbotService struct {
	engine *DialogueEngine
	locks  *SessionLocks
	clinic ClinicInfo
	logger *slog.Logger
}

func NewChatbotService(engine *DialogueEngine, clinic ClinicInfo, logger *slog.Logger) *ChatbotService {
	if logger == nil {
		logger = slog.Default()
	}
	if clinic.Name == "" {
		clinic = DefaultClinicInfo()
	}
	return &ChatbotService{
		engine: engine,
		locks:  NewSessionLocks(),
		clinic: clinic,
		logger: logger,
	}
}

// ProcessMessage runs one turn. Only ErrEmptyMessage is returned as an error;
// failures inside the turn become an apology for the same session.
func (s *ChatbotService) ProcessMessage(ctx context.Context, req models.ChatRequest) (resp *models.ChatResponse, err error) {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	channel := req.Channel
	if channel == "" {
		channel = models.ChannelWeb
	}

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic while processing message", "session_id", sessionID, "panic", r)
			resp, err = s.apology(sessionID), nil
		}
	}()

	resp, err = s.engine.ProcessTurn(ctx, sessionID, text, channel)
	if err != nil {
		s.logger.Error("failed to process message", "session_id", sessionID, "error", err)
		return s.apology(sessionID), nil
	}

	s.logger.Debug("message processed",
		"session_id", sessionID,
		"intent", resp.Intent,
		"ai_enhanced", resp.AIEnhanced,
	)
	return resp, nil
}

func (s *ChatbotService) apology(sessionID string) *models.ChatResponse {
	return &models.ChatResponse{
		Response:     fmt.Sprintf(apologyText, s.clinic.Phone),
		QuickActions: []string{"Start Over", "Contact Clinic"},
		SessionID:    sessionID,
		Intent:       models.IntentGeneral,
	}
}

// GetSession returns the session state or nil when the id is unknown.
func (s *ChatbotService) GetSession(ctx context.Context, sessionID string) (*models.SessionContext, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()
	return s.engine.Snapshot(ctx, sessionID)
}

func (s *ChatbotService) SupportedIntents() []models.MessageIntent {
	return s.engine.Classifier().Intents()
}

func (s *ChatbotService) Metrics() MetricsSnapshot {
	return s.engine.Metrics().Snapshot()
}
