package services

import (
	"context"

	"health-assistant-backend/models"
)

// SessionStore persists session state. Get returns (nil, nil) for an unknown
// session id.
type SessionStore interface {
	Get(ctx context.Context, id string) (*models.SessionRecord, error)
	Create(ctx context.Context, id string, profile models.UserProfile, metadata models.SessionMetadata) error
	Update(ctx context.Context, id string, profile models.UserProfile, metadata models.SessionMetadata) error
	AppendMessage(ctx context.Context, id string, role models.Role, text string, annotations *models.Annotations) error
}

// DomainContext is the structured state handed to a Generator alongside the
// prompt.
type DomainContext struct {
	Intent   models.MessageIntent `json:"intent"`
	Triage   *models.TriageResult `json:"triage,omitempty"`
	Entities *models.Entities     `json:"entities,omitempty"`
	Profile  models.UserProfile   `json:"profile"`
	Topic    string               `json:"topic,omitempty"`
}

// Generator is the optional generative augmentation capability.
type Generator interface {
	Available() bool
	Generate(ctx context.Context, prompt string, history []models.Turn, domain DomainContext) (string, error)
}

// Notifier is the real-time side channel. Emit must not block the caller.
type Notifier interface {
	Emit(event string, payload any)
}

// AnalyticsSink records usage events. Record must not block the caller.
type AnalyticsSink interface {
	Record(ctx context.Context, eventType string, payload map[string]any, sessionID string)
}

// MetricsCollector holds process-wide aggregate counters.
type MetricsCollector interface {
	IncEmergency()
	IncTurn(intent models.MessageIntent)
	IncGeneratorFailure()
	Snapshot() MetricsSnapshot
}
