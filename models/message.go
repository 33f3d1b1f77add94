package models

import (
	"time"
)

type MessageIntent string

const (
	IntentEmergency   MessageIntent = "emergency"
	IntentGreeting    MessageIntent = "greeting"
	IntentGoodbye     MessageIntent = "goodbye"
	IntentHelp        MessageIntent = "help"
	IntentSymptom     MessageIntent = "symptom"
	IntentAppointment MessageIntent = "appointment"
	IntentMedication  MessageIntent = "medication"
	IntentWellness    MessageIntent = "wellness"
	IntentSpecialty   MessageIntent = "specialty"
	IntentTriage      MessageIntent = "triage"
	IntentGeneral     MessageIntent = "general"
)

// Sentiment is the coarse polarity of a single message.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MessageChannel represents the communication channel
type MessageChannel string

const (
	ChannelWeb       MessageChannel = "web"
	ChannelWebSocket MessageChannel = "websocket"
	ChannelWhatsApp  MessageChannel = "whatsapp"
)

// Entities are the structured facts pulled out of one message.
type Entities struct {
	Medications     []string `bson:"medications" json:"medications"`
	BodyParts       []string `bson:"body_parts" json:"bodyParts"`
	Numbers         []int    `bson:"numbers" json:"numbers"`
	TimeExpressions []string `bson:"time_expressions" json:"timeExpressions"`
}

// Annotations are attached to a Turn once it has been analyzed.
type Annotations struct {
	Intent    MessageIntent `bson:"intent,omitempty" json:"intent,omitempty"`
	Entities  *Entities     `bson:"entities,omitempty" json:"entities,omitempty"`
	Sentiment Sentiment     `bson:"sentiment,omitempty" json:"sentiment,omitempty"`
	Triage    *TriageResult `bson:"triage,omitempty" json:"triage,omitempty"`
}

// Turn is one message within a session. Turns are never modified after they
// are appended to a SessionContext.
type Turn struct {
	Role        Role         `bson:"role" json:"role"`
	Text        string       `bson:"text" json:"text"`
	Timestamp   time.Time    `bson:"timestamp" json:"timestamp"`
	Annotations *Annotations `bson:"annotations,omitempty" json:"annotations,omitempty"`
}

type ChatRequest struct {
	Message   string         `json:"message" binding:"required"`
	SessionID string         `json:"sessionId,omitempty"`
	Channel   MessageChannel `json:"channel,omitempty"`
}

type ChatResponse struct {
	Response     string        `json:"response"`
	QuickActions []string      `json:"quickActions"`
	Triage       *TriageResult `json:"triage"`
	Entities     *Entities     `json:"entities"`
	Sentiment    *Sentiment    `json:"sentiment"`
	AIEnhanced   bool          `json:"aiEnhanced"`
	SessionID    string        `json:"sessionId"`
	Intent       MessageIntent `json:"intent,omitempty"`
}

// NeedsInteractiveFormat reports whether the response carries reply suggestions.
func (cr ChatResponse) NeedsInteractiveFormat() bool {
	return len(cr.QuickActions) > 0
}
