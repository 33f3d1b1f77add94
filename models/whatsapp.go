package models

import "time"

// Outbound payloads for the Cloud API /messages endpoint.

type WhatsAppSendMessage struct {
	MessagingProduct string              `json:"messaging_product"`
	RecipientType    string              `json:"recipient_type"`
	To               string              `json:"to"`
	Type             string              `json:"type"`
	Text             *WhatsAppText       `json:"text,omitempty"`
	Interactive      *InteractiveMessage `json:"interactive,omitempty"`
}

type WhatsAppText struct {
	Body string `json:"body"`
}

// InteractiveMessage is a reply-button message. Quick actions are the only
// interactive content this service sends.
type InteractiveMessage struct {
	Type   string             `json:"type"`
	Body   *InteractiveBody   `json:"body"`
	Action *InteractiveAction `json:"action"`
}

type InteractiveBody struct {
	Text string `json:"text"`
}

type InteractiveAction struct {
	Buttons []InteractiveButton `json:"buttons"`
}

type InteractiveButton struct {
	Type  string       `json:"type"`
	Reply *ButtonReply `json:"reply"`
}

type ButtonReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Inbound webhook notifications.

type WhatsAppWebhookData struct {
	Object string          `json:"object"`
	Entry  []WhatsAppEntry `json:"entry"`
}

type WhatsAppEntry struct {
	ID      string           `json:"id"`
	Changes []WhatsAppChange `json:"changes"`
}

type WhatsAppChange struct {
	Field string              `json:"field"`
	Value WhatsAppChangeValue `json:"value"`
}

type WhatsAppChangeValue struct {
	MessagingProduct string            `json:"messaging_product"`
	Messages         []WhatsAppMessage `json:"messages,omitempty"`
	Statuses         []WhatsAppStatus  `json:"statuses,omitempty"`
}

type WhatsAppMessage struct {
	From        string                 `json:"from"`
	ID          string                 `json:"id"`
	Timestamp   string                 `json:"timestamp"`
	Type        string                 `json:"type"`
	Text        *WhatsAppText          `json:"text,omitempty"`
	Interactive *WhatsAppInteractiveIn `json:"interactive,omitempty"`
	Button      *WhatsAppReplyRef      `json:"button,omitempty"`
}

// Body returns what the patient typed or the title of the button they tapped.
func (m WhatsAppMessage) Body() string {
	switch {
	case m.Text != nil:
		return m.Text.Body
	case m.Interactive != nil && m.Interactive.ButtonReply != nil:
		return m.Interactive.ButtonReply.Title
	case m.Interactive != nil && m.Interactive.ListReply != nil:
		return m.Interactive.ListReply.Title
	case m.Button != nil:
		return m.Button.Title
	}
	return ""
}

type WhatsAppInteractiveIn struct {
	Type        string            `json:"type"`
	ButtonReply *WhatsAppReplyRef `json:"button_reply,omitempty"`
	ListReply   *WhatsAppReplyRef `json:"list_reply,omitempty"`
}

// WhatsAppReplyRef identifies the button or list row a patient selected.
type WhatsAppReplyRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// WhatsAppStatus is a delivery receipt for a message we sent.
type WhatsAppStatus struct {
	ID          string          `json:"id"`
	RecipientID string          `json:"recipient_id"`
	Status      string          `json:"status"`
	Timestamp   string          `json:"timestamp"`
	Errors      []WhatsAppError `json:"errors,omitempty"`
}

type WhatsAppError struct {
	Code    int    `json:"code"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

type WhatsAppServiceStatus struct {
	Enabled             bool      `json:"enabled"`
	LastMessageSent     time.Time `json:"lastMessageSent"`
	MessageCountToday   int       `json:"messageCountToday"`
	LastMessageReceived time.Time `json:"lastMessageReceived"`
}
