package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"health-assistant-backend/models"
)

const (
	maxReplyButtons     = 3
	maxButtonTitleRunes = 20
	maxBodyRunes        = 1024
)

type WhatsAppSettings struct {
	APIURL        string
	APIVersion    string
	AccessToken   string
	PhoneNumberID string
	VerifyToken   string
}

// WhatsAppService talks to the WhatsApp Cloud API.
type WhatsAppService struct {
	settings   WhatsAppSettings
	httpClient *http.Client
	logger     *slog.Logger

	statusMu     sync.RWMutex
	lastSent     time.Time
	lastReceived time.Time
	dailyCount   map[string]int
}

func NewWhatsAppService(settings WhatsAppSettings, logger *slog.Logger) *WhatsAppService {
	if settings.APIURL == "" {
		settings.APIURL = "https://graph.facebook.com"
	}
	if settings.APIVersion == "" {
		settings.APIVersion = "v18.0"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WhatsAppService{
		settings: settings,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:     logger,
		dailyCount: make(map[string]int),
	}
}

func (ws *WhatsAppService) Enabled() bool {
	return ws.settings.AccessToken != "" && ws.settings.PhoneNumberID != ""
}

func (ws *WhatsAppService) VerifyToken() string {
	return ws.settings.VerifyToken
}

func (ws *WhatsAppService) SendTextMessage(ctx context.Context, to, message string) error {
	return ws.sendRequest(ctx, models.WhatsAppSendMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               CleanPhoneNumber(to),
		Type:             "text",
		Text:             &models.WhatsAppText{Body: message},
	})
}

func (ws *WhatsAppService) SendInteractiveMessage(ctx context.Context, to string, interactive *models.InteractiveMessage) error {
	return ws.sendRequest(ctx, models.WhatsAppSendMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               CleanPhoneNumber(to),
		Type:             "interactive",
		Interactive:      interactive,
	})
}

// SendReply delivers a chat response, as reply buttons when it carries quick
// actions and as plain text otherwise.
func (ws *WhatsAppService) SendReply(ctx context.Context, to string, resp *models.ChatResponse) error {
	if !resp.NeedsInteractiveFormat() || truncateRunes(resp.Response, maxBodyRunes) != resp.Response {
		return ws.SendTextMessage(ctx, to, resp.Response)
	}
	return ws.SendInteractiveMessage(ctx, to, BuildReplyButtons(resp.Response, resp.QuickActions))
}

// BuildReplyButtons keeps the first three actions and shortens titles to the
// Cloud API limit. Button ids carry the full action text.
func BuildReplyButtons(body string, actions []string) *models.InteractiveMessage {
	if len(actions) > maxReplyButtons {
		actions = actions[:maxReplyButtons]
	}
	buttons := make([]models.InteractiveButton, 0, len(actions))
	for _, a := range actions {
		buttons = append(buttons, models.InteractiveButton{
			Type:  "reply",
			Reply: &models.ButtonReply{ID: a, Title: truncateRunes(a, maxButtonTitleRunes)},
		})
	}
	return &models.InteractiveMessage{
		Type:   "button",
		Body:   &models.InteractiveBody{Text: body},
		Action: &models.InteractiveAction{Buttons: buttons},
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func (ws *WhatsAppService) MarkMessageAsRead(ctx context.Context, messageID string) error {
	return ws.sendRequest(ctx, map[string]any{
		"messaging_product": "whatsapp",
		"status":            "read",
		"message_id":        messageID,
	})
}

func (ws *WhatsAppService) sendRequest(ctx context.Context, payload any) error {
	if !ws.Enabled() {
		return goerr.New("whatsapp is not configured")
	}
	url := fmt.Sprintf("%s/%s/%s/messages", ws.settings.APIURL, ws.settings.APIVersion, ws.settings.PhoneNumberID)

	body, err := json.Marshal(payload)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return goerr.Wrap(err, "failed to create request")
	}
	req.Header.Set("Authorization", "Bearer "+ws.settings.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := ws.httpClient.Do(req)
	if err != nil {
		return goerr.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return goerr.Wrap(err, "failed to read response")
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var apiErr struct {
			Error models.WhatsAppError `json:"error"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			return goerr.New("whatsapp api error",
				goerr.V("status", resp.StatusCode),
				goerr.V("code", apiErr.Error.Code),
				goerr.V("message", apiErr.Error.Message),
			)
		}
		return goerr.New("whatsapp api error", goerr.V("status", resp.StatusCode), goerr.V("body", string(raw)))
	}

	ws.logger.Debug("whatsapp request sent", "status", resp.StatusCode)
	ws.markSent()
	return nil
}

// CleanPhoneNumber strips everything but digits and assumes a US number when
// only ten digits remain.
func CleanPhoneNumber(phone string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)

	if len(cleaned) == 10 {
		cleaned = "1" + cleaned
	}
	return cleaned
}

func (ws *WhatsAppService) markSent() {
	ws.statusMu.Lock()
	defer ws.statusMu.Unlock()

	ws.lastSent = time.Now()
	ws.dailyCount[ws.lastSent.Format(time.DateOnly)]++
}

func (ws *WhatsAppService) MarkReceived() {
	ws.statusMu.Lock()
	ws.lastReceived = time.Now()
	ws.statusMu.Unlock()
}

func (ws *WhatsAppService) GetStatus() models.WhatsAppServiceStatus {
	ws.statusMu.RLock()
	defer ws.statusMu.RUnlock()

	return models.WhatsAppServiceStatus{
		Enabled:             ws.Enabled(),
		LastMessageSent:     ws.lastSent,
		MessageCountToday:   ws.dailyCount[time.Now().Format(time.DateOnly)],
		LastMessageReceived: ws.lastReceived,
	}
}

// SetBaseURL redirects API calls, mostly for tests.
func (ws *WhatsAppService) SetBaseURL(url string) {
	ws.settings.APIURL = url
}
