package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/m-mizutani/gt"

	"health-assistant-backend/controllers"
	"health-assistant-backend/database"
	"health-assistant-backend/middleware"
	"health-assistant-backend/models"
	"health-assistant-backend/routes"
	"health-assistant-backend/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router   *gin.Engine
	whatsapp *controllers.WhatsAppController
	graph    *graphRecorder
}

type graphRecorder struct {
	mu     sync.Mutex
	bodies []map[string]any
}

func (g *graphRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	g.mu.Lock()
	g.bodies = append(g.bodies, body)
	g.mu.Unlock()
	_, _ = w.Write([]byte(`{"messaging_product":"whatsapp"}`))
}

func (g *graphRecorder) Bodies() []map[string]any {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]map[string]any(nil), g.bodies...)
}

type serverOptions struct {
	secret      string
	healthCheck func(ctx context.Context) error
}

func newTestServer(t *testing.T, opts serverOptions) *testServer {
	t.Helper()

	graph := &graphRecorder{}
	graphSrv := httptest.NewServer(graph)
	t.Cleanup(graphSrv.Close)

	wa := services.NewWhatsAppService(services.WhatsAppSettings{
		AccessToken:   "token",
		PhoneNumberID: "999",
		VerifyToken:   "verify-me",
	}, nil)
	wa.SetBaseURL(graphSrv.URL)

	hub := services.NewNotificationHub(nil)
	engine := services.NewDialogueEngine(services.EngineDeps{
		Cache:    services.NewContextCache(database.NewMemoryStore(), nil),
		Notifier: hub,
	})

	router := gin.New()
	ctrl := routes.SetupRoutes(router, routes.Dependencies{
		ChatbotService:  services.NewChatbotService(engine, services.DefaultClinicInfo(), nil),
		Hub:             hub,
		WhatsAppService: wa,
		WhatsAppSecret:  opts.secret,
		HealthCheck:     opts.healthCheck,
	})
	return &testServer{router: router, whatsapp: ctrl, graph: graph}
}

func (s *testServer) do(method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestChatEndpoint(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	w := s.do(http.MethodPost, "/api/v1/chat", `{"message":"I have a headache"}`, nil)
	gt.V(t, w.Code).Equal(http.StatusOK)

	var resp models.ChatResponse
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp)).Required()
	gt.V(t, resp.Intent).Equal(models.IntentSymptom)
	gt.S(t, resp.SessionID).NotEqual("")
	gt.V(t, resp.Triage).NotNil()

	w = s.do(http.MethodGet, "/api/v1/sessions/"+resp.SessionID, "", nil)
	gt.V(t, w.Code).Equal(http.StatusOK)

	var session struct {
		Session         models.SessionContext `json:"session"`
		AppointmentStep string                `json:"appointmentStep"`
		MessageCount    int                   `json:"messageCount"`
	}
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &session)).Required()
	gt.V(t, session.MessageCount).Equal(2)
	gt.V(t, session.AppointmentStep).Equal("idle")
	gt.V(t, session.Session.CurrentTopic).Equal("headache")
}

func TestChatEndpoint_BadRequests(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	testCases := map[string]string{
		"invalid json":    `{"message":`,
		"missing message": `{"sessionId":"abc"}`,
		"blank message":   `{"message":"   "}`,
	}
	for name, body := range testCases {
		t.Run(name, func(t *testing.T) {
			w := s.do(http.MethodPost, "/api/v1/chat", body, nil)
			gt.V(t, w.Code).Equal(http.StatusBadRequest)
		})
	}
}

func TestSessionEndpoint_NotFound(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	w := s.do(http.MethodGet, "/api/v1/sessions/unknown", "", nil)
	gt.V(t, w.Code).Equal(http.StatusNotFound)
	gt.S(t, w.Body.String()).Contains("unknown")
}

func TestIntentsAndMetrics(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	w := s.do(http.MethodGet, "/api/v1/intents", "", nil)
	gt.V(t, w.Code).Equal(http.StatusOK)
	var intents struct {
		Intents []struct {
			Intent   string   `json:"intent"`
			Examples []string `json:"examples"`
		} `json:"intents"`
	}
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &intents)).Required()
	gt.A(t, intents.Intents).Length(11).Required()
	gt.V(t, intents.Intents[0].Intent).Equal("emergency")

	s.do(http.MethodPost, "/api/v1/chat", `{"message":"chest pain"}`, nil)

	w = s.do(http.MethodGet, "/api/v1/metrics", "", nil)
	gt.V(t, w.Code).Equal(http.StatusOK)
	var snap services.MetricsSnapshot
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap)).Required()
	gt.V(t, snap.Turns).Equal(int64(1))
	gt.V(t, snap.Emergencies).Equal(int64(1))
}

func TestHealth(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		s := newTestServer(t, serverOptions{})
		w := s.do(http.MethodGet, "/health", "", nil)
		gt.V(t, w.Code).Equal(http.StatusOK)
		gt.S(t, w.Body.String()).Contains(`"status":"ok"`)
	})

	t.Run("degraded", func(t *testing.T) {
		s := newTestServer(t, serverOptions{healthCheck: func(context.Context) error {
			return errors.New("mongo unreachable")
		}})
		w := s.do(http.MethodGet, "/health", "", nil)
		gt.V(t, w.Code).Equal(http.StatusServiceUnavailable)
		gt.S(t, w.Body.String()).Contains("degraded")
	})
}

func TestNoRoute(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	w := s.do(http.MethodGet, "/nope", "", nil)
	gt.V(t, w.Code).Equal(http.StatusNotFound)
}

func TestWhatsAppVerify(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	w := s.do(http.MethodGet, "/api/whatsapp/webhook?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=12345", "", nil)
	gt.V(t, w.Code).Equal(http.StatusOK)
	gt.V(t, w.Body.String()).Equal("12345")

	w = s.do(http.MethodGet, "/api/whatsapp/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", "", nil)
	gt.V(t, w.Code).Equal(http.StatusForbidden)
}

const inboundWebhook = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "1",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "metadata": {"display_phone_number": "15550000000", "phone_number_id": "999"},
        "messages": [{"from": "12345678900", "id": "wamid.1", "timestamp": "1700000000", "type": "text", "text": {"body": "hello"}}]
      }
    }]
  }]
}`

func TestWhatsAppWebhook(t *testing.T) {
	const secret = "app-secret"
	s := newTestServer(t, serverOptions{secret: secret})

	w := s.do(http.MethodPost, "/api/whatsapp/webhook", inboundWebhook, nil)
	gt.V(t, w.Code).Equal(http.StatusUnauthorized)

	w = s.do(http.MethodPost, "/api/whatsapp/webhook", inboundWebhook, map[string]string{
		"X-Hub-Signature-256": "sha256=" + middleware.SignPayload([]byte(inboundWebhook), secret),
	})
	gt.V(t, w.Code).Equal(http.StatusOK)
	s.whatsapp.Wait()

	bodies := s.graph.Bodies()
	gt.A(t, bodies).Length(2).Required()
	gt.V(t, bodies[0]["status"]).Equal("read")
	gt.V(t, bodies[1]["type"]).Equal("interactive")
	gt.V(t, bodies[1]["to"]).Equal("12345678900")

	w = s.do(http.MethodGet, "/api/v1/sessions/wa:12345678900", "", nil)
	gt.V(t, w.Code).Equal(http.StatusOK)
	gt.S(t, w.Body.String()).Contains(`"channel":"whatsapp"`)

	w = s.do(http.MethodGet, "/api/whatsapp/admin/status", "", nil)
	gt.V(t, w.Code).Equal(http.StatusOK)
	gt.S(t, w.Body.String()).Contains(`"enabled":true`)
}

func TestWebSocketChat(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	gt.NoError(t, err).Required()
	defer conn.Close()
	gt.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second))).Required()

	gt.NoError(t, conn.WriteJSON(map[string]string{"message": "book appointment"})).Required()
	var first models.ChatResponse
	gt.NoError(t, conn.ReadJSON(&first)).Required()
	gt.V(t, first.Intent).Equal(models.IntentAppointment)
	gt.S(t, first.SessionID).NotEqual("")

	gt.NoError(t, conn.WriteJSON(map[string]string{"message": "General Checkup"})).Required()
	var second models.ChatResponse
	gt.NoError(t, conn.ReadJSON(&second)).Required()
	gt.V(t, second.SessionID).Equal(first.SessionID)
	gt.V(t, second.Intent).Equal(models.IntentAppointment)

	gt.NoError(t, conn.WriteJSON(map[string]string{"message": " "})).Required()
	var errFrame map[string]string
	gt.NoError(t, conn.ReadJSON(&errFrame)).Required()
	gt.V(t, errFrame["error"]).Equal("Message must not be empty")
}

func TestAlertsWebSocket(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/alerts/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	gt.NoError(t, err).Required()
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for {
		w := s.do(http.MethodGet, "/health", "", nil)
		if strings.Contains(w.Body.String(), `"alertSubscribers":1`) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("alert subscriber never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	body, _ := json.Marshal(map[string]string{"message": "I can't breathe", "sessionId": "s-alert"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(httptest.NewRecorder(), req)

	gt.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second))).Required()
	var env services.AlertEnvelope
	gt.NoError(t, conn.ReadJSON(&env)).Required()
	gt.V(t, env.Event).Equal(services.EventEmergencyAlert)
	payload, ok := env.Payload.(map[string]any)
	gt.B(t, ok).True()
	gt.V(t, payload["sessionId"]).Equal("s-alert")
}
