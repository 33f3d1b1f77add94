package services_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/m-mizutani/gt"

	"health-assistant-backend/services"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestNotificationHub_BroadcastsToSubscribers(t *testing.T) {
	hub := services.NewNotificationHub(nil)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(conn)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	gt.NoError(t, err).Required()

	waitFor(t, func() bool { return hub.Subscribers() == 1 })

	hub.Emit(services.EventEmergencyAlert, map[string]any{"sessionId": "s1"})

	gt.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second))).Required()
	var env struct {
		Event   string         `json:"event"`
		Payload map[string]any `json:"payload"`
	}
	gt.NoError(t, conn.ReadJSON(&env)).Required()
	gt.V(t, env.Event).Equal(services.EventEmergencyAlert)
	gt.V(t, env.Payload["sessionId"]).Equal("s1")

	gt.NoError(t, conn.Close())
	waitFor(t, func() bool { return hub.Subscribers() == 0 })
}

func TestNotificationHub_EmitWithoutSubscribers(t *testing.T) {
	hub := services.NewNotificationHub(nil)
	hub.Emit(services.EventEmergencyAlert, map[string]any{"sessionId": "s1"})
	gt.V(t, hub.Subscribers()).Equal(0)
}

func TestFanout(t *testing.T) {
	a, b := &fakeNotifier{}, &fakeNotifier{}
	services.MultiNotifier{a, nil, b}.Emit("x", nil)
	gt.V(t, a.Count("x")).Equal(1)
	gt.V(t, b.Count("x")).Equal(1)

	var buf bytes.Buffer
	logSink := services.NewLogSink(slog.New(slog.NewJSONHandler(&buf, nil)))
	sink := &fakeSink{}
	services.MultiSink{sink, logSink}.Record(context.Background(), services.EventChatTurn, map[string]any{"intent": "greeting"}, "s1")

	gt.V(t, sink.Count(services.EventChatTurn)).Equal(1)

	var entry map[string]any
	gt.NoError(t, json.Unmarshal(buf.Bytes(), &entry)).Required()
	gt.V(t, entry["msg"]).Equal("analytics event: chat_turn")
	gt.V(t, entry["session_id"]).Equal("s1")
	gt.V(t, entry["intent"]).Equal("greeting")
}
