package services

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	hubSendBuffer = 16
	hubWriteWait  = 10 * time.Second
)

// AlertEnvelope is the frame written to subscribed WebSocket clients.
type AlertEnvelope struct {
	Event     string    `json:"event"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NotificationHub broadcasts events to every connected alerts subscriber.
// Slow clients lose frames instead of blocking the emitter.
type NotificationHub struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[*hubClient]struct{}
}

var _ Notifier = (*NotificationHub)(nil)

func NewNotificationHub(logger *slog.Logger) *NotificationHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationHub{
		logger:  logger,
		clients: make(map[*hubClient]struct{}),
	}
}

func (h *NotificationHub) Emit(event string, payload any) {
	frame, err := json.Marshal(AlertEnvelope{Event: event, Payload: payload, Timestamp: time.Now().UTC()})
	if err != nil {
		h.logger.Error("failed to encode alert", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- frame:
		default:
			h.logger.Warn("dropping alert for slow subscriber", "event", event)
		}
	}
}

// Serve registers conn and blocks until the peer disconnects.
func (h *NotificationHub) Serve(conn *websocket.Conn) {
	c := &hubClient{conn: conn, send: make(chan []byte, hubSendBuffer)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Info("alert subscriber connected", "remote", conn.RemoteAddr().String())

	done := make(chan struct{})
	go h.writeLoop(c, done)

	// subscribers never send anything meaningful; reading detects the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	close(c.send)
	<-done
	conn.Close()
	h.logger.Info("alert subscriber disconnected", "remote", conn.RemoteAddr().String())
}

func (h *NotificationHub) writeLoop(c *hubClient, done chan<- struct{}) {
	defer close(done)
	for frame := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(hubWriteWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			h.logger.Debug("alert write failed", "error", err)
			// drain until Serve closes the channel
			for range c.send {
			}
			return
		}
	}
}

func (h *NotificationHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
