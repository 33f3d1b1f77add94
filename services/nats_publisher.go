package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nats-io/nats.go"
)

const (
	alertSubjectPrefix     = "health.alerts."
	analyticsSubjectPrefix = "health.analytics."
)

// NATSPublisher mirrors alerts and analytics events onto NATS subjects.
type NATSPublisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

var (
	_ Notifier      = (*NATSPublisher)(nil)
	_ AnalyticsSink = (*NATSPublisher)(nil)
)

func NewNATSPublisher(url, token string, logger *slog.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := []nats.Option{
		nats.Name("health-assistant-backend"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "nats connect", goerr.V("url", url))
	}
	return &NATSPublisher{conn: nc, logger: logger}, nil
}

func (p *NATSPublisher) publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return goerr.Wrap(err, "marshal payload", goerr.V("subject", subject))
	}
	return p.conn.Publish(subject, payload)
}

// Emit publishes to health.alerts.<event>. Publish only buffers locally so it
// never waits on the server.
func (p *NATSPublisher) Emit(event string, payload any) {
	if err := p.publish(alertSubjectPrefix+event, AlertEnvelope{
		Event:     event,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}); err != nil {
		p.logger.Error("failed to publish alert", "event", event, "error", err)
	}
}

func (p *NATSPublisher) Record(_ context.Context, eventType string, payload map[string]any, sessionID string) {
	if err := p.publish(analyticsSubjectPrefix+eventType, map[string]any{
		"eventType": eventType,
		"sessionId": sessionID,
		"data":      payload,
		"timestamp": time.Now().UTC(),
	}); err != nil {
		p.logger.Error("failed to publish analytics event", "event_type", eventType, "error", err)
	}
}

func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}
