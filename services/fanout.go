package services

import (
	"context"
	"log/slog"
)

// MultiNotifier emits to every wrapped notifier in order.
type MultiNotifier []Notifier

func (m MultiNotifier) Emit(event string, payload any) {
	for _, n := range m {
		if n != nil {
			n.Emit(event, payload)
		}
	}
}

type MultiSink []AnalyticsSink

func (m MultiSink) Record(ctx context.Context, eventType string, payload map[string]any, sessionID string) {
	for _, s := range m {
		if s != nil {
			s.Record(ctx, eventType, payload, sessionID)
		}
	}
}

// LogSink writes analytics events to the structured log. It is the sink used
// when no database or broker is configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Record(ctx context.Context, eventType string, payload map[string]any, sessionID string) {
	attrs := make([]any, 0, 2+2*len(payload))
	attrs = append(attrs, "session_id", sessionID)
	for k, v := range payload {
		attrs = append(attrs, k, v)
	}
	s.logger.InfoContext(ctx, "analytics event: "+eventType, attrs...)
}
