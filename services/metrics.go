package services

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/robfig/cron/v3"

	"health-assistant-backend/models"
)

type MetricsSnapshot struct {
	Emergencies       int64                          `json:"emergencies"`
	Turns             int64                          `json:"turns"`
	GeneratorFailures int64                          `json:"generatorFailures"`
	TurnsByIntent     map[models.MessageIntent]int64 `json:"turnsByIntent"`
}

// Metrics is the in-process MetricsCollector.
type Metrics struct {
	emergencies       atomic.Int64
	turns             atomic.Int64
	generatorFailures atomic.Int64

	mu       sync.Mutex
	byIntent map[models.MessageIntent]int64
}

var _ MetricsCollector = (*Metrics)(nil)

func NewMetrics() *Metrics {
	return &Metrics{byIntent: make(map[models.MessageIntent]int64)}
}

func (m *Metrics) IncEmergency() {
	m.emergencies.Add(1)
}

func (m *Metrics) IncTurn(intent models.MessageIntent) {
	m.turns.Add(1)
	m.mu.Lock()
	m.byIntent[intent]++
	m.mu.Unlock()
}

func (m *Metrics) IncGeneratorFailure() {
	m.generatorFailures.Add(1)
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	byIntent := make(map[models.MessageIntent]int64, len(m.byIntent))
	for k, v := range m.byIntent {
		byIntent[k] = v
	}
	m.mu.Unlock()

	return MetricsSnapshot{
		Emergencies:       m.emergencies.Load(),
		Turns:             m.turns.Load(),
		GeneratorFailures: m.generatorFailures.Load(),
		TurnsByIntent:     byIntent,
	}
}

// StartMetricsReporter logs a metrics snapshot on the given cron schedule.
// The returned cron must be stopped on shutdown.
func StartMetricsReporter(schedule string, metrics MetricsCollector, logger *slog.Logger) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		s := metrics.Snapshot()
		logger.Info("metrics report",
			"turns", s.Turns,
			"emergencies", s.Emergencies,
			"generator_failures", s.GeneratorFailures,
			"turns_by_intent", s.TurnsByIntent,
		)
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
