package services

import (
	"strings"

	"health-assistant-backend/models"
	"health-assistant-backend/utils"
)

const (
	ActionEmergency = "contact emergency services immediately"
	ActionUrgent    = "seek medical attention within 24 hours"
	ActionModerate  = "schedule an appointment within the next few days"
	ActionRoutine   = "schedule a routine appointment"
)

// TriageSignals are the severity and duration already known for the message.
type TriageSignals struct {
	Duration string
	Severity string
}

type TriageEngine struct {
	emergency []utils.PatternRule
	urgent    []utils.PatternRule
	metrics   MetricsCollector
}

func NewTriageEngine(metrics MetricsCollector) *TriageEngine {
	return NewTriageEngineWithRules(utils.EmergencyKeywords, utils.UrgentKeywords, metrics)
}

func NewTriageEngineWithRules(emergency, urgent []utils.PatternRule, metrics MetricsCollector) *TriageEngine {
	return &TriageEngine{
		emergency: emergency,
		urgent:    urgent,
		metrics:   metrics,
	}
}

// PerformTriage walks the decision ladder and returns the first rung that
// matches. Keyword rungs come first so later signals can never downgrade them.
func (te *TriageEngine) PerformTriage(text string, signals TriageSignals) models.TriageResult {
	if _, ok := utils.MatchFirst(te.emergency, text); ok {
		if te.metrics != nil {
			te.metrics.IncEmergency()
		}
		return EmergencyTriage()
	}

	if _, ok := utils.MatchFirst(te.urgent, text); ok {
		return urgentTriage()
	}

	switch strings.ToLower(signals.Severity) {
	case "severe", "intense", "extreme":
		return urgentTriage()
	case "moderate":
		return moderateTriage()
	}

	if signals.Duration != "" {
		if days, isMonths, ok := utils.DurationDays(signals.Duration); ok && (isMonths || days >= 14) {
			return moderateTriage()
		}
	}

	return models.TriageResult{
		Level:    models.TriageRoutine,
		Priority: 4,
		Action:   ActionRoutine,
		Urgency:  models.UrgencyLow,
	}
}

func EmergencyTriage() models.TriageResult {
	return models.TriageResult{
		Level:    models.TriageEmergency,
		Priority: 1,
		Action:   ActionEmergency,
		Urgency:  models.UrgencyCritical,
	}
}

func urgentTriage() models.TriageResult {
	return models.TriageResult{
		Level:    models.TriageUrgent,
		Priority: 2,
		Action:   ActionUrgent,
		Urgency:  models.UrgencyHigh,
	}
}

func moderateTriage() models.TriageResult {
	return models.TriageResult{
		Level:    models.TriageModerate,
		Priority: 3,
		Action:   ActionModerate,
		Urgency:  models.UrgencyMedium,
	}
}
