package services_test

import (
	"testing"

	"github.com/m-mizutani/gt"

	"health-assistant-backend/models"
	"health-assistant-backend/services"
)

func TestPerformTriage(t *testing.T) {
	testCases := []struct {
		name    string
		text    string
		signals services.TriageSignals
		level   models.TriageLevel
		urgency models.Urgency
	}{
		{"emergency keyword", "I have severe chest pain", services.TriageSignals{}, models.TriageEmergency, models.UrgencyCritical},
		{"emergency beats urgent", "high fever and I can't breathe", services.TriageSignals{}, models.TriageEmergency, models.UrgencyCritical},
		{"urgent keyword", "I have a high fever", services.TriageSignals{}, models.TriageUrgent, models.UrgencyHigh},
		{"severe signal", "my back", services.TriageSignals{Severity: "severe"}, models.TriageUrgent, models.UrgencyHigh},
		{"moderate signal", "my back", services.TriageSignals{Severity: "moderate"}, models.TriageModerate, models.UrgencyMedium},
		{"two weeks", "my back", services.TriageSignals{Duration: "2 weeks"}, models.TriageModerate, models.UrgencyMedium},
		{"months", "my back", services.TriageSignals{Duration: "1 month"}, models.TriageModerate, models.UrgencyMedium},
		{"short duration", "my back", services.TriageSignals{Duration: "3 days"}, models.TriageRoutine, models.UrgencyLow},
		{"mild", "my back", services.TriageSignals{Severity: "mild"}, models.TriageRoutine, models.UrgencyLow},
		{"nothing", "hello", services.TriageSignals{}, models.TriageRoutine, models.UrgencyLow},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			te := services.NewTriageEngine(nil)
			got := te.PerformTriage(tc.text, tc.signals)
			gt.V(t, got.Level).Equal(tc.level)
			gt.V(t, got.Urgency).Equal(tc.urgency)
		})
	}
}

func TestPerformTriage_KeywordsAreNeverDowngraded(t *testing.T) {
	te := services.NewTriageEngine(nil)
	got := te.PerformTriage("I think I'm having a stroke", services.TriageSignals{Severity: "mild", Duration: "1 hour"})
	gt.V(t, got.Level).Equal(models.TriageEmergency)
	gt.V(t, got.Priority).Equal(1)
	gt.V(t, got.Action).Equal(services.ActionEmergency)
}

func TestPerformTriage_CountsEmergencies(t *testing.T) {
	metrics := services.NewMetrics()
	te := services.NewTriageEngine(metrics)

	te.PerformTriage("chest pain", services.TriageSignals{})
	te.PerformTriage("high fever", services.TriageSignals{})
	te.PerformTriage("unconscious", services.TriageSignals{})

	gt.V(t, metrics.Snapshot().Emergencies).Equal(int64(2))
}

func TestTriageResult_IsEscalated(t *testing.T) {
	var none *models.TriageResult
	gt.B(t, none.IsEscalated()).False()

	urgent := services.NewTriageEngine(nil).PerformTriage("severe pain", services.TriageSignals{})
	gt.B(t, urgent.IsEscalated()).True()

	emergency := services.EmergencyTriage()
	gt.B(t, emergency.IsEscalated()).True()
}
