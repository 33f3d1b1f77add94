package services

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"health-assistant-backend/models"
)

// ErrSessionRequired is returned when the booking flow is driven without a
// session to hold its state.
var ErrSessionRequired = errors.New("appointment flow requires a session")

// BookingTriggers must match the normalized message exactly.
var BookingTriggers = []string{
	"book appointment",
	"book an appointment",
	"schedule appointment",
	"schedule an appointment",
	"make an appointment",
	"i want to book an appointment",
	"i need an appointment",
	"new appointment",
	"book specialist visit",
}

var (
	appointmentTypeActions   = []string{"General Checkup", "Specialist Visit", "Follow-up", "Emergency"}
	appointmentDateActions   = []string{"Tomorrow", "Next Week", "This Week", "Cancel"}
	appointmentReasonActions = []string{"Routine Checkup", "Follow-up", "Symptoms", "Other"}
	appointmentDoneActions   = []string{"New Appointment", "View Details", "Contact Support"}
	appointmentCancelActions = []string{"New Appointment", "Check Symptoms"}
)

type FlowStep string

const (
	StepIdle        FlowStep = "idle"
	StepAskedType   FlowStep = "asked_type"
	StepAskedDate   FlowStep = "asked_date"
	StepAskedReason FlowStep = "asked_reason"
)

// StepOf derives the FSM state from the persisted flags.
func StepOf(st models.AppointmentState) FlowStep {
	switch {
	case st.AskedReason:
		return StepAskedReason
	case st.AskedDate:
		return StepAskedDate
	case st.AskedType:
		return StepAskedType
	default:
		return StepIdle
	}
}

type AppointmentSummary struct {
	Type   string `json:"type"`
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

type FlowResult struct {
	Response     string
	QuickActions []string
	Summary      *AppointmentSummary
}

type AppointmentFlow struct {
	triggers map[string]bool
	clinic   ClinicInfo
}

func NewAppointmentFlow(clinic ClinicInfo) *AppointmentFlow {
	triggers := make(map[string]bool, len(BookingTriggers))
	for _, t := range BookingTriggers {
		triggers[t] = true
	}
	return &AppointmentFlow{triggers: triggers, clinic: clinic}
}

func normalizeUtterance(text string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(text)), ".!? ")
}

func (f *AppointmentFlow) IsTrigger(text string) bool {
	return f.triggers[normalizeUtterance(text)]
}

// Advance feeds one user message into the booking FSM. A nil result with a
// nil error means the message caused no transition and the caller should
// handle it normally.
func (f *AppointmentFlow) Advance(sc *models.SessionContext, text string) (*FlowResult, error) {
	if sc == nil || sc.ID == "" {
		return nil, ErrSessionRequired
	}

	st := &sc.Appointment
	trigger := f.IsTrigger(text)
	answer := strings.TrimSpace(text)

	if st.Active() && normalizeUtterance(text) == "cancel" {
		st.Reset()
		return &FlowResult{
			Response:     "No problem, I've cancelled this booking. Let me know if you'd like to start again.",
			QuickActions: slices.Clone(appointmentCancelActions),
		}, nil
	}

	switch StepOf(*st) {
	case StepIdle:
		if !trigger {
			return nil, nil
		}
		st.AskedType = true
		return &FlowResult{
			Response:     "I'd be happy to help you book an appointment. 📅\n\nWhat type of appointment do you need?",
			QuickActions: slices.Clone(appointmentTypeActions),
		}, nil

	case StepAskedType:
		// a repeated trigger is not an answer to the type question
		if trigger {
			return nil, nil
		}
		st.Type = answer
		st.AskedDate = true
		return &FlowResult{
			Response:     fmt.Sprintf("Got it, a %s appointment. When would you like to come in?", answer),
			QuickActions: slices.Clone(appointmentDateActions),
		}, nil

	case StepAskedDate:
		st.Date = answer
		st.AskedReason = true
		return &FlowResult{
			Response:     "Thanks. What's the main reason for your visit?",
			QuickActions: slices.Clone(appointmentReasonActions),
		}, nil

	default:
		st.Reason = answer
		summary := &AppointmentSummary{Type: st.Type, Date: st.Date, Reason: st.Reason}
		st.Reset()
		return &FlowResult{
			Response:     f.summaryText(summary),
			QuickActions: slices.Clone(appointmentDoneActions),
			Summary:      summary,
		}, nil
	}
}

func (f *AppointmentFlow) summaryText(s *AppointmentSummary) string {
	return fmt.Sprintf(
		"✅ Your appointment request has been recorded!\n\n"+
			"📋 Type: %s\n"+
			"📅 Date: %s\n"+
			"📝 Reason: %s\n\n"+
			"📍 %s, %s\n\n"+
			"We will contact you to confirm the exact time. "+
			"If you need to make changes, call us at %s.",
		s.Type, s.Date, s.Reason, f.clinic.Name, f.clinic.Address, f.clinic.Phone,
	)
}
