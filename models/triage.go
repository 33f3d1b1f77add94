package models

type TriageLevel string

const (
	TriageEmergency TriageLevel = "emergency"
	TriageUrgent    TriageLevel = "urgent"
	TriageModerate  TriageLevel = "moderate"
	TriageRoutine   TriageLevel = "routine"
)

type Urgency string

const (
	UrgencyCritical Urgency = "CRITICAL"
	UrgencyHigh     Urgency = "HIGH"
	UrgencyMedium   Urgency = "MEDIUM"
	UrgencyLow      Urgency = "LOW"
)

// TriageResult is computed fresh for every message and only ever attached to
// the turn that produced it.
type TriageResult struct {
	Level    TriageLevel `bson:"level" json:"level"`
	Priority int         `bson:"priority" json:"priority"`
	Action   string      `bson:"action" json:"action"`
	Urgency  Urgency     `bson:"urgency" json:"urgency"`
}

// IsEscalated reports whether the result warrants pointing the user at
// emergency services.
func (t *TriageResult) IsEscalated() bool {
	return t != nil && (t.Urgency == UrgencyCritical || t.Urgency == UrgencyHigh)
}

// Interaction is a directed pairing found in the interaction table: the
// table entry for Medication lists With.
type Interaction struct {
	Medication  string `json:"medication"`
	With        string `json:"with"`
	Description string `json:"description"`
}

type InteractionReport struct {
	Interactions []Interaction `json:"interactions"`
	Warnings     []string      `json:"warnings"`
}
