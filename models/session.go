package models

import (
	"slices"
	"time"
)

// AppointmentState tracks the booking dialogue. Flags only ever move forward
// (type, then date, then reason) and are cleared together when a booking
// completes.
type AppointmentState struct {
	AskedType   bool   `bson:"asked_type" json:"askedType"`
	AskedDate   bool   `bson:"asked_date" json:"askedDate"`
	AskedReason bool   `bson:"asked_reason" json:"askedReason"`
	Type        string `bson:"type,omitempty" json:"type,omitempty"`
	Date        string `bson:"date,omitempty" json:"date,omitempty"`
	Reason      string `bson:"reason,omitempty" json:"reason,omitempty"`
}

// Active reports whether a booking is in progress.
func (a AppointmentState) Active() bool {
	return a.AskedType || a.AskedDate || a.AskedReason
}

func (a *AppointmentState) Reset() {
	*a = AppointmentState{}
}

// TopicFlags records which follow-up questions were already asked for the
// current topic.
type TopicFlags struct {
	AskedDuration      bool `bson:"asked_duration" json:"askedDuration"`
	AskedSeverity      bool `bson:"asked_severity" json:"askedSeverity"`
	AskedOtherSymptoms bool `bson:"asked_other_symptoms" json:"askedOtherSymptoms"`
}

func (f TopicFlags) Complete() bool {
	return f.AskedDuration && f.AskedSeverity && f.AskedOtherSymptoms
}

// SymptomDetails accumulates what the user told us about the current topic.
type SymptomDetails struct {
	Duration string `bson:"duration,omitempty" json:"duration,omitempty"`
	Severity string `bson:"severity,omitempty" json:"severity,omitempty"`
}

type UserProfile struct {
	Medications []string `bson:"medications" json:"medications"`
	Symptoms    []string `bson:"symptoms" json:"symptoms"`
	Conditions  []string `bson:"conditions" json:"conditions"`
}

func (p *UserProfile) AddMedications(names ...string) {
	p.Medications = addUnique(p.Medications, names...)
}

func (p *UserProfile) AddSymptoms(names ...string) {
	p.Symptoms = addUnique(p.Symptoms, names...)
}

func (p *UserProfile) AddConditions(names ...string) {
	p.Conditions = addUnique(p.Conditions, names...)
}

func addUnique(set []string, names ...string) []string {
	for _, n := range names {
		if n == "" || slices.Contains(set, n) {
			continue
		}
		set = append(set, n)
	}
	return set
}

// SessionMetadata is the dialogue state mirrored to the session store.
type SessionMetadata struct {
	CurrentTopic string           `bson:"current_topic,omitempty" json:"currentTopic,omitempty"`
	TopicFlags   TopicFlags       `bson:"topic_flags" json:"topicFlags"`
	Symptom      SymptomDetails   `bson:"symptom" json:"symptom"`
	Appointment  AppointmentState `bson:"appointment" json:"appointment"`
	Channel      MessageChannel   `bson:"channel,omitempty" json:"channel,omitempty"`
}

// SessionContext is the in-process state of one conversation. It is owned by
// the context cache and must only be touched by one turn at a time.
type SessionContext struct {
	ID           string           `json:"id"`
	Turns        []Turn           `json:"turns"`
	CurrentTopic string           `json:"currentTopic,omitempty"`
	TopicFlags   TopicFlags       `json:"topicFlags"`
	Symptom      SymptomDetails   `json:"symptom"`
	Appointment  AppointmentState `json:"appointment"`
	Profile      UserProfile      `json:"profile"`
	Channel      MessageChannel   `json:"channel,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
}

func NewSessionContext(id string) *SessionContext {
	return &SessionContext{
		ID:        id,
		CreatedAt: time.Now(),
	}
}

func (sc *SessionContext) AppendTurn(turn Turn) {
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}
	sc.Turns = append(sc.Turns, turn)
}

// SetTopic switches the current topic. Asked-flags and collected details are
// reset only when the topic actually changes.
func (sc *SessionContext) SetTopic(topic string) {
	if topic == "" || topic == sc.CurrentTopic {
		return
	}
	sc.CurrentTopic = topic
	sc.TopicFlags = TopicFlags{}
	sc.Symptom = SymptomDetails{}
}

// History returns at most the last n turns.
func (sc *SessionContext) History(n int) []Turn {
	if n <= 0 || n >= len(sc.Turns) {
		return sc.Turns
	}
	return sc.Turns[len(sc.Turns)-n:]
}

func (sc *SessionContext) Metadata() SessionMetadata {
	return SessionMetadata{
		CurrentTopic: sc.CurrentTopic,
		TopicFlags:   sc.TopicFlags,
		Symptom:      sc.Symptom,
		Appointment:  sc.Appointment,
		Channel:      sc.Channel,
	}
}

// StoredMessage is a turn as persisted by a session store.
type StoredMessage struct {
	SessionID   string       `bson:"session_id" json:"sessionId"`
	Role        Role         `bson:"role" json:"role"`
	Text        string       `bson:"text" json:"text"`
	Annotations *Annotations `bson:"annotations,omitempty" json:"annotations,omitempty"`
	Timestamp   time.Time    `bson:"timestamp" json:"timestamp"`
}

// SessionRecord is the durable mirror of a SessionContext.
type SessionRecord struct {
	ID        string          `bson:"_id" json:"id"`
	Profile   UserProfile     `bson:"profile" json:"profile"`
	Metadata  SessionMetadata `bson:"metadata" json:"metadata"`
	Messages  []StoredMessage `bson:"-" json:"messages"`
	CreatedAt time.Time       `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time       `bson:"updated_at" json:"updatedAt"`
}

// ToContext rebuilds the in-process context from a persisted record.
func (r *SessionRecord) ToContext() *SessionContext {
	sc := &SessionContext{
		ID:           r.ID,
		CurrentTopic: r.Metadata.CurrentTopic,
		TopicFlags:   r.Metadata.TopicFlags,
		Symptom:      r.Metadata.Symptom,
		Appointment:  r.Metadata.Appointment,
		Profile:      r.Profile,
		Channel:      r.Metadata.Channel,
		CreatedAt:    r.CreatedAt,
	}
	for _, m := range r.Messages {
		sc.Turns = append(sc.Turns, Turn{
			Role:        m.Role,
			Text:        m.Text,
			Timestamp:   m.Timestamp,
			Annotations: m.Annotations,
		})
	}
	if sc.CreatedAt.IsZero() {
		sc.CreatedAt = time.Now()
	}
	return sc
}
