package services

import (
	"context"
	"log/slog"
	"time"

	"health-assistant-backend/models"
	"health-assistant-backend/utils"
)

const (
	EventEmergencyAlert    = "emergency_alert"
	EventChatTurn          = "chat_turn"
	EventEmergency         = "emergency"
	EventAppointmentBooked = "appointment_booked"
)

// EngineDeps wires a DialogueEngine. Only Cache is required.
type EngineDeps struct {
	Cache        *ContextCache
	Analyzer     *utils.TextAnalyzer
	Classifier   *utils.IntentClassifier
	Triage       *TriageEngine
	Interactions *InteractionChecker
	Flow         *AppointmentFlow
	Composer     *ResponseComposer
	Notifier     Notifier
	Analytics    AnalyticsSink
	Metrics      MetricsCollector
	Clinic       ClinicInfo
	Logger       *slog.Logger
}

// DialogueEngine runs one turn of a conversation end to end. Callers must not
// run two turns for the same session concurrently.
type DialogueEngine struct {
	cache        *ContextCache
	analyzer     *utils.TextAnalyzer
	classifier   *utils.IntentClassifier
	triage       *TriageEngine
	interactions *InteractionChecker
	flow         *AppointmentFlow
	composer     *ResponseComposer
	notifier     Notifier
	analytics    AnalyticsSink
	metrics      MetricsCollector
	clinic       ClinicInfo
	logger       *slog.Logger
}

func NewDialogueEngine(deps EngineDeps) *DialogueEngine {
	e := &DialogueEngine{
		cache:        deps.Cache,
		analyzer:     deps.Analyzer,
		classifier:   deps.Classifier,
		triage:       deps.Triage,
		interactions: deps.Interactions,
		flow:         deps.Flow,
		composer:     deps.Composer,
		notifier:     deps.Notifier,
		analytics:    deps.Analytics,
		metrics:      deps.Metrics,
		clinic:       deps.Clinic,
		logger:       deps.Logger,
	}

	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.clinic.Name == "" {
		e.clinic = DefaultClinicInfo()
	}
	if e.metrics == nil {
		e.metrics = NewMetrics()
	}
	if e.analyzer == nil {
		e.analyzer = utils.NewTextAnalyzer()
	}
	if e.classifier == nil {
		e.classifier = utils.NewIntentClassifier()
	}
	if e.triage == nil {
		e.triage = NewTriageEngine(e.metrics)
	}
	if e.interactions == nil {
		e.interactions = NewInteractionChecker(nil)
	}
	if e.flow == nil {
		e.flow = NewAppointmentFlow(e.clinic)
	}
	if e.composer == nil {
		e.composer = NewResponseComposer(e.clinic, e.metrics, e.logger)
	}
	if e.cache == nil {
		e.cache = NewContextCache(nil, e.logger)
	}
	return e
}

func (e *DialogueEngine) Metrics() MetricsCollector {
	return e.metrics
}

func (e *DialogueEngine) Classifier() *utils.IntentClassifier {
	return e.classifier
}

// ProcessTurn handles one user message. text must already be trimmed and
// non-empty.
func (e *DialogueEngine) ProcessTurn(ctx context.Context, sessionID, text string, channel models.MessageChannel) (*models.ChatResponse, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}

	sc := e.cache.GetOrLoad(ctx, sessionID)
	if sc.Channel == "" {
		sc.Channel = channel
	}

	sentiment := e.analyzer.AnalyzeSentiment(text)
	entities := e.analyzer.ExtractEntities(text)
	intent := e.classifier.DetectIntent(text, sc)

	sc.Profile.AddMedications(entities.Medications...)
	sc.Profile.AddConditions(e.analyzer.ExtractConditions(text)...)

	var (
		comp   Composition
		triage *models.TriageResult
		booked *AppointmentSummary
	)

	if intent == models.IntentEmergency {
		comp, triage = e.emergency(text)
	} else {
		handled := false
		if sc.Appointment.Active() || e.flow.IsTrigger(text) {
			res, err := e.flow.Advance(sc, text)
			if err != nil {
				return nil, err
			}
			if res != nil {
				handled = true
				intent = models.IntentAppointment
				booked = res.Summary
				comp = Composition{Response: res.Response, QuickActions: res.QuickActions}
			}
		}

		if !handled {
			intent, comp, triage = e.respond(ctx, sc, text, intent, &entities)
		}
	}

	now := time.Now()
	userTurn := models.Turn{
		Role:      models.RoleUser,
		Text:      text,
		Timestamp: now,
		Annotations: &models.Annotations{
			Intent:    intent,
			Entities:  &entities,
			Sentiment: sentiment,
			Triage:    triage,
		},
	}
	assistantTurn := models.Turn{
		Role:      models.RoleAssistant,
		Text:      comp.Response,
		Timestamp: now,
	}
	sc.AppendTurn(userTurn)
	sc.AppendTurn(assistantTurn)

	// a turn always runs to completion, even if the caller went away
	detached := context.WithoutCancel(ctx)
	e.cache.Persist(detached, sc, []models.Turn{userTurn, assistantTurn})
	e.metrics.IncTurn(intent)
	e.report(detached, sc, text, intent, sentiment, triage, booked, comp.AIEnhanced)

	return &models.ChatResponse{
		Response:     comp.Response,
		QuickActions: comp.QuickActions,
		Triage:       triage,
		Entities:     &entities,
		Sentiment:    &sentiment,
		AIEnhanced:   comp.AIEnhanced,
		SessionID:    sc.ID,
		Intent:       intent,
	}, nil
}

// emergency is the deterministic fast path. It leaves any booking in progress
// untouched so it can resume later.
func (e *DialogueEngine) emergency(text string) (Composition, *models.TriageResult) {
	t := e.triage.PerformTriage(text, TriageSignals{})
	if t.Level != models.TriageEmergency {
		e.metrics.IncEmergency()
		t = EmergencyTriage()
	}
	return ComposeEmergency(e.clinic), &t
}

func (e *DialogueEngine) respond(ctx context.Context, sc *models.SessionContext, text string, intent models.MessageIntent, entities *models.Entities) (models.MessageIntent, Composition, *models.TriageResult) {
	severity := e.analyzer.ExtractSeverity(text)
	var duration string
	if len(entities.TimeExpressions) > 0 {
		duration = entities.TimeExpressions[0]
	}

	var signals TriageSignals
	switch intent {
	case models.IntentTriage:
		signals = TriageSignals{Duration: duration, Severity: severity}
	case models.IntentSymptom:
		if symptoms := e.analyzer.ExtractSymptoms(text); len(symptoms) > 0 {
			sc.SetTopic(symptoms[0])
			sc.Profile.AddSymptoms(symptoms...)
		}
		if duration != "" {
			sc.Symptom.Duration = duration
		}
		if severity != "" {
			sc.Symptom.Severity = severity
		}
		signals = TriageSignals{Duration: sc.Symptom.Duration, Severity: sc.Symptom.Severity}
	}

	t := e.triage.PerformTriage(text, signals)
	if t.Level == models.TriageEmergency {
		return models.IntentEmergency, ComposeEmergency(e.clinic), &t
	}

	var report models.InteractionReport
	if len(entities.Medications) > 0 {
		report = e.interactions.CheckInteractions(sc.Profile.Medications)
	}

	comp := e.composer.Compose(ctx, ComposeInput{
		Intent:       intent,
		Text:         text,
		Session:      sc,
		Triage:       &t,
		Entities:     entities,
		Interactions: report,
	})
	return intent, comp, &t
}

func (e *DialogueEngine) report(ctx context.Context, sc *models.SessionContext, text string, intent models.MessageIntent, sentiment models.Sentiment, triage *models.TriageResult, booked *AppointmentSummary, aiEnhanced bool) {
	if intent == models.IntentEmergency {
		e.logger.Warn("emergency detected", "session_id", sc.ID)
		if e.notifier != nil {
			e.notifier.Emit(EventEmergencyAlert, map[string]any{
				"sessionId": sc.ID,
				"message":   text,
				"triage":    triage,
				"channel":   sc.Channel,
				"timestamp": time.Now().UTC(),
			})
		}
	}

	if e.analytics == nil {
		return
	}

	payload := map[string]any{
		"intent":     intent,
		"sentiment":  sentiment,
		"aiEnhanced": aiEnhanced,
		"channel":    sc.Channel,
	}
	if triage != nil {
		payload["urgency"] = triage.Urgency
	}
	e.analytics.Record(ctx, EventChatTurn, payload, sc.ID)

	if intent == models.IntentEmergency {
		e.analytics.Record(ctx, EventEmergency, map[string]any{"triage": triage}, sc.ID)
	}
	if booked != nil {
		e.analytics.Record(ctx, EventAppointmentBooked, map[string]any{
			"type":   booked.Type,
			"date":   booked.Date,
			"reason": booked.Reason,
		}, sc.ID)
	}
}

// Snapshot returns a copy of the session state, from the cache if present and
// otherwise from the store. It never creates a session.
func (e *DialogueEngine) Snapshot(ctx context.Context, sessionID string) (*models.SessionContext, error) {
	if sc, ok := e.cache.Peek(sessionID); ok {
		cp := *sc
		cp.Turns = append([]models.Turn(nil), sc.Turns...)
		return &cp, nil
	}
	if e.cache.store == nil {
		return nil, nil
	}
	rec, err := e.cache.store.Get(ctx, sessionID)
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.ToContext(), nil
}
