package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"health-assistant-backend/models"
)

const historyWindow = 10

// ComposeInput is everything the composer needs for a non-emergency turn.
type ComposeInput struct {
	Intent       models.MessageIntent
	Text         string
	Session      *models.SessionContext
	Triage       *models.TriageResult
	Entities     *models.Entities
	Interactions models.InteractionReport
}

type Composition struct {
	Response     string
	QuickActions []string
	AIEnhanced   bool
}

type ResponseComposer struct {
	generator Generator
	timeout   time.Duration
	selector  Selector
	clinic    ClinicInfo
	metrics   MetricsCollector
	logger    *slog.Logger
	now       func() time.Time
}

type ComposerOption func(*ResponseComposer)

func WithSelector(s Selector) ComposerOption {
	return func(c *ResponseComposer) { c.selector = s }
}

func WithGenerator(g Generator, timeout time.Duration) ComposerOption {
	return func(c *ResponseComposer) {
		c.generator = g
		c.timeout = timeout
	}
}

func WithClock(now func() time.Time) ComposerOption {
	return func(c *ResponseComposer) { c.now = now }
}

func NewResponseComposer(clinic ClinicInfo, metrics MetricsCollector, logger *slog.Logger, opts ...ComposerOption) *ResponseComposer {
	c := &ResponseComposer{
		timeout:  8 * time.Second,
		selector: NewRandomSelector(0),
		clinic:   clinic,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// ComposeEmergency builds the fixed emergency response. It is a plain
// function over the clinic details so the emergency path has no way to reach
// a Generator.
func ComposeEmergency(clinic ClinicInfo) Composition {
	return Composition{
		Response:     EmergencyText(clinic),
		QuickActions: slices.Clone(emergencyQuickActions),
	}
}

func EmergencyText(clinic ClinicInfo) string {
	return strings.NewReplacer(
		"{emergency_phone}", clinic.EmergencyPhone,
		"{phone}", clinic.Phone,
	).Replace(emergencyTemplate)
}

// Compose produces the response for every non-emergency intent. Generated
// text is preferred; triage banners, interaction warnings and symptom
// follow-up questions are always computed here and never taken from it.
func (c *ResponseComposer) Compose(ctx context.Context, in ComposeInput) Composition {
	var followUp string
	if in.Intent == models.IntentSymptom && in.Session != nil {
		followUp = nextFollowUp(in.Session)
	}

	out := Composition{QuickActions: c.quickActionsFor(in.Intent, in.Triage)}

	if generated := c.generate(ctx, in); generated != "" {
		out.Response = generated + medicalDisclaimer
		out.AIEnhanced = true
	} else {
		out.Response = c.fallback(in, followUp != "")
	}

	if followUp != "" {
		out.Response += "\n\n" + followUp
	}

	if in.Triage != nil {
		switch {
		case in.Triage.IsEscalated():
			out.Response = fmt.Sprintf("⚠️ URGENT: Based on what you've described, please %s.\n\n", in.Triage.Action) + out.Response
		case in.Triage.Urgency == models.UrgencyMedium && (in.Intent == models.IntentSymptom || in.Intent == models.IntentTriage):
			out.Response += fmt.Sprintf("\n\nℹ️ Recommendation: %s.", in.Triage.Action)
		}
	}

	if len(in.Interactions.Warnings) > 0 {
		out.Response += "\n\n💊 Medication interaction warnings:\n• " + strings.Join(in.Interactions.Warnings, "\n• ") +
			"\nPlease talk to your doctor or pharmacist before taking these together."
	}

	return out
}

// generate returns "" whenever the generator is missing, unavailable, fails
// or times out.
func (c *ResponseComposer) generate(ctx context.Context, in ComposeInput) string {
	if c.generator == nil || !c.generator.Available() {
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	domain := DomainContext{Intent: in.Intent, Triage: in.Triage, Entities: in.Entities}
	var history []models.Turn
	if in.Session != nil {
		domain.Profile = in.Session.Profile
		domain.Topic = in.Session.CurrentTopic
		history = in.Session.History(historyWindow)
	}

	text, err := c.generator.Generate(ctx, buildPrompt(in), history, domain)
	if err != nil {
		if c.metrics != nil {
			c.metrics.IncGeneratorFailure()
		}
		c.logger.Warn("generative augmentation unavailable, using template",
			"intent", in.Intent,
			"error", err,
		)
		return ""
	}
	return strings.TrimSpace(text)
}

func buildPrompt(in ComposeInput) string {
	var b strings.Builder
	b.WriteString("You are a medical assistant AI for a clinic. ")
	b.WriteString("IMPORTANT: Always remind users that this is not a replacement for professional medical advice. ")
	b.WriteString("Never diagnose and never judge how urgent a situation is; urgency is handled separately.\n\n")
	fmt.Fprintf(&b, "Detected intent: %s\n", in.Intent)
	if in.Session != nil && in.Session.CurrentTopic != "" {
		fmt.Fprintf(&b, "Current topic: %s\n", in.Session.CurrentTopic)
	}
	fmt.Fprintf(&b, "User query: %s\n\n", in.Text)
	b.WriteString("Provide helpful general information while encouraging them to consult with a healthcare provider. ")
	b.WriteString("Keep the response concise and informative. Do not ask follow-up questions.")
	return b.String()
}

func (c *ResponseComposer) fallback(in ComposeInput, askingFollowUp bool) string {
	variants := fallbackTemplates[in.Intent]
	if in.Intent == models.IntentSymptom && !askingFollowUp {
		variants = symptomAdviceTemplates
	}
	if len(variants) == 0 {
		variants = fallbackTemplates[models.IntentGeneral]
	}

	idx := c.selector.Select(len(variants))
	if idx < 0 || idx >= len(variants) {
		idx = 0
	}
	return c.fill(variants[idx], &in)
}

func (c *ResponseComposer) fill(tmpl string, in *ComposeInput) string {
	topic := "these symptoms"
	medications := "your medications"
	action := ActionRoutine
	if in != nil {
		if in.Session != nil && in.Session.CurrentTopic != "" {
			topic = in.Session.CurrentTopic
		}
		if in.Entities != nil && len(in.Entities.Medications) > 0 {
			medications = strings.Join(in.Entities.Medications, " and ")
		}
		if in.Triage != nil {
			action = in.Triage.Action
		}
	}

	return strings.NewReplacer(
		"{greeting}", greetingFor(c.now()),
		"{clinic}", c.clinic.Name,
		"{address}", c.clinic.Address,
		"{phone}", c.clinic.Phone,
		"{hours}", c.clinic.Hours,
		"{services}", c.clinic.Services,
		"{topic}", topic,
		"{medications}", medications,
		"{action}", action,
	).Replace(tmpl)
}

func greetingFor(t time.Time) string {
	switch h := t.Hour(); {
	case h < 12:
		return "Good morning"
	case h < 18:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}

// nextFollowUp asks the next unanswered question for the current topic and
// marks it as asked. Details the user already volunteered are skipped.
func nextFollowUp(sc *models.SessionContext) string {
	flags := &sc.TopicFlags
	if sc.Symptom.Duration != "" {
		flags.AskedDuration = true
	}
	if sc.Symptom.Severity != "" {
		flags.AskedSeverity = true
	}

	switch {
	case !flags.AskedDuration:
		flags.AskedDuration = true
		return askDuration
	case !flags.AskedSeverity:
		flags.AskedSeverity = true
		return askSeverity
	case !flags.AskedOtherSymptoms:
		flags.AskedOtherSymptoms = true
		return askOtherSymptoms
	}
	return ""
}

func (c *ResponseComposer) quickActionsFor(intent models.MessageIntent, triage *models.TriageResult) []string {
	actions := slices.Clone(quickActions[intent])
	if triage.IsEscalated() && !slices.Contains(actions, contactEmergencyServices) {
		actions = append([]string{contactEmergencyServices}, actions...)
	}
	return actions
}
