package utils

import (
	"regexp"
	"strings"

	"health-assistant-backend/models"
)

var questionPattern = regexp.MustCompile(`(?i)(?:\?\s*$|^\s*(?:what|when|where|who|why|how|which|can|could|do|does|is|are|will|would)\b)`)

// shortReplyWords is the longest message still read as a bare answer to the
// follow-up question that was just asked.
const shortReplyWords = 4

type IntentClassifier struct {
	emergency *IntentRule
	rules     []IntentRule
}

func NewIntentClassifier() *IntentClassifier {
	return NewIntentClassifierWithRules(DefaultIntentRules())
}

// NewIntentClassifierWithRules builds a classifier over an ordered table.
// The emergency rule is pulled out and always evaluated first, wherever it
// appears in rules.
func NewIntentClassifierWithRules(rules []IntentRule) *IntentClassifier {
	ic := &IntentClassifier{}
	for i := range rules {
		if rules[i].Intent == models.IntentEmergency {
			r := rules[i]
			ic.emergency = &r
			continue
		}
		ic.rules = append(ic.rules, rules[i])
	}
	return ic
}

// DetectIntent returns the first matching intent in declared order. A message
// that would otherwise be general is treated as a symptom answer only when it
// answers an open follow-up question on the session's current topic.
func (ic *IntentClassifier) DetectIntent(text string, sc *models.SessionContext) models.MessageIntent {
	if ic.IsEmergency(text) {
		return models.IntentEmergency
	}

	intent := models.IntentGeneral
	for _, r := range ic.rules {
		if r.Pattern.MatchString(text) {
			intent = r.Intent
			break
		}
	}

	if intent == models.IntentGeneral && answersFollowUp(text, sc) {
		return models.IntentSymptom
	}
	return intent
}

// answersFollowUp reports whether text carries a symptom detail, or is a short
// non-question reply right after a follow-up was asked.
func answersFollowUp(text string, sc *models.SessionContext) bool {
	if sc == nil || sc.CurrentTopic == "" || sc.TopicFlags.Complete() {
		return false
	}
	if timeSpanPattern.MatchString(text) || severityPattern.MatchString(text) {
		return true
	}
	if questionPattern.MatchString(text) {
		return false
	}
	f := sc.TopicFlags
	asked := f.AskedDuration || f.AskedSeverity || f.AskedOtherSymptoms
	return asked && len(strings.Fields(text)) <= shortReplyWords
}

func (ic *IntentClassifier) IsEmergency(text string) bool {
	return ic.emergency != nil && ic.emergency.Pattern.MatchString(text)
}

// Intents lists the categories in evaluation order.
func (ic *IntentClassifier) Intents() []models.MessageIntent {
	var out []models.MessageIntent
	if ic.emergency != nil {
		out = append(out, ic.emergency.Intent)
	}
	for _, r := range ic.rules {
		out = append(out, r.Intent)
	}
	return out
}
