package utils

import (
	"regexp"
	"strconv"
	"strings"

	"health-assistant-backend/models"
)

var (
	wordPattern     = regexp.MustCompile(`[a-z']+`)
	integerPattern  = regexp.MustCompile(`\b\d+\b`)
	timeSpanPattern = regexp.MustCompile(`(?i)\b(\d+)\s*(day|hour|week|month)s?\b`)
	severityPattern = regexp.MustCompile(`(?i)\b(` + strings.Join(SeverityWords, "|") + `)\b`)
)

// TextAnalyzer does lexical sentiment scoring and entity extraction. It holds
// no per-call state and is safe for concurrent use.
type TextAnalyzer struct {
	medications []string
	bodyParts   []string
	symptoms    []string
	conditions  []string
	positive    map[string]bool
	negative    map[string]bool
}

func NewTextAnalyzer() *TextAnalyzer {
	return &TextAnalyzer{
		medications: MedicationVocabulary,
		bodyParts:   BodyPartVocabulary,
		symptoms:    SymptomVocabulary,
		conditions:  ConditionVocabulary,
		positive:    toSet(PositiveLexicon),
		negative:    toSet(NegativeLexicon),
	}
}

func toSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// AnalyzeSentiment scores text as positive minus negative lexicon hits.
func (ta *TextAnalyzer) AnalyzeSentiment(text string) models.Sentiment {
	score := 0
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if ta.positive[w] {
			score++
		}
		if ta.negative[w] {
			score--
		}
	}

	switch {
	case score > 0:
		return models.SentimentPositive
	case score < 0:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

func (ta *TextAnalyzer) ExtractEntities(text string) models.Entities {
	lower := strings.ToLower(text)

	entities := models.Entities{
		Medications:     containedTerms(lower, ta.medications),
		BodyParts:       containedTerms(lower, ta.bodyParts),
		Numbers:         []int{},
		TimeExpressions: []string{},
	}

	for _, tok := range integerPattern.FindAllString(lower, -1) {
		if n, err := strconv.Atoi(tok); err == nil {
			entities.Numbers = append(entities.Numbers, n)
		}
	}
	entities.TimeExpressions = append(entities.TimeExpressions, timeSpanPattern.FindAllString(lower, -1)...)

	return entities
}

// ExtractSymptoms returns symptom terms mentioned in text, most specific first.
func (ta *TextAnalyzer) ExtractSymptoms(text string) []string {
	return containedTerms(strings.ToLower(text), ta.symptoms)
}

func (ta *TextAnalyzer) ExtractConditions(text string) []string {
	return containedTerms(strings.ToLower(text), ta.conditions)
}

// ExtractSeverity returns the first severity word in text, or "".
func (ta *TextAnalyzer) ExtractSeverity(text string) string {
	m := severityPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}

func containedTerms(lower string, vocabulary []string) []string {
	found := []string{}
	for _, term := range vocabulary {
		if strings.Contains(lower, term) {
			found = append(found, term)
		}
	}
	return found
}

// DurationDays converts a "<number> <unit>" expression into whole days.
// isMonths is set when the unit was months; ok is false if expr is not a
// time span.
func DurationDays(expr string) (days int, isMonths bool, ok bool) {
	m := timeSpanPattern.FindStringSubmatch(expr)
	if m == nil {
		return 0, false, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false, false
	}

	switch strings.ToLower(m[2]) {
	case "hour":
		return n / 24, false, true
	case "day":
		return n, false, true
	case "week":
		return n * 7, false, true
	case "month":
		return n * 30, true, true
	}
	return 0, false, false
}
