package utils

import (
	"regexp"
	"strings"

	"health-assistant-backend/models"
)

// IntentTableVersion identifies the ordering of DefaultIntentRules. Bump it
// whenever categories are reordered or patterns change, since declaration
// order decides which intent wins on overlapping keywords.
const IntentTableVersion = 3

// PatternRule is one labelled entry of an ordered keyword table.
type PatternRule struct {
	Label   string
	Pattern *regexp.Regexp
}

// IntentRule maps a pattern to the intent it selects.
type IntentRule struct {
	Intent  models.MessageIntent
	Pattern *regexp.Regexp
}

// KeywordRule builds a case-insensitive, word-bounded rule matching any of
// the given alternatives. Alternatives are regular expressions.
func KeywordRule(label string, alternatives ...string) PatternRule {
	return PatternRule{
		Label:   label,
		Pattern: regexp.MustCompile(`(?i)\b(?:` + strings.Join(alternatives, "|") + `)\b`),
	}
}

// MatchFirst returns the label of the first rule that matches text.
func MatchFirst(rules []PatternRule, text string) (string, bool) {
	for _, r := range rules {
		if r.Pattern.MatchString(text) {
			return r.Label, true
		}
	}
	return "", false
}

const cantBreathe = `can(?:'|’)?t breathe|cannot breathe|can not breathe`

// EmergencyKeywords are checked first by the triage ladder.
var EmergencyKeywords = []PatternRule{
	KeywordRule("chest pain", `chest pain`),
	KeywordRule("can't breathe", cantBreathe),
	KeywordRule("unconscious", `unconscious`),
	KeywordRule("severe bleeding", `severe bleeding`),
	KeywordRule("heart attack", `heart attack`),
	KeywordRule("stroke", `stroke`),
}

// UrgentKeywords form the second rung of the triage ladder.
var UrgentKeywords = []PatternRule{
	KeywordRule("high fever", `high fever`),
	KeywordRule("severe pain", `severe pain`),
	KeywordRule("difficulty breathing", `difficulty breathing`),
	KeywordRule("persistent vomiting", `persistent vomiting`),
}

// DefaultIntentRules is the declared category order. The first match wins,
// except that emergency is always evaluated before everything else.
func DefaultIntentRules() []IntentRule {
	rule := func(intent models.MessageIntent, pattern string) IntentRule {
		return IntentRule{Intent: intent, Pattern: regexp.MustCompile(pattern)}
	}
	return []IntentRule{
		rule(models.IntentEmergency, `(?i)\b(?:chest pain|`+cantBreathe+`|unconscious|severe bleeding|heart attack|stroke|medical emergency|(?:this|it)(?: i|')s an emergency|need emergency help|911|overdose|suicid\w*|not breathing)\b`),
		rule(models.IntentGreeting, `(?i)^\s*(?:hi|hello|hey|greetings|good (?:morning|afternoon|evening))\b`),
		rule(models.IntentGoodbye, `(?i)\b(?:bye|goodbye|see you|farewell|that'?s all)\b`),
		rule(models.IntentHelp, `(?i)\b(?:help|what can you do|how does this work|menu|options)\b`),
		rule(models.IntentSymptom, `(?i)\b(?:symptoms?|pain|aches?|headaches?|fever|cough\w*|nausea|nauseous|dizzy|dizziness|hurts?|sore|rash|vomit\w*|tired|fatigue|cold|flu|sick|diarrh?ea|insomnia)\b`),
		rule(models.IntentAppointment, `(?i)\b(?:appointments?|book\w*|schedul\w*|reschedul\w*|see a doctor|visit)\b`),
		rule(models.IntentMedication, `(?i)\b(?:medications?|medicines?|drugs?|pills?|doses?|dosage|prescriptions?|side effects?|interactions?|`+strings.Join(MedicationVocabulary, "|")+`)\b`),
		rule(models.IntentWellness, `(?i)\b(?:diet|exercise|sleep|stress|nutrition|weight|healthy|wellness|hydration|meditation|fitness)\b`),
		rule(models.IntentSpecialty, `(?i)\b(?:specialists?|cardiolog\w*|dermatolog\w*|neurolog\w*|pediatric\w*|orthopedic\w*|gynecolog\w*|psychiatr\w*|ent)\b`),
		rule(models.IntentTriage, `(?i)\b(?:urgent|how serious|is it serious|should i worry|go to the er|emergency room)\b`),
		rule(models.IntentGeneral, `(?s).*`),
	}
}

// MedicationVocabulary is matched by case-insensitive substring containment.
var MedicationVocabulary = []string{
	"aspirin", "ibuprofen", "acetaminophen", "paracetamol", "naproxen",
	"warfarin", "clopidogrel", "metformin", "insulin", "lisinopril",
	"amlodipine", "atorvastatin", "simvastatin", "amoxicillin", "omeprazole",
	"levothyroxine", "prednisone", "sertraline", "fluoxetine", "tramadol",
	"digoxin",
}

var BodyPartVocabulary = []string{
	"head", "chest", "stomach", "abdomen", "back", "throat", "neck",
	"shoulder", "arm", "hand", "leg", "knee", "foot", "ear", "eye",
	"skin", "heart", "tooth",
}

// SymptomVocabulary is ordered so that more specific terms are found first.
var SymptomVocabulary = []string{
	"sore throat", "back pain", "stomach ache", "headache", "migraine",
	"fever", "cough", "nausea", "vomiting", "dizziness", "rash", "fatigue",
	"diarrhea", "insomnia", "cold", "flu", "pain",
}

var ConditionVocabulary = []string{
	"diabetes", "hypertension", "high blood pressure", "asthma", "arthritis",
	"depression", "anxiety", "copd", "heart disease", "kidney disease",
}

var PositiveLexicon = []string{
	"good", "great", "better", "fine", "well", "happy", "thanks", "thank",
	"excellent", "improved", "improving", "relieved", "glad", "awesome",
}

var NegativeLexicon = []string{
	"pain", "hurt", "hurts", "bad", "worse", "terrible", "awful", "sick",
	"scared", "worried", "anxious", "sad", "afraid", "miserable", "suffering",
}

var SeverityWords = []string{"severe", "intense", "extreme", "moderate", "mild"}
