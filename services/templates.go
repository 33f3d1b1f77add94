package services

import (
	"math/rand"
	"sync"
	"time"

	"health-assistant-backend/models"
)

// Selector picks one of n equally weighted template variants.
type Selector interface {
	Select(n int) int
}

// RandomSelector is the production Selector.
type RandomSelector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomSelector(seed int64) *RandomSelector {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomSelector{rng: rand.New(rand.NewSource(seed))}
}

func (s *RandomSelector) Select(n int) int {
	if n <= 1 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

// FixedSelector always returns the same index, wrapped to the variant count.
type FixedSelector int

func (f FixedSelector) Select(n int) int {
	if n <= 0 {
		return 0
	}
	return int(f) % n
}

const emergencyTemplate = "🚨 This sounds like a medical emergency. Please call {emergency_phone} or your local emergency number immediately, " +
	"or go to the nearest emergency room. Do not wait for an online response.\n\n" +
	"If you can, stay with someone and keep your phone nearby. Our clinic can be reached at {phone} once you are safe."

const (
	askDuration      = "How long have you been experiencing this?"
	askSeverity      = "How would you rate it: mild, moderate, or severe?"
	askOtherSymptoms = "Are you experiencing any other symptoms along with it?"
)

const medicalDisclaimer = "\n\n⚠️ Note: This information is for educational purposes only. " +
	"Please consult with our healthcare providers for personalized medical advice."

// fallbackTemplates holds the deterministic responses used whenever the
// generator is unavailable. Placeholders are filled by the composer.
var fallbackTemplates = map[models.MessageIntent][]string{
	models.IntentGreeting: {
		"{greeting}! Welcome to {clinic}. I can help you check symptoms, book appointments, review medications and share wellness tips. How can I help you today?",
		"{greeting}! I'm the {clinic} health assistant. How are you feeling today?",
	},
	models.IntentGoodbye: {
		"Take care! If anything changes or you have more questions, I'm here anytime.",
		"Goodbye, and feel better soon. Don't hesitate to reach out again.",
	},
	models.IntentHelp: {
		"Here's what I can do for you:\n\n• 🩺 Talk through your symptoms and how urgent they are\n• 📅 Book an appointment\n• 💊 Check your medications for interactions\n• 🌿 Share wellness tips\n\nWhat would you like to start with?",
		"I can help with symptoms, appointments, medications and general wellness. Just tell me what's going on, or pick an option below.",
	},
	models.IntentSymptom: {
		"I'm sorry to hear you're dealing with {topic}.",
		"Thanks for telling me about your {topic}. Let's figure out how best to help.",
		"I understand {topic} can be really uncomfortable.",
	},
	models.IntentAppointment: {
		"I can help you book an appointment at {clinic}, {address}. Tap \"Book Appointment\" to get started, or call us at {phone}.",
		"Our clinic is open {hours}. Would you like to book an appointment now?",
	},
	models.IntentMedication: {
		"Happy to help with {medications}. Always take medicines as prescribed, and check with your doctor or pharmacist before combining them.",
		"Here's a quick reminder about {medications}: follow the label or your prescription, and tell your doctor about everything you take, including supplements.",
	},
	models.IntentWellness: {
		"Small habits add up: aim for 7-9 hours of sleep, drink plenty of water, move for at least 30 minutes a day and eat plenty of vegetables. What would you like to focus on?",
		"Staying well is about balance. Regular exercise, good sleep, a varied diet and time to unwind all help. Want some tips on a specific area?",
	},
	models.IntentSpecialty: {
		"{clinic} offers {services}. I can help you book a specialist visit.",
		"We have specialists in {services}. Would you like to book a specialist visit?",
	},
	models.IntentTriage: {
		"I can help you judge how urgent this is. Tell me your main symptom, how long it has lasted and how severe it feels.",
		"To assess urgency I need a few details: what you're feeling, for how long, and how bad it is.",
	},
	models.IntentGeneral: {
		"I'm here to help with health questions, symptoms, medications and appointments. Could you tell me a bit more about what you need?",
		"I'm not sure I understood that. You can describe a symptom, ask about a medication, or book an appointment.",
	},
}

var symptomAdviceTemplates = []string{
	"Thanks for the details about your {topic}. Based on what you've shared, I'd recommend that you {action}.",
	"I've noted everything about your {topic}. My recommendation is to {action}.",
}

var emergencyQuickActions = []string{"Contact Emergency Services", "Find Nearest ER"}

const contactEmergencyServices = "Contact Emergency Services"

var quickActions = map[models.MessageIntent][]string{
	models.IntentGreeting:    {"Check Symptoms", "Book Appointment", "Medication Info", "Wellness Tips"},
	models.IntentGoodbye:     {"Start Over"},
	models.IntentHelp:        {"Check Symptoms", "Book Appointment", "Medication Info", "Wellness Tips"},
	models.IntentSymptom:     {"Book Appointment", "Describe More Symptoms", "Find a Specialist"},
	models.IntentAppointment: {"Book Appointment", "View Clinic Hours", "Contact Clinic"},
	models.IntentMedication:  {"Check Interactions", "Side Effects", "Book Appointment"},
	models.IntentWellness:    {"Diet Tips", "Exercise Tips", "Sleep Tips", "Stress Management"},
	models.IntentSpecialty:   {"Book Specialist Visit", "Book Appointment"},
	models.IntentTriage:      {"Check Symptoms", "Book Appointment"},
	models.IntentGeneral:     {"Check Symptoms", "Book Appointment", "Help"},
}
