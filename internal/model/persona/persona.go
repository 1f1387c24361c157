package persona

// TherapistID identifies the built-in therapist persona.
const TherapistID = "therapist"

// Persona describes the assistant role sent to the model and shown to clients.
type Persona struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Title       string `json:"title"`
	Tone        string `json:"tone"`
	Instruction string `json:"-"`
	OpeningLine string `json:"openingLine"`
	VoiceID     string `json:"voiceId,omitempty"`
	Description string `json:"description,omitempty"`
}

// therapistInstruction is prepended to every request. It must stay fixed:
// the model sees no other context besides the user's utterance.
const therapistInstruction = "You are a compassionate and understanding therapist. " +
	"Your role is to listen attentively and respond with empathy, kindness, and emotional support. " +
	"Provide thoughtful, human-like advice while validating the user's feelings. " +
	"Make sure your tone is warm and caring in all responses."

// Therapist returns the fixed therapist persona.
func Therapist() Persona {
	return Persona{
		ID:          TherapistID,
		Name:        "TherapistAI",
		Title:       "AI Therapist",
		Tone:        "warm, empathetic, validating",
		Instruction: therapistInstruction,
		OpeningLine: "This is an AI-powered Therapist designed to listen and respond with empathy.",
		Description: "What's on your mind today?",
	}
}

// Seed provides the personas served by the API.
func Seed() []Persona {
	return []Persona{Therapist()}
}
