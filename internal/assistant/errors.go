package assistant

import (
	"time"

	"caregiver-compass/models"
)

// Error codes carried on Answer.ErrorCode. Every failure path still returns
// a well-formed Answer; these codes are the only machine-readable signal.
const (
	CodeInputError          = "input_error"
	CodeServiceDegraded     = "service_degraded"
	CodeAllProvidersFailed  = "all_providers_failed"
	CodePinnedProviderError = "pinned_provider_error"
	CodeUnknownProvider     = "unknown_provider"
)

const emergencyNumbers = `If this is a medical emergency, call emergency services immediately:
- India: 102 (Ambulance) / 108 (Emergency)
- USA: 911
- EU: 112`

const clarificationText = "I didn't receive a question. Please tell me what you'd like help with - for example equipment, feeding, breathing support, or daily care."

const degradedText = "I'm having trouble reaching my knowledge base right now, so I can't give a properly sourced answer. Please try again shortly, or contact a healthcare professional directly."

const exhaustedText = "I apologize, but I'm unable to generate an answer right now. Please try again in a few minutes or contact healthcare professionals directly."

// clarificationAnswer handles empty or invalid input locally.
func clarificationAnswer() models.Answer {
	return models.Answer{
		Text:      clarificationText,
		Citations: []models.Citation{},
		ErrorCode: CodeInputError,
		Timestamp: time.Now().UTC(),
	}
}

// failureAnswer shapes any hard pipeline failure as an honest Answer.
// Emergency queries get the emergency numbers prepended even when the
// pipeline could not run: that guidance must never depend on a backend.
func failureAnswer(code, text string, q models.ClassifiedQuery) models.Answer {
	if q.IsEmergency {
		text = emergencyNumbers + "\n\n" + text
	}
	return models.Answer{
		Text:        text,
		Citations:   []models.Citation{},
		IsEmergency: q.IsEmergency,
		Category:    q.Category,
		Degraded:    true,
		ErrorCode:   code,
		Timestamp:   time.Now().UTC(),
	}
}
