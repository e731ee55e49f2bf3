package checkout

import (
	"strings"
	"unicode/utf8"
)

const DefaultMinContactLength = 10

const (
	MessageContactInvalid = "Por favor, ingresa un número de WhatsApp válido y acepta recibir notificaciones."
	MessageCartEmpty      = "Tu carrito está vacío."
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors blocks a transition locally. It never reaches a collaborator.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return strings.Join(parts, "; ")
}

// ValidateContact checks the contact handle and consent pair. Length is
// counted in runes after trimming.
func ValidateContact(contact string, consent bool, minLen int) ValidationErrors {
	if minLen <= 0 {
		minLen = DefaultMinContactLength
	}
	var out ValidationErrors
	if utf8.RuneCountInString(strings.TrimSpace(contact)) < minLen {
		out = append(out, FieldError{Field: "contactHandle", Message: MessageContactInvalid})
	}
	if !consent {
		out = append(out, FieldError{Field: "consent", Message: MessageContactInvalid})
	}
	return out
}
