package core

import (
	"fmt"
	"strings"
)

// FieldError describes one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is a client input error. It lists every offending field.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "invalid building input: " + strings.Join(parts, "; ")
}

// AnomalyError is returned when the model output cannot be turned into a
// consumption figure at all.
type AnomalyError struct {
	Value  float64
	Reason string
}

func (e *AnomalyError) Error() string {
	return fmt.Sprintf("model anomaly: %s (raw output %v)", e.Reason, e.Value)
}
