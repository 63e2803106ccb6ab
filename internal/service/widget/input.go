package widget

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/heartmarshall/roomcast/internal/domain"
)

const (
	MaxNameLength    = 200
	MaxPayloadLength = 64 << 10
)

// CreateInput holds the parameters for creating a widget.
type CreateInput struct {
	Name    string
	Payload json.RawMessage
}

// Validate checks all fields and collects all errors.
func (i CreateInput) Validate() error {
	var errs []domain.FieldError
	errs = append(errs, validateName(&i.Name)...)
	errs = append(errs, validatePayload(i.Payload)...)
	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// UpdateInput holds the parameters for a partial widget update.
type UpdateInput struct {
	ID      uuid.UUID
	Name    *string
	Payload json.RawMessage
}

// Validate checks all fields and collects all errors.
func (i UpdateInput) Validate() error {
	var errs []domain.FieldError
	if i.ID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "id", Message: "required"})
	}
	if i.Name == nil && i.Payload == nil {
		errs = append(errs, domain.FieldError{Field: "input", Message: "nothing to update"})
	}
	errs = append(errs, validateName(i.Name)...)
	errs = append(errs, validatePayload(i.Payload)...)
	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

func validateName(name *string) []domain.FieldError {
	if name == nil {
		return nil
	}
	n := strings.TrimSpace(*name)
	switch {
	case n == "":
		return []domain.FieldError{{Field: "name", Message: "required"}}
	case utf8.RuneCountInString(n) > MaxNameLength:
		return []domain.FieldError{{Field: "name", Message: "max 200 characters"}}
	}
	return nil
}

func validatePayload(p json.RawMessage) []domain.FieldError {
	if p == nil {
		return nil
	}
	if len(p) > MaxPayloadLength {
		return []domain.FieldError{{Field: "payload", Message: "too large"}}
	}
	var obj map[string]any
	if err := json.Unmarshal(p, &obj); err != nil || obj == nil {
		return []domain.FieldError{{Field: "payload", Message: "must be a JSON object"}}
	}
	return nil
}
