package application

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidCredentials is returned for both unknown emails and wrong
	// passwords so callers cannot tell the two apart.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
)

// ValidationError reports malformed or missing input. Details maps JSON
// field names to messages.
type ValidationError struct {
	Message string
	Details map[string]string
}

func (e *ValidationError) Error() string { return e.Message }

func missingFields(fields []string) *ValidationError {
	details := make(map[string]string, len(fields))
	for _, f := range fields {
		details[f] = "is required"
	}
	return &ValidationError{
		Message: "missing required fields: " + strings.Join(fields, ", "),
		Details: details,
	}
}

func invalidField(field, msg string) *ValidationError {
	return &ValidationError{
		Message: field + " " + msg,
		Details: map[string]string{field: msg},
	}
}

// valueTooLong backs up the length rules when the store rejects a value.
func valueTooLong() *ValidationError {
	return &ValidationError{
		Message: "input too long",
		Details: map[string]string{"payload": "a field exceeds its maximum length"},
	}
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
