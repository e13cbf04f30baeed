package application

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/oksasatya/user-management-api/pkg/helpers"
	"github.com/oksasatya/user-management-api/pkg/validation"
)

const (
	minAge = 0
	maxAge = 150

	// maxTextLen matches the VARCHAR(255) name and email columns.
	maxTextLen = 255
)

var (
	emailRule = fmt.Sprintf("max=%d,email_lite", maxTextLen)
	nameRule  = fmt.Sprintf("max=%d", maxTextLen)
)

// normalizeEmail trims surrounding whitespace and checks length and address
// shape. Case is preserved: stored emails are matched exactly.
func normalizeEmail(v *validator.Validate, raw string) (string, error) {
	email := strings.TrimSpace(raw)
	err := v.Var(email, emailRule)
	if err == nil {
		return email, nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && verrs[0].Tag() == "max" {
		return "", tooLong("email")
	}
	return "", &ValidationError{
		Message: "invalid email format",
		Details: map[string]string{"email": "must be a valid email"},
	}
}

// validateName checks an already trimmed, non-empty name.
func validateName(v *validator.Validate, name string) error {
	if err := v.Var(name, nameRule); err != nil {
		return tooLong("name")
	}
	return nil
}

func tooLong(field string) *ValidationError {
	return invalidField(field, fmt.Sprintf("must be at most %d characters long", maxTextLen))
}

func validateAge(age *int) error {
	if age == nil {
		return nil
	}
	if *age < minAge || *age > maxAge {
		return invalidField("age", fmt.Sprintf("must be between %d and %d", minAge, maxAge))
	}
	return nil
}

func validatePassword(password string, minLen int) error {
	if utf8.RuneCountInString(password) < minLen {
		return &ValidationError{
			Message: fmt.Sprintf("password too short: minimum length is %d characters", minLen),
			Details: map[string]string{"password": fmt.Sprintf("must be at least %d characters long", minLen)},
		}
	}
	if len(password) > helpers.MaxPasswordBytes {
		return &ValidationError{
			Message: fmt.Sprintf("password too long: maximum length is %d bytes", helpers.MaxPasswordBytes),
			Details: map[string]string{"password": fmt.Sprintf("must be at most %d bytes long", helpers.MaxPasswordBytes)},
		}
	}
	return nil
}

// checkFields runs the struct rules. Every missing field is reported at
// once; otherwise the first failing rule wins.
func checkFields(v *validator.Validate, fields any) error {
	err := v.Struct(fields)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate input: %w", err)
	}
	var missing []string
	for _, fe := range verrs {
		if strings.HasPrefix(fe.Tag(), "required") {
			missing = append(missing, fe.Field())
		}
	}
	if len(missing) > 0 {
		return missingFields(missing)
	}
	fe := verrs[0]
	return invalidField(fe.Field(), validation.ToDetails(validator.ValidationErrors{fe})[fe.Field()])
}
