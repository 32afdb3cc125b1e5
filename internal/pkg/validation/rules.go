package validation

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/schoolguidance/tracker/internal/app/models"
	"github.com/schoolguidance/tracker/internal/pkg/schoolyear"
)

var (
	EmailPattern    = `^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`
	UsernamePattern = `^[a-zA-Z0-9_.\-]{3,150}$`

	PasswordMinLength = 8
)

// CompiledPatterns caches compiled regex patterns
var CompiledPatterns = struct {
	Email    *regexp.Regexp
	Username *regexp.Regexp
}{
	Email:    regexp.MustCompile(EmailPattern),
	Username: regexp.MustCompile(UsernamePattern),
}

// Register installs the custom binding tags used by request DTOs:
// gradelevel, strand, schoolyear, severity, username.
func Register(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"gradelevel": func(fl validator.FieldLevel) bool {
			g := fl.Field().Int()
			return g >= models.MinGradeLevel && g <= models.MaxGradeLevel
		},
		"strand": func(fl validator.FieldLevel) bool {
			return models.ValidStrand(fl.Field().String())
		},
		"schoolyear": func(fl validator.FieldLevel) bool {
			return schoolyear.Valid(fl.Field().String())
		},
		"severity": func(fl validator.FieldLevel) bool {
			return models.ValidSeverity(strings.ToLower(fl.Field().String()))
		},
		"username": func(fl validator.FieldLevel) bool {
			return CompiledPatterns.Username.MatchString(fl.Field().String())
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

// IsValidEmail checks an email against EmailPattern
func IsValidEmail(email string) bool {
	return CompiledPatterns.Email.MatchString(strings.TrimSpace(email))
}

// IsStrongPassword requires PasswordMinLength chars with a letter and a digit
func IsStrongPassword(password string) bool {
	if len(password) < PasswordMinLength {
		return false
	}
	hasLetter, hasDigit := false, false
	for _, r := range password {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			hasLetter = true
		}
	}
	return hasLetter && hasDigit
}
