package models

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinPasswordLength matches the backend sign-up rule.
const MinPasswordLength = 12

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// User is the identity returned by /auth/me and /auth/signup.
type User struct {
	ID    string
	Email string
}

// SignUpInput is the account creation payload.
type SignUpInput struct {
	Email           string
	Password        string
	PasswordConfirm string
}

// LoginInput holds login credentials.
type LoginInput struct {
	Email    string
	Password string
}

// IsValidEmail reports whether value looks like local@domain.tld.
func IsValidEmail(value string) bool {
	return emailRegex.MatchString(strings.TrimSpace(value))
}

// Validation error keys are translatable message ids.
const (
	ErrKeyPasswordTooShort    = "auth.signUp.passwordTooShort"
	ErrKeyPasswordsDoNotMatch = "auth.signUp.passwordsDoNotMatch"
	ErrKeyInvalidEmail        = "auth.signUp.invalidEmail"
)

// ValidationError carries a translatable key.
type ValidationError struct {
	Key string
}

func (e *ValidationError) Error() string {
	return e.Key
}

// Validate applies the sign-up form checks in the order the form reports them.
func (in SignUpInput) Validate() error {
	if utf8.RuneCountInString(in.Password) < MinPasswordLength {
		return &ValidationError{Key: ErrKeyPasswordTooShort}
	}
	if in.Password != in.PasswordConfirm {
		return &ValidationError{Key: ErrKeyPasswordsDoNotMatch}
	}
	if !IsValidEmail(in.Email) {
		return &ValidationError{Key: ErrKeyInvalidEmail}
	}
	return nil
}

// ValidateNewPassword checks a password reset form.
func ValidateNewPassword(password, confirm string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return &ValidationError{Key: ErrKeyPasswordTooShort}
	}
	if password != confirm {
		return &ValidationError{Key: ErrKeyPasswordsDoNotMatch}
	}
	return nil
}

// requireLen checks the rune length of value. key names the field's
// messages, completed with "Required" or "TooLong".
func requireLen(key, value string, min, max int) error {
	n := utf8.RuneCountInString(value)
	if n < min {
		return &ValidationError{Key: key + "Required"}
	}
	if n > max {
		return &ValidationError{Key: key + "TooLong"}
	}
	return nil
}
