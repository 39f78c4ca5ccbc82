package validate

import (
	"fmt"
	"regexp"
	"strings"
)

// FieldError points at the offending input field so handlers can surface
// per-field messages instead of one opaque string.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func fieldErr(field, message string) error {
	return &FieldError{Field: field, Message: message}
}

var (
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	emailRe    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

func Username(username string) error {
	if len(username) < 3 {
		return fieldErr("username", "must be at least 3 characters")
	}
	if len(username) > 50 {
		return fieldErr("username", "must be at most 50 characters")
	}
	if !usernameRe.MatchString(username) {
		return fieldErr("username", "may only contain letters, digits and underscores")
	}
	return nil
}

func Email(email string) error {
	if !emailRe.MatchString(email) {
		return fieldErr("email", "must be a valid email address")
	}
	if len(email) > 100 {
		return fieldErr("email", "must be at most 100 characters")
	}
	return nil
}

// Password enforces the registration policy: at least 8 characters with
// upper case, lower case, a digit and a special character.
func Password(password string) error {
	if len(password) < 8 {
		return fieldErr("password", "must be at least 8 characters")
	}
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune("@$!%*?&#_-.", r):
			special = true
		}
	}
	if !upper || !lower || !digit || !special {
		return fieldErr("password", "must contain upper case, lower case, a digit and a special character")
	}
	return nil
}

func Symbol(symbol string) error {
	if symbol == "" {
		return fieldErr("symbol", "is required")
	}
	if len(symbol) > 20 {
		return fieldErr("symbol", "must be at most 20 characters")
	}
	return nil
}

func Name(name string) error {
	if name == "" {
		return fieldErr("name", "is required")
	}
	if len(name) > 100 {
		return fieldErr("name", "must be at most 100 characters")
	}
	return nil
}
