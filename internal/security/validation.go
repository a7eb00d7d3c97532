// Package security validates identity fields and guards outbound requests.
package security

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	UsernameMaxLength = 150
	NameMaxLength     = 30
	PasswordMinLength = 8
	PasswordMaxLength = 128
	// bcrypt refuses input longer than this many bytes.
	PasswordMaxBytes = 72
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// ValidateUsername accepts letters, digits and @ . + - _ up to 150 characters.
func ValidateUsername(username string) error {
	switch {
	case username == "":
		return errors.New("username is required")
	case utf8.RuneCountInString(username) > UsernameMaxLength:
		return errors.New("username must be at most 150 characters")
	case !usernamePattern.MatchString(username):
		return errors.New("username may contain only letters, digits and @/./+/-/_")
	}
	return nil
}

// ValidateEmail checks RFC 5322 address syntax. A display name is rejected.
func ValidateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return errors.New("enter a valid email address")
	}
	return nil
}

// ValidateName requires a non-empty personal name of at most 30 characters.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("this field is required")
	}
	if utf8.RuneCountInString(name) > NameMaxLength {
		return errors.New("must be at most 30 characters")
	}
	return nil
}

// ValidatePasswordPair checks that both entries match and meet the length rules.
func ValidatePasswordPair(password1, password2 string) error {
	if password1 != password2 {
		return errors.New("passwords do not match")
	}
	n := utf8.RuneCountInString(password1)
	if n < PasswordMinLength {
		return errors.New("password must be at least 8 characters")
	}
	if n > PasswordMaxLength {
		return errors.New("password must be at most 128 characters")
	}
	if len(password1) > PasswordMaxBytes {
		return errors.New("password must be at most 72 bytes")
	}
	return nil
}

// ValidateMaxLength bounds an optional free-text field.
func ValidateMaxLength(value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return errors.New("value is too long")
	}
	return nil
}
