// Package validate checks the fields a user types during request intake.
// Every check trims the input first and returns the trimmed value on success.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Field names the value being validated.
type Field string

const (
	FieldName        Field = "name"
	FieldContact     Field = "contact"
	FieldDescription Field = "description"
)

// Kind classifies a validation failure.
type Kind string

const (
	Empty             Kind = "empty"
	TooShort          Kind = "too_short"
	TooLong           Kind = "too_long"
	InvalidCharacters Kind = "invalid_characters"
	InvalidFormat     Kind = "invalid_format"
)

// Length limits, counted in runes.
const (
	NameMin        = 2
	NameMax        = 100
	DescriptionMin = 10
	DescriptionMax = 2000
)

// Error is a validation verdict with a message suitable for the user.
type Error struct {
	Field  Field
	Kind   Kind
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Code reports the failure kind for structured logs.
func (e *Error) Code() string {
	return string(e.Kind)
}

var (
	emailRe  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneRe  = regexp.MustCompile(`^(\+7|7|8)?[\s\-]?\(?[0-9]{3}\)?[\s\-]?[0-9]{3}[\s\-]?[0-9]{2}[\s\-]?[0-9]{2}$`)
	handleRe = regexp.MustCompile(`^@?[a-zA-Z0-9_]{5,32}$`)
)

// Name accepts 2 to 100 Latin or Cyrillic letters, spaces and hyphens.
func Name(s string) (string, error) {
	v := strings.TrimSpace(s)
	n := utf8.RuneCountInString(v)
	switch {
	case n == 0:
		return "", &Error{FieldName, Empty, "Name cannot be empty"}
	case n < NameMin:
		return "", &Error{FieldName, TooShort, fmt.Sprintf("Name must be at least %d characters long", NameMin)}
	case n > NameMax:
		return "", &Error{FieldName, TooLong, fmt.Sprintf("Name must not exceed %d characters", NameMax)}
	}
	for _, r := range v {
		if !nameRune(r) {
			return "", &Error{FieldName, InvalidCharacters, "Name may contain only letters, spaces and hyphens"}
		}
	}
	return v, nil
}

func nameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	case r >= 'А' && r <= 'я', r == 'Ё', r == 'ё':
		return true
	case r == '-', unicode.IsSpace(r):
		return true
	}
	return false
}

// Contact accepts an email address, a Russian phone number or a Telegram username.
func Contact(s string) (string, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return "", &Error{FieldContact, Empty, "Contact cannot be empty"}
	}
	if emailRe.MatchString(v) || phoneRe.MatchString(v) || handleRe.MatchString(v) {
		return v, nil
	}
	return "", &Error{FieldContact, InvalidFormat, "Contact must be an email, a phone number or a Telegram username (@username)"}
}

// Description accepts 10 to 2000 characters of free text.
func Description(s string) (string, error) {
	v := strings.TrimSpace(s)
	n := utf8.RuneCountInString(v)
	switch {
	case n == 0:
		return "", &Error{FieldDescription, Empty, "Task description cannot be empty"}
	case n < DescriptionMin:
		return "", &Error{FieldDescription, TooShort, fmt.Sprintf("Task description must be at least %d characters long", DescriptionMin)}
	case n > DescriptionMax:
		return "", &Error{FieldDescription, TooLong, fmt.Sprintf("Task description must not exceed %d characters", DescriptionMax)}
	}
	return v, nil
}
