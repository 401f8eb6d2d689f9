// Package validator provides a custom Validator type for accumulating
// field-level validation errors and returning them as a map.
package validator

import (
	"regexp"
	"strings"
)

var (
	// EmailRX is a compiled regular expression for basic email validation.
	EmailRX = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

	// TaxIDRX matches an individual taxpayer id: exactly eleven digits, no punctuation.
	TaxIDRX = regexp.MustCompile(`^\d{11}$`)

	// PhoneRX matches a phone number with area code: ten or eleven digits.
	PhoneRX = regexp.MustCompile(`^\d{10,11}$`)

	// RegistrationNumberRX matches a registration number of at least four digits.
	RegistrationNumberRX = regexp.MustCompile(`^\d{4,}$`)

	// ISBNRX accepts ISBN-10 or ISBN-13, with or without hyphens.
	ISBNRX = regexp.MustCompile(`^(?:\d[\d-]{8,15}[\dXx])$`)
)

// Validator holds a map of field names to their validation error messages.
// A Validator with an empty Errors map is considered valid.
type Validator struct {
	Errors map[string]string
}

// New creates and returns a fresh, empty Validator.
func New() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

// Valid returns true if the Errors map contains no entries.
func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// AddError records key as failing with the given message.
// The first failure for a field wins.
func (v *Validator) AddError(key, message string) {
	if _, exists := v.Errors[key]; !exists {
		v.Errors[key] = message
	}
}

// Check adds an error for key with message only when ok is false.
//
//	v.Check(NotBlank(name), "name", "must be provided")
func (v *Validator) Check(ok bool, key, message string) {
	if !ok {
		v.AddError(key, message)
	}
}

// NotBlank reports whether value has any non-whitespace content.
func NotBlank(value string) bool {
	return strings.TrimSpace(value) != ""
}

// MaxChars reports whether value is at most n runes long.
func MaxChars(value string, n int) bool {
	return len([]rune(value)) <= n
}

// In returns true if value is present in the list slice.
func In[T comparable](value T, list ...T) bool {
	for _, item := range list {
		if value == item {
			return true
		}
	}
	return false
}

// Matches returns true if value matches the provided compiled regexp.
func Matches(value string, rx *regexp.Regexp) bool {
	return rx.MatchString(value)
}

// Unique returns true if every value is distinct.
func Unique[T comparable](values []T) bool {
	seen := make(map[T]bool, len(values))
	for _, v := range values {
		if seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}
