package services

import (
	"errors"
	"fmt"

	"github.com/fabio-stoppa/sistema-biblioteca/internal/data"
)

// Error kinds. Match them with errors.Is; the concrete *Error carries the
// message shown to callers.
var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidData = errors.New("invalid data")
	// ErrDuplicate is an ErrInvalidData raised when a unique value is already taken.
	ErrDuplicate = fmt.Errorf("%w: duplicate value", ErrInvalidData)
)

// Error is a domain failure: what kind it is, which field it concerns (if
// any) and a message fit for the caller.
type Error struct {
	Kind    error
	Field   string
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func notFound(entity, key string, value any) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf("%s not found with %s: %v", entity, key, value)}
}

func invalid(field, message string) error {
	return &Error{Kind: ErrInvalidData, Field: field, Message: message}
}

func duplicate(field, label, value string) error {
	return &Error{Kind: ErrDuplicate, Field: field, Message: fmt.Sprintf("%s already registered: %s", label, value)}
}

// lookup turns a missing record into the domain's NOT_FOUND error.
func lookup(err error, entity, key string, value any) error {
	if errors.Is(err, data.ErrRecordNotFound) {
		return notFound(entity, key, value)
	}
	return err
}
