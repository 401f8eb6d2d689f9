package data

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// ConstraintKind names the integrity rule a write violated.
type ConstraintKind int

const (
	ConstraintUnknown ConstraintKind = iota
	ConstraintUnique
	ConstraintForeignKey
	ConstraintNotNull
	ConstraintCheck
)

func (k ConstraintKind) String() string {
	switch k {
	case ConstraintUnique:
		return "unique"
	case ConstraintForeignKey:
		return "foreign key"
	case ConstraintNotNull:
		return "not null"
	case ConstraintCheck:
		return "check"
	default:
		return "integrity"
	}
}

// ConstraintError reports that the database rejected a write because it
// would break an integrity constraint.
type ConstraintError struct {
	Kind       ConstraintKind
	Constraint string // constraint name when the driver reports one
	Err        error
}

func (e *ConstraintError) Error() string {
	if e.Constraint != "" {
		return fmt.Sprintf("%s constraint violation: %s", e.Kind, e.Constraint)
	}
	return fmt.Sprintf("%s constraint violation", e.Kind)
}

func (e *ConstraintError) Unwrap() error { return e.Err }

// postgres integrity_constraint_violation codes
var constraintCodes = map[pq.ErrorCode]ConstraintKind{
	"23505": ConstraintUnique,
	"23503": ConstraintForeignKey,
	"23502": ConstraintNotNull,
	"23514": ConstraintCheck,
}

// classifyConstraint returns a *ConstraintError when err is an integrity
// violation, or nil otherwise. Errors that did not come from lib/pq are
// matched on their text as a last resort.
func classifyConstraint(err error) *ConstraintError {
	if err == nil {
		return nil
	}

	var cerr *ConstraintError
	if errors.As(err, &cerr) {
		return cerr
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if kind, ok := constraintCodes[pqErr.Code]; ok {
			return &ConstraintError{Kind: kind, Constraint: pqErr.Constraint, Err: err}
		}
		if pqErr.Code.Class() == "23" {
			return &ConstraintError{Kind: ConstraintUnknown, Constraint: pqErr.Constraint, Err: err}
		}
		return nil
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate key"):
		return &ConstraintError{Kind: ConstraintUnique, Err: err}
	case strings.Contains(msg, "foreign key"):
		return &ConstraintError{Kind: ConstraintForeignKey, Err: err}
	case strings.Contains(msg, "not-null") || strings.Contains(msg, "null value"):
		return &ConstraintError{Kind: ConstraintNotNull, Err: err}
	}
	return nil
}

// IsConstraintViolation reports whether err is, or wraps, an integrity violation.
func IsConstraintViolation(err error) bool {
	var cerr *ConstraintError
	return errors.As(err, &cerr)
}
