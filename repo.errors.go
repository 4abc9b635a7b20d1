package main

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var ErrContactNotFound = errors.New("contact not found")

// ConstraintKind names the integrity rule a store write violated.
type ConstraintKind int

const (
	ConstraintNone ConstraintKind = iota
	ConstraintUnique
	ConstraintNotNull
	ConstraintForeignKey
	ConstraintCheck
)

func (k ConstraintKind) String() string {
	switch k {
	case ConstraintUnique:
		return "unique"
	case ConstraintNotNull:
		return "not-null"
	case ConstraintForeignKey:
		return "foreign-key"
	case ConstraintCheck:
		return "check"
	default:
		return "none"
	}
}

// ConstraintError wraps a driver error which was identified as
// a constraint violation by its driver specific error code.
type ConstraintError struct {
	Kind ConstraintKind
	Err  error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("store: %s constraint violated: %v", e.Kind, e.Err)
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// IsUniqueViolation reports whether err is a violated uniqueness constraint.
func IsUniqueViolation(err error) bool {
	var ce *ConstraintError
	return errors.As(err, &ce) && ce.Kind == ConstraintUnique
}

// ClassifyStoreError turns known driver constraint errors into *ConstraintError.
// Any other error is returned untouched.
func ClassifyStoreError(err error) error {
	if err == nil {
		return nil
	}
	if kind := constraintKindOf(err); kind != ConstraintNone {
		return &ConstraintError{Kind: kind, Err: err}
	}
	return err
}

func constraintKindOf(err error) ConstraintKind {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return ConstraintUnique
		case sqlite3.SQLITE_CONSTRAINT_NOTNULL:
			return ConstraintNotNull
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return ConstraintForeignKey
		case sqlite3.SQLITE_CONSTRAINT_CHECK:
			return ConstraintCheck
		}
		return ConstraintNone
	}

	var pe *pq.Error
	if errors.As(err, &pe) {
		switch pe.Code {
		case "23505":
			return ConstraintUnique
		case "23502":
			return ConstraintNotNull
		case "23503":
			return ConstraintForeignKey
		case "23514":
			return ConstraintCheck
		}
	}
	return ConstraintNone
}
