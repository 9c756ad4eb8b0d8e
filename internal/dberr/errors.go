// Package dberr defines the error taxonomy shared by the marshalling layer,
// the migration engine, the store and the handle registry.
//
// Every failure is surfaced to the caller with its context (migration name,
// parameter name or the store's own message). Nothing here is retried.
package dberr

import (
	"errors"
	"fmt"
)

// Kind categorizes errors.
type Kind string

const (
	// KindDatabase is a failure reported by the underlying store
	// (prepare, execute, schema DDL).
	KindDatabase Kind = "database"

	// KindMigration is a reconciliation failure: the list was shortened,
	// an applied migration changed, or a new migration failed to run.
	KindMigration Kind = "migration"

	// KindMarshalling is a value that could not be converted to or from a
	// native bind/column value.
	KindMarshalling Kind = "marshalling"

	// KindConnection means the requested named handle does not exist.
	KindConnection Kind = "connection"

	// KindOpen means a handle could not be opened.
	KindOpen Kind = "open"
)

// Error is the structured error returned across package boundaries.
type Error struct {
	// Kind identifies the error category.
	Kind Kind

	// Message is a human-readable description.
	Message string

	// Subject names what failed: a migration, a parameter, a column or a
	// handle. Empty when not applicable.
	Subject string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Database wraps a store failure. The store's text is kept verbatim.
func Database(op string, err error) *Error {
	return &Error{Kind: KindDatabase, Message: op, Err: err}
}

// Migration creates a reconciliation error about the named migration.
// name may be empty when the failure concerns the list as a whole.
func Migration(name, message string) *Error {
	return &Error{Kind: KindMigration, Message: message, Subject: name}
}

// MigrationFailed reports that executing or recording a new migration failed.
func MigrationFailed(name, op string, err error) *Error {
	return &Error{
		Kind:    KindMigration,
		Message: fmt.Sprintf("error %s migration %s", op, name),
		Subject: name,
		Err:     err,
	}
}

// Marshalling reports a value that has no native counterpart.
// text is the offending value's textual form.
func Marshalling(name, text string, err error) *Error {
	return &Error{
		Kind:    KindMarshalling,
		Message: fmt.Sprintf("(%s: %s)", name, text),
		Subject: name,
		Err:     err,
	}
}

// Connection reports that no handle is registered under name.
func Connection(name string) *Error {
	return &Error{
		Kind:    KindConnection,
		Message: fmt.Sprintf("no open database named %q, open it first", name),
		Subject: name,
	}
}

// Open reports that the handle for target could not be opened.
func Open(target string, err error) *Error {
	return &Error{
		Kind:    KindOpen,
		Message: fmt.Sprintf("opening %s", target),
		Subject: target,
		Err:     err,
	}
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// SubjectOf returns the subject of the first *Error in err's chain, or "".
func SubjectOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Subject
	}
	return ""
}

// IsDatabase returns true if err is a database error.
func IsDatabase(err error) bool {
	return KindOf(err) == KindDatabase
}

// IsMigration returns true if err is a migration error.
func IsMigration(err error) bool {
	return KindOf(err) == KindMigration
}

// IsMarshalling returns true if err is a marshalling error.
func IsMarshalling(err error) bool {
	return KindOf(err) == KindMarshalling
}

// IsConnection returns true if err is a connection error.
func IsConnection(err error) bool {
	return KindOf(err) == KindConnection
}

// IsOpen returns true if err is an open error.
func IsOpen(err error) bool {
	return KindOf(err) == KindOpen
}
