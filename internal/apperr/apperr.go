// Package apperr defines the typed error contract shared by all operations.
// Handlers never inspect raw errors; they map an error's Kind to an HTTP
// status at the boundary.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for boundary handling.
type Kind int

const (
	// Internal is the fallback for unclassified failures.
	Internal Kind = iota
	// Validation marks bad input rejected before any external call.
	Validation
	// NotFound marks a missing record or file.
	NotFound
	// Unauthorized marks a failed credential or session check.
	Unauthorized
	// Conflict marks a uniqueness violation, e.g. a duplicate username.
	Conflict
	// Transport marks a failure of an external collaborator: the matcher
	// subprocess, the mail server, the object store, or the database.
	Transport
)

// Error carries a kind, a user-facing message, and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error with a kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error that wraps a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, or Internal if err carries no kind.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}

// Message returns the user-facing message of err. For untyped errors the
// raw error text is returned.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}
