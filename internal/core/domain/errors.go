package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind categorizes engine errors per the failure taxonomy.
type ErrorKind string

const (
	// KindValidation indicates malformed params, rejected before a
	// session is created or a turn is started.
	KindValidation ErrorKind = "validation"

	// KindNotFound indicates an unknown session id.
	KindNotFound ErrorKind = "not_found"

	// KindBusy indicates a second turn arrived while a turn for the
	// same session was mid-flight. The caller should retry later.
	KindBusy ErrorKind = "busy"

	// KindConflict indicates the session moved to a terminal state
	// while the operation was in flight; the result was discarded.
	KindConflict ErrorKind = "conflict"

	// KindCollaborator indicates an external collaborator failed or
	// timed out in a way the engine could not absorb.
	KindCollaborator ErrorKind = "collaborator"

	// KindTerminal indicates an unexpected internal failure; the
	// session was moved to FAILED and retained for inspection.
	KindTerminal ErrorKind = "terminal"
)

// EngineError is the canonical error type crossing the core boundary.
type EngineError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *EngineError) Unwrap() error { return e.Err }

// HTTPStatusCode maps the error kind to a suggested HTTP status.
func (e *EngineError) HTTPStatusCode() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindBusy, KindConflict:
		return http.StatusConflict
	case KindCollaborator:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Wrap attaches an underlying cause.
func (e *EngineError) Wrap(err error) *EngineError {
	e.Err = err
	return e
}

func newError(kind ErrorKind, message string) *EngineError {
	return &EngineError{Kind: kind, Message: message}
}

// ErrValidation creates a validation error.
func ErrValidation(message string) *EngineError {
	return newError(KindValidation, message)
}

// ErrNotFound creates an unknown-session error.
func ErrNotFound(sessionID string) *EngineError {
	return newError(KindNotFound, "session "+sessionID+" not found")
}

// ErrBusy creates a concurrency-violation error.
func ErrBusy(sessionID string) *EngineError {
	return newError(KindBusy, "session "+sessionID+" is already processing a turn")
}

// ErrConflict creates a stale-turn / terminal-state conflict error.
func ErrConflict(message string) *EngineError {
	return newError(KindConflict, message)
}

// ErrCollaborator creates a collaborator failure error.
func ErrCollaborator(message string) *EngineError {
	return newError(KindCollaborator, message)
}

// ErrTerminal creates an internal terminal-failure error.
func ErrTerminal(message string) *EngineError {
	return newError(KindTerminal, message)
}

// IsKind reports whether err is an EngineError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Kind == kind
	}
	return false
}
