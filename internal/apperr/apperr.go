// Package apperr defines the error taxonomy shared by the registration and
// evaluation services. Handlers translate a Kind into a transport status;
// everything that is not an *Error is treated as an unexpected fault.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an application error.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidCredentials
	KindUnauthorized
	KindPreconditionFailed
	KindGenerationExhausted
	KindValidation
	KindConflict
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindUnauthorized:
		return "unauthorized"
	case KindPreconditionFailed:
		return "precondition_failed"
	case KindGenerationExhausted:
		return "generation_exhausted"
	case KindValidation:
		return "validation_error"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a typed application error. Code is a stable machine-readable
// identifier, Message is safe to show to callers.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// New creates a typed error.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	ErrNotFound            = New(KindNotFound, "not_found", "not found")
	ErrInvalidCredentials  = New(KindInvalidCredentials, "invalid_credentials", "invalid email or access code")
	ErrInvalidLogin        = New(KindInvalidCredentials, "invalid_login", "invalid email or password")
	ErrConflict            = New(KindConflict, "conflict", "resource already exists")
	ErrGenerationExhausted = New(KindGenerationExhausted, "generation_exhausted", "could not generate a unique identifier")
	ErrAlreadyAssigned     = New(KindPreconditionFailed, "already_assigned", "identifier already assigned")

	ErrUnauthorizedEvaluator  = New(KindUnauthorized, "unauthorized_evaluator", "evaluator is not on the roster")
	ErrForbidden              = New(KindUnauthorized, "forbidden", "insufficient permissions")
	ErrParticipantNotFound    = New(KindNotFound, "participant_not_found", "participant not found")
	ErrParticipantNotApproved = New(KindPreconditionFailed, "participant_not_approved", "participant is not approved")
	ErrParticipantWrongTrack  = New(KindPreconditionFailed, "participant_wrong_track", "participant is not registered for the evaluation track")

	ErrDuplicateRegistration = New(KindConflict, "duplicate_registration", "this email is already registered for the module")

	ErrPhaseRegression = New(KindPreconditionFailed, "phase_regression", "phase cannot move backwards")
	ErrPhaseNotOpen    = New(KindPreconditionFailed, "phase_not_open", "phase is not open for this team yet")
)

// Validation returns a KindValidation error with a formatted message.
func Validation(format string, args ...any) *Error {
	return New(KindValidation, "validation_error", fmt.Sprintf(format, args...))
}

// Precondition returns a KindPreconditionFailed error with a formatted message.
func Precondition(format string, args ...any) *Error {
	return New(KindPreconditionFailed, "precondition_failed", fmt.Sprintf(format, args...))
}

// KindOf reports the Kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
