package scheduling

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrCapacityConflict   = errors.New("no seats left in session")
	ErrAlreadyEnrolled    = errors.New("student already enrolled in this occurrence")
	ErrIneligibleTarget   = errors.New("occurrence is not a valid replacement for this absence")
	ErrInvalidSessionType = errors.New("session type cannot be made up")
	ErrMalformedTime      = errors.New("malformed time value")
	ErrInvalidStatus      = errors.New("request is not awaiting a decision")
	ErrDebtSessionExists  = errors.New("student already has a debt session for this module and type")
	ErrTitleCycle         = errors.New("title cannot be moved under its own subtree")
	ErrForbidden          = errors.New("professor does not teach this session")
	ErrConflictingWrite   = errors.New("concurrent write on the same record")
)

// ConflictReason is the machine readable cause of a rejected enrollment.
type ConflictReason string

const (
	ReasonSeatFull         ConflictReason = "seat_full"
	ReasonAlreadyEnrolled  ConflictReason = "already_enrolled"
	ReasonAlreadyResolved  ConflictReason = "already_resolved"
	ReasonNotFound         ConflictReason = "not_found"
	ReasonIneligibleTarget ConflictReason = "ineligible_target"
)

// ResolutionKind tells how an absence has been resolved.
type ResolutionKind string

const (
	ResolutionMakeup       ResolutionKind = "makeup_enrolled"
	ResolutionCompensation ResolutionKind = "compensation_requested"
	ResolutionMarked       ResolutionKind = "marked_made_up"
)

// Resolution is the existing record that resolves an absence.
type Resolution struct {
	Kind         ResolutionKind     `json:"kind"`
	ReferenceID  uuid.UUID          `json:"reference_id,omitempty"`
	OccurrenceID uuid.UUID          `json:"occurrence_id,omitempty"`
	Status       CompensationStatus `json:"status,omitempty"`
}

// AlreadyResolvedError is returned when an absence already has a replacement.
type AlreadyResolvedError struct {
	AttendanceID uuid.UUID
	Resolution   Resolution
}

func (e *AlreadyResolvedError) Error() string {
	return fmt.Sprintf("attendance %s already resolved (%s)", e.AttendanceID, e.Resolution.Kind)
}

// ConflictError wraps an enrollment failure with its reason.
type ConflictError struct {
	Reason ConflictReason
	Err    error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

// NewConflict builds a ConflictError, deriving the reason from err.
func NewConflict(err error) *ConflictError {
	var resolved *AlreadyResolvedError
	switch {
	case errors.As(err, &resolved):
		return &ConflictError{Reason: ReasonAlreadyResolved, Err: err}
	case errors.Is(err, ErrCapacityConflict):
		return &ConflictError{Reason: ReasonSeatFull, Err: err}
	case errors.Is(err, ErrAlreadyEnrolled):
		return &ConflictError{Reason: ReasonAlreadyEnrolled, Err: err}
	case errors.Is(err, ErrNotFound):
		return &ConflictError{Reason: ReasonNotFound, Err: err}
	default:
		return &ConflictError{Reason: ReasonIneligibleTarget, Err: err}
	}
}
