package appointments

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an operation references an unknown id.
	ErrNotFound = errors.New("appointment not found")

	// ErrInvalidTransition is returned when a status change is not allowed.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidStatus is returned when a status does not exist or does not
	// apply to the appointment kind (IN_PROGRESS on an in-person visit).
	ErrInvalidStatus = errors.New("invalid status for appointment kind")

	// ErrInvalidAppointment is returned for malformed booking input.
	ErrInvalidAppointment = errors.New("invalid appointment")
)

// TransitionError describes a rejected status change.
type TransitionError struct {
	ID   string
	Kind Kind
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("appointments: %s %s cannot move from %s to %s", e.Kind, e.ID, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
