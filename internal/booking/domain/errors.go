package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a job, user or assignment does not exist
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the acting user's role may not perform the action
	ErrForbidden = errors.New("forbidden")

	// ErrPastDueDate is returned when a booking would be created in the past
	ErrPastDueDate = errors.New("can't create booking in past")

	// ErrAlreadyBooked is returned when the translator has an overlapping assignment
	ErrAlreadyBooked = errors.New("translator already has a booking at that time")

	// ErrAlreadyAssigned is returned when another translator claimed the job first
	ErrAlreadyAssigned = errors.New("job already accepted by another translator")

	// ErrTooLateToCancel is returned when a translator cancels inside the cancel window
	ErrTooLateToCancel = errors.New("too late to cancel, cancel by phone")

	// ErrDeliveryFailure is returned when a notification could not be handed off
	ErrDeliveryFailure = errors.New("notification delivery failed")
)

// ValidationError reports a missing or invalid booking field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
