package domain

import "errors"

var (
	// ErrInvalidMessage is returned when a delivery body is not a valid notification message
	ErrInvalidMessage = errors.New("invalid notification message")

	// ErrAlreadyDelivered is returned when a message was already delivered by some worker
	ErrAlreadyDelivered = errors.New("message already delivered")

	// ErrMaxRedeliveriesExceeded is returned when a message has been attempted too many times
	ErrMaxRedeliveriesExceeded = errors.New("max redeliveries exceeded")

	// ErrUnsupportedKind is returned when no sender handles a message kind
	ErrUnsupportedKind = errors.New("unsupported notification kind")
)

// RetryableError wraps transient errors that should trigger a requeue
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err, or anything it wraps, is a RetryableError.
func IsRetryable(err error) bool {
	var retryable *RetryableError
	return errors.As(err, &retryable)
}
