package domain

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound = errors.New("order not found")

	// ErrConflict is returned when a status write carries a stale version:
	// another operator changed the order since it was fetched.
	ErrConflict = errors.New("order was modified concurrently")

	// ErrPaymentRequired gates the pending->preparing transition for orders
	// that are not fully paid. The caller is expected to run the payment
	// workflow and retry.
	ErrPaymentRequired = errors.New("payment required before preparing")
)

// InvalidTransitionError names the rejected source/target status pair.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

// ValidationError reports malformed input to a transition or payment call.
type ValidationError struct {
	Msg string
	Err error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("validation failed: %s: %v", e.Msg, e.Err)
	}
	return "validation failed: " + e.Msg
}

func (e *ValidationError) Unwrap() error { return e.Err }

func Invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// PersistenceError wraps a store rejection of an otherwise valid write.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// AuthenticationError is fatal for the current session: the credential must
// be re-acquired, the call is never retried silently.
type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string {
	return "authentication failed: " + e.Reason
}

// TimeoutError marks a transport deadline hit while reaching the store or
// the notification channel.
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out: %v", e.Op, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }
