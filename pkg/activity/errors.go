package activity

import (
	"errors"
	"fmt"
)

// Kind classifies an activity failure for retry decisions.
type Kind string

const (
	// KindTransient is a failure that may succeed on retry.
	KindTransient Kind = "transient"
	// KindTimeout means the activity exceeded its deadline. Retryable.
	KindTimeout Kind = "timeout"
	// KindRejected means the target refused the operation as invalid.
	// Never retried.
	KindRejected Kind = "rejected"
	// KindFatal is an unrecoverable failure. Never retried.
	KindFatal Kind = "fatal"
)

// Error is a classified activity failure.
type Error struct {
	Kind     Kind
	Activity string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Activity, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether a retry can change the outcome.
func (e *Error) Retryable() bool {
	return e.Kind == KindTransient || e.Kind == KindTimeout
}

// Classify returns the failure kind of err, or KindFatal for errors
// produced outside the activity layer.
func Classify(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindFatal
}

// Transient wraps err as a retryable failure.
func Transient(activity string, err error) *Error {
	return &Error{Kind: KindTransient, Activity: activity, Err: err}
}

// Timeout wraps err as a deadline failure.
func Timeout(activity string, err error) *Error {
	return &Error{Kind: KindTimeout, Activity: activity, Err: err}
}

// Rejected wraps err as a permanent refusal.
func Rejected(activity string, err error) *Error {
	return &Error{Kind: KindRejected, Activity: activity, Err: err}
}

// Fatal wraps err as an unrecoverable failure.
func Fatal(activity string, err error) *Error {
	return &Error{Kind: KindFatal, Activity: activity, Err: err}
}
