package contracts

import (
	"errors"
	"fmt"
)

// ErrNotFound reports an unknown plan or approval ID. It surfaces to
// the caller unchanged.
var ErrNotFound = errors.New("not found")

// ErrAlreadyPending reports a violation of the at-most-one-pending
// approval invariant.
var ErrAlreadyPending = errors.New("approval already pending")

// ErrExecutionExists reports a duplicate execution record for a plan
// ID that already entered the workflow.
var ErrExecutionExists = errors.New("execution already exists")

// ValidationError reports a malformed request, rejected before any
// state is created.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: field %q %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
