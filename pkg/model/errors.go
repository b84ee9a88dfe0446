package model

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownContent  = errors.New("unknown content")
	ErrNotSubject      = errors.New("content is not a subject")
	ErrAlreadySelected = errors.New("content is already selected")
	ErrNotSelected     = errors.New("content is not selected")
	ErrNotForced       = errors.New("subject has no forced time")
	ErrNotOffered      = errors.New("subject is not offered in that session")
	ErrInvalidTime     = errors.New("invalid time")
	ErrInvalidCapacity = errors.New("invalid capacity")
)

// InvariantError signals a defect in the planning algorithms rather than a
// problem with the user's choices.
type InvariantError struct {
	Message string
}

func (err *InvariantError) Error() string {
	return "invariant violation: " + err.Message
}

func invariantf(format string, args ...any) {
	panic(&InvariantError{Message: fmt.Sprintf(format, args...)})
}

// recoverInvariant turns an InvariantError panic into a returned error. Any
// other panic is propagated.
func recoverInvariant(err *error) {
	recovered := recover()
	if recovered == nil {
		return
	}
	if invariant, ok := recovered.(*InvariantError); ok {
		*err = invariant
		return
	}
	panic(recovered)
}
