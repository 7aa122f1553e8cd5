package bdd

import (
	"errors"
	"fmt"
)

// ErrPending marks a step whose feature is intentionally not implemented yet.
// Return it (or an error built with Pending) from a step to report the step as
// pending instead of failed.
var ErrPending = errors.New("pending")

// PendingError carries the reason a step is pending.
type PendingError struct {
	Reason string
}

func (e *PendingError) Error() string {
	if e.Reason == "" {
		return "pending"
	}
	return "pending: " + e.Reason
}

// Is makes errors.Is(err, ErrPending) true for every PendingError.
func (e *PendingError) Is(target error) bool {
	return target == ErrPending
}

// Pending returns the error a step returns when its feature does not exist yet.
func Pending(reason string) error {
	return &PendingError{Reason: reason}
}

// IsPending reports whether err signals a pending step, and why.
func IsPending(err error) (string, bool) {
	var pe *PendingError
	if errors.As(err, &pe) {
		return pe.Reason, true
	}
	if errors.Is(err, ErrPending) {
		return "", true
	}
	return "", false
}

// AssertionError is raised by Assert, Data.MustGet and Row.Get. The executor
// recovers it and marks the step failed.
type AssertionError struct {
	Message  string
	Expected any
	Actual   any
	HasDiff  bool
}

func (e *AssertionError) Error() string {
	if !e.HasDiff {
		return e.Message
	}
	return fmt.Sprintf("%s\n\texpected: %v\n\tactual:   %v", e.Message, e.Expected, e.Actual)
}

func fail(msg string) {
	panic(&AssertionError{Message: msg})
}

func failDiff(msg string, expected, actual any) {
	panic(&AssertionError{Message: msg, Expected: expected, Actual: actual, HasDiff: true})
}
