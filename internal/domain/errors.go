package domain

import (
	"errors"
	"fmt"
)

// ErrKind classifies action failures for retry policy and UI reporting.
type ErrKind string

const (
	ErrKindAuth        ErrKind = "auth"
	ErrKindValidation  ErrKind = "validation"
	ErrKindTimeout     ErrKind = "timeout"
	ErrKindNetwork     ErrKind = "network"
	ErrKindEmptyResult ErrKind = "empty_result"
	ErrKindCancelled   ErrKind = "cancelled"
	ErrKindInternal    ErrKind = "internal"
)

// ErrCancelled marks deliberate user cancellation. It is a normal termination
// path, not a reportable failure.
var ErrCancelled = &ActionError{Kind: ErrKindCancelled, Message: "cancelled by user"}

// ActionError carries a classified failure through the action pipeline.
type ActionError struct {
	Kind    ErrKind
	Message string
	Err     error
}

func (e *ActionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ActionError) Unwrap() error { return e.Err }

// Is matches any ActionError of the same kind, so sentinel comparisons like
// errors.Is(err, ErrCancelled) work across wrapping.
func (e *ActionError) Is(target error) bool {
	var other *ActionError
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}

// NewError builds a classified action error wrapping an optional cause.
func NewError(kind ErrKind, message string, err error) *ActionError {
	return &ActionError{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the error kind, defaulting to internal for unclassified errors.
func KindOf(err error) ErrKind {
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ErrKindInternal
}

// Retryable reports whether the request controller may retry after this error.
func Retryable(err error) bool {
	switch KindOf(err) {
	case ErrKindTimeout, ErrKindNetwork:
		return true
	default:
		return false
	}
}
