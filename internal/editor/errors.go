package editor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/signflow/internal/model"
	"github.com/roach88/signflow/internal/syncer"
)

// ErrorCode categorizes editor errors.
type ErrorCode string

const (
	// ErrCodeValidation indicates signer rows with missing or malformed contact data.
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeNetwork indicates a failed call to the persistence service.
	ErrCodeNetwork ErrorCode = "NETWORK"

	// ErrCodeNotFound indicates an unknown agreement id.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeReconciliationMismatch indicates a server id for a uid that no longer exists.
	ErrCodeReconciliationMismatch ErrorCode = "RECONCILIATION_MISMATCH"

	// ErrCodeInvalidAction indicates an action that cannot apply to the current state.
	ErrCodeInvalidAction ErrorCode = "INVALID_ACTION"
)

// Error is returned by Session operations. No Error is fatal to the session.
type Error struct {
	Code    ErrorCode
	Message string

	// Stream is set for network errors.
	Stream syncer.Stream

	// UID names the entity involved, when there is one.
	UID model.UID

	// Issues lists the offending rows for validation errors.
	Issues []model.RowIssue

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	switch {
	case e.Stream != "" && e.UID != "":
		fmt.Fprintf(&b, " (stream=%s, uid=%s)", e.Stream, e.UID)
	case e.Stream != "":
		fmt.Fprintf(&b, " (stream=%s)", e.Stream)
	case e.UID != "":
		fmt.Fprintf(&b, " (uid=%s)", e.UID)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	return hasCode(err, ErrCodeValidation)
}

// IsNetwork reports whether err is a network error.
func IsNetwork(err error) bool {
	return hasCode(err, ErrCodeNetwork)
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsInvalidAction reports whether err is an invalid-action error.
func IsInvalidAction(err error) bool {
	return hasCode(err, ErrCodeInvalidAction)
}

func invalidAction(uid model.UID, err error, format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeInvalidAction,
		Message: fmt.Sprintf(format, args...),
		UID:     uid,
		Err:     err,
	}
}

func validationError(issues []model.RowIssue) *Error {
	msgs := make([]string, len(issues))
	for i, issue := range issues {
		msgs[i] = issue.String()
	}
	return &Error{
		Code:    ErrCodeValidation,
		Message: strings.Join(msgs, "; "),
		Issues:  issues,
	}
}
