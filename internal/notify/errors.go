package notify

import (
	"errors"
	"fmt"

	"textalert/pkg/models"
)

// Common notification errors
var (
	// ErrSendFailed is returned when the mail-dispatch service rejects or fails a send.
	ErrSendFailed = errors.New("mail dispatch failed")

	// ErrEmptyText is returned when a notification is requested without extracted text.
	ErrEmptyText = errors.New("extracted text is empty")

	// ErrInvalidMessage is returned when a message lacks a sender or recipient.
	ErrInvalidMessage = errors.New("invalid notification message")

	// ErrMissingCredentials is returned when the OAuth client credentials are incomplete.
	ErrMissingCredentials = errors.New("missing mail OAuth credentials")
)

// NotificationError wraps a dispatch failure for a single object.
type NotificationError struct {
	// Op is the operation that failed (e.g., "Notify", "Send").
	Op string

	// Ref is the object the notification was about.
	Ref models.ObjectReference

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *NotificationError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("notify: %s failed for %s: %s: %v", e.Op, e.Ref, e.Details, e.Err)
	}
	return fmt.Sprintf("notify: %s failed for %s: %v", e.Op, e.Ref, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *NotificationError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *NotificationError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewNotificationError creates a new NotificationError for ref.
func NewNotificationError(op string, ref models.ObjectReference, err error, details string) *NotificationError {
	return &NotificationError{
		Op:      op,
		Ref:     ref,
		Err:     err,
		Details: details,
	}
}
