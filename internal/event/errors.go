package event

import (
	"errors"
	"fmt"
)

// Common decoding errors
var (
	// ErrInvalidPayload is returned when the notification payload is not a JSON
	// object carrying a Records list. This fails the whole invocation.
	ErrInvalidPayload = errors.New("invalid notification payload")

	// ErrMissingField is returned when a required field of a record is empty or absent.
	ErrMissingField = errors.New("missing required field")

	// ErrMalformedRecord is returned when a single record cannot be parsed at all.
	ErrMalformedRecord = errors.New("malformed notification record")

	// ErrInvalidKey is returned when an object key cannot be URL-decoded.
	ErrInvalidKey = errors.New("object key is not valid URL encoding")
)

// DecodeError reports a record that could not be turned into an object reference.
// It is scoped to one record; sibling records are unaffected.
type DecodeError struct {
	// Index is the position of the record in the batch.
	Index int

	// Field is the field path that failed (e.g., "s3.bucket.name").
	Field string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("event: record %d: %s: %v", e.Index, e.Field, e.Err)
	}
	return fmt.Sprintf("event: record %d: %v", e.Index, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *DecodeError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewDecodeError creates a new DecodeError for the record at index.
func NewDecodeError(index int, field string, err error) *DecodeError {
	return &DecodeError{
		Index: index,
		Field: field,
		Err:   err,
	}
}
