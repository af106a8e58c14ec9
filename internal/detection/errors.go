package detection

import (
	"errors"
	"fmt"

	"textalert/pkg/models"
)

// Common detection errors
var (
	// ErrLabelDetectionFailed is returned when the label detection call fails
	// (network, auth, throttling, unreadable object).
	ErrLabelDetectionFailed = errors.New("label detection failed")

	// ErrTextDetectionFailed is returned when the text extraction call fails.
	ErrTextDetectionFailed = errors.New("text detection failed")
)

// DetectionError wraps a vision-analysis failure for a single object.
type DetectionError struct {
	// Op is the operation that failed (e.g., "DetectLabels", "DetectText").
	Op string

	// Ref is the object being analysed.
	Ref models.ObjectReference

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *DetectionError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("detection: %s failed for %s: %s: %v", e.Op, e.Ref, e.Details, e.Err)
	}
	return fmt.Sprintf("detection: %s failed for %s: %v", e.Op, e.Ref, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *DetectionError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *DetectionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewDetectionError creates a new DetectionError for ref.
func NewDetectionError(op string, ref models.ObjectReference, err error, details string) *DetectionError {
	return &DetectionError{
		Op:      op,
		Ref:     ref,
		Err:     err,
		Details: details,
	}
}
