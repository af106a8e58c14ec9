package vision

import (
	"errors"
	"fmt"
)

// Common vision provider errors
var (
	// ErrUnknownProvider is returned when VISION_PROVIDER names no known backend.
	ErrUnknownProvider = errors.New("unknown vision provider")

	// ErrMissingCredentials is returned when a provider cannot find usable credentials.
	ErrMissingCredentials = errors.New("missing vision provider credentials")

	// ErrEmptyResponse is returned when a provider answers without a result.
	ErrEmptyResponse = errors.New("empty response from vision provider")
)

// VisionError wraps errors with the provider and operation that produced them.
type VisionError struct {
	// Provider is the backend name ("rekognition", "google").
	Provider string

	// Op is the operation that failed (e.g., "DetectLabels", "NewSession").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *VisionError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("vision/%s: %s failed: %s: %v", e.Provider, e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("vision/%s: %s failed: %v", e.Provider, e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *VisionError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *VisionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapVisionError wraps an error as a VisionError if it isn't already one.
func WrapVisionError(provider, op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var visionErr *VisionError
	if errors.As(err, &visionErr) {
		return err
	}

	return &VisionError{
		Provider: provider,
		Op:       op,
		Err:      err,
		Details:  details,
	}
}
