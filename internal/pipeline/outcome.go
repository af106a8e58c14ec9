package pipeline

import (
	"errors"
	"time"

	"textalert/internal/detection"
	"textalert/internal/event"
	"textalert/internal/notify"
	"textalert/pkg/models"
)

// ErrBatchUndecodable is returned when every record of a non-empty batch fails
// decoding, which is treated as a systemic failure of the invocation.
var ErrBatchUndecodable = errors.New("no record in the batch could be decoded")

// OutcomeKind enumerates what happened to one record.
type OutcomeKind string

const (
	OutcomeSkipped           OutcomeKind = "skipped"
	OutcomeNoDetection       OutcomeKind = "no-detection"
	OutcomeDetectedEmpty     OutcomeKind = "detected-empty"
	OutcomeNotified          OutcomeKind = "notified"
	OutcomeDecodeError       OutcomeKind = "decode-error"
	OutcomeDetectionError    OutcomeKind = "detection-error"
	OutcomeNotificationError OutcomeKind = "notification-error"
)

// Failed reports whether the outcome is one of the error kinds.
func (k OutcomeKind) Failed() bool {
	switch k {
	case OutcomeDecodeError, OutcomeDetectionError, OutcomeNotificationError:
		return true
	}
	return false
}

// Outcome is the result of processing one record.
type Outcome struct {
	Index      int                    `json:"index"`
	Ref        models.ObjectReference `json:"ref"`
	Kind       OutcomeKind            `json:"outcome"`
	Err        error                  `json:"-"`
	Error      string                 `json:"error,omitempty"`
	TextLength int                    `json:"text_length,omitempty"`
	Duration   time.Duration          `json:"duration"`
}

// Summary aggregates the outcomes of one invocation, in batch order.
type Summary struct {
	InvocationID string         `json:"invocation_id"`
	Outcomes     []Outcome      `json:"outcomes"`
	Counts       map[string]int `json:"counts"`
	StartedAt    time.Time      `json:"started_at"`
	Duration     time.Duration  `json:"duration"`
}

// Count returns the number of outcomes of kind.
func (s *Summary) Count(kind OutcomeKind) int {
	return s.Counts[string(kind)]
}

// Failures returns the number of failed records.
func (s *Summary) Failures() int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Kind.Failed() {
			n++
		}
	}
	return n
}

func (s *Summary) tally() {
	s.Counts = make(map[string]int)
	for _, o := range s.Outcomes {
		s.Counts[string(o.Kind)]++
	}
}

// classify maps a record error onto its outcome kind.
func classify(err error) OutcomeKind {
	var decodeErr *event.DecodeError
	var detErr *detection.DetectionError
	var notifyErr *notify.NotificationError

	switch {
	case errors.As(err, &decodeErr):
		return OutcomeDecodeError
	case errors.As(err, &notifyErr):
		return OutcomeNotificationError
	case errors.As(err, &detErr):
		return OutcomeDetectionError
	default:
		// Context expiry before a record started counts against detection,
		// the first remote call the record would have made.
		return OutcomeDetectionError
	}
}
