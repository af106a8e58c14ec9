// Package detection decides whether a stored image carries text and, if so,
// extracts it.
//
// Detection is a two step query against a vision-analysis collaborator:
//
//  1. DetectLabels classifies the image. This call is cheap and acts as a filter.
//  2. Only if a label named exactly "Text" is present, DetectText extracts the
//     full text of the image.
//
// Images without a "Text" label cost one remote call and produce no result.
package detection

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"textalert/internal/logger"
	"textalert/pkg/models"
)

// DefaultTextLabel is the label name that triggers text extraction.
const DefaultTextLabel = "Text"

// VisionClient is the vision-analysis collaborator consumed by the Detector.
type VisionClient interface {
	// DetectLabels returns the labels for the object in provider order.
	DetectLabels(ctx context.Context, ref models.ObjectReference) ([]models.Label, error)

	// DetectText returns the text found in the object.
	DetectText(ctx context.Context, ref models.ObjectReference) (string, error)
}

// Result is the outcome of a detection run for one object.
type Result struct {
	// Detected is true when a text label was found and extraction ran.
	Detected bool `json:"detected"`

	// Label is the matching label, nil when Detected is false.
	Label *models.Label `json:"label,omitempty"`

	// Text is the extracted text. Empty when Detected is false, and may be
	// empty when the provider labelled the image but found no readable text.
	Text string `json:"text,omitempty"`

	// Labels holds every label returned by label detection.
	Labels []models.Label `json:"labels"`
}

// Detector runs the label filter and text extraction for single objects.
// It holds no per-object state and is safe for concurrent use when the
// underlying VisionClient is.
type Detector struct {
	client      VisionClient
	textLabel   string
	callTimeout time.Duration
	log         zerolog.Logger
}

// Option configures a Detector.
type Option func(*Detector)

// WithTextLabel overrides the label name that triggers extraction.
func WithTextLabel(name string) Option {
	return func(d *Detector) {
		if name != "" {
			d.textLabel = name
		}
	}
}

// WithCallTimeout bounds each remote call. Zero leaves calls bounded only by
// the caller's context.
func WithCallTimeout(timeout time.Duration) Option {
	return func(d *Detector) {
		d.callTimeout = timeout
	}
}

// NewDetector creates a Detector backed by client.
func NewDetector(client VisionClient, opts ...Option) *Detector {
	d := &Detector{
		client:    client,
		textLabel: DefaultTextLabel,
		log:       logger.WithComponent("detection"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// TextLabel returns the label name that triggers extraction.
func (d *Detector) TextLabel() string {
	return d.textLabel
}

// Detect classifies ref and extracts its text when a text label is present.
// A missing text label is not an error: the result has Detected set to false.
func (d *Detector) Detect(ctx context.Context, ref models.ObjectReference) (*Result, error) {
	labelCtx, cancel := d.callContext(ctx)
	labels, err := d.client.DetectLabels(labelCtx, ref)
	cancel()
	if err != nil {
		return nil, NewDetectionError("DetectLabels", ref, fmt.Errorf("%w: %w", ErrLabelDetectionFailed, err), "")
	}

	d.log.Debug().
		Str("bucket", ref.Bucket).
		Str("key", ref.Key).
		Int("labels", len(labels)).
		Msg("Label detection completed")

	result := &Result{Labels: labels}

	label, found := FindLabel(labels, d.textLabel)
	if !found {
		return result, nil
	}

	textCtx, cancel := d.callContext(ctx)
	text, err := d.client.DetectText(textCtx, ref)
	cancel()
	if err != nil {
		return nil, NewDetectionError("DetectText", ref, fmt.Errorf("%w: %w", ErrTextDetectionFailed, err),
			fmt.Sprintf("label %q confidence %.2f", label.Name, label.Confidence))
	}

	d.log.Debug().
		Str("bucket", ref.Bucket).
		Str("key", ref.Key).
		Int("text_length", len(text)).
		Msg("Text detection completed")

	result.Detected = true
	result.Label = &label
	result.Text = text

	return result, nil
}

func (d *Detector) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.callTimeout > 0 {
		return context.WithTimeout(ctx, d.callTimeout)
	}
	return context.WithCancel(ctx)
}

// FindLabel returns the first label whose name equals name exactly
// (case-sensitive). The search stops at the first match, so when a provider
// returns duplicates the earliest one wins.
func FindLabel(labels []models.Label, name string) (models.Label, bool) {
	for _, l := range labels {
		if l.Name == name {
			return l, true
		}
	}
	return models.Label{}, false
}
