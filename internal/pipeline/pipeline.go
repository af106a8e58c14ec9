// Package pipeline ties the event decoder, the text detector and the notifier
// together for one invocation.
//
// Every invocation goes Decoding → PerRecord* → Done. Records are independent:
// a failure in one record is logged with its outcome kind and never stops or
// cancels the processing of its siblings. The invocation itself only fails on
// systemic conditions (unparseable payload, or no record decodable at all).
package pipeline

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"textalert/internal/detection"
	"textalert/internal/event"
	"textalert/internal/logger"
	"textalert/pkg/models"
)

// TextDetector finds and extracts text in one object.
type TextDetector interface {
	Detect(ctx context.Context, ref models.ObjectReference) (*detection.Result, error)
}

// Notifier dispatches the notification for one positive detection.
type Notifier interface {
	Notify(ctx context.Context, ref models.ObjectReference, text string) error
}

// Recorder persists the outcomes of an invocation outside the logs.
type Recorder interface {
	RecordOutcomes(ctx context.Context, summary *Summary) error
}

// Pipeline processes notification batches. The collaborators are created once
// per execution context and reused by every invocation.
type Pipeline struct {
	detector TextDetector
	notifier Notifier
	recorder Recorder
	workers  int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWorkers sets the number of records processed in parallel. Values below
// one mean sequential processing.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithRecorder adds an outcome recorder. Recording failures are logged only.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) {
		p.recorder = r
	}
}

// New creates a Pipeline.
func New(detector TextDetector, notifier Notifier, opts ...Option) *Pipeline {
	p := &Pipeline{
		detector: detector,
		notifier: notifier,
		workers:  1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Response is returned to the invoking platform.
type Response struct {
	OK           bool           `json:"ok"`
	InvocationID string         `json:"invocation_id"`
	Records      int            `json:"records"`
	Counts       map[string]int `json:"counts"`
}

// Handler is the Lambda entry point. It receives the raw notification so that
// decoding happens here, record by record, rather than in the runtime.
func (p *Pipeline) Handler(ctx context.Context, payload json.RawMessage) (Response, error) {
	summary, err := p.ProcessPayload(ctx, payload)
	if err != nil {
		return Response{}, err
	}
	return Response{
		OK:           true,
		InvocationID: summary.InvocationID,
		Records:      len(summary.Outcomes),
		Counts:       summary.Counts,
	}, nil
}

// ProcessPayload parses a raw notification batch and processes it.
func (p *Pipeline) ProcessPayload(ctx context.Context, payload []byte) (*Summary, error) {
	records, err := event.ParseBatch(payload)
	if err != nil {
		id := invocationID(ctx)
		log := logger.WithInvocationID("pipeline", id)
		log.Error().Err(err).Msg("Notification batch could not be parsed")
		return nil, err
	}
	return p.Process(ctx, records)
}

// ProcessEvent processes an already unmarshalled batch.
func (p *Pipeline) ProcessEvent(ctx context.Context, batch events.S3Event) (*Summary, error) {
	return p.Process(ctx, event.Decode(batch))
}

// recordJob is one decoded record queued for a worker
type recordJob struct {
	record event.Record
}

// Process runs detection and notification for every decoded record and
// returns the per-record outcomes in batch order.
func (p *Pipeline) Process(ctx context.Context, records []event.Record) (*Summary, error) {
	summary := &Summary{
		InvocationID: invocationID(ctx),
		Outcomes:     make([]Outcome, len(records)),
		StartedAt:    time.Now(),
	}
	log := logger.WithInvocationID("pipeline", summary.InvocationID)

	log.Info().
		Int("records", len(records)).
		Int("workers", p.workers).
		Msg("Processing notification batch")

	workers := p.workers
	if workers > len(records) {
		workers = len(records)
	}

	jobs := make(chan recordJob, len(records))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for job := range jobs {
				outcome := p.processRecord(ctx, job.record)

				// Each index is written by exactly one worker
				summary.Outcomes[job.record.Index] = outcome
				logOutcome(log, workerID, outcome)
			}
		}(w)
	}

	for i, rec := range records {
		rec.Index = i
		jobs <- recordJob{record: rec}
	}
	close(jobs)
	wg.Wait()

	summary.Duration = time.Since(summary.StartedAt)
	summary.tally()

	log.Info().
		Int("records", len(records)).
		Int("notified", summary.Count(OutcomeNotified)).
		Int("no_detection", summary.Count(OutcomeNoDetection)).
		Int("skipped", summary.Count(OutcomeSkipped)).
		Int("failures", summary.Failures()).
		Dur("duration", summary.Duration).
		Msg("Notification batch completed")

	if p.recorder != nil {
		if err := p.recorder.RecordOutcomes(ctx, summary); err != nil {
			log.Warn().Err(err).Msg("Failed to record outcomes, continuing anyway")
		}
	}

	if len(records) > 0 && summary.Count(OutcomeDecodeError) == len(records) {
		return summary, ErrBatchUndecodable
	}

	return summary, nil
}

// processRecord runs one record to completion. It never cancels anything
// shared with other records.
func (p *Pipeline) processRecord(ctx context.Context, rec event.Record) Outcome {
	start := time.Now()
	outcome := Outcome{Index: rec.Index, Ref: rec.Ref}

	finish := func(kind OutcomeKind, err error) Outcome {
		outcome.Kind = kind
		if err != nil {
			outcome.Err = err
			outcome.Error = err.Error()
		}
		outcome.Duration = time.Since(start)
		return outcome
	}

	if rec.Err != nil {
		return finish(OutcomeDecodeError, rec.Err)
	}
	if rec.Skipped {
		return finish(OutcomeSkipped, nil)
	}

	// The platform budget ran out before this record started
	if err := ctx.Err(); err != nil {
		return finish(classify(err), err)
	}

	result, err := p.detector.Detect(ctx, rec.Ref)
	if err != nil {
		return finish(classify(err), err)
	}
	if result == nil || !result.Detected {
		return finish(OutcomeNoDetection, nil)
	}

	outcome.TextLength = len(result.Text)
	if result.Text == "" {
		return finish(OutcomeDetectedEmpty, nil)
	}

	if err := p.notifier.Notify(ctx, rec.Ref, result.Text); err != nil {
		return finish(classify(err), err)
	}

	return finish(OutcomeNotified, nil)
}

func logOutcome(log zerolog.Logger, workerID int, o Outcome) {
	l := logger.WithObject(log, o.Ref)

	var e *zerolog.Event
	if o.Kind.Failed() {
		e = l.Error().Err(o.Err).Str("error_kind", ErrorKind(o.Err))
	} else {
		e = l.Info()
	}

	e.Int("index", o.Index).
		Int("worker", workerID).
		Str("outcome", string(o.Kind)).
		Int("text_length", o.TextLength).
		Dur("duration", o.Duration).
		Msg("Record processed")
}

// ErrorKind names the typed error of a failed record for log queries.
func ErrorKind(err error) string {
	switch classify(err) {
	case OutcomeDecodeError:
		return "DecodeError"
	case OutcomeNotificationError:
		return "NotificationError"
	}
	return "DetectionError"
}

func invocationID(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	return uuid.NewString()
}
