// Package notify composes and dispatches the email sent for every image in
// which text was detected.
//
// The subject encodes the object identity (bucket, key, version) and the body
// is the extracted text, unmodified. Messages contain no timestamps or
// counters, so the same object and text always yield the same message.
package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"textalert/internal/logger"
	"textalert/pkg/models"
)

const (
	// DefaultSubjectPrefix starts every notification subject.
	DefaultSubjectPrefix = "Text detected"

	// ContentTypePlain is the content type of notification bodies.
	ContentTypePlain = `text/plain; charset="UTF-8"`

	// noVersion stands in for the version of non-versioned objects.
	noVersion = "-"
)

// Mailer is the mail-dispatch collaborator: a single-message send operation.
type Mailer interface {
	Send(ctx context.Context, msg models.NotificationMessage) error
}

// Options holds the fixed parts of every notification.
type Options struct {
	Sender        string
	Recipient     string
	SubjectPrefix string
}

// Subject renders the subject line for ref. The bucket, key and version appear
// literally so the recipient can trace the triggering object.
func Subject(prefix string, ref models.ObjectReference) string {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	version := ref.Version
	if version == "" {
		version = noVersion
	}
	return fmt.Sprintf("%s: bucket=%s key=%s version=%s", prefix, ref.Bucket, ref.Key, version)
}

// ComposeMessage builds the notification for ref with text as the body.
func ComposeMessage(ref models.ObjectReference, text string, opts Options) models.NotificationMessage {
	return models.NotificationMessage{
		Recipient:   opts.Recipient,
		Sender:      opts.Sender,
		Subject:     Subject(opts.SubjectPrefix, ref),
		Body:        text,
		ContentType: ContentTypePlain,
	}
}

// Notifier sends one message per positive detection.
type Notifier struct {
	mailer Mailer
	opts   Options
	log    zerolog.Logger
}

// NewNotifier creates a Notifier dispatching through mailer.
func NewNotifier(mailer Mailer, opts Options) *Notifier {
	return &Notifier{
		mailer: mailer,
		opts:   opts,
		log:    logger.WithComponent("notify"),
	}
}

// Notify composes and sends the notification for ref. Text must be non-empty.
func (n *Notifier) Notify(ctx context.Context, ref models.ObjectReference, text string) error {
	const op = "Notify"

	if text == "" {
		return NewNotificationError(op, ref, ErrEmptyText, "")
	}

	msg := ComposeMessage(ref, text, n.opts)
	if msg.Sender == "" || msg.Recipient == "" {
		return NewNotificationError(op, ref, ErrInvalidMessage, "sender and recipient are required")
	}

	if err := n.mailer.Send(ctx, msg); err != nil {
		return NewNotificationError(op, ref, fmt.Errorf("%w: %w", ErrSendFailed, err), "recipient "+msg.Recipient)
	}

	n.log.Debug().
		Str("object", ref.String()).
		Str("recipient", msg.Recipient).
		Int("body_length", len(msg.Body)).
		Msg("Notification sent")

	return nil
}
