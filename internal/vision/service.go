// Package vision provides the vision-analysis collaborators used for text
// detection.
//
// Two backends are supported:
//   - rekognition (default): AWS Rekognition reads the image straight from S3.
//   - google: Google Cloud Vision, fed with object bytes downloaded from S3.
//
// Required Environment Variables (rekognition):
//   - AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY: access credential pair. When
//     empty the AWS default credential chain is used (e.g. the Lambda role).
//   - AWS_REGION: region of the Rekognition endpoint and the bucket.
//
// Additional Environment Variables (google):
//   - GOOGLE_APPLICATION_CREDENTIALS: Path to service account JSON file, OR
//   - GOOGLE_CREDENTIALS: Inline JSON credentials string
package vision

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"

	"textalert/internal/storage"
	"textalert/pkg/models"
)

// Provider names accepted by New.
const (
	ProviderRekognition = "rekognition"
	ProviderGoogle      = "google"
)

// Client is a vision-analysis backend.
type Client interface {
	// DetectLabels returns the image labels in provider order.
	DetectLabels(ctx context.Context, ref models.ObjectReference) ([]models.Label, error)

	// DetectText returns the text lines found in the image, joined by newlines.
	DetectText(ctx context.Context, ref models.ObjectReference) (string, error)

	// Close releases the underlying connections.
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Provider string

	// AWS settings, shared by Rekognition and the S3 fetcher.
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// Google settings.
	GoogleCredentialsJSON string
	GoogleCredentialsFile string

	// MaxLabels caps the number of labels requested (0 = provider default).
	MaxLabels int64

	// MinConfidence drops labels below this confidence in percent (0 = provider default).
	MinConfidence float64
}

// New creates the backend named by cfg.Provider.
func New(ctx context.Context, cfg Config) (Client, error) {
	const op = "New"

	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = ProviderRekognition
	}

	sess, err := NewAWSSession(cfg)
	if err != nil {
		return nil, WrapVisionError(provider, op, err, "failed to create AWS session")
	}

	switch provider {
	case ProviderRekognition:
		return NewRekognition(sess, cfg), nil
	case ProviderGoogle:
		return NewGoogleVision(ctx, cfg, storage.NewS3Fetcher(sess))
	default:
		return nil, WrapVisionError(provider, op, ErrUnknownProvider, "expected rekognition or google")
	}
}

// NewAWSSession builds a session from the static credential pair in cfg, or
// from the default credential chain when no pair is configured.
func NewAWSSession(cfg Config) (*session.Session, error) {
	awsCfg := aws.NewConfig()
	if cfg.Region != "" {
		awsCfg = awsCfg.WithRegion(cfg.Region)
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg = awsCfg.WithCredentials(credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken))
	}

	return session.NewSessionWithOptions(session.Options{
		Config:            *awsCfg,
		SharedConfigState: session.SharedConfigEnable,
	})
}
