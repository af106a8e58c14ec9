// Package storage reads the content of objects named by change notifications.
// Only the Google Vision backend needs object bytes; Rekognition reads
// directly from S3.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/rs/zerolog"

	"textalert/internal/logger"
	"textalert/pkg/models"
)

// MaxObjectSizeBytes is the largest object fetched into memory (20MB), which is
// also the inline image limit of the vision APIs.
const MaxObjectSizeBytes = 20 * 1024 * 1024

// ErrObjectTooLarge is returned when an object exceeds MaxObjectSizeBytes.
var ErrObjectTooLarge = errors.New("object exceeds maximum size limit (20MB)")

// Fetcher returns the content of a stored object.
type Fetcher interface {
	Fetch(ctx context.Context, ref models.ObjectReference) ([]byte, error)
}

// S3Fetcher downloads objects from S3 into memory.
type S3Fetcher struct {
	client     s3iface.S3API
	downloader s3manageriface.DownloaderAPI
	log        zerolog.Logger
}

// NewS3Fetcher creates a fetcher sharing the given AWS session.
func NewS3Fetcher(sess *session.Session) *S3Fetcher {
	return NewS3FetcherWithClients(s3.New(sess), s3manager.NewDownloader(sess))
}

// NewS3FetcherWithClients creates a fetcher with explicit clients (for testing).
func NewS3FetcherWithClients(client s3iface.S3API, downloader s3manageriface.DownloaderAPI) *S3Fetcher {
	return &S3Fetcher{
		client:     client,
		downloader: downloader,
		log:        logger.WithComponent("storage"),
	}
}

// Fetch downloads the exact object version named by ref.
func (f *S3Fetcher) Fetch(ctx context.Context, ref models.ObjectReference) ([]byte, error) {
	start := time.Now()

	head, err := f.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket:    aws.String(ref.Bucket),
		Key:       aws.String(ref.Key),
		VersionId: versionID(ref),
	})
	if err != nil {
		return nil, fmt.Errorf("storage: head %s: %w", ref, err)
	}

	size := aws.Int64Value(head.ContentLength)
	if size > MaxObjectSizeBytes {
		return nil, fmt.Errorf("storage: %s is %d bytes: %w", ref, size, ErrObjectTooLarge)
	}

	buf := aws.NewWriteAtBuffer(make([]byte, 0, size))
	n, err := f.downloader.DownloadWithContext(ctx, buf, &s3.GetObjectInput{
		Bucket:    aws.String(ref.Bucket),
		Key:       aws.String(ref.Key),
		VersionId: versionID(ref),
	})
	if err != nil {
		return nil, fmt.Errorf("storage: download %s: %w", ref, err)
	}

	f.log.Debug().
		Str("object", ref.String()).
		Int64("bytes", n).
		Dur("duration", time.Since(start)).
		Msg("Object downloaded")

	return buf.Bytes(), nil
}

func versionID(ref models.ObjectReference) *string {
	if ref.Version == "" {
		return nil
	}
	return aws.String(ref.Version)
}
