package vision

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/rekognition"
	"github.com/aws/aws-sdk-go/service/rekognition/rekognitioniface"
	"github.com/rs/zerolog"

	"textalert/internal/logger"
	"textalert/pkg/models"
)

// textTypeLine marks a whole line in Rekognition text detections; words are
// reported separately and would duplicate the text.
const textTypeLine = rekognition.TextTypesLine

// Rekognition implements Client using AWS Rekognition on S3 objects.
type Rekognition struct {
	client        rekognitioniface.RekognitionAPI
	maxLabels     int64
	minConfidence float64
	log           zerolog.Logger
}

// NewRekognition creates a Rekognition backend from an AWS session.
func NewRekognition(sess *session.Session, cfg Config) *Rekognition {
	return NewRekognitionWithClient(rekognition.New(sess), cfg)
}

// NewRekognitionWithClient creates a Rekognition backend with an explicit client (for testing).
func NewRekognitionWithClient(client rekognitioniface.RekognitionAPI, cfg Config) *Rekognition {
	return &Rekognition{
		client:        client,
		maxLabels:     cfg.MaxLabels,
		minConfidence: cfg.MinConfidence,
		log:           logger.WithComponent("rekognition"),
	}
}

// DetectLabels classifies the object in place on S3.
func (r *Rekognition) DetectLabels(ctx context.Context, ref models.ObjectReference) ([]models.Label, error) {
	const op = "DetectLabels"

	input := &rekognition.DetectLabelsInput{Image: s3Image(ref)}
	if r.maxLabels > 0 {
		input.MaxLabels = aws.Int64(r.maxLabels)
	}
	if r.minConfidence > 0 {
		input.MinConfidence = aws.Float64(r.minConfidence)
	}

	out, err := r.client.DetectLabelsWithContext(ctx, input)
	if err != nil {
		return nil, WrapVisionError(ProviderRekognition, op, err, ref.String())
	}

	labels := make([]models.Label, 0, len(out.Labels))
	for _, l := range out.Labels {
		if l == nil {
			continue
		}
		labels = append(labels, models.Label{
			Name:       aws.StringValue(l.Name),
			Confidence: aws.Float64Value(l.Confidence),
		})
	}

	r.log.Debug().
		Str("object", ref.String()).
		Int("labels", len(labels)).
		Msg("Rekognition labels received")

	return labels, nil
}

// DetectText returns the detected lines joined with newlines, in the order
// Rekognition reports them.
func (r *Rekognition) DetectText(ctx context.Context, ref models.ObjectReference) (string, error) {
	const op = "DetectText"

	out, err := r.client.DetectTextWithContext(ctx, &rekognition.DetectTextInput{Image: s3Image(ref)})
	if err != nil {
		return "", WrapVisionError(ProviderRekognition, op, err, ref.String())
	}

	var lines []string
	for _, d := range out.TextDetections {
		if d == nil || aws.StringValue(d.Type) != textTypeLine {
			continue
		}
		lines = append(lines, aws.StringValue(d.DetectedText))
	}

	return strings.Join(lines, "\n"), nil
}

// Close is a no-op; the AWS client holds no connections that need releasing.
func (r *Rekognition) Close() error {
	return nil
}

func s3Image(ref models.ObjectReference) *rekognition.Image {
	obj := &rekognition.S3Object{
		Bucket: aws.String(ref.Bucket),
		Name:   aws.String(ref.Key),
	}
	if ref.Version != "" {
		obj.Version = aws.String(ref.Version)
	}
	return &rekognition.Image{S3Object: obj}
}
