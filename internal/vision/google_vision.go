package vision

import (
	"context"
	"fmt"
	"os"

	gvision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"textalert/internal/logger"
	"textalert/internal/storage"
	"textalert/pkg/models"
)

// imageAnnotator is the subset of the Cloud Vision client used here.
type imageAnnotator interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
	Close() error
}

// GoogleVision implements Client using Google Cloud Vision API. Images are
// downloaded from S3 and sent inline.
type GoogleVision struct {
	client    imageAnnotator
	fetcher   storage.Fetcher
	objects   *objectCache
	maxLabels int32
	log       zerolog.Logger
}

// NewGoogleVision creates a Google Vision backend. Credentials are taken from
// cfg first and then from GOOGLE_CREDENTIALS / GOOGLE_APPLICATION_CREDENTIALS.
func NewGoogleVision(ctx context.Context, cfg Config, fetcher storage.Fetcher) (*GoogleVision, error) {
	const op = "NewGoogleVision"

	credJSON := cfg.GoogleCredentialsJSON
	if credJSON == "" {
		credJSON = os.Getenv("GOOGLE_CREDENTIALS")
	}
	credFile := cfg.GoogleCredentialsFile
	if credFile == "" {
		credFile = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}

	var client *gvision.ImageAnnotatorClient
	var err error

	// Check for inline credentials first
	if credJSON != "" {
		client, err = gvision.NewImageAnnotatorClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
		if err != nil {
			return nil, WrapVisionError(ProviderGoogle, op, err, "failed to create client with GOOGLE_CREDENTIALS")
		}
	} else if credFile != "" {
		client, err = gvision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(credFile))
		if err != nil {
			return nil, WrapVisionError(ProviderGoogle, op, err, "failed to create client with GOOGLE_APPLICATION_CREDENTIALS")
		}
	} else {
		// Try default credentials as fallback
		client, err = gvision.NewImageAnnotatorClient(ctx)
		if err != nil {
			return nil, WrapVisionError(ProviderGoogle, op, ErrMissingCredentials, "no credentials found in environment")
		}
	}

	return newGoogleVisionWithClient(client, fetcher, cfg), nil
}

func newGoogleVisionWithClient(client imageAnnotator, fetcher storage.Fetcher, cfg Config) *GoogleVision {
	return &GoogleVision{
		client:    client,
		fetcher:   fetcher,
		objects:   newObjectCache(objectCacheSize),
		maxLabels: int32(cfg.MaxLabels),
		log:       logger.WithComponent("google-vision"),
	}
}

// DetectLabels runs LABEL_DETECTION on the object. Scores are reported as
// percentages to match Rekognition.
func (g *GoogleVision) DetectLabels(ctx context.Context, ref models.ObjectReference) ([]models.Label, error) {
	const op = "DetectLabels"

	content, err := g.fetch(ctx, op, ref, false)
	if err != nil {
		return nil, err
	}
	// Kept for the text call that follows a positive label
	g.objects.put(ref, content)

	resp, err := g.annotate(ctx, op, ref, content, &visionpb.Feature{
		Type:       visionpb.Feature_LABEL_DETECTION,
		MaxResults: g.maxLabels,
	})
	if err != nil {
		return nil, err
	}

	labels := make([]models.Label, 0, len(resp.LabelAnnotations))
	for _, a := range resp.LabelAnnotations {
		labels = append(labels, models.Label{
			Name:       a.GetDescription(),
			Confidence: float64(a.GetScore()) * 100,
		})
	}

	return labels, nil
}

// DetectText runs TEXT_DETECTION on the object and returns the full text.
func (g *GoogleVision) DetectText(ctx context.Context, ref models.ObjectReference) (string, error) {
	const op = "DetectText"

	content, err := g.fetch(ctx, op, ref, true)
	if err != nil {
		return "", err
	}

	resp, err := g.annotate(ctx, op, ref, content, &visionpb.Feature{Type: visionpb.Feature_TEXT_DETECTION})
	if err != nil {
		return "", err
	}

	if full := resp.GetFullTextAnnotation(); full != nil && full.GetText() != "" {
		return full.GetText(), nil
	}
	// The first annotation holds the whole text block
	if len(resp.TextAnnotations) > 0 {
		return resp.TextAnnotations[0].GetDescription(), nil
	}
	return "", nil
}

// fetch returns the object bytes, from the cache when the label call already
// downloaded them. take removes the cached copy.
func (g *GoogleVision) fetch(ctx context.Context, op string, ref models.ObjectReference, take bool) ([]byte, error) {
	var content []byte
	var ok bool
	if take {
		content, ok = g.objects.take(ref)
	} else {
		content, ok = g.objects.get(ref)
	}
	if ok {
		return content, nil
	}

	content, err := g.fetcher.Fetch(ctx, ref)
	if err != nil {
		return nil, WrapVisionError(ProviderGoogle, op, err, "failed to fetch object")
	}
	return content, nil
}

func (g *GoogleVision) annotate(ctx context.Context, op string, ref models.ObjectReference, content []byte, feature *visionpb.Feature) (*visionpb.AnnotateImageResponse, error) {
	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image:    &visionpb.Image{Content: content},
				Features: []*visionpb.Feature{feature},
			},
		},
	}

	resp, err := g.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, WrapVisionError(ProviderGoogle, op, err, fmt.Sprintf("Vision API call failed for %s", ref))
	}
	if len(resp.GetResponses()) == 0 {
		return nil, WrapVisionError(ProviderGoogle, op, ErrEmptyResponse, ref.String())
	}

	imgResp := resp.Responses[0]
	if imgResp.GetError() != nil {
		return nil, WrapVisionError(ProviderGoogle, op, fmt.Errorf("Vision API error: %s", imgResp.GetError().GetMessage()), ref.String())
	}

	g.log.Debug().
		Str("object", ref.String()).
		Str("feature", feature.GetType().String()).
		Int("bytes", len(content)).
		Msg("Vision annotation completed")

	return imgResp, nil
}

// Close closes the underlying Vision client.
func (g *GoogleVision) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
