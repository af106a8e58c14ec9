package vision

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/rekognition"
	"github.com/aws/aws-sdk-go/service/rekognition/rekognitioniface"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/genproto/googleapis/rpc/status"

	"textalert/pkg/models"
)

var ref = models.ObjectReference{Bucket: "mybucket", Key: "input.jpeg", Version: "F6AB"}

type fakeRekognition struct {
	rekognitioniface.RekognitionAPI
	labels     *rekognition.DetectLabelsOutput
	text       *rekognition.DetectTextOutput
	err        error
	labelInput *rekognition.DetectLabelsInput
	textInput  *rekognition.DetectTextInput
}

func (f *fakeRekognition) DetectLabelsWithContext(_ aws.Context, in *rekognition.DetectLabelsInput, _ ...request.Option) (*rekognition.DetectLabelsOutput, error) {
	f.labelInput = in
	return f.labels, f.err
}

func (f *fakeRekognition) DetectTextWithContext(_ aws.Context, in *rekognition.DetectTextInput, _ ...request.Option) (*rekognition.DetectTextOutput, error) {
	f.textInput = in
	return f.text, f.err
}

func TestRekognition_DetectLabels(t *testing.T) {
	fake := &fakeRekognition{labels: &rekognition.DetectLabelsOutput{
		Labels: []*rekognition.Label{
			{Name: aws.String("Text"), Confidence: aws.Float64(98.1)},
			nil,
			{Name: aws.String("Poster"), Confidence: aws.Float64(71)},
		},
	}}

	r := NewRekognitionWithClient(fake, Config{MaxLabels: 10, MinConfidence: 55})
	labels, err := r.DetectLabels(context.Background(), ref)
	if err != nil {
		t.Fatalf("DetectLabels failed: %v", err)
	}

	want := []models.Label{{Name: "Text", Confidence: 98.1}, {Name: "Poster", Confidence: 71}}
	if len(labels) != len(want) {
		t.Fatalf("labels = %+v, want %+v", labels, want)
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Errorf("labels[%d] = %+v, want %+v", i, labels[i], want[i])
		}
	}

	obj := fake.labelInput.Image.S3Object
	if aws.StringValue(obj.Bucket) != "mybucket" || aws.StringValue(obj.Name) != "input.jpeg" || aws.StringValue(obj.Version) != "F6AB" {
		t.Errorf("S3Object = %v", obj)
	}
	if aws.Int64Value(fake.labelInput.MaxLabels) != 10 || aws.Float64Value(fake.labelInput.MinConfidence) != 55 {
		t.Errorf("DetectLabelsInput = %v", fake.labelInput)
	}
}

func TestRekognition_DefaultsOmitted(t *testing.T) {
	fake := &fakeRekognition{labels: &rekognition.DetectLabelsOutput{}}

	unversioned := models.ObjectReference{Bucket: "b", Key: "k"}
	if _, err := NewRekognitionWithClient(fake, Config{}).DetectLabels(context.Background(), unversioned); err != nil {
		t.Fatalf("DetectLabels failed: %v", err)
	}
	if fake.labelInput.MaxLabels != nil || fake.labelInput.MinConfidence != nil {
		t.Error("expected provider defaults when limits are zero")
	}
	if fake.labelInput.Image.S3Object.Version != nil {
		t.Error("expected no version for an unversioned object")
	}
}

func TestRekognition_DetectTextJoinsLines(t *testing.T) {
	fake := &fakeRekognition{text: &rekognition.DetectTextOutput{
		TextDetections: []*rekognition.TextDetection{
			{DetectedText: aws.String("NOTHING"), Type: aws.String("LINE")},
			{DetectedText: aws.String("EXISTS"), Type: aws.String("LINE")},
			{DetectedText: aws.String("NOTHING"), Type: aws.String("WORD")},
			{DetectedText: aws.String("EXISTS"), Type: aws.String("WORD")},
		},
	}}

	text, err := NewRekognitionWithClient(fake, Config{}).DetectText(context.Background(), ref)
	if err != nil {
		t.Fatalf("DetectText failed: %v", err)
	}
	if text != "NOTHING\nEXISTS" {
		t.Errorf("text = %q, want lines joined without a trailing newline", text)
	}
}

func TestRekognition_Error(t *testing.T) {
	remote := errors.New("AccessDeniedException")
	fake := &fakeRekognition{err: remote}

	_, err := NewRekognitionWithClient(fake, Config{}).DetectLabels(context.Background(), ref)
	var visionErr *VisionError
	if !errors.As(err, &visionErr) {
		t.Fatalf("error %v is not a *VisionError", err)
	}
	if visionErr.Provider != ProviderRekognition || visionErr.Op != "DetectLabels" {
		t.Errorf("VisionError = %+v", visionErr)
	}
	if !errors.Is(err, remote) {
		t.Error("expected remote error to be preserved")
	}
}

type fakeAnnotator struct {
	resp     *visionpb.BatchAnnotateImagesResponse
	err      error
	requests []*visionpb.BatchAnnotateImagesRequest
	closed   bool
}

func (f *fakeAnnotator) BatchAnnotateImages(_ context.Context, req *visionpb.BatchAnnotateImagesRequest, _ ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error) {
	f.requests = append(f.requests, req)
	return f.resp, f.err
}

func (f *fakeAnnotator) Close() error {
	f.closed = true
	return nil
}

type fakeFetcher struct {
	content []byte
	err     error
	refs    []models.ObjectReference
}

func (f *fakeFetcher) Fetch(_ context.Context, r models.ObjectReference) ([]byte, error) {
	f.refs = append(f.refs, r)
	return f.content, f.err
}

func TestGoogleVision_DetectLabels(t *testing.T) {
	annotator := &fakeAnnotator{resp: &visionpb.BatchAnnotateImagesResponse{
		Responses: []*visionpb.AnnotateImageResponse{{
			LabelAnnotations: []*visionpb.EntityAnnotation{
				{Description: "Font", Score: 0.5},
				{Description: "Text", Score: 0.75},
			},
		}},
	}}
	fetcher := &fakeFetcher{content: []byte("img")}

	g := newGoogleVisionWithClient(annotator, fetcher, Config{MaxLabels: 5})
	labels, err := g.DetectLabels(context.Background(), ref)
	if err != nil {
		t.Fatalf("DetectLabels failed: %v", err)
	}

	if len(labels) != 2 || labels[1].Name != "Text" || labels[1].Confidence != 75 {
		t.Errorf("labels = %+v", labels)
	}
	if len(fetcher.refs) != 1 || fetcher.refs[0] != ref {
		t.Errorf("fetched refs = %+v", fetcher.refs)
	}

	req := annotator.requests[0].Requests[0]
	if string(req.Image.Content) != "img" {
		t.Errorf("image content = %q", req.Image.Content)
	}
	if req.Features[0].Type != visionpb.Feature_LABEL_DETECTION || req.Features[0].MaxResults != 5 {
		t.Errorf("feature = %v", req.Features[0])
	}
}

func TestGoogleVision_DetectText(t *testing.T) {
	tests := []struct {
		name string
		resp *visionpb.AnnotateImageResponse
		want string
	}{
		{
			name: "full text annotation",
			resp: &visionpb.AnnotateImageResponse{
				FullTextAnnotation: &visionpb.TextAnnotation{Text: "NOTHING\nEXISTS\n"},
			},
			want: "NOTHING\nEXISTS\n",
		},
		{
			name: "first text annotation",
			resp: &visionpb.AnnotateImageResponse{
				TextAnnotations: []*visionpb.EntityAnnotation{{Description: "STOP"}, {Description: "S"}},
			},
			want: "STOP",
		},
		{
			name: "no text",
			resp: &visionpb.AnnotateImageResponse{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			annotator := &fakeAnnotator{resp: &visionpb.BatchAnnotateImagesResponse{
				Responses: []*visionpb.AnnotateImageResponse{tt.resp},
			}}

			g := newGoogleVisionWithClient(annotator, &fakeFetcher{content: []byte("img")}, Config{})
			text, err := g.DetectText(context.Background(), ref)
			if err != nil {
				t.Fatalf("DetectText failed: %v", err)
			}
			if text != tt.want {
				t.Errorf("text = %q, want %q", text, tt.want)
			}
			if annotator.requests[0].Requests[0].Features[0].Type != visionpb.Feature_TEXT_DETECTION {
				t.Error("expected TEXT_DETECTION feature")
			}
		})
	}
}

func TestGoogleVision_Errors(t *testing.T) {
	fetchErr := errors.New("NoSuchKey")

	tests := []struct {
		name      string
		annotator *fakeAnnotator
		fetcher   *fakeFetcher
		wantErr   error
	}{
		{
			name:      "fetch failure",
			annotator: &fakeAnnotator{},
			fetcher:   &fakeFetcher{err: fetchErr},
			wantErr:   fetchErr,
		},
		{
			name:      "empty response",
			annotator: &fakeAnnotator{resp: &visionpb.BatchAnnotateImagesResponse{}},
			fetcher:   &fakeFetcher{content: []byte("img")},
			wantErr:   ErrEmptyResponse,
		},
		{
			name: "image error",
			annotator: &fakeAnnotator{resp: &visionpb.BatchAnnotateImagesResponse{
				Responses: []*visionpb.AnnotateImageResponse{{Error: &status.Status{Code: 3, Message: "bad image"}}},
			}},
			fetcher: &fakeFetcher{content: []byte("img")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGoogleVisionWithClient(tt.annotator, tt.fetcher, Config{})
			_, err := g.DetectLabels(context.Background(), ref)
			if err == nil {
				t.Fatal("expected error")
			}
			var visionErr *VisionError
			if !errors.As(err, &visionErr) || visionErr.Provider != ProviderGoogle {
				t.Errorf("error = %v, want google *VisionError", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestGoogleVision_Close(t *testing.T) {
	annotator := &fakeAnnotator{}
	if err := newGoogleVisionWithClient(annotator, &fakeFetcher{}, Config{}).Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !annotator.closed {
		t.Error("expected annotator to be closed")
	}
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: "tesseract", Region: "us-east-1"})
	if !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("error = %v, want ErrUnknownProvider", err)
	}
}

func TestNew_DefaultsToRekognition(t *testing.T) {
	client, err := New(context.Background(), Config{Region: "eu-west-1", AccessKeyID: "AKIA", SecretAccessKey: "secret"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, ok := client.(*Rekognition); !ok {
		t.Errorf("client = %T, want *Rekognition", client)
	}
}

func TestGoogleVision_LabelThenTextDownloadsOnce(t *testing.T) {
	annotator := &fakeAnnotator{resp: &visionpb.BatchAnnotateImagesResponse{
		Responses: []*visionpb.AnnotateImageResponse{{
			LabelAnnotations:   []*visionpb.EntityAnnotation{{Description: "Text", Score: 0.9}},
			FullTextAnnotation: &visionpb.TextAnnotation{Text: "STOP"},
		}},
	}}
	fetcher := &fakeFetcher{content: []byte("img")}
	g := newGoogleVisionWithClient(annotator, fetcher, Config{})

	if _, err := g.DetectLabels(context.Background(), ref); err != nil {
		t.Fatalf("DetectLabels failed: %v", err)
	}
	text, err := g.DetectText(context.Background(), ref)
	if err != nil {
		t.Fatalf("DetectText failed: %v", err)
	}

	if text != "STOP" {
		t.Errorf("text = %q", text)
	}
	if len(fetcher.refs) != 1 {
		t.Errorf("downloads = %d, want 1", len(fetcher.refs))
	}
	if len(annotator.requests) != 2 {
		t.Errorf("vision calls = %d, want 2", len(annotator.requests))
	}
	if string(annotator.requests[1].Requests[0].Image.Content) != "img" {
		t.Error("text call should reuse the downloaded content")
	}
	if g.objects.len() != 0 {
		t.Errorf("cache holds %d objects after the text call, want 0", g.objects.len())
	}
}

func TestObjectCache_EvictsOldest(t *testing.T) {
	c := newObjectCache(2)
	refs := []models.ObjectReference{{Bucket: "b", Key: "1"}, {Bucket: "b", Key: "2"}, {Bucket: "b", Key: "3"}}
	for i, r := range refs {
		c.put(r, []byte{byte(i)})
	}

	if _, ok := c.get(refs[0]); ok {
		t.Error("oldest entry should have been evicted")
	}
	if got, ok := c.take(refs[2]); !ok || got[0] != 2 {
		t.Errorf("take(%v) = %v, %v", refs[2], got, ok)
	}
	if _, ok := c.take(refs[2]); ok {
		t.Error("take should remove the entry")
	}
	if c.len() != 1 {
		t.Errorf("len = %d, want 1", c.len())
	}
}

func TestGoogleVision_VersionsAreDistinctObjects(t *testing.T) {
	annotator := &fakeAnnotator{resp: &visionpb.BatchAnnotateImagesResponse{
		Responses: []*visionpb.AnnotateImageResponse{{FullTextAnnotation: &visionpb.TextAnnotation{Text: "x"}}},
	}}
	fetcher := &fakeFetcher{content: []byte("img")}
	g := newGoogleVisionWithClient(annotator, fetcher, Config{})

	older := models.ObjectReference{Bucket: ref.Bucket, Key: ref.Key, Version: "OLD"}
	if _, err := g.DetectLabels(context.Background(), older); err != nil {
		t.Fatalf("DetectLabels failed: %v", err)
	}
	if _, err := g.DetectText(context.Background(), ref); err != nil {
		t.Fatalf("DetectText failed: %v", err)
	}
	if len(fetcher.refs) != 2 {
		t.Errorf("downloads = %d, want 2", len(fetcher.refs))
	}
}
