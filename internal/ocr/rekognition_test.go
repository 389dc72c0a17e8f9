package ocr

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

type fakeDetectText struct {
	out   *rekognition.DetectTextOutput
	err   error
	input *rekognition.DetectTextInput
}

func (f *fakeDetectText) DetectText(_ context.Context, params *rekognition.DetectTextInput, _ ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error) {
	f.input = params
	return f.out, f.err
}

func TestRekognitionEngineConvertsLines(t *testing.T) {
	client := &fakeDetectText{out: &rekognition.DetectTextOutput{
		TextDetections: []types.TextDetection{
			{
				Type:         types.TextTypesLine,
				DetectedText: aws.String("กข 1234"),
				Confidence:   aws.Float32(87.5),
				Geometry: &types.Geometry{Polygon: []types.Point{
					{X: aws.Float32(0.5), Y: aws.Float32(0.25)},
				}},
			},
			{
				Type:         types.TextTypesWord,
				DetectedText: aws.String("กข"),
				Confidence:   aws.Float32(99),
			},
			{
				Type:       types.TextTypesLine,
				Confidence: aws.Float32(99),
			},
		},
	}}
	engine := &RekognitionEngine{client: client}

	detections, err := engine.Recognize(context.Background(), Preprocess(testImage()))
	if err != nil {
		t.Fatal(err)
	}
	if client.input == nil || client.input.Image == nil || len(client.input.Image.Bytes) == 0 {
		t.Fatal("expected image bytes to be sent")
	}
	if len(detections) != 1 {
		t.Fatalf("expected 1 line detection, got %+v", detections)
	}
	d := detections[0]
	if d.Text != "กข 1234" || d.Confidence != 0.875 {
		t.Fatalf("unexpected detection %+v", d)
	}
	if len(d.Region) != 1 || d.Region[0].X != 8 || d.Region[0].Y != 2 {
		t.Fatalf("unexpected region %+v", d.Region)
	}
}

func TestRekognitionEngineError(t *testing.T) {
	boom := errors.New("throttled")
	engine := &RekognitionEngine{client: &fakeDetectText{err: boom}}
	if _, err := engine.Recognize(context.Background(), image.NewRGBA(image.Rect(0, 0, 4, 4))); !errors.Is(err, boom) {
		t.Fatalf("unexpected error %v", err)
	}
}
