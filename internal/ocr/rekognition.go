package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"plategate/internal/domain/plate"
)

// rekognitionMaxBytes is the DetectText limit for inline image bytes.
const rekognitionMaxBytes = 5 << 20

type detectTextAPI interface {
	DetectText(ctx context.Context, params *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error)
}

// RekognitionEngine sends the image to AWS Rekognition DetectText and keeps
// LINE detections; WORD detections repeat the same text split up.
type RekognitionEngine struct {
	client detectTextAPI
}

func NewRekognitionEngine(ctx context.Context, region string) (*RekognitionEngine, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &RekognitionEngine{client: rekognition.NewFromConfig(awsCfg)}, nil
}

func (e *RekognitionEngine) Name() string {
	return "rekognition"
}

func (e *RekognitionEngine) Recognize(ctx context.Context, img image.Image) ([]plate.Detection, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 92}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	if buf.Len() > rekognitionMaxBytes {
		return nil, errors.New("image exceeds rekognition size limit")
	}

	out, err := e.client.DetectText(ctx, &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: buf.Bytes()},
	})
	if err != nil {
		return nil, fmt.Errorf("rekognition detect text: %w", err)
	}

	return convertTextDetections(out.TextDetections, img.Bounds()), nil
}

func convertTextDetections(items []types.TextDetection, bounds image.Rectangle) []plate.Detection {
	width := float64(bounds.Dx())
	height := float64(bounds.Dy())

	detections := make([]plate.Detection, 0, len(items))
	for _, item := range items {
		if item.Type != types.TextTypesLine || item.DetectedText == nil {
			continue
		}
		d := plate.Detection{
			Text:       aws.ToString(item.DetectedText),
			Confidence: float64(aws.ToFloat32(item.Confidence)) / 100,
		}
		if item.Geometry != nil {
			for _, p := range item.Geometry.Polygon {
				d.Region = append(d.Region, plate.Point{
					X: float64(aws.ToFloat32(p.X)) * width,
					Y: float64(aws.ToFloat32(p.Y)) * height,
				})
			}
		}
		detections = append(detections, d)
	}
	return detections
}
