package ocr

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

// RekognitionAPI is the subset of *rekognition.Client used here.
type RekognitionAPI interface {
	DetectText(ctx context.Context, params *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error)
}

// RekognitionDetector reads text with AWS Rekognition DetectText.
type RekognitionDetector struct {
	client RekognitionAPI
}

func NewRekognitionDetector(client RekognitionAPI) *RekognitionDetector {
	return &RekognitionDetector{client: client}
}

// DetectText joins the LINE detections in the order Rekognition returns
// them, which is top to bottom. WORD detections repeat the lines and are
// skipped.
func (d *RekognitionDetector) DetectText(ctx context.Context, image []byte) (string, error) {
	if d.client == nil {
		return "", fmt.Errorf("rekognition client not initialised")
	}

	log.Println("RekognitionDetector: calling Rekognition DetectText...")
	result, err := d.client.DetectText(ctx, &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: image},
	})
	if err != nil {
		return "", fmt.Errorf("rekognition: %w", err)
	}

	log.Printf("RekognitionDetector: Rekognition returned %d text blocks.", len(result.TextDetections))
	var lines []string
	for _, td := range result.TextDetections {
		if td.Type != types.TextTypesLine || td.DetectedText == nil {
			continue
		}
		lines = append(lines, *td.DetectedText)
	}
	return strings.Join(lines, "\n"), nil
}
