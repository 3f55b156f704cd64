package ocr

import (
	"context"
	"fmt"
	"log"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
)

type visionAPI interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
}

// VisionDetector reads text with Google Cloud Vision TEXT_DETECTION.
type VisionDetector struct {
	client visionAPI
	closer func() error
}

// NewVisionDetector dials Cloud Vision. An empty credentialsFile falls back to
// application default credentials.
func NewVisionDetector(ctx context.Context, credentialsFile string) (*VisionDetector, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vision client: %w", err)
	}
	return &VisionDetector{client: client, closer: client.Close}, nil
}

func newVisionDetectorWithClient(client visionAPI) *VisionDetector {
	return &VisionDetector{client: client}
}

// DetectText returns the description of the first text annotation, which
// Vision fills with the whole transcription of the image.
func (d *VisionDetector) DetectText(ctx context.Context, image []byte) (string, error) {
	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    &visionpb.Image{Content: image},
			Features: []*visionpb.Feature{{Type: visionpb.Feature_TEXT_DETECTION}},
		}},
	}

	log.Println("VisionDetector: calling Vision text detection...")
	resp, err := d.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return "", fmt.Errorf("vision: %w", err)
	}
	if len(resp.GetResponses()) == 0 {
		return "", nil
	}

	r := resp.GetResponses()[0]
	if st := r.GetError(); st.GetCode() != 0 {
		return "", fmt.Errorf("vision: code %d: %s", st.GetCode(), st.GetMessage())
	}
	annotations := r.GetTextAnnotations()
	if len(annotations) == 0 {
		return "", nil
	}
	log.Printf("VisionDetector: Vision returned %d text annotations.", len(annotations))
	return annotations[0].GetDescription(), nil
}

func (d *VisionDetector) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer()
}
