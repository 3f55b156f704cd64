// Package ocr adapts third-party text detection services to a single
// TextDetector interface returning the full transcription of an image.
package ocr

import (
	"context"
	"errors"
	"fmt"
)

var ErrUnknownProvider = errors.New("unknown OCR provider")

type TextDetector interface {
	// DetectText returns everything the provider read from the image, one
	// line per text line. An image without text yields "" and no error.
	DetectText(ctx context.Context, image []byte) (string, error)
}

const (
	ProviderVision      = "vision"
	ProviderRekognition = "rekognition"
	ProviderTesseract   = "tesseract"
)

func validateProvider(name string) error {
	switch name {
	case ProviderVision, ProviderRekognition, ProviderTesseract:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownProvider, name)
}

// Options selects and configures a provider for New.
type Options struct {
	Provider              string
	GoogleCredentialsFile string
	Rekognition           RekognitionAPI // required for ProviderRekognition
}

// New builds the TextDetector named by opts.Provider.
func New(ctx context.Context, opts Options) (TextDetector, error) {
	if err := validateProvider(opts.Provider); err != nil {
		return nil, err
	}
	switch opts.Provider {
	case ProviderRekognition:
		if opts.Rekognition == nil {
			return nil, fmt.Errorf("rekognition client is required for provider %q", opts.Provider)
		}
		return NewRekognitionDetector(opts.Rekognition), nil
	case ProviderTesseract:
		d, err := NewTesseractDetector()
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		d, err := NewVisionDetector(ctx, opts.GoogleCredentialsFile)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
}
