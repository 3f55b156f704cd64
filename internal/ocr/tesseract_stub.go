//go:build !tesseract

package ocr

import (
	"context"
	"errors"
)

const TesseractAvailable = false

var errTesseractUnavailable = errors.New("tesseract support not compiled in (use -tags=tesseract to enable)")

type TesseractDetector struct{}

func NewTesseractDetector(languages ...string) (*TesseractDetector, error) {
	return nil, errTesseractUnavailable
}

func (d *TesseractDetector) DetectText(ctx context.Context, image []byte) (string, error) {
	return "", errTesseractUnavailable
}
