//go:build tesseract

package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

const TesseractAvailable = true

// TesseractDetector reads text locally with Tesseract. Build with -tags=tesseract.
type TesseractDetector struct {
	languages []string
}

func NewTesseractDetector(languages ...string) (*TesseractDetector, error) {
	if len(languages) == 0 {
		languages = []string{"eng", "por"}
	}
	return &TesseractDetector{languages: languages}, nil
}

func (d *TesseractDetector) DetectText(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(d.languages...); err != nil {
		return "", fmt.Errorf("tesseract: failed to set language: %w", err)
	}
	// Plates only contain these characters.
	if err := client.SetWhitelist("ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-"); err != nil {
		return "", fmt.Errorf("tesseract: failed to set whitelist: %w", err)
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("tesseract: failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return strings.TrimSpace(text), nil
}
