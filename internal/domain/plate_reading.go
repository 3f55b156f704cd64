package domain

import (
	"time"

	"github.com/google/uuid"
	"gopkg.in/guregu/null.v4"
)

type ReadingSource string

const (
	SourceUpload ReadingSource = "upload"
	SourceBase64 ReadingSource = "base64"
	SourceQueue  ReadingSource = "queue"
)

// PlateReading is one processed image: where it is stored, what OCR read
// and which plate (if any) was extracted from it.
type PlateReading struct {
	ID        uuid.UUID     `json:"id"`
	ImageKey  string        `json:"image_key"`
	ImageURL  string        `json:"image_url"`
	OCRText   string        `json:"ocr_text"`
	Plate     null.String   `json:"plate"`
	Message   string        `json:"message"`
	Source    ReadingSource `json:"source"`
	CreatedAt time.Time     `json:"created_at"`
}

// ImageInput is an image handed to the reading pipeline.
type ImageInput struct {
	FileName string // original name, used for the extension only
	Data     []byte
	Source   ReadingSource
}

type PlateReadingFilterDTO struct {
	Plate string `form:"plate"`
	Limit int    `form:"limit"`
}
