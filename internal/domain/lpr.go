package domain

// LPRRequestDTO is sent by clients that post the image as base64 JSON
// instead of a multipart upload.
type LPRRequestDTO struct {
	// A data URL prefix ("data:image/png;base64,") is accepted.
	ImageBase64 string `json:"image_base64" binding:"required"`
	FileName    string `json:"file_name,omitempty"`
}

// ExtractTextDTO runs only the plate extractor over text already read by OCR.
type ExtractTextDTO struct {
	Text string `json:"text"`
}

// LPRResponseDTO is the body returned for every image reading. Plate is
// null when no plate was identified.
type LPRResponseDTO struct {
	Plate     *string `json:"plate"`
	Message   string  `json:"message"`
	ImageURL  string  `json:"image_url,omitempty"`
	ReadingID string  `json:"reading_id,omitempty"`
}

func NewLPRResponse(r *PlateReading) LPRResponseDTO {
	resp := LPRResponseDTO{
		Message:   r.Message,
		ImageURL:  r.ImageURL,
		ReadingID: r.ID.String(),
	}
	if r.Plate.Valid {
		p := r.Plate.String
		resp.Plate = &p
	}
	return resp
}
