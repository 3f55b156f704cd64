package domain

import "time"

// PlateReadNotification is pushed to WebSocket clients and published on the
// IoT plate topic after every reading.
type PlateReadNotification struct {
	ReadingID string        `json:"reading_id"`
	Plate     string        `json:"plate,omitempty"`
	Found     bool          `json:"found"`
	Message   string        `json:"message"`
	ImageURL  string        `json:"image_url,omitempty"`
	Source    ReadingSource `json:"source"`
	Timestamp time.Time     `json:"timestamp"`
}

func NewPlateReadNotification(r *PlateReading) PlateReadNotification {
	return PlateReadNotification{
		ReadingID: r.ID.String(),
		Plate:     r.Plate.String,
		Found:     r.Plate.Valid,
		Message:   r.Message,
		ImageURL:  r.ImageURL,
		Source:    r.Source,
		Timestamp: r.CreatedAt,
	}
}
