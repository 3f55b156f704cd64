package domain

import "time"

// S3EventNotification is the body S3 delivers to SQS on object creation.
// Only the fields needed to locate the object are decoded.
type S3EventNotification struct {
	Records []S3EventRecord `json:"Records"`
	// Sent once when the notification is configured; carries no records.
	Event string `json:"Event,omitempty"`
}

type S3EventRecord struct {
	EventName string    `json:"eventName"`
	EventTime time.Time `json:"eventTime"`
	S3        struct {
		Bucket struct {
			Name string `json:"name"`
		} `json:"bucket"`
		Object struct {
			Key  string `json:"key"`
			Size int64  `json:"size"`
		} `json:"object"`
	} `json:"s3"`
}
