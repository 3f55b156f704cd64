// Package iot consumes image-upload notifications produced by cameras that
// write snapshots straight to S3.
package iot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"servidor_ocr/internal/domain"
	"servidor_ocr/internal/storage"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// ObjectDownloader fetches an object named by an S3 event record.
type ObjectDownloader interface {
	DownloadFrom(ctx context.Context, bucket, key string) ([]byte, error)
}

// ImageReader runs a stored image through plate reading. LatestReadingFor
// returns the newest reading of an image key, or an error when there is none
// or history is not kept.
type ImageReader interface {
	ReadStoredImage(ctx context.Context, key, url string, data []byte, source domain.ReadingSource) (*domain.PlateReading, error)
	LatestReadingFor(ctx context.Context, key string) (*domain.PlateReading, error)
}

type SQSConsumer struct {
	sqsClient  sqsAPI
	queueURL   string
	downloader ObjectDownloader
	reader     ImageReader
	retryDelay time.Duration
}

func NewSQSConsumer(client sqsAPI, queueURL string, downloader ObjectDownloader, reader ImageReader) *SQSConsumer {
	return &SQSConsumer{
		sqsClient:  client,
		queueURL:   queueURL,
		downloader: downloader,
		reader:     reader,
		retryDelay: 5 * time.Second,
	}
}

func (c *SQSConsumer) Start(ctx context.Context) {
	log.Printf("SQS Consumer: listening on queue %s", c.queueURL)
	for {
		select {
		case <-ctx.Done():
			log.Println("SQS Consumer: context cancelled, stopping.")
			return
		default:
		}

		result, err := c.sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            &c.queueURL,
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
			VisibilityTimeout:   60,
		})
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Printf("SQS Consumer: error receiving messages: %v", err)
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
			}
			continue
		}

		if len(result.Messages) > 0 {
			log.Printf("SQS Consumer: received %d message(s)", len(result.Messages))
		}

		for _, message := range result.Messages {
			if message.Body == nil {
				log.Println("SQS Consumer: message with empty body, deleting.")
				c.deleteMessage(ctx, message.ReceiptHandle)
				continue
			}

			if err := c.HandleMessage(ctx, *message.Body); err != nil {
				id := ""
				if message.MessageId != nil {
					id = *message.MessageId
				}
				log.Printf("SQS Consumer: error processing message %s: %v. It will be retried after the visibility timeout.", id, err)
				continue
			}
			c.deleteMessage(ctx, message.ReceiptHandle)
		}
	}
}

// HandleMessage reads every image announced by one S3 event notification.
// It stops at the first failure so the whole message is redelivered; records
// already read on an earlier delivery are skipped.
func (c *SQSConsumer) HandleMessage(ctx context.Context, body string) error {
	var notification domain.S3EventNotification
	if err := json.Unmarshal([]byte(body), &notification); err != nil {
		return fmt.Errorf("error unmarshaling S3 event: %w", err)
	}
	if notification.Event == "s3:TestEvent" {
		log.Println("SQS Consumer: ignoring S3 test event")
		return nil
	}

	for _, record := range notification.Records {
		if !strings.HasPrefix(record.EventName, "ObjectCreated:") {
			continue
		}
		if err := c.handleRecord(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

func (c *SQSConsumer) handleRecord(ctx context.Context, record domain.S3EventRecord) error {
	bucket := record.S3.Bucket.Name
	// Keys arrive URL-encoded with '+' for spaces.
	key, err := url.QueryUnescape(record.S3.Object.Key)
	if err != nil {
		return fmt.Errorf("invalid object key %q: %w", record.S3.Object.Key, err)
	}
	location := fmt.Sprintf("s3://%s/%s", bucket, key)

	if strings.HasSuffix(key, "/") {
		log.Printf("SQS Consumer: skipping folder marker %s", location)
		return nil
	}
	if c.alreadyRead(ctx, key, record.EventTime) {
		log.Printf("SQS Consumer: %s already read, skipping", location)
		return nil
	}

	data, err := c.downloader.DownloadFrom(ctx, bucket, key)
	if err != nil {
		return err
	}

	reading, err := c.reader.ReadStoredImage(ctx, key, location, data, domain.SourceQueue)
	if errors.Is(err, storage.ErrEmptyFile) {
		log.Printf("SQS Consumer: skipping empty object %s", location)
		return nil
	}
	if err != nil {
		return fmt.Errorf("error reading %s: %w", location, err)
	}
	log.Printf("SQS Consumer: %s -> %s", location, reading.Message)
	return nil
}

// alreadyRead reports whether the key was read at or after the event time,
// which happens when a multi-record message is redelivered.
func (c *SQSConsumer) alreadyRead(ctx context.Context, key string, eventTime time.Time) bool {
	if eventTime.IsZero() {
		return false
	}
	latest, err := c.reader.LatestReadingFor(ctx, key)
	if err != nil {
		return false
	}
	return !latest.CreatedAt.Before(eventTime)
}

func (c *SQSConsumer) deleteMessage(ctx context.Context, receiptHandle *string) {
	if receiptHandle == nil {
		log.Println("SQS Consumer: empty receipt handle, cannot delete message.")
		return
	}
	_, err := c.sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      &c.queueURL,
		ReceiptHandle: receiptHandle,
	})
	if err != nil {
		log.Printf("SQS Consumer: error deleting message: %v", err)
	}
}
