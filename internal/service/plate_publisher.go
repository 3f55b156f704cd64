package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"servidor_ocr/internal/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
)

type iotPublishAPI interface {
	Publish(ctx context.Context, params *iotdataplane.PublishInput, optFns ...func(*iotdataplane.Options)) (*iotdataplane.PublishOutput, error)
}

// IoTPlatePublisher publishes reading events to an AWS IoT MQTT topic so gate
// controllers can react to recognised plates.
type IoTPlatePublisher struct {
	client iotPublishAPI
	topic  string
}

func NewIoTPlatePublisher(client iotPublishAPI, topic string) *IoTPlatePublisher {
	return &IoTPlatePublisher{client: client, topic: topic}
}

func (p *IoTPlatePublisher) PublishPlateRead(ctx context.Context, event domain.PlateReadNotification) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("error marshaling plate event: %w", err)
	}

	_, err = p.client.Publish(ctx, &iotdataplane.PublishInput{
		Topic:   aws.String(p.topic),
		Qos:     1,
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("error publishing MQTT message: %w", err)
	}
	log.Printf("IoTPlatePublisher: published reading %s to topic %s", event.ReadingID, p.topic)
	return nil
}
