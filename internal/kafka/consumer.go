package kafka

import (
	"context"
	"errors"
	"fmt"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"
	"strconv"

	"github.com/segmentio/kafka-go"
)

type Consumer struct {
	reader *kafka.Reader
	log    *logger.Logger
}

// NewConsumer creates a Kafka consumer of the festival event topic.
func NewConsumer(brokers []string, topic, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader, log: log}
}

// Decode rebuilds an outbox event from a Kafka record produced by Message.
func Decode(msg kafka.Message) (models.Event, error) {
	ev := models.Event{
		FestivalID: string(msg.Key),
		Payload:    append([]byte(nil), msg.Value...),
		CreatedAt:  msg.Time,
	}
	for _, h := range msg.Headers {
		switch h.Key {
		case "event":
			ev.Name = string(h.Value)
		case "event_id":
			id, err := strconv.ParseInt(string(h.Value), 10, 64)
			if err != nil {
				return ev, fmt.Errorf("bad event_id header %q: %w", h.Value, err)
			}
			ev.ID = id
		}
	}
	if ev.Name == "" {
		return ev, fmt.Errorf("record at offset %d has no event header", msg.Offset)
	}
	return ev, nil
}

// Start consumes events until ctx is cancelled, calling handler for each.
func (c *Consumer) Start(ctx context.Context, handler func(models.Event)) error {
	c.log.LogKafka("CONSUME", c.reader.Config().Topic, "Kafka consumer started")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			c.log.Error("KAFKA", fmt.Sprintf("Error reading message: %v", err))
			continue
		}

		ev, err := Decode(msg)
		if err != nil {
			c.log.Warn("KAFKA", fmt.Sprintf("Skipping record: %v", err))
			continue
		}
		handler(ev)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
