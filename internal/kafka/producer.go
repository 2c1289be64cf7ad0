package kafka

import (
	"context"
	"fmt"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"
	"strconv"

	"github.com/segmentio/kafka-go"
)

type Producer struct {
	Writer *kafka.Writer
	Logger *logger.Logger
}

func NewProducer(brokers []string, topic string, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	return &Producer{Writer: writer, Logger: log}
}

// Message builds the Kafka record of an outbox event. Records are keyed by
// festival so one festival's events stay ordered within a partition.
func Message(ev models.Event) kafka.Message {
	return kafka.Message{
		Key:   []byte(ev.FestivalID),
		Value: ev.Payload,
		Time:  ev.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(ev.Name)},
			{Key: "event_id", Value: []byte(strconv.FormatInt(ev.ID, 10))},
			{Key: "festival_id", Value: []byte(ev.FestivalID)},
		},
	}
}

// PublishEvents streams outbox events to Kafka in order.
func (p *Producer) PublishEvents(ctx context.Context, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, ev := range events {
		msgs = append(msgs, Message(ev))
	}
	if err := p.Writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to publish %d events: %w", len(events), err)
	}
	p.Logger.LogKafka("PUBLISH", p.Writer.Topic, fmt.Sprintf("%d events up to id %d", len(events), events[len(events)-1].ID))
	return nil
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
