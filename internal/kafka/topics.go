package kafka

import (
	"context"
	"errors"
	"fmt"
	"ms-marketplace/internal/logger"
	"net"
	"strconv"

	"github.com/segmentio/kafka-go"
)

// EnsureTopicsExist creates whichever of topics the cluster does not have yet.
func EnsureTopicsExist(ctx context.Context, brokers []string, topics []string, log *logger.Logger) error {
	if len(brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}
	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", brokers[0], err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions()
	if err != nil {
		return fmt.Errorf("failed to read partitions: %w", err)
	}
	missing := missingTopics(partitions, topics)
	if len(missing) == 0 {
		return nil
	}

	controller, err := conn.Controller()
	if err != nil {
		return err
	}
	controllerConn, err := kafka.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return err
	}
	defer controllerConn.Close()

	for _, topic := range missing {
		err := controllerConn.CreateTopics(kafka.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1})
		switch {
		case errors.Is(err, kafka.TopicAlreadyExists):
			log.LogKafka("TOPIC", topic, "already exists")
		case err != nil:
			return fmt.Errorf("failed to create topic %s: %w", topic, err)
		default:
			log.LogKafka("TOPIC", topic, "created")
		}
	}
	return nil
}

func missingTopics(partitions []kafka.Partition, wanted []string) []string {
	existing := make(map[string]bool, len(partitions))
	for _, p := range partitions {
		existing[p.Topic] = true
	}
	var missing []string
	for _, topic := range wanted {
		if !existing[topic] {
			missing = append(missing, topic)
			existing[topic] = true
		}
	}
	return missing
}
