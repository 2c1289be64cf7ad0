package kafka

import (
	"context"
	"fmt"
	"ms-marketplace/internal/clock"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"
	"time"
)

type OutboxStore interface {
	GetUnpublishedEvents(ctx context.Context, limit int) ([]models.Event, error)
	MarkEventsPublished(ctx context.Context, ids []int64, at time.Time) error
}

type Publisher interface {
	PublishEvents(ctx context.Context, events []models.Event) error
}

// Relay moves committed outbox rows to Kafka. Delivery is at least once: a
// crash between publish and mark republishes the batch.
type Relay struct {
	Store     OutboxStore
	Publisher Publisher
	Interval  time.Duration
	BatchSize int
	Clock     clock.Clock
	Logger    *logger.Logger
}

func NewRelay(store OutboxStore, pub Publisher, interval time.Duration, batchSize int, clk clock.Clock, log *logger.Logger) *Relay {
	if batchSize <= 0 {
		batchSize = 100
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Relay{Store: store, Publisher: pub, Interval: interval, BatchSize: batchSize, Clock: clk, Logger: log}
}

// RelayOnce publishes one batch and returns how many events were sent.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	events, err := r.Store.GetUnpublishedEvents(ctx, r.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to read outbox: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}
	if err := r.Publisher.PublishEvents(ctx, events); err != nil {
		return 0, err
	}

	ids := make([]int64, 0, len(events))
	for _, ev := range events {
		ids = append(ids, ev.ID)
	}
	if err := r.Store.MarkEventsPublished(ctx, ids, r.Clock.Now()); err != nil {
		return 0, fmt.Errorf("failed to mark events published: %w", err)
	}
	return len(events), nil
}

// Run drains the outbox every interval until ctx is cancelled. A full batch
// is followed immediately by the next one.
func (r *Relay) Run(ctx context.Context) {
	r.Logger.LogKafka("RELAY", "", fmt.Sprintf("Outbox relay started (every %s, batch %d)", r.Interval, r.BatchSize))
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		for {
			n, err := r.RelayOnce(ctx)
			if err != nil {
				r.Logger.Error("KAFKA", fmt.Sprintf("Outbox relay failed: %v", err))
				break
			}
			if n < r.BatchSize {
				break
			}
		}

		select {
		case <-ctx.Done():
			r.Logger.LogKafka("RELAY", "", "Outbox relay stopped")
			return
		case <-ticker.C:
		}
	}
}
