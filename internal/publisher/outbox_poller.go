// Package publisher drains the order outbox into Kafka. Rows are written
// in the same transaction as the order change; the poller makes them
// visible to downstream consumers at least once.
package publisher

import (
	"context"
	"time"

	"github.com/bahaaabdelrahman/noon-app-sub000/internal/order"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const defaultBatchSize = 100

// EventSource is the slice of the order repository the poller reads from.
type EventSource interface {
	UnprocessedEvents(ctx context.Context, limit int) ([]*order.OutboxEvent, error)
	MarkEventProcessed(ctx context.Context, id int64) error
}

// MessageWriter matches kafka.Writer's publish surface.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type OutboxPoller struct {
	tick   time.Duration
	source EventSource
	writer MessageWriter
	log    *zap.Logger
}

// NewOutboxPoller builds a poller publishing to the order-events topic.
func NewOutboxPoller(source EventSource, log *zap.Logger, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  "order-events",
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &OutboxPoller{tick: time.Second, source: source, writer: w, log: log}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.drain(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// drain publishes one batch of unprocessed events. An event is marked
// processed only after the broker accepts it, so a crash in between
// re-delivers rather than drops.
func (p *OutboxPoller) drain(ctx context.Context) {
	events, err := p.source.UnprocessedEvents(ctx, defaultBatchSize)
	if err != nil {
		p.log.Error("failed to fetch outbox events", zap.Error(err))
		return
	}

	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			p.log.Error("failed to publish outbox event",
				zap.Int64("event_id", event.ID),
				zap.Error(err))
			continue
		}

		if err := p.source.MarkEventProcessed(ctx, event.ID); err != nil {
			p.log.Error("failed to mark outbox event processed",
				zap.Int64("event_id", event.ID),
				zap.Error(err))
		}
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event *order.OutboxEvent) error {
	msg := kafka.Message{
		// Keyed by order id so one order's events stay in partition order.
		Key:   []byte(event.AggregateID),
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}
