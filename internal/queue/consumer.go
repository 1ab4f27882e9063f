package queue

import (
	"context"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// EventSink receives raw lifecycle envelopes from the broker. A non-nil
// return signals the broker-side delivery contract failed mid-handling; the
// message is left for redelivery where the transport supports it.
type EventSink interface {
	Dispatch(ctx context.Context, raw []byte) error
}

// Consumer subscribes to the lifecycle events subject with a queue group, so
// a pool of workers shares the stream with each event handled by exactly one
// member per delivery. At-least-once semantics come from the broker; the
// dispatcher's idempotency guards absorb redeliveries.
type Consumer struct {
	conn       *nats.Conn
	subject    string
	queueGroup string
	sink       EventSink
	logger     zerolog.Logger
}

// NewConsumer builds a lifecycle event consumer.
func NewConsumer(conn *nats.Conn, subject, queueGroup string, sink EventSink, logger zerolog.Logger) *Consumer {
	return &Consumer{
		conn:       conn,
		subject:    subject,
		queueGroup: queueGroup,
		sink:       sink,
		logger:     logger.With().Str("component", "event_consumer").Logger(),
	}
}

// Start subscribes and drains the subscription when the context ends.
func (c *Consumer) Start(ctx context.Context) error {
	sub, err := c.conn.QueueSubscribe(c.subject, c.queueGroup, func(msg *nats.Msg) {
		if err := c.sink.Dispatch(ctx, msg.Data); err != nil {
			c.logger.Error().Err(err).Msg("event handling failed, leaving message for redelivery")
		}
	})
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			c.logger.Warn().Err(err).Msg("failed to drain event subscription")
		}
	}()

	c.logger.Info().
		Str("subject", c.subject).
		Str("queue_group", c.queueGroup).
		Msg("lifecycle event consumer started")
	return nil
}
