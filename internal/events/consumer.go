package events

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// Consumer consumes rate limit events and persists them to the store.
type Consumer struct {
	subscriber message.Subscriber
	store      Store
	logger     *zap.Logger
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewConsumer creates a new rate limit event consumer.
func NewConsumer(subscriber message.Subscriber, store Store, logger *zap.Logger) *Consumer {
	return &Consumer{
		subscriber: subscriber,
		store:      store,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Start begins consuming messages from TopicLimitExceeded.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	msgs, err := c.subscriber.Subscribe(ctx, TopicLimitExceeded)
	if err != nil {
		close(c.done)

		return err
	}

	go c.consumeLoop(ctx, msgs)

	c.logger.Info("consumer started", zap.String("topic", TopicLimitExceeded))

	return nil
}

func (c *Consumer) consumeLoop(ctx context.Context, msgs <-chan *message.Message) {
	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}

			c.handleLimitExceeded(ctx, msg)
		}
	}
}

func (c *Consumer) handleLimitExceeded(ctx context.Context, msg *message.Message) {
	var event LimitExceededEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		c.logger.Error("failed to unmarshal limit exceeded event",
			zap.String("message_id", msg.UUID),
			zap.Error(err),
		)
		// Malformed payloads are dropped, not redelivered.
		msg.Ack()

		return
	}

	if err := c.store.SaveLimitExceeded(ctx, &event); err != nil {
		c.logger.Error("failed to save limit exceeded event",
			zap.String("key", event.Key),
			zap.Error(err),
		)
		msg.Nack()

		return
	}

	msg.Ack()

	c.logger.Debug("processed limit exceeded event",
		zap.String("key", event.Key),
	)
}

// Shutdown stops the consumer and waits for in-flight messages to complete.
func (c *Consumer) Shutdown() error {
	// done is only closed once Start has run.
	if c.cancel != nil {
		c.cancel()
		<-c.done
	}

	return c.subscriber.Close()
}
