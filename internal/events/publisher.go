package events

import (
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// metadataKey carries the client key so consumers can route without decoding.
const metadataKey = "ratelimit_key"

// Publish publishes a limit exceeded event.
type Publish func(event *LimitExceededEvent) error

// NewPublishFunc creates a publish function for a specific topic.
func NewPublishFunc(publisher message.Publisher, topic string) Publish {
	return func(event *LimitExceededEvent) error {
		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}

		msg := message.NewMessage(watermill.NewUUID(), payload)
		msg.Metadata.Set(metadataKey, event.Key)

		return publisher.Publish(topic, msg)
	}
}

// NopPublish discards events. Used when event publishing is disabled.
func NopPublish(_ *LimitExceededEvent) error {
	return nil
}

// PublisherGroup manages the underlying publisher lifecycle.
type PublisherGroup struct {
	publisher message.Publisher
}

// NewPublisherGroup creates a new publisher group.
func NewPublisherGroup(publisher message.Publisher) *PublisherGroup {
	return &PublisherGroup{publisher: publisher}
}

// Publish returns the publish function for TopicLimitExceeded.
func (g *PublisherGroup) Publish() Publish {
	return NewPublishFunc(g.publisher, TopicLimitExceeded)
}

// Shutdown closes the underlying publisher.
func (g *PublisherGroup) Shutdown() error {
	return g.publisher.Close()
}
