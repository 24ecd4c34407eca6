package container

import (
	"context"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/do"
	"github.com/serroba/ip-rate-limiter/internal/events"
	"github.com/serroba/ip-rate-limiter/internal/store"
	"go.uber.org/zap"
)

// EventsConsumerGroup is the Redis stream consumer group of cmd/consumer.
const EventsConsumerGroup = "ratelimit-events"

// EventsPackage provides the events.Publish used by the rate limit middleware.
// Without Options.Events it is a no-op and no Redis connection is made.
func EventsPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*events.PublisherGroup, error) {
		conn := do.MustInvoke[*RedisConnection](i)
		logger := do.MustInvoke[*zap.Logger](i)

		publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
			Client:     conn.Client,
			Marshaller: redisstream.DefaultMarshallerUnmarshaller{},
		}, events.NewZapLogger(logger))
		if err != nil {
			return nil, err
		}

		return events.NewPublisherGroup(publisher), nil
	})

	do.Provide(injector, func(i *do.Injector) (events.Publish, error) {
		options := do.MustInvoke[*Options](i)
		if !options.Events {
			return events.NopPublish, nil
		}

		return do.MustInvoke[*events.PublisherGroup](i).Publish(), nil
	})
}

// PostgresPool owns the pgx pool so the injector can close it.
type PostgresPool struct {
	Pool *pgxpool.Pool
}

// Shutdown closes the pool.
func (p *PostgresPool) Shutdown() error {
	p.Pool.Close()

	return nil
}

// PostgresPackage provides the *PostgresPool for Options.DatabaseURL.
func PostgresPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*PostgresPool, error) {
		options := do.MustInvoke[*Options](i)

		pool, err := pgxpool.New(context.Background(), options.DatabaseURL)
		if err != nil {
			return nil, err
		}

		return &PostgresPool{Pool: pool}, nil
	})
}

// EventStorePackage provides the events.Store: PostgreSQL when a database URL
// is configured, otherwise a store that only logs.
func EventStorePackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (events.Store, error) {
		options := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if options.DatabaseURL == "" {
			logger.Warn("no database configured, limit exceeded events are only logged")

			return store.NewLogEventStore(logger), nil
		}

		pg := store.NewPostgresEventStore(do.MustInvoke[*PostgresPool](i).Pool)
		if err := pg.EnsureSchema(context.Background()); err != nil {
			return nil, err
		}

		return pg, nil
	})
}

// ConsumerPackage provides the *events.Consumer reading from the Redis stream.
func ConsumerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*events.Consumer, error) {
		conn := do.MustInvoke[*RedisConnection](i)
		logger := do.MustInvoke[*zap.Logger](i)
		eventStore := do.MustInvoke[events.Store](i)

		subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
			Client:        conn.Client,
			Unmarshaller:  redisstream.DefaultMarshallerUnmarshaller{},
			ConsumerGroup: EventsConsumerGroup,
		}, events.NewZapLogger(logger))
		if err != nil {
			return nil, err
		}

		return events.NewConsumer(subscriber, eventStore, logger), nil
	})
}
