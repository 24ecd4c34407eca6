package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/serroba/ip-rate-limiter/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockSubscriber struct {
	msgs         chan *message.Message
	subscribeErr error
	closeErr     error
	mu           sync.Mutex
	closed       bool
}

func newMockSubscriber() *mockSubscriber {
	return &mockSubscriber{msgs: make(chan *message.Message, 10)}
}

func (m *mockSubscriber) Subscribe(_ context.Context, topic string) (<-chan *message.Message, error) {
	if m.subscribeErr != nil {
		return nil, m.subscribeErr
	}

	if topic != events.TopicLimitExceeded {
		return nil, errors.New("unknown topic")
	}

	return m.msgs, nil
}

func (m *mockSubscriber) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.msgs)
	}

	return m.closeErr
}

type mockStore struct {
	mu      sync.Mutex
	events  []*events.LimitExceededEvent
	saveErr error
}

func (m *mockStore) SaveLimitExceeded(_ context.Context, event *events.LimitExceededEvent) error {
	if m.saveErr != nil {
		return m.saveErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, event)

	return nil
}

func (m *mockStore) saved() []*events.LimitExceededEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]*events.LimitExceededEvent(nil), m.events...)
}

func newEventMessage(t *testing.T, event *events.LimitExceededEvent) *message.Message {
	t.Helper()

	payload, err := json.Marshal(event)
	require.NoError(t, err)

	return message.NewMessage(uuid.NewString(), payload)
}

func waitForAckOrNack(t *testing.T, msg *message.Message) string {
	t.Helper()

	select {
	case <-msg.Acked():
		return "ack"
	case <-msg.Nacked():
		return "nack"
	case <-time.After(time.Second):
		t.Fatal("message was neither acked nor nacked")

		return ""
	}
}

func TestConsumer_Start(t *testing.T) {
	t.Run("starts successfully", func(t *testing.T) {
		consumer := events.NewConsumer(newMockSubscriber(), &mockStore{}, zap.NewNop())

		require.NoError(t, consumer.Start(context.Background()))
		assert.NoError(t, consumer.Shutdown())
	})

	t.Run("returns error when subscription fails", func(t *testing.T) {
		sub := &mockSubscriber{msgs: make(chan *message.Message), subscribeErr: errors.New("subscribe error")}
		consumer := events.NewConsumer(sub, &mockStore{}, zap.NewNop())

		err := consumer.Start(context.Background())

		require.Error(t, err)
		assert.NoError(t, consumer.Shutdown(), "shutdown must not block after a failed start")
	})
}

func TestConsumer_ProcessLimitExceeded(t *testing.T) {
	t.Run("saves event and acks", func(t *testing.T) {
		sub := newMockSubscriber()
		store := &mockStore{}
		consumer := events.NewConsumer(sub, store, zap.NewNop())
		require.NoError(t, consumer.Start(context.Background()))

		defer func() { _ = consumer.Shutdown() }()

		msg := newEventMessage(t, &events.LimitExceededEvent{Key: "1.2.3.4", Count: 3, Max: 2})
		sub.msgs <- msg

		assert.Equal(t, "ack", waitForAckOrNack(t, msg))
		require.Len(t, store.saved(), 1)
		assert.Equal(t, "1.2.3.4", store.saved()[0].Key)
	})

	t.Run("nacks when store fails", func(t *testing.T) {
		sub := newMockSubscriber()
		store := &mockStore{saveErr: errors.New("database down")}
		consumer := events.NewConsumer(sub, store, zap.NewNop())
		require.NoError(t, consumer.Start(context.Background()))

		defer func() { _ = consumer.Shutdown() }()

		msg := newEventMessage(t, &events.LimitExceededEvent{Key: "1.2.3.4"})
		sub.msgs <- msg

		assert.Equal(t, "nack", waitForAckOrNack(t, msg))
	})

	t.Run("drops malformed payloads", func(t *testing.T) {
		sub := newMockSubscriber()
		store := &mockStore{}
		consumer := events.NewConsumer(sub, store, zap.NewNop())
		require.NoError(t, consumer.Start(context.Background()))

		defer func() { _ = consumer.Shutdown() }()

		msg := message.NewMessage(uuid.NewString(), []byte("not json"))
		sub.msgs <- msg

		assert.Equal(t, "ack", waitForAckOrNack(t, msg))
		assert.Empty(t, store.saved())
	})
}

func TestConsumer_Shutdown(t *testing.T) {
	t.Run("does not block when never started", func(t *testing.T) {
		sub := newMockSubscriber()
		consumer := events.NewConsumer(sub, &mockStore{}, zap.NewNop())

		done := make(chan error, 1)
		go func() { done <- consumer.Shutdown() }()

		select {
		case err := <-done:
			require.NoError(t, err)
			assert.True(t, sub.closed)
		case <-time.After(time.Second):
			t.Fatal("shutdown blocked without a prior start")
		}
	})

	t.Run("returns subscriber close error", func(t *testing.T) {
		sub := newMockSubscriber()
		sub.closeErr = errors.New("close error")
		consumer := events.NewConsumer(sub, &mockStore{}, zap.NewNop())
		require.NoError(t, consumer.Start(context.Background()))

		assert.Error(t, consumer.Shutdown())
	})
}
