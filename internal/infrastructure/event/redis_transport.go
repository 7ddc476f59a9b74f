// Package event provides the Redis pub/sub transport connecting event bus
// instances across processes.
package event

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisTransport publishes and consumes event envelopes on a Redis pub/sub
// channel. Delivery is at-most-once per connected instance; the bus layers
// de-duplication on top for redeliveries after reconnects.
type RedisTransport struct {
	client *redis.Client
	logger *zap.Logger

	mu     sync.Mutex
	pubsub *redis.PubSub
	done   chan struct{}
}

// NewRedisTransport creates a transport backed by an existing Redis client.
func NewRedisTransport(client *redis.Client, logger *zap.Logger) *RedisTransport {
	return &RedisTransport{
		client: client,
		logger: logger,
	}
}

// Publish sends one payload to every instance subscribed to the channel.
func (t *RedisTransport) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := t.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publishing to channel '%s': %w", channel, err)
	}
	return nil
}

// Subscribe starts consuming the channel in a background goroutine and
// invokes onMessage for every received payload. It returns once the
// subscription is confirmed by Redis.
func (t *RedisTransport) Subscribe(ctx context.Context, channel string, onMessage func(payload []byte)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pubsub != nil {
		return fmt.Errorf("transport already subscribed")
	}

	pubsub := t.client.Subscribe(ctx, channel)
	// Wait for the subscription to be confirmed so no publish is lost
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("subscribing to channel '%s': %w", channel, err)
	}

	t.pubsub = pubsub
	t.done = make(chan struct{})

	go t.consume(ctx, pubsub, onMessage)
	return nil
}

func (t *RedisTransport) consume(ctx context.Context, pubsub *redis.PubSub, onMessage func(payload []byte)) {
	defer close(t.done)
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			t.handle(msg, onMessage)
		}
	}
}

// handle invokes the callback for one message, containing panics so a bad
// handler cannot kill the consume loop.
func (t *RedisTransport) handle(msg *redis.Message, onMessage func(payload []byte)) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("message handler panicked",
				zap.String("channel", msg.Channel),
				zap.Any("panic", r),
			)
		}
	}()
	onMessage([]byte(msg.Payload))
}

// Close stops the subscription and waits for the consume loop to exit.
func (t *RedisTransport) Close() error {
	t.mu.Lock()
	pubsub := t.pubsub
	done := t.done
	t.pubsub = nil
	t.mu.Unlock()

	if pubsub == nil {
		return nil
	}
	err := pubsub.Close()
	if done != nil {
		<-done
	}
	return err
}
