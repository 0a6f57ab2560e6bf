package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tarzihub/payment-service/pkg/messaging"
	"go.uber.org/zap"
)

// redisBridge mirrors every published event onto a redis pub/sub channel so
// in-process listeners (storefront sessions, ops dashboards) get notified
// without a Kafka consumer.
type redisBridge struct {
	inner   Publisher
	client  messaging.RedisClient
	channel string
	logger  *zap.Logger
}

// NewRedisBridge wraps a publisher so events also fan out over redis.
func NewRedisBridge(inner Publisher, client messaging.RedisClient, channel string, logger *zap.Logger) Publisher {
	return &redisBridge{
		inner:   inner,
		client:  client,
		channel: channel,
		logger:  logger,
	}
}

func (b *redisBridge) Publish(ctx context.Context, eventType string, payload interface{}) error {
	if err := b.inner.Publish(ctx, eventType, payload); err != nil {
		return err
	}

	event := Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
	if err := b.client.Publish(ctx, b.channel, event); err != nil {
		// Redis notification is best effort; the Kafka record is the source
		// of truth.
		b.logger.Warn("Failed to publish event notification to redis",
			zap.String("event_type", eventType),
			zap.Error(err))
	}

	return nil
}

func (b *redisBridge) Close() error {
	return b.inner.Close()
}
