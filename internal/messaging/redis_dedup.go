package messaging

import (
	"context"
	"fmt"
	"time"

	"chat-push/internal/interfaces"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const dedupKeyPrefix = "push:dispatched:"

type redisJobDeduplicator struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisJobDeduplicator помечает сообщения как обработанные через SETNX с TTL.
func NewRedisJobDeduplicator(client *redis.Client, ttl time.Duration, logger *zap.Logger) interfaces.JobDeduplicator {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &redisJobDeduplicator{
		client: client,
		ttl:    ttl,
		logger: logger.Named("RedisJobDeduplicator"),
	}
}

func (d *redisJobDeduplicator) MarkProcessing(ctx context.Context, messageID string) (bool, error) {
	key := dedupKeyPrefix + messageID
	ok, err := d.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis SETNX %s: %w", key, err)
	}
	if !ok {
		d.logger.Debug("Ключ дедупликации уже существует", zap.String("key", key))
	}
	return ok, nil
}

var _ interfaces.JobDeduplicator = (*redisJobDeduplicator)(nil)
