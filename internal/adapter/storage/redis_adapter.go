package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	seenKeyPrefix = "seen:"
	seenKeyTTL    = 24 * time.Hour
)

// RedisAdapter is the fast-path duplicate filter for delivered messages.
// It is best effort: the ledger's processed_messages table remains the
// authoritative check.
type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) FirstDelivery(ctx context.Context, messageID string) (bool, error) {
	ok, err := r.client.SetNX(ctx, seenKeyPrefix+messageID, 1, seenKeyTTL).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}
