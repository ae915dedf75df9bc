package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "kyc:webhook:seen:"

// Redis shares the replay ledger across instances. Keys expire on their own.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (l *Redis) Seen(ctx context.Context, key string) (bool, error) {
	n, err := l.client.Exists(ctx, keyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("check webhook ledger: %w", err)
	}
	return n > 0, nil
}

// Remember marks key for ttl. An existing mark keeps its original expiry.
func (l *Redis) Remember(ctx context.Context, key string, ttl time.Duration) error {
	if err := l.client.SetNX(ctx, keyPrefix+key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("write webhook ledger: %w", err)
	}
	return nil
}
