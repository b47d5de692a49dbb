package matching

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Presence tracks provider liveness. Providers heartbeat periodically;
// a missing key means the app has gone quiet even if Mongo still says
// "online".
type Presence interface {
	IsOnline(ctx context.Context, providerID string) (bool, error)
	Heartbeat(ctx context.Context, providerID string) error
}

const presenceTTL = 90 * time.Second

// RedisPresence implements Presence with TTL keys in Redis.
type RedisPresence struct {
	Client *redis.Client
}

func presenceKey(providerID string) string {
	return "provider:online:" + providerID
}

func (p *RedisPresence) IsOnline(ctx context.Context, providerID string) (bool, error) {
	n, err := p.Client.Exists(ctx, presenceKey(providerID)).Result()
	if err != nil {
		return false, fmt.Errorf("presence lookup failed for provider %s: %w", providerID, err)
	}
	return n > 0, nil
}

func (p *RedisPresence) Heartbeat(ctx context.Context, providerID string) error {
	if err := p.Client.Set(ctx, presenceKey(providerID), "1", presenceTTL).Err(); err != nil {
		return fmt.Errorf("presence heartbeat failed for provider %s: %w", providerID, err)
	}
	return nil
}
