package otpstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// consumeScript deletes the key only when the stored code matches, making
// match-and-delete atomic on the Redis side.
var consumeScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is an OTP store backed by a shared Redis instance. Expiry rides on
// the key TTL, so expired codes vanish without explicit eviction.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (s *Redis) Put(ctx context.Context, owner, code string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		// Already expired: make sure no stale code survives.
		return s.client.Del(ctx, s.key(owner)).Err()
	}
	if err := s.client.Set(ctx, s.key(owner), code, ttl).Err(); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	return nil
}

func (s *Redis) Consume(ctx context.Context, owner, code string) (bool, error) {
	n, err := consumeScript.Run(ctx, s.client, []string{s.key(owner)}, code).Int()
	if err != nil {
		return false, fmt.Errorf("consume otp: %w", err)
	}
	return n > 0, nil
}

func (s *Redis) key(owner string) string {
	return "otp:code:" + owner
}
