package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Confirmations records which subjects have completed the OTP step-up.
// Key format: otp:confirmed:<subject>. A marker lives at most as long as the
// access token it belongs to, so a new login always starts unconfirmed.
type Confirmations struct {
	client *redis.Client
	ttl    time.Duration
}

// NewConfirmations creates a Confirmations store whose markers expire after
// ttl (normally the token lifetime).
func NewConfirmations(client *redis.Client, ttl time.Duration) *Confirmations {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Confirmations{client: client, ttl: ttl}
}

// Mark flags the subject as OTP-confirmed for the marker lifetime.
func (c *Confirmations) Mark(ctx context.Context, subject string) error {
	if err := c.client.Set(ctx, c.key(subject), "1", c.ttl).Err(); err != nil {
		return fmt.Errorf("mark otp confirmed: %w", err)
	}
	return nil
}

// IsConfirmed reports whether the subject has a live confirmation marker.
func (c *Confirmations) IsConfirmed(ctx context.Context, subject string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(subject)).Result()
	if err != nil {
		return false, fmt.Errorf("check otp confirmed: %w", err)
	}
	return n > 0, nil
}

// Clear drops the marker, forcing the subject back through the step-up.
func (c *Confirmations) Clear(ctx context.Context, subject string) error {
	if err := c.client.Del(ctx, c.key(subject)).Err(); err != nil {
		return fmt.Errorf("clear otp confirmed: %w", err)
	}
	return nil
}

func (c *Confirmations) key(subject string) string {
	return "otp:confirmed:" + subject
}
