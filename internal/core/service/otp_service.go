package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/acmecorp/auth-service/internal/core/ports"
)

const codeSpace = 1000000 // 6 digits: 000000–999999

// randomCode draws a cryptographically strong zero-padded 6-digit code.
// Shared between OTP generation and email verification codes.
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpace))
	if err != nil {
		return "", fmt.Errorf("draw code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// OtpService generates and validates one-time passcodes backed by an injected
// concurrency-safe store. Concurrent Generate calls for the same owner race;
// the last write wins and only that code validates afterwards.
type OtpService struct {
	store ports.OtpStore
	ttl   time.Duration
}

func NewOtpService(store ports.OtpStore, ttl time.Duration) *OtpService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &OtpService{store: store, ttl: ttl}
}

// Generate draws a fresh code for owner, overwriting any prior record.
func (s *OtpService) Generate(ctx context.Context, owner string) (string, error) {
	code, err := randomCode()
	if err != nil {
		return "", err
	}
	if err := s.store.Put(ctx, owner, code, time.Now().Add(s.ttl)); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}
	return code, nil
}

// Validate consumes the live code on a match (one-time use). Missing owner,
// expired record or mismatch all report false and leave the record alone.
func (s *OtpService) Validate(ctx context.Context, owner, code string) (bool, error) {
	if code == "" {
		return false, nil
	}
	return s.store.Consume(ctx, owner, code)
}
