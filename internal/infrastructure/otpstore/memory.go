// Package otpstore provides the concurrency-safe keyed stores behind the OTP
// service: an in-process map for single-instance deployments and a
// Redis-backed variant for horizontal scaling.
package otpstore

import (
	"context"
	"sync"
	"time"
)

type record struct {
	code      string
	expiresAt time.Time
}

// Memory is a mutex-guarded in-process OTP store. Records are stored by
// value, so readers always observe a consistent (code, expiry) pair.
type Memory struct {
	mu sync.Mutex
	m  map[string]record
}

func NewMemory() *Memory {
	return &Memory{m: make(map[string]record)}
}

// Put overwrites any prior record for owner (last writer wins).
func (s *Memory) Put(_ context.Context, owner, code string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[owner] = record{code: code, expiresAt: expiresAt}
	return nil
}

// Consume deletes the record iff it exists, matches and is still live.
// Expired records are evicted lazily here; a mismatch leaves the record
// intact so the holder can retry within the window.
func (s *Memory) Consume(_ context.Context, owner, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.m[owner]
	if !ok {
		return false, nil
	}
	if !time.Now().Before(rec.expiresAt) {
		delete(s.m, owner)
		return false, nil
	}
	if rec.code != code {
		return false, nil
	}

	delete(s.m, owner)
	return true, nil
}
