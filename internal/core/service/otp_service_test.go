package service

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/acmecorp/auth-service/internal/infrastructure/otpstore"
)

var sixDigits = regexp.MustCompile(`^\d{6}$`)

func TestOtpService_GenerateThenValidate(t *testing.T) {
	svc := NewOtpService(otpstore.NewMemory(), 5*time.Minute)
	ctx := context.Background()

	code, err := svc.Generate(ctx, "alice")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if !sixDigits.MatchString(code) {
		t.Fatalf("expected 6-digit code, got %q", code)
	}

	ok, err := svc.Validate(ctx, "alice", code)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected fresh code to validate")
	}

	// One-time use: the same code must not validate twice.
	ok, err = svc.Validate(ctx, "alice", code)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if ok {
		t.Fatalf("expected consumed code to be rejected")
	}
}

func TestOtpService_MismatchKeepsCode(t *testing.T) {
	svc := NewOtpService(otpstore.NewMemory(), 5*time.Minute)
	ctx := context.Background()

	code, err := svc.Generate(ctx, "alice")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	if ok, _ := svc.Validate(ctx, "alice", wrong); ok {
		t.Fatalf("expected wrong code to be rejected")
	}

	// The real code must still work after a failed attempt.
	if ok, _ := svc.Validate(ctx, "alice", code); !ok {
		t.Fatalf("expected real code to survive a mismatch")
	}
}

func TestOtpService_MissingOwner(t *testing.T) {
	svc := NewOtpService(otpstore.NewMemory(), 5*time.Minute)

	if ok, _ := svc.Validate(context.Background(), "ghost", "123456"); ok {
		t.Fatalf("expected validation to fail for unknown owner")
	}
}

func TestOtpService_EmptyCode(t *testing.T) {
	svc := NewOtpService(otpstore.NewMemory(), 5*time.Minute)
	ctx := context.Background()

	if _, err := svc.Generate(ctx, "alice"); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if ok, _ := svc.Validate(ctx, "alice", ""); ok {
		t.Fatalf("expected empty code to be rejected")
	}
}

func TestOtpService_ExpiredCode(t *testing.T) {
	store := otpstore.NewMemory()
	svc := NewOtpService(store, 5*time.Minute)
	ctx := context.Background()

	// Plant an already-expired record directly in the store.
	if err := store.Put(ctx, "alice", "123456", time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if ok, _ := svc.Validate(ctx, "alice", "123456"); ok {
		t.Fatalf("expected expired code to be rejected")
	}
}

func TestOtpService_RegenerateSupersedes(t *testing.T) {
	svc := NewOtpService(otpstore.NewMemory(), 5*time.Minute)
	ctx := context.Background()

	first, err := svc.Generate(ctx, "bob")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	second, err := svc.Generate(ctx, "bob")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if first == second {
		t.Skip("generator drew the same code twice; cannot distinguish records")
	}

	if ok, _ := svc.Validate(ctx, "bob", first); ok {
		t.Fatalf("expected superseded code to be rejected")
	}
	if ok, _ := svc.Validate(ctx, "bob", second); !ok {
		t.Fatalf("expected latest code to validate")
	}
}

func TestOtpService_ConcurrentGenerate(t *testing.T) {
	svc := NewOtpService(otpstore.NewMemory(), 5*time.Minute)
	ctx := context.Background()

	const n = 16
	codes := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			code, err := svc.Generate(ctx, "bob")
			if err != nil {
				t.Errorf("Generate returned error: %v", err)
				return
			}
			codes[i] = code
		}(i)
	}
	wg.Wait()

	// Last writer wins: exactly one of the generated codes is live, and
	// validating it consumes it.
	live := 0
	for _, code := range codes {
		if code == "" {
			continue
		}
		ok, err := svc.Validate(ctx, "bob", code)
		if err != nil {
			t.Fatalf("Validate returned error: %v", err)
		}
		if ok {
			live++
		}
	}
	if live != 1 {
		t.Fatalf("expected exactly one live code, got %d", live)
	}
}
