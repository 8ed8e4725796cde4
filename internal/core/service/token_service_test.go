package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/acmecorp/auth-service/internal/core/domain"
)

func testPrincipal() *domain.Principal {
	return &domain.Principal{Username: "alice", Role: domain.RoleUser, Enabled: true}
}

func TestTokenService_IssueAndValidate(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)

	token, expiresIn, err := svc.Issue(testPrincipal())
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if token == "" {
		t.Fatalf("expected token, got empty")
	}
	if expiresIn != time.Hour {
		t.Fatalf("expected 1h expiry, got %v", expiresIn)
	}

	claims, err := svc.Validate(token, "")
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if claims.Subject != "alice" {
		t.Fatalf("expected subject alice, got %s", claims.Subject)
	}
	if claims.Role != domain.RoleUser {
		t.Fatalf("expected role %s, got %s", domain.RoleUser, claims.Role)
	}
	if !claims.ExpiresAt.After(claims.IssuedAt) {
		t.Fatalf("expiry %v not after issued-at %v", claims.ExpiresAt, claims.IssuedAt)
	}
}

func TestTokenService_Validate_SubjectMismatch(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)

	token, _, err := svc.Issue(testPrincipal())
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := svc.Validate(token, "alice"); err != nil {
		t.Fatalf("expected match for alice, got %v", err)
	}
	if _, err := svc.Validate(token, "mallory"); !errors.Is(err, domain.ErrSubjectMismatch) {
		t.Fatalf("expected ErrSubjectMismatch, got %v", err)
	}
}

func TestTokenService_Validate_Expired(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)

	// Sign an already-expired token with the right secret.
	expired := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
		Role: domain.RoleUser,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, expired).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	// Rejection must be idempotent: repeated calls classify identically.
	for i := 0; i < 3; i++ {
		if _, err := svc.Validate(token, ""); !errors.Is(err, domain.ErrTokenExpired) {
			t.Fatalf("call %d: expected ErrTokenExpired, got %v", i, err)
		}
	}
}

func TestTokenService_Validate_BadSignature(t *testing.T) {
	issuer := NewTokenService("other-secret", time.Hour)
	svc := NewTokenService("secret", time.Hour)

	token, _, err := issuer.Issue(testPrincipal())
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := svc.Validate(token, ""); !errors.Is(err, domain.ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}
}

func TestTokenService_Validate_Malformed(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)

	for _, token := range []string{"", "not-a-token", "a.b", "a.b.c.d"} {
		if _, err := svc.Validate(token, ""); !errors.Is(err, domain.ErrTokenMalformed) {
			t.Fatalf("token %q: expected ErrTokenMalformed, got %v", token, err)
		}
	}
}

func TestTokenService_Validate_WrongAlgorithm(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)

	// "none" algorithm must be refused even with a matching payload.
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: domain.RoleUser,
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := svc.Validate(token, ""); err == nil {
		t.Fatalf("expected rejection of alg=none token")
	}
}
