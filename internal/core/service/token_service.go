package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/acmecorp/auth-service/internal/core/domain"
	"github.com/acmecorp/auth-service/internal/core/ports"
)

// tokenClaims is the wire shape of an access token payload.
type tokenClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// TokenService issues and validates HS256-signed access tokens. Validation is
// purely computational and safe for concurrent use.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token carrying the principal's username as subject plus its
// role. Identical inputs at different times yield different tokens because
// the issued-at claim varies.
func (s *TokenService) Issue(p *domain.Principal) (string, time.Duration, error) {
	now := time.Now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Role: p.Role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", 0, fmt.Errorf("sign token: %w", err)
	}
	return signed, s.ttl, nil
}

// Validate verifies signature and expiry and optionally pins the subject.
// Every failure maps onto exactly one domain token error; malformed input is
// classified, never propagated raw.
func (s *TokenService) Validate(token, expectedSubject string) (*ports.TokenClaims, error) {
	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, classifyTokenError(err)
	}
	if !parsed.Valid {
		return nil, domain.ErrTokenMalformed
	}

	if expectedSubject != "" && claims.Subject != expectedSubject {
		return nil, domain.ErrSubjectMismatch
	}

	out := &ports.TokenClaims{Subject: claims.Subject, Role: claims.Role}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// classifyTokenError maps jwt parse failures onto the domain taxonomy.
// Expiry is checked first so repeated validation of an expired token gives
// the same classification even when other claim problems are present.
func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return domain.ErrBadSignature
	default:
		return domain.ErrTokenMalformed
	}
}
