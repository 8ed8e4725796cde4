package ports

import (
	"time"

	"github.com/acmecorp/auth-service/internal/core/domain"
)

// TokenClaims is the decoded content of an access token.
type TokenClaims struct {
	Subject   string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenService issues and validates signed, time-bound access tokens.
// Tokens are stateless: nothing is stored server-side and there is no
// revocation list — a token is valid until its natural expiry.
type TokenService interface {
	// Issue encodes subject, role, issued-at and expiry and signs the result.
	Issue(p *domain.Principal) (token string, expiresIn time.Duration, err error)

	// Validate verifies the signature and expiry and returns the claims.
	// Failures are classified as domain.ErrTokenExpired,
	// domain.ErrBadSignature or domain.ErrTokenMalformed. When
	// expectedSubject is non-empty, a claims subject that differs fails with
	// domain.ErrSubjectMismatch.
	Validate(token, expectedSubject string) (*TokenClaims, error)
}
