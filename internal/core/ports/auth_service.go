package ports

import (
	"context"
	"time"

	"github.com/acmecorp/auth-service/internal/core/domain"
)

// SignupInput carries the fields required to register a principal.
type SignupInput struct {
	Username string
	Email    string
	Password string
}

// LoginResult is the outcome of a successful primary authentication.
type LoginResult struct {
	Token     string
	ExpiresIn time.Duration
	Principal *domain.Principal
}

// AuthService orchestrates credential verification, token issuance, the OTP
// step-up factor and email verification.
type AuthService interface {
	// Signup registers a disabled user account and dispatches a verification
	// email. Uniqueness is checked username first, then email; the first
	// failing check wins.
	Signup(ctx context.Context, in SignupInput) (*domain.Principal, error)

	// SignupAdmin registers an administrator. Admin accounts are created
	// enabled and skip email verification.
	SignupAdmin(ctx context.Context, in SignupInput) (*domain.Principal, error)

	// Login verifies credentials and issues an access token. On success an
	// OTP is generated and dispatched asynchronously; a dispatch failure is
	// reported out-of-band and never rolls back the issued token.
	Login(ctx context.Context, username, password string) (*LoginResult, error)

	// VerifyEmail enables a freshly signed-up account when the submitted
	// code matches the outstanding verification record.
	VerifyEmail(ctx context.Context, username, code string) error

	// ResendVerification issues a fresh verification code for a not yet
	// enabled account.
	ResendVerification(ctx context.Context, email string) error

	// SendOtp generates a fresh OTP for the subject and delivers it
	// synchronously, so a delivery failure is visible to the caller.
	SendOtp(ctx context.Context, username string) error

	// ConfirmOtp validates the submitted OTP and, on success, marks the
	// subject OTP-confirmed for the remainder of its token lifetime.
	ConfirmOtp(ctx context.Context, username, code string) error
}
