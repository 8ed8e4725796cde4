package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/acmecorp/auth-service/internal/core/domain"
	"github.com/acmecorp/auth-service/internal/core/ports"
)

// AuthService coordinates the credential store, token service, OTP service
// and notification gateway. It owns the login state machine and the signup /
// verification flows; it never writes OTP records itself.
type AuthService struct {
	repo            ports.PrincipalRepository
	tokens          ports.TokenService
	otp             ports.OtpService
	confirmations   ports.OtpConfirmations
	mailer          ports.Mailer
	dispatcher      ports.MailDispatcher
	verificationTTL time.Duration
	log             zerolog.Logger
}

func NewAuthService(
	repo ports.PrincipalRepository,
	tokens ports.TokenService,
	otp ports.OtpService,
	confirmations ports.OtpConfirmations,
	mailer ports.Mailer,
	dispatcher ports.MailDispatcher,
	verificationTTL time.Duration,
	log zerolog.Logger,
) *AuthService {
	if verificationTTL <= 0 {
		verificationTTL = 15 * time.Minute
	}
	return &AuthService{
		repo:            repo,
		tokens:          tokens,
		otp:             otp,
		confirmations:   confirmations,
		mailer:          mailer,
		dispatcher:      dispatcher,
		verificationTTL: verificationTTL,
		log:             log,
	}
}

// Signup registers a disabled user account with an outstanding verification
// code and queues the verification email. Uniqueness checks run username
// first, then email; the first failure short-circuits.
func (s *AuthService) Signup(ctx context.Context, in ports.SignupInput) (*domain.Principal, error) {
	return s.signup(ctx, in, domain.RoleUser)
}

// SignupAdmin registers an administrator. Admins are created enabled and
// receive no verification email.
func (s *AuthService) SignupAdmin(ctx context.Context, in ports.SignupInput) (*domain.Principal, error) {
	return s.signup(ctx, in, domain.RoleAdmin)
}

func (s *AuthService) signup(ctx context.Context, in ports.SignupInput, role string) (*domain.Principal, error) {
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, domain.ErrInvalidInput
	}

	// 1. Uniqueness, username first.
	if taken, err := s.repo.ExistsByUsername(ctx, in.Username); err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	} else if taken {
		return nil, domain.ErrDuplicateUsername
	}
	if taken, err := s.repo.ExistsByEmail(ctx, in.Email); err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	} else if taken {
		return nil, domain.ErrDuplicateEmail
	}

	// 2. Hash the password.
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("signup: hash password: %w", err)
	}

	now := time.Now().UTC()
	p := &domain.Principal{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         role,
		Enabled:      role == domain.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// 3. Users start disabled with a verification record attached.
	if role == domain.RoleUser {
		code, err := randomCode()
		if err != nil {
			return nil, fmt.Errorf("signup: %w", err)
		}
		p.VerificationCode = code
		p.VerificationExpiresAt = now.Add(s.verificationTTL)
	}

	// 4. Persist. The storage layer still enforces uniqueness, so a race
	// between the exists check and the insert surfaces as a duplicate error.
	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return nil, err
	}

	// 5. Queue the verification email. Signup proceeds regardless of the
	// dispatch outcome; failures are logged by the dispatcher.
	if role == domain.RoleUser {
		s.dispatcher.Enqueue(ports.MailJob{
			ID:        uuid.NewString(),
			Kind:      ports.MailKindVerification,
			Owner:     created.Username,
			Recipient: created.Email,
			Code:      created.VerificationCode,
		})
	}

	s.log.Info().Str("username", created.Username).Str("role", role).Msg("principal registered")
	return created, nil
}

// Login runs the primary authentication state machine: lookup → enabled
// check → password check → token issue. On success the OTP step-up dispatch
// is queued; its failure is visible only in logs and metrics and never
// revokes the issued token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	if username == "" || password == "" {
		return nil, domain.ErrBadCredentials
	}

	p, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if !p.Enabled {
		return nil, domain.ErrAccountNotEnabled
	}

	if bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrBadCredentials
	}

	token, expiresIn, err := s.tokens.Issue(p)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	// A fresh login invalidates any step-up state left over from a previous
	// token, then queues a new OTP for delivery.
	if err := s.confirmations.Clear(ctx, p.Username); err != nil {
		s.log.Warn().Err(err).Str("username", p.Username).Msg("failed to clear otp confirmation")
	}
	s.dispatcher.Enqueue(ports.MailJob{
		ID:        uuid.NewString(),
		Kind:      ports.MailKindOtp,
		Owner:     p.Username,
		Recipient: p.Email,
	})

	s.log.Info().Str("username", p.Username).Str("role", p.Role).Msg("login succeeded, otp queued")
	return &ports.LoginResult{Token: token, ExpiresIn: expiresIn, Principal: p}, nil
}

// VerifyEmail enables the account when the submitted verification code
// matches the outstanding record. Expiry is checked before the code itself.
func (s *AuthService) VerifyEmail(ctx context.Context, username, code string) error {
	p, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return err
	}

	if p.Enabled {
		return domain.ErrAlreadyVerified
	}
	if p.VerificationExpiresAt.IsZero() || time.Now().After(p.VerificationExpiresAt) {
		return domain.ErrCodeExpired
	}
	if p.VerificationCode != code {
		return domain.ErrCodeMismatch
	}

	p.Enabled = true
	p.VerificationCode = ""
	p.VerificationExpiresAt = time.Time{}
	p.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, p); err != nil {
		return fmt.Errorf("verify email: %w", err)
	}

	s.log.Info().Str("username", p.Username).Msg("account verified and enabled")
	return nil
}

// ResendVerification replaces the outstanding verification record with a
// fresh code and queues the email again.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	p, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	if p.Enabled {
		return domain.ErrAlreadyVerified
	}

	code, err := randomCode()
	if err != nil {
		return fmt.Errorf("resend verification: %w", err)
	}
	p.VerificationCode = code
	p.VerificationExpiresAt = time.Now().UTC().Add(s.verificationTTL)
	p.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, p); err != nil {
		return fmt.Errorf("resend verification: %w", err)
	}

	s.dispatcher.Enqueue(ports.MailJob{
		ID:        uuid.NewString(),
		Kind:      ports.MailKindVerification,
		Owner:     p.Username,
		Recipient: p.Email,
		Code:      code,
	})
	return nil
}

// SendOtp generates and delivers a fresh OTP synchronously so the caller
// sees a delivery failure. No OTP store lock is held across the send.
func (s *AuthService) SendOtp(ctx context.Context, username string) error {
	p, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return err
	}

	code, err := s.otp.Generate(ctx, p.Username)
	if err != nil {
		return fmt.Errorf("send otp: %w", err)
	}
	if err := s.mailer.SendOtp(ctx, p.Email, code); err != nil {
		s.log.Error().Err(err).Str("username", p.Username).Msg("otp delivery failed")
		return fmt.Errorf("%w: %v", domain.ErrOtpDispatch, err)
	}
	return nil
}

// ConfirmOtp validates the submitted OTP and marks the subject confirmed for
// the rest of its token lifetime.
func (s *AuthService) ConfirmOtp(ctx context.Context, username, code string) error {
	ok, err := s.otp.Validate(ctx, username, code)
	if err != nil {
		return fmt.Errorf("confirm otp: %w", err)
	}
	if !ok {
		return domain.ErrOtpInvalid
	}

	if err := s.confirmations.Mark(ctx, username); err != nil {
		return fmt.Errorf("confirm otp: mark confirmed: %w", err)
	}
	s.log.Info().Str("username", username).Msg("otp confirmed")
	return nil
}
