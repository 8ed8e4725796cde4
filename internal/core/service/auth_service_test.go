package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/acmecorp/auth-service/internal/core/domain"
	"github.com/acmecorp/auth-service/internal/core/ports"
	"github.com/acmecorp/auth-service/internal/infrastructure/otpstore"
)

type stubRepo struct {
	principals map[string]*domain.Principal
}

func newStubRepo() *stubRepo {
	return &stubRepo{principals: make(map[string]*domain.Principal)}
}

func clonePrincipal(p *domain.Principal) *domain.Principal {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

func (r *stubRepo) FindByUsername(_ context.Context, username string) (*domain.Principal, error) {
	if p, ok := r.principals[username]; ok {
		return clonePrincipal(p), nil
	}
	return nil, domain.ErrPrincipalNotFound
}

func (r *stubRepo) FindByEmail(_ context.Context, email string) (*domain.Principal, error) {
	for _, p := range r.principals {
		if p.Email == email {
			return clonePrincipal(p), nil
		}
	}
	return nil, domain.ErrPrincipalNotFound
}

func (r *stubRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	_, ok := r.principals[username]
	return ok, nil
}

func (r *stubRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	for _, p := range r.principals {
		if p.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubRepo) Create(_ context.Context, p *domain.Principal) (*domain.Principal, error) {
	if _, ok := r.principals[p.Username]; ok {
		return nil, domain.ErrDuplicateUsername
	}
	copy := clonePrincipal(p)
	copy.ID = p.Username
	r.principals[copy.Username] = clonePrincipal(copy)
	return clonePrincipal(copy), nil
}

func (r *stubRepo) Update(_ context.Context, p *domain.Principal) error {
	if _, ok := r.principals[p.Username]; !ok {
		return domain.ErrPrincipalNotFound
	}
	r.principals[p.Username] = clonePrincipal(p)
	return nil
}

type stubDispatcher struct {
	jobs []ports.MailJob
}

func (d *stubDispatcher) Enqueue(job ports.MailJob) {
	d.jobs = append(d.jobs, job)
}

type stubConfirmations struct {
	confirmed map[string]bool
}

func newStubConfirmations() *stubConfirmations {
	return &stubConfirmations{confirmed: make(map[string]bool)}
}

func (s *stubConfirmations) Mark(_ context.Context, subject string) error {
	s.confirmed[subject] = true
	return nil
}

func (s *stubConfirmations) IsConfirmed(_ context.Context, subject string) (bool, error) {
	return s.confirmed[subject], nil
}

func (s *stubConfirmations) Clear(_ context.Context, subject string) error {
	delete(s.confirmed, subject)
	return nil
}

type stubMailer struct {
	otpCodes          []string
	verificationCodes []string
	fail              bool
}

func (m *stubMailer) SendOtp(_ context.Context, _, code string) error {
	if m.fail {
		return errors.New("smtp unreachable")
	}
	m.otpCodes = append(m.otpCodes, code)
	return nil
}

func (m *stubMailer) SendVerification(_ context.Context, _, code string) error {
	if m.fail {
		return errors.New("smtp unreachable")
	}
	m.verificationCodes = append(m.verificationCodes, code)
	return nil
}

type authFixture struct {
	svc           *AuthService
	repo          *stubRepo
	tokens        *TokenService
	dispatcher    *stubDispatcher
	confirmations *stubConfirmations
	mailer        *stubMailer
}

func newAuthFixture() *authFixture {
	repo := newStubRepo()
	tokens := NewTokenService("secret", time.Hour)
	otp := NewOtpService(otpstore.NewMemory(), 5*time.Minute)
	dispatcher := &stubDispatcher{}
	confirmations := newStubConfirmations()
	mailer := &stubMailer{}

	svc := NewAuthService(repo, tokens, otp, confirmations, mailer, dispatcher, 15*time.Minute, zerolog.Nop())
	return &authFixture{
		svc:           svc,
		repo:          repo,
		tokens:        tokens,
		dispatcher:    dispatcher,
		confirmations: confirmations,
		mailer:        mailer,
	}
}

func (f *authFixture) signupUser(t *testing.T, username, email, password string) *domain.Principal {
	t.Helper()
	p, err := f.svc.Signup(context.Background(), ports.SignupInput{Username: username, Email: email, Password: password})
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	return p
}

func TestAuthService_Signup_Success(t *testing.T) {
	f := newAuthFixture()

	p := f.signupUser(t, "alice", "alice@example.com", "s3cretpass")

	if p.Enabled {
		t.Fatalf("expected account to start disabled")
	}
	if p.Role != domain.RoleUser {
		t.Fatalf("expected role USER, got %s", p.Role)
	}
	if p.PasswordHash == "s3cretpass" {
		t.Fatalf("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte("s3cretpass")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}

	stored := f.repo.principals["alice"]
	if len(stored.VerificationCode) != 6 {
		t.Fatalf("expected 6-digit verification code, got %q", stored.VerificationCode)
	}
	if !stored.VerificationExpiresAt.After(time.Now()) {
		t.Fatalf("expected verification expiry in the future")
	}

	if len(f.dispatcher.jobs) != 1 {
		t.Fatalf("expected one queued mail job, got %d", len(f.dispatcher.jobs))
	}
	job := f.dispatcher.jobs[0]
	if job.Kind != ports.MailKindVerification || job.Recipient != "alice@example.com" || job.Code != stored.VerificationCode {
		t.Fatalf("unexpected mail job: %+v", job)
	}
}

func TestAuthService_Signup_UsernameCheckWins(t *testing.T) {
	f := newAuthFixture()
	f.signupUser(t, "alice", "alice@example.com", "s3cretpass")

	// Both username and email collide; the username check runs first.
	_, err := f.svc.Signup(context.Background(), ports.SignupInput{
		Username: "alice", Email: "alice@example.com", Password: "otherpass1",
	})
	if !errors.Is(err, domain.ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}

	_, err = f.svc.Signup(context.Background(), ports.SignupInput{
		Username: "alice2", Email: "alice@example.com", Password: "otherpass1",
	})
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestAuthService_Signup_MissingFields(t *testing.T) {
	f := newAuthFixture()

	_, err := f.svc.Signup(context.Background(), ports.SignupInput{Username: "alice"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAuthService_SignupAdmin_EnabledImmediately(t *testing.T) {
	f := newAuthFixture()

	p, err := f.svc.SignupAdmin(context.Background(), ports.SignupInput{
		Username: "root", Email: "root@example.com", Password: "adminpass1",
	})
	if err != nil {
		t.Fatalf("admin signup failed: %v", err)
	}
	if !p.Enabled {
		t.Fatalf("expected admin to be enabled on creation")
	}
	if p.Role != domain.RoleAdmin {
		t.Fatalf("expected role ADMIN, got %s", p.Role)
	}
	if len(f.dispatcher.jobs) != 0 {
		t.Fatalf("expected no verification mail for admins")
	}
}

func TestAuthService_VerifyEmail_Flow(t *testing.T) {
	f := newAuthFixture()
	f.signupUser(t, "alice", "alice@example.com", "s3cretpass")
	ctx := context.Background()

	code := f.repo.principals["alice"].VerificationCode
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	if err := f.svc.VerifyEmail(ctx, "ghost", code); !errors.Is(err, domain.ErrPrincipalNotFound) {
		t.Fatalf("expected ErrPrincipalNotFound, got %v", err)
	}
	if err := f.svc.VerifyEmail(ctx, "alice", wrong); !errors.Is(err, domain.ErrCodeMismatch) {
		t.Fatalf("expected ErrCodeMismatch, got %v", err)
	}

	// The mismatch must not consume the real code.
	if err := f.svc.VerifyEmail(ctx, "alice", code); err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	stored := f.repo.principals["alice"]
	if !stored.Enabled {
		t.Fatalf("expected account to be enabled after verification")
	}
	if stored.VerificationCode != "" || !stored.VerificationExpiresAt.IsZero() {
		t.Fatalf("expected verification fields to be cleared")
	}

	if err := f.svc.VerifyEmail(ctx, "alice", code); !errors.Is(err, domain.ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified, got %v", err)
	}
}

func TestAuthService_VerifyEmail_Expired(t *testing.T) {
	f := newAuthFixture()
	f.signupUser(t, "alice", "alice@example.com", "s3cretpass")

	stored := f.repo.principals["alice"]
	stored.VerificationExpiresAt = time.Now().Add(-time.Minute)

	err := f.svc.VerifyEmail(context.Background(), "alice", stored.VerificationCode)
	if !errors.Is(err, domain.ErrCodeExpired) {
		t.Fatalf("expected ErrCodeExpired, got %v", err)
	}
}

func TestAuthService_Login_StateMachine(t *testing.T) {
	f := newAuthFixture()
	f.signupUser(t, "alice", "alice@example.com", "correctpass")
	ctx := context.Background()

	// Unknown principal.
	if _, err := f.svc.Login(ctx, "ghost", "whatever"); !errors.Is(err, domain.ErrPrincipalNotFound) {
		t.Fatalf("expected ErrPrincipalNotFound, got %v", err)
	}

	// The enabled check runs before the password check.
	if _, err := f.svc.Login(ctx, "alice", "correctpass"); !errors.Is(err, domain.ErrAccountNotEnabled) {
		t.Fatalf("expected ErrAccountNotEnabled, got %v", err)
	}

	if err := f.svc.VerifyEmail(ctx, "alice", f.repo.principals["alice"].VerificationCode); err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	if _, err := f.svc.Login(ctx, "alice", "wrongpass"); !errors.Is(err, domain.ErrBadCredentials) {
		t.Fatalf("expected ErrBadCredentials, got %v", err)
	}

	res, err := f.svc.Login(ctx, "alice", "correctpass")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if res.Token == "" || res.ExpiresIn <= 0 {
		t.Fatalf("unexpected login result: %+v", res)
	}

	claims, err := f.tokens.Validate(res.Token, "alice")
	if err != nil {
		t.Fatalf("issued token does not validate: %v", err)
	}
	if claims.Role != domain.RoleUser {
		t.Fatalf("expected role USER in claims, got %s", claims.Role)
	}
}

func TestAuthService_Login_QueuesOtpAndResetsStepUp(t *testing.T) {
	f := newAuthFixture()
	f.signupUser(t, "alice", "alice@example.com", "correctpass")
	ctx := context.Background()

	if err := f.svc.VerifyEmail(ctx, "alice", f.repo.principals["alice"].VerificationCode); err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	// Pretend a previous token completed the step-up.
	_ = f.confirmations.Mark(ctx, "alice")

	queued := len(f.dispatcher.jobs)
	if _, err := f.svc.Login(ctx, "alice", "correctpass"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if ok, _ := f.confirmations.IsConfirmed(ctx, "alice"); ok {
		t.Fatalf("expected login to clear the previous confirmation")
	}

	if len(f.dispatcher.jobs) != queued+1 {
		t.Fatalf("expected one new mail job, got %d", len(f.dispatcher.jobs)-queued)
	}
	job := f.dispatcher.jobs[len(f.dispatcher.jobs)-1]
	if job.Kind != ports.MailKindOtp || job.Owner != "alice" || job.Recipient != "alice@example.com" {
		t.Fatalf("unexpected otp job: %+v", job)
	}
}

func TestAuthService_ResendVerification(t *testing.T) {
	f := newAuthFixture()
	f.signupUser(t, "alice", "alice@example.com", "s3cretpass")
	ctx := context.Background()

	if err := f.svc.ResendVerification(ctx, "ghost@example.com"); !errors.Is(err, domain.ErrPrincipalNotFound) {
		t.Fatalf("expected ErrPrincipalNotFound, got %v", err)
	}

	oldCode := f.repo.principals["alice"].VerificationCode
	if err := f.svc.ResendVerification(ctx, "alice@example.com"); err != nil {
		t.Fatalf("resend failed: %v", err)
	}

	stored := f.repo.principals["alice"]
	if len(stored.VerificationCode) != 6 {
		t.Fatalf("expected fresh 6-digit code, got %q", stored.VerificationCode)
	}
	job := f.dispatcher.jobs[len(f.dispatcher.jobs)-1]
	if job.Kind != ports.MailKindVerification || job.Code != stored.VerificationCode {
		t.Fatalf("unexpected resend job: %+v", job)
	}
	_ = oldCode // old and new code may coincide; the stored one is authoritative

	if err := f.svc.VerifyEmail(ctx, "alice", stored.VerificationCode); err != nil {
		t.Fatalf("verify after resend failed: %v", err)
	}
	if err := f.svc.ResendVerification(ctx, "alice@example.com"); !errors.Is(err, domain.ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified, got %v", err)
	}
}

func TestAuthService_SendOtp_DeliversSynchronously(t *testing.T) {
	f := newAuthFixture()
	f.signupUser(t, "alice", "alice@example.com", "s3cretpass")
	ctx := context.Background()

	if err := f.svc.SendOtp(ctx, "ghost"); !errors.Is(err, domain.ErrPrincipalNotFound) {
		t.Fatalf("expected ErrPrincipalNotFound, got %v", err)
	}

	if err := f.svc.SendOtp(ctx, "alice"); err != nil {
		t.Fatalf("send otp failed: %v", err)
	}
	if len(f.mailer.otpCodes) != 1 {
		t.Fatalf("expected one delivered otp, got %d", len(f.mailer.otpCodes))
	}
}

func TestAuthService_SendOtp_DispatchFailure(t *testing.T) {
	f := newAuthFixture()
	f.signupUser(t, "alice", "alice@example.com", "s3cretpass")
	f.mailer.fail = true

	err := f.svc.SendOtp(context.Background(), "alice")
	if !errors.Is(err, domain.ErrOtpDispatch) {
		t.Fatalf("expected ErrOtpDispatch, got %v", err)
	}
}

func TestAuthService_ConfirmOtp(t *testing.T) {
	f := newAuthFixture()
	f.signupUser(t, "alice", "alice@example.com", "s3cretpass")
	ctx := context.Background()

	if err := f.svc.SendOtp(ctx, "alice"); err != nil {
		t.Fatalf("send otp failed: %v", err)
	}
	code := f.mailer.otpCodes[0]

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	if err := f.svc.ConfirmOtp(ctx, "alice", wrong); !errors.Is(err, domain.ErrOtpInvalid) {
		t.Fatalf("expected ErrOtpInvalid, got %v", err)
	}
	if ok, _ := f.confirmations.IsConfirmed(ctx, "alice"); ok {
		t.Fatalf("expected no confirmation after rejected otp")
	}

	if err := f.svc.ConfirmOtp(ctx, "alice", code); err != nil {
		t.Fatalf("confirm otp failed: %v", err)
	}
	if ok, _ := f.confirmations.IsConfirmed(ctx, "alice"); !ok {
		t.Fatalf("expected subject to be otp-confirmed")
	}

	// One-time use: confirming again with the same code fails.
	if err := f.svc.ConfirmOtp(ctx, "alice", code); !errors.Is(err, domain.ErrOtpInvalid) {
		t.Fatalf("expected ErrOtpInvalid on reuse, got %v", err)
	}
}
