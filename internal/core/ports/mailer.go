package ports

import "context"

// Mailer is the notification gateway adapter. The core only depends on the
// ability to deliver a code to a principal's registered email address.
type Mailer interface {
	SendOtp(ctx context.Context, to, code string) error
	SendVerification(ctx context.Context, to, code string) error
}

// Mail job kinds handled by the dispatcher.
const (
	MailKindOtp          = "otp"
	MailKindVerification = "verification"
)

// MailJob is a unit of asynchronous email work. For MailKindOtp the code is
// generated by the worker at send time; for MailKindVerification the code was
// already persisted with the principal and travels with the job.
type MailJob struct {
	ID        string
	Kind      string
	Owner     string
	Recipient string
	Code      string
}

// MailDispatcher accepts mail jobs for asynchronous delivery. Enqueue must
// not block the caller beyond transient buffering and must never be invoked
// while holding a lock on the OTP store.
type MailDispatcher interface {
	Enqueue(job MailJob)
}
