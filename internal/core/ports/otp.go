package ports

import (
	"context"
	"time"
)

// OtpStore is a concurrency-safe keyed store holding at most one active code
// per owner. Put and Consume must be atomic with respect to a single owner
// key; operations on different owners need no coordination.
type OtpStore interface {
	// Put stores a code for owner, overwriting any prior record.
	Put(ctx context.Context, owner, code string, expiresAt time.Time) error

	// Consume deletes the record for owner iff one exists, the code matches
	// exactly, and it has not expired, reporting whether it was consumed.
	// On mismatch the record is left intact so the legitimate holder can
	// retry within the window.
	Consume(ctx context.Context, owner, code string) (bool, error)
}

// OtpService generates and validates short-lived one-time passcodes.
type OtpService interface {
	// Generate draws a fresh 6-digit code for owner and stores it with the
	// configured TTL, superseding any prior code for that owner.
	Generate(ctx context.Context, owner string) (string, error)

	// Validate reports whether code is the live code for owner. A true
	// result consumes the code (one-time use); a false result leaves any
	// stored record untouched.
	Validate(ctx context.Context, owner, code string) (bool, error)
}

// OtpConfirmations tracks which subjects have completed the OTP step-up for
// their current token lifetime. The request gate consults it before admitting
// requests to protected routes.
type OtpConfirmations interface {
	Mark(ctx context.Context, subject string) error
	IsConfirmed(ctx context.Context, subject string) (bool, error)
	Clear(ctx context.Context, subject string) error
}
