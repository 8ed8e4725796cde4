package mail

import (
	"context"

	"github.com/rs/zerolog"
)

// Noop logs codes instead of delivering them. Used in development when no
// SMTP host is configured.
type Noop struct {
	log zerolog.Logger
}

func NewNoop(log zerolog.Logger) *Noop {
	return &Noop{log: log}
}

func (m *Noop) SendOtp(_ context.Context, to, code string) error {
	m.log.Info().Str("to", to).Str("code", code).Msg("noop mailer: otp")
	return nil
}

func (m *Noop) SendVerification(_ context.Context, to, code string) error {
	m.log.Info().Str("to", to).Str("code", code).Msg("noop mailer: verification code")
	return nil
}
