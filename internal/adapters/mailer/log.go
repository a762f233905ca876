package mailer

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/vncsmyrnk/taskboard/internal/core/ports"
)

// LogMailer writes emails to the log instead of delivering them. Used when SMTP is not configured.
type LogMailer struct {
	links Links
	log   zerolog.Logger
}

func NewLogMailer(links Links, log zerolog.Logger) *LogMailer {
	return &LogMailer{links: links, log: log}
}

func (m *LogMailer) SendVerificationEmail(ctx context.Context, to, token string) error {
	m.log.Info().Str("to", to).Str("link", m.links.Verification(token)).Msg("verification email (not sent, smtp disabled)")
	return nil
}

func (m *LogMailer) SendPasswordResetEmail(ctx context.Context, to, token string) error {
	m.log.Info().Str("to", to).Str("link", m.links.PasswordReset(to, token)).Msg("password reset email (not sent, smtp disabled)")
	return nil
}

var _ ports.Mailer = (*LogMailer)(nil)
