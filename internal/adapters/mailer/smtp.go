package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/vncsmyrnk/taskboard/internal/core/ports"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer delivers HTML emails through an SMTP relay.
type SMTPMailer struct {
	cfg   SMTPConfig
	links Links
	log   zerolog.Logger
	send  sendFunc
}

func NewSMTPMailer(cfg SMTPConfig, links Links, log zerolog.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, links: links, log: log, send: smtp.SendMail}
}

var _ ports.Mailer = (*SMTPMailer)(nil)

var (
	verificationTmpl = template.Must(template.New("verification").Parse(`<h2>Verify your email</h2>
<p>Welcome! Confirm your email address to activate your account.</p>
<p><a href="{{.Link}}">Verify email</a></p>
<p>This link expires in 24 hours. If you did not create an account, ignore this email.</p>`))

	resetTmpl = template.Must(template.New("reset").Parse(`<h2>Reset your password</h2>
<p>We received a request to reset the password for {{.Email}}.</p>
<p><a href="{{.Link}}">Choose a new password</a></p>
<p>If you did not request this, ignore this email. Your password will not change.</p>`))
)

func (m *SMTPMailer) SendVerificationEmail(ctx context.Context, to, token string) error {
	return m.deliver(ctx, to, "Verify your email address", verificationTmpl, map[string]string{
		"Link": m.links.Verification(token),
	})
}

func (m *SMTPMailer) SendPasswordResetEmail(ctx context.Context, to, token string) error {
	return m.deliver(ctx, to, "Reset your password", resetTmpl, map[string]string{
		"Email": to,
		"Link":  m.links.PasswordReset(to, token),
	})
}

func (m *SMTPMailer) deliver(ctx context.Context, to, subject string, tmpl *template.Template, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render %s email: %w", tmpl.Name(), err)
	}

	msg := buildMessage(m.cfg.From, to, subject, body.String())
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := m.send(addr, auth, m.cfg.From, []string{to}, msg); err != nil {
		m.log.Warn().Err(err).Str("to", to).Str("template", tmpl.Name()).Msg("email delivery failed")
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.log.Debug().Str("to", to).Str("template", tmpl.Name()).Msg("email sent")
	return nil
}

func buildMessage(from, to, subject, html string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(html)
	return []byte(b.String())
}
