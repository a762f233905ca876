package mailer

import (
	"net/url"
	"strings"
)

// Links builds the URLs embedded in outgoing emails.
type Links struct {
	FrontendURL string
}

func (l Links) Verification(token string) string {
	q := url.Values{"token": {token}}
	return strings.TrimRight(l.FrontendURL, "/") + "/api/auth/verify-email?" + q.Encode()
}

func (l Links) PasswordReset(email, token string) string {
	q := url.Values{"token": {token}, "email": {email}}
	return strings.TrimRight(l.FrontendURL, "/") + "/reset-password?" + q.Encode()
}
