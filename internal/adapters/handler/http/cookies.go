package http

import (
	"net/http"
	"time"

	"github.com/vncsmyrnk/taskboard/internal/core/domain"
)

const (
	accessCookieName  = "accessToken"
	refreshCookieName = "refreshToken"
	refreshCookiePath = "/api/auth"
)

// CookieConfig controls the session cookies. Both cookies live as long as the refresh token
// so an expired access token still reaches the server and is reported as TOKEN_EXPIRED.
type CookieConfig struct {
	Domain string
	Secure bool
	MaxAge time.Duration
}

func (c CookieConfig) sameSite() http.SameSite {
	if c.Secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

func (c CookieConfig) cookie(name, value, path string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.sameSite(),
		MaxAge:   maxAge,
	}
}

func (c CookieConfig) setSession(w http.ResponseWriter, pair *domain.TokenPair) {
	maxAge := int(c.MaxAge.Seconds())
	http.SetCookie(w, c.cookie(accessCookieName, pair.AccessToken, "/", maxAge))
	http.SetCookie(w, c.cookie(refreshCookieName, pair.RefreshToken, refreshCookiePath, maxAge))
}

func (c CookieConfig) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(accessCookieName, "", "/", -1))
	http.SetCookie(w, c.cookie(refreshCookieName, "", refreshCookiePath, -1))
}
