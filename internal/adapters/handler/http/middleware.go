package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vncsmyrnk/taskboard/internal/core/domain"
	"github.com/vncsmyrnk/taskboard/internal/core/ports"
)

type contextKey string

const (
	UserIDKey       contextKey = "userID"
	refreshClaimKey contextKey = "refreshClaims"
)

// UserIDFromContext returns the authenticated user id placed by Authenticate.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return id, ok
}

func refreshClaimsFromContext(ctx context.Context) (*ports.RefreshClaims, bool) {
	claims, ok := ctx.Value(refreshClaimKey).(*ports.RefreshClaims)
	return claims, ok
}

// Authenticate accepts the access token from the accessToken cookie or an Authorization: Bearer header.
func Authenticate(codec ports.TokenCodec, errs errorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				if c, err := r.Cookie(accessCookieName); err == nil {
					token = c.Value
				}
			}
			if token == "" {
				errs.write(w, r, domain.ErrTokenMissing)
				return
			}

			claims, err := codec.VerifyAccess(token)
			if err != nil {
				errs.write(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ValidateRefreshToken verifies the refreshToken cookie and stores its claims for the refresh handler.
func ValidateRefreshToken(codec ports.TokenCodec, errs errorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(refreshCookieName)
			if err != nil || c.Value == "" {
				errs.write(w, r, domain.ErrRefreshTokenMissing)
				return
			}

			claims, err := codec.VerifyRefresh(c.Value)
			if err != nil {
				errs.write(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), refreshClaimKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// RequestLogger logs one line per request with the logger attached to the request context.
func RequestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			l := logger.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
			next.ServeHTTP(ww, r.WithContext(l.WithContext(r.Context())))

			l.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
