package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/taskboard/internal/adapters/token"
	"github.com/vncsmyrnk/taskboard/internal/core/ports"
)

func newTestCodec(t *testing.T) *token.Codec {
	t.Helper()
	codec, err := token.NewCodec(token.Config{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
	})
	require.NoError(t, err)
	return codec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error
}

func TestAuthenticate(t *testing.T) {
	codec := newTestCodec(t)
	errs := errorWriter{log: zerolog.Nop()}
	userID := uuid.New()

	var seen uuid.UUID
	protected := Authenticate(codec, errs)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	access, err := codec.SignAccess(ports.AccessClaims{UserID: userID, IsVerified: true})
	require.NoError(t, err)

	tests := []struct {
		name     string
		setup    func(r *http.Request)
		wantCode int
		wantErr  string
	}{
		{
			name:     "missing token",
			setup:    func(r *http.Request) {},
			wantCode: http.StatusUnauthorized,
			wantErr:  "TOKEN_MISSING",
		},
		{
			name:     "garbage bearer",
			setup:    func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") },
			wantCode: http.StatusUnauthorized,
			wantErr:  "TOKEN_INVALID",
		},
		{
			name:     "bearer header",
			setup:    func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+access) },
			wantCode: http.StatusOK,
		},
		{
			name:     "access cookie",
			setup:    func(r *http.Request) { r.AddCookie(&http.Cookie{Name: accessCookieName, Value: access}) },
			wantCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = uuid.Nil
			req := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()

			protected.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, decodeError(t, rec).Code)
				return
			}
			assert.Equal(t, userID, seen)
		})
	}
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	expiring, err := token.NewCodec(token.Config{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     time.Nanosecond,
		RefreshTTL:    time.Hour,
	})
	require.NoError(t, err)

	access, err := expiring.SignAccess(ports.AccessClaims{UserID: uuid.New()})
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)

	handler := Authenticate(newTestCodec(t), errorWriter{log: zerolog.Nop()})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TOKEN_EXPIRED", decodeError(t, rec).Code)
}

func TestValidateRefreshToken(t *testing.T) {
	codec := newTestCodec(t)
	errs := errorWriter{log: zerolog.Nop()}
	userID, tokenID := uuid.New(), uuid.New()

	var claims *ports.RefreshClaims
	handler := ValidateRefreshToken(codec, errs)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ = refreshClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("missing cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/refresh-token", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "REFRESH_TOKEN_MISSING", decodeError(t, rec).Code)
	})

	t.Run("access token is not a refresh token", func(t *testing.T) {
		access, err := codec.SignAccess(ports.AccessClaims{UserID: userID})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh-token", nil)
		req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: access})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "REFRESH_TOKEN_INVALID", decodeError(t, rec).Code)
	})

	t.Run("valid cookie", func(t *testing.T) {
		refresh, err := codec.SignRefresh(ports.RefreshClaims{UserID: userID, TokenID: tokenID})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh-token", nil)
		req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: refresh})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, claims)
		assert.Equal(t, tokenID, claims.TokenID)
	})
}
