package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/taskboard/internal/core/domain"
)

// RefreshTokenRepository persists refresh-token rows. Token values are only ever stored hashed.
type RefreshTokenRepository interface {
	Store(ctx context.Context, token *domain.RefreshToken) error
	// Rotate deletes the live row (oldID, userID) and stores next in one transaction.
	// It reports false when no live row matched, in which case nothing is written.
	Rotate(ctx context.Context, oldID, userID uuid.UUID, now time.Time, next *domain.RefreshToken) (bool, error)
	DeleteByHash(ctx context.Context, tokenHash string) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type AccessClaims struct {
	UserID     uuid.UUID
	IsVerified bool
}

type RefreshClaims struct {
	UserID  uuid.UUID
	TokenID uuid.UUID
}

// TokenCodec signs and verifies access and refresh tokens with independent secrets and lifetimes.
type TokenCodec interface {
	SignAccess(claims AccessClaims) (string, error)
	VerifyAccess(token string) (*AccessClaims, error)
	SignRefresh(claims RefreshClaims) (string, error)
	VerifyRefresh(token string) (*RefreshClaims, error)
	AccessTTL() time.Duration
	RefreshTTL() time.Duration
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
}

// TokenPayload is the identity asserted by a verified third-party token.
type TokenPayload struct {
	Email      string
	GivenName  string
	FamilyName string
}

// TokenVerifier validates third-party identity tokens.
type TokenVerifier interface {
	Verify(ctx context.Context, token string, clientID string) (*TokenPayload, error)
}

type SessionManager interface {
	Issue(ctx context.Context, user *domain.User) (*domain.TokenPair, error)
	Rotate(ctx context.Context, tokenID, userID uuid.UUID) (*domain.TokenPair, error)
	Revoke(ctx context.Context, refreshToken string) error
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) error
}

type RecoveryManager interface {
	NewVerificationToken() (string, time.Time)
	ConsumeVerification(ctx context.Context, token string) (*domain.User, error)
	IssuePasswordReset(ctx context.Context, user *domain.User) (string, error)
	ConsumePasswordReset(ctx context.Context, token, newPasswordHash string) (*domain.User, error)
}

type RegisterInput struct {
	Email     string
	Password  string
	Username  *string
	FirstName *string
	LastName  *string
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.Session, error)
	LoginWithGoogle(ctx context.Context, idToken string) (*domain.Session, error)
	VerifyEmail(ctx context.Context, token string) (*domain.Session, error)
	Refresh(ctx context.Context, tokenID, userID uuid.UUID) (*domain.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type MaintenanceService interface {
	PurgeExpired(ctx context.Context) error
}
