package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/taskboard/internal/core/domain"
)

// UserRepository is the credential store accessor. Lookups return nil, nil when no row matches.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	ConsumeVerificationToken(ctx context.Context, token string, now time.Time) (*domain.User, error)
	SetPasswordResetToken(ctx context.Context, userID uuid.UUID, token string, expiry time.Time) error
	ConsumePasswordResetToken(ctx context.Context, token, newPasswordHash string, now time.Time) (*domain.User, error)
	ClearExpiredRecoveryTokens(ctx context.Context, now time.Time) (int64, error)
}

type UserService interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}
