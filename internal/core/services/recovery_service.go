package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/taskboard/internal/core/domain"
	"github.com/vncsmyrnk/taskboard/internal/core/ports"
)

type RecoveryConfig struct {
	VerificationTTL  time.Duration
	PasswordResetTTL time.Duration
}

type recoveryService struct {
	users    ports.UserRepository
	sessions ports.SessionManager
	cfg      RecoveryConfig
	now      func() time.Time
}

func NewRecoveryService(users ports.UserRepository, sessions ports.SessionManager, cfg RecoveryConfig) ports.RecoveryManager {
	return &recoveryService{
		users:    users,
		sessions: sessions,
		cfg:      cfg,
		now:      time.Now,
	}
}

func (s *recoveryService) NewVerificationToken() (string, time.Time) {
	return uuid.NewString(), s.now().Add(s.cfg.VerificationTTL)
}

// ConsumeVerification does not distinguish unknown, expired and already used tokens.
func (s *recoveryService) ConsumeVerification(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrInvalidOrExpiredToken
	}

	user, err := s.users.ConsumeVerificationToken(ctx, token, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to consume verification token: %w", err)
	}
	if user == nil {
		return nil, domain.ErrInvalidOrExpiredToken
	}
	return user, nil
}

func (s *recoveryService) IssuePasswordReset(ctx context.Context, user *domain.User) (string, error) {
	token := uuid.NewString()
	if err := s.users.SetPasswordResetToken(ctx, user.ID, token, s.now().Add(s.cfg.PasswordResetTTL)); err != nil {
		return "", fmt.Errorf("failed to store password reset token: %w", err)
	}
	return token, nil
}

func (s *recoveryService) ConsumePasswordReset(ctx context.Context, token, newPasswordHash string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrInvalidOrExpiredToken
	}

	user, err := s.users.ConsumePasswordResetToken(ctx, token, newPasswordHash, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to consume password reset token: %w", err)
	}
	if user == nil {
		return nil, domain.ErrInvalidOrExpiredToken
	}

	if err := s.sessions.RevokeAllForUser(ctx, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}
