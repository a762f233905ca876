package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vncsmyrnk/taskboard/internal/core/domain"
	"github.com/vncsmyrnk/taskboard/internal/core/ports"
)

type sessionService struct {
	tokens ports.RefreshTokenRepository
	users  ports.UserRepository
	codec  ports.TokenCodec
	now    func() time.Time
}

func NewSessionService(tokens ports.RefreshTokenRepository, users ports.UserRepository, codec ports.TokenCodec) ports.SessionManager {
	return &sessionService{
		tokens: tokens,
		users:  users,
		codec:  codec,
		now:    time.Now,
	}
}

func (s *sessionService) Issue(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	pair, row, err := s.sign(user)
	if err != nil {
		return nil, err
	}

	if err := s.tokens.Store(ctx, row); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	log.Debug().Str("user_id", user.ID.String()).Str("session_id", row.ID.String()).Msg("session issued")
	return pair, nil
}

func (s *sessionService) Rotate(ctx context.Context, tokenID, userID uuid.UUID) (*domain.TokenPair, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrSessionForbidden
	}

	pair, row, err := s.sign(user)
	if err != nil {
		return nil, err
	}

	rotated, err := s.tokens.Rotate(ctx, tokenID, userID, s.now(), row)
	if err != nil {
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}
	if !rotated {
		log.Warn().Str("user_id", userID.String()).Str("session_id", tokenID.String()).Msg("refresh token reuse or expired session")
		return nil, domain.ErrSessionForbidden
	}

	log.Debug().Str("user_id", userID.String()).Str("session_id", row.ID.String()).Msg("session rotated")
	return pair, nil
}

func (s *sessionService) Revoke(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.tokens.DeleteByHash(ctx, hashToken(refreshToken)); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

func (s *sessionService) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	if err := s.tokens.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke user sessions: %w", err)
	}
	return nil
}

func (s *sessionService) sign(user *domain.User) (*domain.TokenPair, *domain.RefreshToken, error) {
	tokenID := uuid.New()

	accessToken, err := s.codec.SignAccess(ports.AccessClaims{UserID: user.ID, IsVerified: user.IsVerified})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.codec.SignRefresh(ports.RefreshClaims{UserID: user.ID, TokenID: tokenID})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	row := &domain.RefreshToken{
		ID:        tokenID,
		UserID:    user.ID,
		TokenHash: hashToken(refreshToken),
		ExpiresAt: s.now().Add(s.codec.RefreshTTL()),
	}
	return &domain.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, row, nil
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
