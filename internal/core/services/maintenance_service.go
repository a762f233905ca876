package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vncsmyrnk/taskboard/internal/core/ports"
)

type maintenanceService struct {
	tokens ports.RefreshTokenRepository
	users  ports.UserRepository
	now    func() time.Time
}

func NewMaintenanceService(tokens ports.RefreshTokenRepository, users ports.UserRepository) ports.MaintenanceService {
	return &maintenanceService{tokens: tokens, users: users, now: time.Now}
}

// PurgeExpired removes dead refresh-token rows and clears lapsed verification and reset tokens.
func (s *maintenanceService) PurgeExpired(ctx context.Context) error {
	now := s.now()

	sessions, err := s.tokens.PurgeExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to purge refresh tokens: %w", err)
	}

	recovery, err := s.users.ClearExpiredRecoveryTokens(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to clear recovery tokens: %w", err)
	}

	log.Info().Int64("sessions", sessions).Int64("recovery_tokens", recovery).Msg("expired credentials purged")
	return nil
}
