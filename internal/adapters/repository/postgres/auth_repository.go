package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/taskboard/internal/core/domain"
	"github.com/vncsmyrnk/taskboard/internal/core/ports"
)

type RefreshTokenRepository struct {
	db *sql.DB
}

func NewRefreshTokenRepository(db *sql.DB) ports.RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

const insertRefreshToken = `
	INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING created_at
`

func (r *RefreshTokenRepository) Store(ctx context.Context, token *domain.RefreshToken) error {
	err := r.db.QueryRowContext(ctx, insertRefreshToken,
		token.ID, token.UserID, token.TokenHash, token.ExpiresAt, token.Revoked,
	).Scan(&token.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert refresh token: %w", err)
	}
	return nil
}

// Rotate relies on the row lock taken by DELETE: a concurrent rotation of the same id
// waits, then finds nothing to delete and reports false.
func (r *RefreshTokenRepository) Rotate(ctx context.Context, oldID, userID uuid.UUID, now time.Time, next *domain.RefreshToken) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	deleteQuery := `
		DELETE FROM refresh_tokens
		WHERE id = $1 AND user_id = $2 AND revoked = FALSE AND expires_at > $3
		RETURNING id
	`
	var deleted uuid.UUID
	err = tx.QueryRowContext(ctx, deleteQuery, oldID, userID, now).Scan(&deleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete refresh token: %w", err)
	}

	err = tx.QueryRowContext(ctx, insertRefreshToken,
		next.ID, next.UserID, next.TokenHash, next.ExpiresAt, next.Revoked,
	).Scan(&next.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert refresh token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

func (r *RefreshTokenRepository) DeleteByHash(ctx context.Context, tokenHash string) error {
	query := `DELETE FROM refresh_tokens WHERE token_hash = $1`
	if _, err := r.db.ExecContext(ctx, query, tokenHash); err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	query := `DELETE FROM refresh_tokens WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to delete user refresh tokens: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM refresh_tokens WHERE expires_at <= $1 OR revoked = TRUE`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to purge refresh tokens: %w", err)
	}
	return res.RowsAffected()
}
