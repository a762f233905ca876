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

const userColumns = `id, email, username, first_name, last_name, password_hash, role, is_verified,
	verification_token, verification_token_expiry, password_reset_token, password_reset_expiry,
	created_at, updated_at`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) ports.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.getOne(ctx, query, email)
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.Role == "" {
		user.Role = domain.RoleUser
	}
	query := `
		INSERT INTO users (email, username, first_name, last_name, password_hash, role, is_verified,
			verification_token, verification_token_expiry)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		user.Email,
		nullString(user.Username),
		nullString(user.FirstName),
		nullString(user.LastName),
		user.PasswordHash,
		user.Role,
		user.IsVerified,
		nullString(user.VerificationToken),
		nullTime(user.VerificationTokenExpiry),
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if constraintViolation(err, uniqueViolation, "users_email_key") {
			return domain.ErrUserExists
		}
		if constraintViolation(err, uniqueViolation, "users_username_key") {
			return domain.NewValidation("Username is already taken")
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// ConsumeVerificationToken marks the matching unverified user as verified and clears the token in one statement.
func (r *UserRepository) ConsumeVerificationToken(ctx context.Context, token string, now time.Time) (*domain.User, error) {
	query := `
		UPDATE users
		SET is_verified = TRUE, verification_token = NULL, verification_token_expiry = NULL, updated_at = now()
		WHERE verification_token = $1 AND verification_token_expiry > $2 AND is_verified = FALSE
		RETURNING ` + userColumns
	return r.getOne(ctx, query, token, now)
}

func (r *UserRepository) SetPasswordResetToken(ctx context.Context, userID uuid.UUID, token string, expiry time.Time) error {
	query := `
		UPDATE users
		SET password_reset_token = $2, password_reset_expiry = $3, updated_at = now()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, userID, token, expiry)
	if err != nil {
		return fmt.Errorf("failed to set password reset token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return domain.NewNotFound("User not found")
	}
	return nil
}

// ConsumePasswordResetToken replaces the hash of the verified user holding a live reset token and clears the token.
func (r *UserRepository) ConsumePasswordResetToken(ctx context.Context, token, newPasswordHash string, now time.Time) (*domain.User, error) {
	query := `
		UPDATE users
		SET password_hash = $2, password_reset_token = NULL, password_reset_expiry = NULL, updated_at = now()
		WHERE password_reset_token = $1 AND password_reset_expiry > $3 AND is_verified = TRUE
		RETURNING ` + userColumns
	return r.getOne(ctx, query, token, newPasswordHash, now)
}

func (r *UserRepository) ClearExpiredRecoveryTokens(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE users SET
			verification_token        = CASE WHEN verification_token_expiry <= $1 THEN NULL ELSE verification_token END,
			verification_token_expiry = CASE WHEN verification_token_expiry <= $1 THEN NULL ELSE verification_token_expiry END,
			password_reset_token      = CASE WHEN password_reset_expiry <= $1 THEN NULL ELSE password_reset_token END,
			password_reset_expiry     = CASE WHEN password_reset_expiry <= $1 THEN NULL ELSE password_reset_expiry END
		WHERE verification_token_expiry <= $1 OR password_reset_expiry <= $1
	`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired recovery tokens: %w", err)
	}
	return res.RowsAffected()
}

func (r *UserRepository) getOne(ctx context.Context, query string, args ...any) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var (
		user                                    domain.User
		username, firstName, lastName           sql.NullString
		verificationToken, passwordResetToken   sql.NullString
		verificationExpiry, passwordResetExpiry sql.NullTime
	)
	err := row.Scan(
		&user.ID,
		&user.Email,
		&username,
		&firstName,
		&lastName,
		&user.PasswordHash,
		&user.Role,
		&user.IsVerified,
		&verificationToken,
		&verificationExpiry,
		&passwordResetToken,
		&passwordResetExpiry,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.Username = stringPtr(username)
	user.FirstName = stringPtr(firstName)
	user.LastName = stringPtr(lastName)
	user.VerificationToken = stringPtr(verificationToken)
	user.VerificationTokenExpiry = timePtr(verificationExpiry)
	user.PasswordResetToken = stringPtr(passwordResetToken)
	user.PasswordResetExpiry = timePtr(passwordResetExpiry)
	return &user, nil
}
