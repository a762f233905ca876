package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vncsmyrnk/taskboard/internal/core/domain"
	"github.com/vncsmyrnk/taskboard/internal/core/ports"
)

type AuthService struct {
	users               ports.UserRepository
	sessions            ports.SessionManager
	recovery            ports.RecoveryManager
	hasher              ports.PasswordHasher
	mailer              ports.Mailer
	googleTokenVerifier ports.TokenVerifier
	googleClientID      string
}

type AuthOption func(*AuthService)

// WithGoogleSignIn enables LoginWithGoogle for ID tokens issued to clientID.
func WithGoogleSignIn(verifier ports.TokenVerifier, clientID string) AuthOption {
	return func(s *AuthService) {
		s.googleTokenVerifier = verifier
		s.googleClientID = clientID
	}
}

func NewAuthService(
	users ports.UserRepository,
	sessions ports.SessionManager,
	recovery ports.RecoveryManager,
	hasher ports.PasswordHasher,
	mailer ports.Mailer,
	opts ...AuthOption,
) *AuthService {
	s := &AuthService{
		users:    users,
		sessions: sessions,
		recovery: recovery,
		hasher:   hasher,
		mailer:   mailer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AuthService) Register(ctx context.Context, input ports.RegisterInput) (*domain.User, error) {
	email := normalizeEmail(input.Email)

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrUserExists
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	token, expiry := s.recovery.NewVerificationToken()
	user := &domain.User{
		Email:                   email,
		Username:                input.Username,
		FirstName:               input.FirstName,
		LastName:                input.LastName,
		PasswordHash:            hash,
		Role:                    domain.RoleUser,
		VerificationToken:       &token,
		VerificationTokenExpiry: &expiry,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.mailer.SendVerificationEmail(ctx, user.Email, token); err != nil {
		return nil, fmt.Errorf("failed to send verification email: %w", err)
	}

	log.Info().Str("user_id", user.ID.String()).Msg("user registered")
	return sanitize(user), nil
}

// Login reports the same error for an unknown email and a wrong password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.IsVerified {
		return nil, domain.ErrNotVerified
	}

	return s.startSession(ctx, user)
}

func (s *AuthService) LoginWithGoogle(ctx context.Context, idToken string) (*domain.Session, error) {
	if s.googleTokenVerifier == nil {
		return nil, domain.NewForbidden("Google sign-in is not enabled")
	}

	payload, err := s.googleTokenVerifier.Verify(ctx, idToken, s.googleClientID)
	if err != nil {
		log.Debug().Err(err).Msg("google token rejected")
		return nil, domain.ErrInvalidCredentials
	}

	email := normalizeEmail(payload.Email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user == nil {
		hash, err := s.unusablePasswordHash()
		if err != nil {
			return nil, err
		}
		user = &domain.User{
			Email:        email,
			PasswordHash: hash,
			Role:         domain.RoleUser,
			IsVerified:   true,
		}
		if payload.GivenName != "" {
			given := payload.GivenName
			user.FirstName = &given
		}
		if payload.FamilyName != "" {
			family := payload.FamilyName
			user.LastName = &family
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		log.Info().Str("user_id", user.ID.String()).Msg("user registered with google")
	} else if !user.IsVerified {
		return nil, domain.ErrNotVerified
	}

	return s.startSession(ctx, user)
}

func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*domain.Session, error) {
	user, err := s.recovery.ConsumeVerification(ctx, token)
	if err != nil {
		return nil, err
	}

	log.Info().Str("user_id", user.ID.String()).Msg("email verified")
	return s.startSession(ctx, user)
}

func (s *AuthService) Refresh(ctx context.Context, tokenID, userID uuid.UUID) (*domain.TokenPair, error) {
	return s.sessions.Rotate(ctx, tokenID, userID)
}

// Logout is idempotent: unknown or already revoked tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.sessions.Revoke(ctx, refreshToken)
}

// ForgotPassword always succeeds for the caller. Only verified users get a reset email.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || !user.IsVerified {
		log.Debug().Msg("password reset requested for unknown or unverified account")
		return nil
	}

	token, err := s.recovery.IssuePasswordReset(ctx, user)
	if err != nil {
		return err
	}

	if err := s.mailer.SendPasswordResetEmail(ctx, user.Email, token); err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.recovery.ConsumePasswordReset(ctx, token, hash)
	if err != nil {
		return err
	}

	log.Info().Str("user_id", user.ID.String()).Msg("password reset, all sessions revoked")
	return nil
}

func (s *AuthService) startSession(ctx context.Context, user *domain.User) (*domain.Session, error) {
	pair, err := s.sessions.Issue(ctx, user)
	if err != nil {
		return nil, err
	}
	return &domain.Session{TokenPair: *pair, User: sanitize(user)}, nil
}

func (s *AuthService) unusablePasswordHash() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return s.hasher.Hash(base64.RawURLEncoding.EncodeToString(b))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// sanitize returns a copy without credential material.
func sanitize(user *domain.User) *domain.User {
	u := *user
	u.PasswordHash = ""
	u.VerificationToken = nil
	u.VerificationTokenExpiry = nil
	u.PasswordResetToken = nil
	u.PasswordResetExpiry = nil
	return &u
}
