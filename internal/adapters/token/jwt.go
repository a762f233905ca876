package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/vncsmyrnk/taskboard/internal/core/domain"
	"github.com/vncsmyrnk/taskboard/internal/core/ports"
)

type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type accessClaims struct {
	UserID     string `json:"userId"`
	IsVerified bool   `json:"isVerified"`
	jwt.RegisteredClaims
}

type refreshClaims struct {
	UserID  string `json:"userId"`
	TokenID string `json:"tokenId"`
	jwt.RegisteredClaims
}

// Codec is an HS256 implementation of ports.TokenCodec.
type Codec struct {
	cfg Config
	now func() time.Time
}

func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("token secrets must not be empty")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}
	return &Codec{cfg: cfg, now: time.Now}, nil
}

var _ ports.TokenCodec = (*Codec)(nil)

func (c *Codec) AccessTTL() time.Duration  { return c.cfg.AccessTTL }
func (c *Codec) RefreshTTL() time.Duration { return c.cfg.RefreshTTL }

func (c *Codec) SignAccess(claims ports.AccessClaims) (string, error) {
	return c.sign(&accessClaims{
		UserID:           claims.UserID.String(),
		IsVerified:       claims.IsVerified,
		RegisteredClaims: c.registered(claims.UserID, c.cfg.AccessTTL, ""),
	}, c.cfg.AccessSecret)
}

func (c *Codec) SignRefresh(claims ports.RefreshClaims) (string, error) {
	return c.sign(&refreshClaims{
		UserID:           claims.UserID.String(),
		TokenID:          claims.TokenID.String(),
		RegisteredClaims: c.registered(claims.UserID, c.cfg.RefreshTTL, claims.TokenID.String()),
	}, c.cfg.RefreshSecret)
}

func (c *Codec) VerifyAccess(token string) (*ports.AccessClaims, error) {
	var claims accessClaims
	if err := c.parse(token, &claims, c.cfg.AccessSecret); err != nil {
		return nil, classify(err, domain.ErrTokenExpired, domain.ErrTokenInvalid)
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}
	return &ports.AccessClaims{UserID: userID, IsVerified: claims.IsVerified}, nil
}

func (c *Codec) VerifyRefresh(token string) (*ports.RefreshClaims, error) {
	var claims refreshClaims
	if err := c.parse(token, &claims, c.cfg.RefreshSecret); err != nil {
		return nil, classify(err, domain.ErrRefreshTokenExpired, domain.ErrRefreshTokenInvalid)
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, domain.ErrRefreshTokenInvalid
	}
	tokenID, err := uuid.Parse(claims.TokenID)
	if err != nil {
		return nil, domain.ErrRefreshTokenInvalid
	}
	return &ports.RefreshClaims{UserID: userID, TokenID: tokenID}, nil
}

func (c *Codec) registered(userID uuid.UUID, ttl time.Duration, id string) jwt.RegisteredClaims {
	now := c.now()
	return jwt.RegisteredClaims{
		Subject:   userID.String(),
		ID:        id,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (c *Codec) sign(claims jwt.Claims, secret []byte) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (c *Codec) parse(token string, claims jwt.Claims, secret []byte) error {
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	return err
}

func classify(err error, expired, invalid *domain.Error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return expired
	}
	return invalid
}
