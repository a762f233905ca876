package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

type User struct {
	ID                      uuid.UUID  `json:"id"`
	Email                   string     `json:"email"`
	Username                *string    `json:"username,omitempty"`
	FirstName               *string    `json:"firstName,omitempty"`
	LastName                *string    `json:"lastName,omitempty"`
	PasswordHash            string     `json:"-"`
	Role                    Role       `json:"role"`
	IsVerified              bool       `json:"isVerified"`
	VerificationToken       *string    `json:"-"`
	VerificationTokenExpiry *time.Time `json:"-"`
	PasswordResetToken      *string    `json:"-"`
	PasswordResetExpiry     *time.Time `json:"-"`
	CreatedAt               time.Time  `json:"createdAt"`
	UpdatedAt               time.Time  `json:"updatedAt"`
}

// UserSummary is the public projection of a user embedded in project and task payloads.
type UserSummary struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Username *string   `json:"username,omitempty"`
}

type RefreshToken struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	Revoked   bool      `json:"revoked"`
	CreatedAt time.Time `json:"createdAt"`
}

// TokenPair is what a successful login, verification or refresh hands back to the caller.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Session is a token pair together with the authenticated user.
type Session struct {
	TokenPair
	User *User
}
