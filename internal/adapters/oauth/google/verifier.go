package google

import (
	"context"
	"errors"
	"fmt"

	"github.com/vncsmyrnk/taskboard/internal/core/ports"
	"google.golang.org/api/idtoken"
)

var (
	ErrEmailMissing     = errors.New("email not found in google id token")
	ErrEmailNotVerified = errors.New("google account email is not verified")
)

type validateFunc func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// Verifier checks Google ID tokens against Google's published keys.
type Verifier struct {
	validate validateFunc
}

func NewVerifier() ports.TokenVerifier {
	return &Verifier{validate: idtoken.Validate}
}

func (v *Verifier) Verify(ctx context.Context, token string, clientID string) (*ports.TokenPayload, error) {
	payload, err := v.validate(ctx, token, clientID)
	if err != nil {
		return nil, fmt.Errorf("invalid google id token: %w", err)
	}
	return fromClaims(payload.Claims)
}

// fromClaims requires a verified email. Name claims are optional.
func fromClaims(claims map[string]any) (*ports.TokenPayload, error) {
	email, _ := claims["email"].(string)
	if email == "" {
		return nil, ErrEmailMissing
	}
	if verified, ok := claims["email_verified"].(bool); !ok || !verified {
		return nil, ErrEmailNotVerified
	}

	given, _ := claims["given_name"].(string)
	family, _ := claims["family_name"].(string)
	if given == "" && family == "" {
		given, _ = claims["name"].(string)
	}
	return &ports.TokenPayload{Email: email, GivenName: given, FamilyName: family}, nil
}
