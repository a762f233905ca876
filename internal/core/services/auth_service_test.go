package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/taskboard/internal/core/domain"
	"github.com/vncsmyrnk/taskboard/internal/core/ports"
)

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("creates an unverified user and mails a verification token", func(t *testing.T) {
		env := newTestEnv(t)

		user, err := env.auth.Register(ctx, ports.RegisterInput{Email: "  Alice@Example.com ", Password: "Password1!"})
		require.NoError(t, err)

		assert.Equal(t, "alice@example.com", user.Email)
		assert.False(t, user.IsVerified)
		assert.Empty(t, user.PasswordHash)
		assert.Nil(t, user.VerificationToken)
		assert.NotEmpty(t, env.mailer.verification["alice@example.com"])

		stored, err := env.users.GetByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, "hashed:Password1!", stored.PasswordHash)
	})

	t.Run("rejects an email that is already registered", func(t *testing.T) {
		env := newTestEnv(t)
		env.createUser(t, "alice@example.com")

		_, err := env.auth.Register(ctx, ports.RegisterInput{Email: "alice@example.com", Password: "Password1!"})
		assert.ErrorIs(t, err, domain.ErrUserExists)
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	})

	t.Run("propagates mail delivery failures", func(t *testing.T) {
		env := newTestEnv(t)
		env.mailer.err = errors.New("smtp down")

		_, err := env.auth.Register(ctx, ports.RegisterInput{Email: "alice@example.com", Password: "Password1!"})
		require.Error(t, err)
		assert.Equal(t, domain.ErrorKind(""), domain.KindOf(err))
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.createUser(t, "alice@example.com")

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		_, errUnknown := env.auth.Login(ctx, "nobody@example.com", "Password1!")
		_, errWrong := env.auth.Login(ctx, "alice@example.com", "Wrong1!")

		require.Error(t, errUnknown)
		require.Error(t, errWrong)
		assert.Equal(t, errUnknown.Error(), errWrong.Error())
		assert.ErrorIs(t, errWrong, domain.ErrInvalidCredentials)
		assert.Equal(t, domain.KindUnauthorized, domain.KindOf(errWrong))
	})

	t.Run("unverified user with the right password is forbidden", func(t *testing.T) {
		_, err := env.auth.Register(ctx, ports.RegisterInput{Email: "bob@example.com", Password: "Password1!"})
		require.NoError(t, err)

		_, err = env.auth.Login(ctx, "bob@example.com", "Password1!")
		assert.ErrorIs(t, err, domain.ErrNotVerified)
		assert.Equal(t, domain.KindForbidden, domain.KindOf(err))

		_, err = env.auth.Login(ctx, "bob@example.com", "Wrong1!")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("issues a session and stores only the token hash", func(t *testing.T) {
		session, err := env.auth.Login(ctx, "ALICE@example.com", "Password1!")
		require.NoError(t, err)

		assert.Equal(t, alice.ID, session.User.ID)
		assert.Empty(t, session.User.PasswordHash)

		access, err := env.codec.VerifyAccess(session.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, alice.ID, access.UserID)
		assert.True(t, access.IsVerified)

		refresh, err := env.codec.VerifyRefresh(session.RefreshToken)
		require.NoError(t, err)
		row := env.store.tokens[refresh.TokenID]
		require.NotNil(t, row)
		assert.Equal(t, hashToken(session.RefreshToken), row.TokenHash)
		assert.NotEqual(t, session.RefreshToken, row.TokenHash)
	})
}

func TestAuthService_VerifyEmail(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.auth.Register(ctx, ports.RegisterInput{Email: "alice@example.com", Password: "Password1!"})
	require.NoError(t, err)
	tok := env.mailer.verification["alice@example.com"]

	session, err := env.auth.VerifyEmail(ctx, tok)
	require.NoError(t, err)
	assert.True(t, session.User.IsVerified)
	assert.NotEmpty(t, session.AccessToken)

	_, err = env.auth.VerifyEmail(ctx, tok)
	assert.ErrorIs(t, err, domain.ErrInvalidOrExpiredToken)

	_, err = env.auth.VerifyEmail(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidOrExpiredToken)

	_, err = env.auth.Login(ctx, "alice@example.com", "Password1!")
	assert.NoError(t, err)
}

func TestAuthService_VerifyEmail_Expired(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.auth.Register(ctx, ports.RegisterInput{Email: "alice@example.com", Password: "Password1!"})
	require.NoError(t, err)

	env.recovery.(*recoveryService).now = func() time.Time { return time.Now().Add(25 * time.Hour) }

	_, err = env.auth.VerifyEmail(ctx, env.mailer.verification["alice@example.com"])
	assert.ErrorIs(t, err, domain.ErrInvalidOrExpiredToken)
}

func TestAuthService_Refresh(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.createUser(t, "alice@example.com")

	session, err := env.auth.Login(ctx, alice.Email, "Password1!")
	require.NoError(t, err)
	claims, err := env.codec.VerifyRefresh(session.RefreshToken)
	require.NoError(t, err)

	pair, err := env.auth.Refresh(ctx, claims.TokenID, claims.UserID)
	require.NoError(t, err)
	assert.NotEqual(t, session.RefreshToken, pair.RefreshToken)
	assert.Equal(t, 1, env.tokens.count(alice.ID))

	_, err = env.auth.Refresh(ctx, claims.TokenID, claims.UserID)
	assert.ErrorIs(t, err, domain.ErrSessionForbidden)
	assert.Equal(t, domain.KindForbidden, domain.KindOf(err))
}

func TestAuthService_Refresh_ConcurrentRotationHasOneWinner(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.createUser(t, "alice@example.com")

	session, err := env.auth.Login(ctx, alice.Email, "Password1!")
	require.NoError(t, err)
	claims, err := env.codec.VerifyRefresh(session.RefreshToken)
	require.NoError(t, err)

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = env.auth.Refresh(ctx, claims.TokenID, claims.UserID)
		}()
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrSessionForbidden)
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, env.tokens.count(alice.ID))
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.createUser(t, "alice@example.com")

	session, err := env.auth.Login(ctx, alice.Email, "Password1!")
	require.NoError(t, err)

	require.NoError(t, env.auth.Logout(ctx, session.RefreshToken))
	assert.Equal(t, 0, env.tokens.count(alice.ID))

	assert.NoError(t, env.auth.Logout(ctx, session.RefreshToken))
	assert.NoError(t, env.auth.Logout(ctx, ""))

	claims, err := env.codec.VerifyRefresh(session.RefreshToken)
	require.NoError(t, err)
	_, err = env.auth.Refresh(ctx, claims.TokenID, claims.UserID)
	assert.ErrorIs(t, err, domain.ErrSessionForbidden)
}

func TestAuthService_PasswordReset(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.createUser(t, "alice@example.com")

	t.Run("unknown and unverified emails succeed silently", func(t *testing.T) {
		require.NoError(t, env.auth.ForgotPassword(ctx, "nobody@example.com"))

		_, err := env.auth.Register(ctx, ports.RegisterInput{Email: "bob@example.com", Password: "Password1!"})
		require.NoError(t, err)
		require.NoError(t, env.auth.ForgotPassword(ctx, "bob@example.com"))

		assert.Empty(t, env.mailer.reset)
	})

	t.Run("reset replaces the password and revokes every session", func(t *testing.T) {
		first, err := env.auth.Login(ctx, alice.Email, "Password1!")
		require.NoError(t, err)
		_, err = env.auth.Login(ctx, alice.Email, "Password1!")
		require.NoError(t, err)
		require.Equal(t, 2, env.tokens.count(alice.ID))

		require.NoError(t, env.auth.ForgotPassword(ctx, " Alice@example.com"))
		tok := env.mailer.reset[alice.Email]
		require.NotEmpty(t, tok)

		require.NoError(t, env.auth.ResetPassword(ctx, tok, "NewPassword1!"))
		assert.Equal(t, 0, env.tokens.count(alice.ID))

		claims, err := env.codec.VerifyRefresh(first.RefreshToken)
		require.NoError(t, err)
		_, err = env.auth.Refresh(ctx, claims.TokenID, claims.UserID)
		assert.ErrorIs(t, err, domain.ErrSessionForbidden)

		_, err = env.auth.Login(ctx, alice.Email, "Password1!")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
		_, err = env.auth.Login(ctx, alice.Email, "NewPassword1!")
		assert.NoError(t, err)

		err = env.auth.ResetPassword(ctx, tok, "Another1!")
		assert.ErrorIs(t, err, domain.ErrInvalidOrExpiredToken)
	})

	t.Run("expired reset token is rejected", func(t *testing.T) {
		require.NoError(t, env.auth.ForgotPassword(ctx, alice.Email))
		tok := env.mailer.reset[alice.Email]

		env.recovery.(*recoveryService).now = func() time.Time { return time.Now().Add(16 * time.Minute) }
		defer func() { env.recovery.(*recoveryService).now = time.Now }()

		err := env.auth.ResetPassword(ctx, tok, "Another1!")
		assert.ErrorIs(t, err, domain.ErrInvalidOrExpiredToken)
	})
}

func TestAuthService_LoginWithGoogle(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled without a verifier", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.auth.LoginWithGoogle(ctx, "valid-google-token")
		assert.Equal(t, domain.KindForbidden, domain.KindOf(err))
	})

	t.Run("creates a verified user on first sign-in", func(t *testing.T) {
		verifier := stubVerifier{payload: &ports.TokenPayload{Email: "Carol@Example.com", GivenName: "Carol", FamilyName: "Jones"}}
		env := newTestEnv(t, WithGoogleSignIn(verifier, "client-id"))

		session, err := env.auth.LoginWithGoogle(ctx, "valid-google-token")
		require.NoError(t, err)
		assert.Equal(t, "carol@example.com", session.User.Email)
		assert.True(t, session.User.IsVerified)
		require.NotNil(t, session.User.FirstName)
		assert.Equal(t, "Carol", *session.User.FirstName)
		require.NotNil(t, session.User.LastName)
		assert.Equal(t, "Jones", *session.User.LastName)

		again, err := env.auth.LoginWithGoogle(ctx, "valid-google-token")
		require.NoError(t, err)
		assert.Equal(t, session.User.ID, again.User.ID)
	})

	t.Run("rejects an invalid google token", func(t *testing.T) {
		env := newTestEnv(t, WithGoogleSignIn(stubVerifier{}, "client-id"))
		_, err := env.auth.LoginWithGoogle(ctx, "forged")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})
}
