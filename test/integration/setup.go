package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	handler "github.com/vncsmyrnk/taskboard/internal/adapters/handler/http"
	"github.com/vncsmyrnk/taskboard/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/taskboard/internal/adapters/security"
	"github.com/vncsmyrnk/taskboard/internal/adapters/token"
	"github.com/vncsmyrnk/taskboard/internal/core/services"
)

const testPassword = "Password1!"

type TestApp struct {
	DB          *sql.DB
	Server      *httptest.Server
	Mailer      *capturingMailer
	DBContainer testcontainers.Container
}

// capturingMailer keeps the last token mailed to each address.
type capturingMailer struct {
	mu           sync.Mutex
	verification map[string]string
	reset        map[string]string
}

func newCapturingMailer() *capturingMailer {
	return &capturingMailer{verification: map[string]string{}, reset: map[string]string{}}
}

func (m *capturingMailer) SendVerificationEmail(_ context.Context, to, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verification[to] = token
	return nil
}

func (m *capturingMailer) SendPasswordResetEmail(_ context.Context, to, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset[to] = token
	return nil
}

func (m *capturingMailer) verificationToken(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.verification[email]
}

func (m *capturingMailer) resetToken(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reset[email]
}

func setupPostgresContainer(ctx context.Context) (testcontainers.Container, string, error) {
	pgContainer, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("user"),
		tcpostgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", err
	}

	return pgContainer, connStr, nil
}

func setupTestApp(t *testing.T) *TestApp {
	t.Helper()
	ctx := context.Background()

	dbContainer, dbURL, err := setupPostgresContainer(ctx)
	require.NoError(t, err)

	db, err := postgres.Open(ctx, dbURL)
	require.NoError(t, err)
	require.NoError(t, postgres.Migrate(ctx, db))

	codec, err := token.NewCodec(token.Config{
		AccessSecret:  []byte("test-access-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	})
	require.NoError(t, err)
	hasher := security.NewArgon2Hasher(security.Argon2Params{MemoryKiB: 1024, Iterations: 1, Parallelism: 1})
	mailer := newCapturingMailer()

	userRepo := postgres.NewUserRepository(db)
	tokenRepo := postgres.NewRefreshTokenRepository(db)
	projectRepo := postgres.NewProjectRepository(db)
	memberRepo := postgres.NewMemberRepository(db)
	taskRepo := postgres.NewTaskRepository(db)

	sessions := services.NewSessionService(tokenRepo, userRepo, codec)
	recovery := services.NewRecoveryService(userRepo, sessions, services.RecoveryConfig{
		VerificationTTL:  24 * time.Hour,
		PasswordResetTTL: time.Hour,
	})
	authz := services.NewAuthorizer(memberRepo)

	router := handler.NewHandler(handler.Deps{
		Auth:     services.NewAuthService(userRepo, sessions, recovery, hasher, mailer),
		Users:    services.NewUserService(userRepo),
		Projects: services.NewProjectService(projectRepo, userRepo, authz),
		Members:  services.NewMemberService(memberRepo, projectRepo, userRepo, authz),
		Tasks:    services.NewTaskService(taskRepo, authz),
		Codec:    codec,
		DB:       db,
		Cookies:  handler.CookieConfig{MaxAge: 7 * 24 * time.Hour},
		Registry: prometheus.NewRegistry(),
		Logger:   zerolog.Nop(),
	})

	return &TestApp{
		DB:          db,
		Server:      httptest.NewServer(router),
		Mailer:      mailer,
		DBContainer: dbContainer,
	}
}

func (app *TestApp) Teardown(t *testing.T) {
	app.Server.Close()
	app.DB.Close()
	if err := app.DBContainer.Terminate(context.Background()); err != nil {
		t.Logf("failed to terminate container: %v", err)
	}
}

// newClient returns a client with its own cookie jar, one per simulated browser.
func (app *TestApp) newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func (app *TestApp) do(t *testing.T, client *http.Client, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, app.Server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

// signUp registers, verifies and returns a logged-in client for email.
func (app *TestApp) signUp(t *testing.T, email string) (*http.Client, string) {
	t.Helper()
	client := app.newClient(t)

	resp, body := app.do(t, client, http.MethodPost, "/api/auth/register", map[string]any{
		"email":    email,
		"password": testPassword,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)

	resp, body = app.do(t, client, http.MethodGet, "/api/auth/verify-email?token="+app.Mailer.verificationToken(email), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	user := body["user"].(map[string]any)
	return client, user["id"].(string)
}

func errorCode(body map[string]any) string {
	e, ok := body["error"].(map[string]any)
	if !ok {
		return ""
	}
	code, _ := e["code"].(string)
	return code
}
