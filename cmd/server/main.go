package main

import (
	"context"
	"errors"
	stdhttp "net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vncsmyrnk/taskboard/internal/adapters/handler/http"
	"github.com/vncsmyrnk/taskboard/internal/adapters/mailer"
	"github.com/vncsmyrnk/taskboard/internal/adapters/oauth/google"
	"github.com/vncsmyrnk/taskboard/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/taskboard/internal/adapters/security"
	"github.com/vncsmyrnk/taskboard/internal/adapters/token"
	"github.com/vncsmyrnk/taskboard/internal/config"
	"github.com/vncsmyrnk/taskboard/internal/core/ports"
	"github.com/vncsmyrnk/taskboard/internal/core/services"
	"github.com/vncsmyrnk/taskboard/internal/logging"
	"github.com/vncsmyrnk/taskboard/internal/telemetry"
)

const serviceName = "taskboard-api"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogJSON)

	shutdownTracing, err := telemetry.Init(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("init otel")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown otel")
		}
	}()

	db, err := postgres.Open(ctx, cfg.Database.ConnString())
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	defer db.Close()

	codec, err := token.NewCodec(token.Config{
		AccessSecret:  []byte(cfg.JWT.AccessSecret),
		RefreshSecret: []byte(cfg.JWT.RefreshSecret),
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("init token codec")
	}

	hasher := security.NewArgon2Hasher(security.Argon2Params{
		MemoryKiB:   cfg.Argon2.MemoryKiB,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
	})

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	tokenRepo := postgres.NewRefreshTokenRepository(db)
	projectRepo := postgres.NewProjectRepository(db)
	memberRepo := postgres.NewMemberRepository(db)
	taskRepo := postgres.NewTaskRepository(db)

	// Services
	sessions := services.NewSessionService(tokenRepo, userRepo, codec)
	recovery := services.NewRecoveryService(userRepo, sessions, services.RecoveryConfig{
		VerificationTTL:  cfg.Recovery.VerificationTTL,
		PasswordResetTTL: cfg.Recovery.PasswordResetTTL,
	})

	var authOpts []services.AuthOption
	if cfg.GoogleClientID != "" {
		authOpts = append(authOpts, services.WithGoogleSignIn(google.NewVerifier(), cfg.GoogleClientID))
	}
	authService := services.NewAuthService(userRepo, sessions, recovery, hasher, newMailer(cfg, logger), authOpts...)

	authz := services.NewAuthorizer(memberRepo)
	maintenance := services.NewMaintenanceService(tokenRepo, userRepo)

	scheduler, err := scheduleMaintenance(cfg.CleanupSchedule, maintenance)
	if err != nil {
		log.Fatal().Err(err).Msg("schedule maintenance")
	}
	if scheduler != nil {
		scheduler.Start()
		defer func() { <-scheduler.Stop().Done() }()
	}

	handler := http.NewHandler(http.Deps{
		Auth:     authService,
		Users:    services.NewUserService(userRepo),
		Projects: services.NewProjectService(projectRepo, userRepo, authz),
		Members:  services.NewMemberService(memberRepo, projectRepo, userRepo, authz),
		Tasks:    services.NewTaskService(taskRepo, authz),
		Codec:    codec,
		DB:       db,
		Cookies: http.CookieConfig{
			Domain: cfg.Cookie.Domain,
			Secure: cfg.Cookie.Secure,
			MaxAge: cfg.JWT.RefreshTTL,
		},
		AllowedOrigins: cfg.AllowedOrigins,
		AuthRateLimit:  cfg.AuthRateLimit,
		GoogleEnabled:  cfg.GoogleClientID != "",
		ExposeErrors:   !cfg.IsProduction(),
		Logger:         logger,
	})

	server := &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           telemetry.Middleware(serviceName)(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Str("env", cfg.Env).Msg("starting taskboard api")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown server")
	}
}

func newMailer(cfg config.Config, logger zerolog.Logger) ports.Mailer {
	links := mailer.Links{FrontendURL: cfg.FrontendURL}
	if cfg.SMTP.Host == "" {
		log.Warn().Msg("SMTP_HOST not set, emails will only be logged")
		return mailer.NewLogMailer(links, logger)
	}
	return mailer.NewSMTPMailer(mailer.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.User,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, links, logger)
}

// scheduleMaintenance returns nil when schedule is empty.
func scheduleMaintenance(schedule string, maintenance ports.MaintenanceService) (*cron.Cron, error) {
	if schedule == "" {
		return nil, nil
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if err := maintenance.PurgeExpired(ctx); err != nil {
			log.Error().Err(err).Msg("token cleanup failed")
		}
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}
