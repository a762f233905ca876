package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/vncsmyrnk/taskboard/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/taskboard/internal/config"
	"github.com/vncsmyrnk/taskboard/internal/core/services"
	"github.com/vncsmyrnk/taskboard/internal/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found")
	}
	logging.Setup(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_JSON") == "true")

	// Bounded so a hung connection cannot keep the job alive.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	dbCfg, err := config.LoadDatabase(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("load database config")
	}

	db, err := postgres.Open(ctx, dbCfg.ConnString())
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	defer db.Close()

	maintenance := services.NewMaintenanceService(
		postgres.NewRefreshTokenRepository(db),
		postgres.NewUserRepository(db),
	)

	log.Info().Msg("starting token cleanup job")

	if err := maintenance.PurgeExpired(ctx); err != nil {
		log.Fatal().Err(err).Msg("token cleanup failed")
	}

	log.Info().Msg("token cleanup completed successfully")
}
