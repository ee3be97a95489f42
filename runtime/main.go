package main

import (
	"github.com/alphabatem/common/context"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/assurea/courtier_api/middleware"
	"github.com/assurea/courtier_api/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("No .env file loaded")
	}

	ctx, err := context.NewCtx(
		&services.SqliteService{},
		&services.RedisService{},
		&services.MinIOService{},

		&services.JWTService{},
		&services.EmailService{},
		&services.GeolocationService{},
		&services.SecurityEventService{},
		&services.RateLimitService{},
		&services.MonitoringService{},

		&services.MediaService{},
		&services.ContentService{},
		&services.LeadService{},

		&middleware.AuthMiddleware{},
		&middleware.SecurityMiddleware{},

		&services.HttpService{},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build service context")
		return
	}

	if err = ctx.Run(); err != nil {
		log.Fatal().Err(err).Msg("Service context terminated")
		return
	}
}
