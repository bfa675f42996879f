package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	_ "github.com/marketsquare/auth-service/docs"
	"github.com/marketsquare/auth-service/internal/api"
	"github.com/marketsquare/auth-service/internal/core/service"
	"github.com/marketsquare/auth-service/internal/infrastructure/config"
	mongodb "github.com/marketsquare/auth-service/internal/infrastructure/db/mongo"
	redisdb "github.com/marketsquare/auth-service/internal/infrastructure/db/redis"
	"github.com/marketsquare/auth-service/internal/infrastructure/identity"
	"github.com/marketsquare/auth-service/internal/infrastructure/mailer"
	"github.com/marketsquare/auth-service/internal/infrastructure/queue"
	"github.com/marketsquare/auth-service/pkg/logger"
)

// @title           Marketsquare Auth Service API
// @version         1.0
// @description     Authentication and session lifecycle for the marketplace.
// @BasePath        /
//
// @securityDefinitions.apikey BearerAuth
// @in   header
// @name Authorization
func main() {
	// .env is a local development convenience; absence is fine.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		panic(err)
	}

	log := logger.New(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	// --- Datastores ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connect failed")
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connect failed")
	}
	defer func() { _ = rdb.Close() }()

	users := mongodb.NewUserRepository(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("user indexes failed")
	}
	sellers := mongodb.NewSellerRepository(db)
	revoked := redisdb.NewRevocationRegistry(rdb)

	// --- Core services ---
	tokens, err := service.NewTokenIssuer(cfg.JWT.AccessSecret, cfg.JWT.RefreshSecret, cfg.JWT.AccessTTL)
	if err != nil {
		// Missing secrets must stop the process, not degrade silently.
		log.Fatal().Err(err).Msg("token issuer misconfigured")
	}

	google := identity.NewGoogleProvider(identity.GoogleConfig{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.RedirectURL,
	})

	sender := mailer.NewMailgun(cfg.Mailgun.Domain, cfg.Mailgun.APIKey, cfg.Mailgun.Sender)
	dispatcher := queue.NewDispatcher(cfg.Email.Workers, sender, log)
	dispatcher.Start(ctx)

	authService := service.NewAuthService(service.AuthServiceDeps{
		Users:       users,
		Sellers:     sellers,
		Tokens:      tokens,
		Revoked:     revoked,
		Identity:    google,
		Roles:       service.NewRoleResolver(cfg.Admin.Emails, cfg.Admin.Domains),
		Mail:        dispatcher,
		FrontendURL: cfg.FrontendURL,
		AccessTTL:   tokens.AccessTTL(),
		RefreshTTL:  tokens.RefreshTTL(),
		Logger:      log,
	})

	// --- HTTP ---
	e := api.NewRouter(api.RouterDeps{
		Auth:        authService,
		Tokens:      tokens,
		Revoked:     revoked,
		Mongo:       db,
		Redis:       rdb,
		FrontendURL: cfg.FrontendURL,
		Logger:      log,
	})

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("auth service listening")

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
