package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/acmecorp/auth-service/internal/api"
	"github.com/acmecorp/auth-service/internal/core/domain"
	"github.com/acmecorp/auth-service/internal/core/ports"
	"github.com/acmecorp/auth-service/internal/core/service"
	mongodb "github.com/acmecorp/auth-service/internal/infrastructure/db/mongo"
	redisdb "github.com/acmecorp/auth-service/internal/infrastructure/db/redis"
	"github.com/acmecorp/auth-service/internal/infrastructure/mail"
	"github.com/acmecorp/auth-service/internal/infrastructure/otpstore"
	"github.com/acmecorp/auth-service/internal/infrastructure/queue"
	"github.com/acmecorp/auth-service/internal/pkg/config"
	"github.com/acmecorp/auth-service/pkg/logger"
)

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Infrastructure ---
	client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() { _ = rdb.Close() }()

	repo := mongodb.NewPrincipalRepository(db)
	if err := repo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to create indexes")
	}

	// --- Core services ---
	var store ports.OtpStore
	if cfg.OtpStore == "redis" {
		store = otpstore.NewRedis(rdb)
	} else {
		store = otpstore.NewMemory()
	}

	var mailer ports.Mailer
	if cfg.SMTP.Host != "" {
		mailer = mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			StartTLS: cfg.SMTP.StartTLS,
		})
	} else {
		log.Warn().Msg("no SMTP host configured, codes will only be logged")
		mailer = mail.NewNoop(log)
	}

	tokens := service.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	otp := service.NewOtpService(store, cfg.OtpTTL)
	confirmations := redisdb.NewConfirmations(rdb, cfg.TokenTTL)

	dispatcher := queue.NewDispatcher(cfg.MailWorkers, otp, mailer, log)
	dispatcher.Start(ctx)

	authService := service.NewAuthService(repo, tokens, otp, confirmations, mailer, dispatcher, cfg.VerificationTTL, log)

	seedAdmin(ctx, authService, cfg, log)

	// --- HTTP server ---
	e := api.NewRouter(api.Deps{
		AuthService:   authService,
		Tokens:        tokens,
		Confirmations: confirmations,
		Mongo:         db,
		Redis:         rdb,
		Log:           log,
	})

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("auth service started")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// seedAdmin creates the bootstrap administrator when configured and not yet
// present. Duplicates are fine: the seed is idempotent across restarts.
func seedAdmin(ctx context.Context, auth ports.AuthService, cfg *config.Config, log zerolog.Logger) {
	a := cfg.Admin
	if a.Username == "" || a.Email == "" || a.Password == "" {
		return
	}

	_, err := auth.SignupAdmin(ctx, ports.SignupInput{
		Username: a.Username,
		Email:    a.Email,
		Password: a.Password,
	})
	switch {
	case err == nil:
		log.Info().Str("username", a.Username).Msg("bootstrap admin created")
	case errors.Is(err, domain.ErrDuplicateUsername), errors.Is(err, domain.ErrDuplicateEmail):
		// Already seeded.
	default:
		log.Error().Err(err).Msg("bootstrap admin seeding failed")
	}
}
