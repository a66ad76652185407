package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/pocketchange/pocketchange-api/docs"
	"github.com/pocketchange/pocketchange-api/internal/api"
	"github.com/pocketchange/pocketchange-api/internal/core/service"
	"github.com/pocketchange/pocketchange-api/internal/infrastructure/config"
	mongodb "github.com/pocketchange/pocketchange-api/internal/infrastructure/db/mongo"
	redisdb "github.com/pocketchange/pocketchange-api/internal/infrastructure/db/redis"
	"github.com/pocketchange/pocketchange-api/internal/infrastructure/queue"
	"github.com/pocketchange/pocketchange-api/internal/infrastructure/token"
	"github.com/pocketchange/pocketchange-api/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	// --- External stores ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		return err
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer func() { _ = rdb.Close() }()

	// --- Dependencies ---
	userRepo := mongodb.NewUserRepository(db)
	if err := userRepo.EnsureIndexes(ctx); err != nil {
		return err
	}

	sessions := redisdb.NewSessionRegistry(rdb, cfg.Auth.RefreshTTL)
	issuer := token.NewIssuer(token.Config{
		AccessSecret:  cfg.Auth.AccessSecret,
		RefreshSecret: cfg.Auth.RefreshSecret,
		AccessTTL:     cfg.Auth.AccessTTL,
		RefreshTTL:    cfg.Auth.RefreshTTL,
	})

	audit := queue.NewDispatcher(0, log)
	audit.Start(ctx)

	authService := service.NewAuthService(userRepo, issuer, sessions, audit, cfg.Auth.BcryptCost)

	e := api.NewRouter(cfg, log, authService, issuer, db, rdb)

	// --- Serve until signalled ---
	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server started")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
