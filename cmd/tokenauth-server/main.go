// Command tokenauth-server serves the login, reissue, logout and registration API.
//
// Configuration is read from TOKENAUTH_* environment variables; see internal/config.
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

	tokenAuth "github.com/MrEthical07/tokenAuth"
	"github.com/MrEthical07/tokenAuth/httpapi"
	"github.com/MrEthical07/tokenAuth/internal/config"
	"github.com/MrEthical07/tokenAuth/metrics/export/prometheus"
	"github.com/MrEthical07/tokenAuth/userstore/memory"
	"github.com/MrEthical07/tokenAuth/userstore/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type accountStore interface {
	tokenAuth.UserProvider
	tokenAuth.UserCreator
}

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "tokenauth").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	lvl, _ := cfg.Level()
	logger = logger.Level(lvl)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg config.Server, logger zerolog.Logger) error {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer func() { _ = rdb.Close() }()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err := rdb.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		return fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}

	users, closeUsers, err := openAccounts(cfg, logger)
	if err != nil {
		return err
	}
	defer closeUsers()

	builder := tokenAuth.New().
		WithConfig(cfg.Engine()).
		WithRedis(rdb).
		WithUserProvider(users).
		WithLogger(logger)
	if cfg.AuditLog {
		builder = builder.WithAuditSink(tokenAuth.NewLogSink(zerolog.New(os.Stdout).With().Str("service", "tokenauth").Str("stream", "audit").Logger()))
	}
	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: httpapi.New(engine, httpapi.Options{
			SecureCookies: cfg.SecureCookies,
			RequestRate:   rate.Limit(cfg.RequestRate),
			RequestBurst:  cfg.RequestBurst,
			Metrics:       prometheus.NewExporter(engine).Handler(),
			Logger:        logger,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openAccounts(cfg config.Server, logger zerolog.Logger) (accountStore, func(), error) {
	if cfg.SQLitePath == "" {
		logger.Warn().Msg("TOKENAUTH_SQLITE_PATH unset, accounts are kept in memory")
		return memory.New(), func() {}, nil
	}
	store, err := sqlite.Open(cfg.SQLitePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open account store: %w", err)
	}
	return store, func() { _ = store.Close() }, nil
}
