package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/eddigital/lti-blogs/internal/api"
	"github.com/eddigital/lti-blogs/internal/blog"
	"github.com/eddigital/lti-blogs/internal/config"
	"github.com/eddigital/lti-blogs/internal/identity"
	"github.com/eddigital/lti-blogs/internal/launch"
	"github.com/eddigital/lti-blogs/internal/lti"
	"github.com/eddigital/lti-blogs/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Warn("database not reachable at startup; health will report degraded", "error", err)
	}

	users := identity.NewRepository(pool)
	blogs := blog.NewRepository(pool)
	consumers := lti.NewConsumerRepository(pool)
	nonces := lti.NewNonceRepository(pool)

	identities := identity.NewService(users, bcrypt.DefaultCost)
	verifier := lti.NewOAuthVerifier(consumers, nonces, cfg.OAuthClockSkew)

	sessions := session.NewMemoryStore(cfg.SessionTTL)
	janitor := session.NewJanitor(sessions, cfg.JanitorInterval)
	go janitor.Start(ctx)
	go sweepNonces(ctx, nonces, cfg.OAuthClockSkew)

	workflow := launch.NewWorkflow(identities, blogs, sessions, cfg.SessionTTL, cfg.HelplineURL)
	controller := launch.NewController(verifier, identities, blogs, sessions, workflow)

	router := api.NewRouter(api.RouterDeps{
		Controller: controller,
		Workflow:   workflow,
		Sessions:   sessions,
		DBPinger:   pool,
		Version:    cfg.Version,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting LTI blogs server", "port", cfg.Port, "version", cfg.Version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
	case err := <-serverErr:
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// sweepNonces clears nonce records that have aged out of the timestamp
// window; anything older is rejected on timestamp alone.
func sweepNonces(ctx context.Context, nonces lti.NonceRepository, skew time.Duration) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-2 * skew)
			if n, err := nonces.DeleteOlderThan(ctx, cutoff); err != nil {
				slog.Warn("nonce sweep failed", "error", err)
			} else if n > 0 {
				slog.Debug("swept stale nonces", "removed", n)
			}
		}
	}
}
