// api/cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/v1kassh/escrawl-connect/internal/auth"
	"github.com/v1kassh/escrawl-connect/internal/config"
	"github.com/v1kassh/escrawl-connect/internal/db"
	"github.com/v1kassh/escrawl-connect/internal/directory"
	httpapi "github.com/v1kassh/escrawl-connect/internal/http"
	"github.com/v1kassh/escrawl-connect/internal/models"
	"github.com/v1kassh/escrawl-connect/internal/store"
	"github.com/v1kassh/escrawl-connect/pkg/logger"
)

func main() {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting Escrawl Connect server",
		"port", cfg.Server.Port,
		"environment", os.Getenv("ENV"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("Running database migrations...")
	if err := models.Migrate(ctx, pool); err != nil {
		log.Fatal("Failed to run migrations", "error", err)
	}

	log.Info("Connecting to Redis...")
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("Failed to connect to Redis", "error", err)
	}

	if err := seed(ctx, pool, cfg, log); err != nil {
		log.Fatal("Failed to seed defaults", "error", err)
	}

	server := httpapi.NewServer(pool, rdb, cfg, log)
	defer server.Close()

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("API server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Fatal("Server error", "error", err)

	case sig := <-interrupt:
		log.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		log.Info("Shutting down server...")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("Graceful shutdown failed", "error", err)
			if closeErr := httpServer.Close(); closeErr != nil {
				log.Error("Force close failed", "error", closeErr)
			}
		}

		log.Info("Server stopped gracefully")
	}
}

// seed ensures the distinguished super admin account and the default
// channels exist. Both steps are idempotent across restarts.
func seed(ctx context.Context, pool *pgxpool.Pool, cfg *config.Config, log *logger.Logger) error {
	users := store.NewUsers(pool, log)

	hash, err := auth.HashPassword(cfg.Seed.SuperAdminPassword)
	if err != nil {
		return err
	}
	if err := users.EnsureSuperAdmin(ctx, hash); err != nil {
		return err
	}

	dir := directory.New(pool, log)
	return dir.Seed(ctx, cfg.Seed.ChannelDefaults)
}
