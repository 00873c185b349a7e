// internal/http/handlers/system.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/v1kassh/escrawl-connect/pkg/logger"
	"github.com/v1kassh/escrawl-connect/pkg/response"
)

type SystemHandler struct {
	db     *pgxpool.Pool
	rdb    *redis.Client
	logger *logger.Logger
}

func NewSystemHandler(db *pgxpool.Pool, rdb *redis.Client, log *logger.Logger) *SystemHandler {
	return &SystemHandler{db: db, rdb: rdb, logger: log}
}

// HandleHealth reports liveness together with dependency status.
func (h *SystemHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	database := "connected"
	if err := h.db.Ping(ctx); err != nil {
		database = "disconnected"
	}

	cache := "connected"
	if err := h.rdb.Ping(ctx).Err(); err != nil {
		cache = "disconnected"
	}

	status := http.StatusOK
	if database != "connected" {
		status = http.StatusServiceUnavailable
	}

	response.JSONWithStatus(w, status, map[string]interface{}{
		"server":    "Running",
		"database":  database,
		"redis":     cache,
		"timestamp": time.Now(),
	})
}
