// Package http carries the service-level HTTP surface that is not part of the
// suggestion engine itself: health probes and shared middleware.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	DB        string    `json:"db,omitempty"`
	Redis     string    `json:"redis,omitempty"`
}

// HealthHandler reports liveness plus the state of both backing stores. A dead
// dependency is reported but does not flip the overall status; the process is
// still serving and orchestrators should not cycle it for a transient outage.
type HealthHandler struct {
	serviceName string
	version     string
	db          *pgxpool.Pool
	redis       *redis.Client
}

func NewHealthHandler(serviceName, version string, db *pgxpool.Pool, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, db: db, redis: rdb}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.version,
		DB:        "disabled",
		Redis:     "disabled",
	}
	if h.db != nil {
		resp.DB = "up"
		if err := h.db.Ping(ctx); err != nil {
			resp.DB = "down"
		}
	}
	if h.redis != nil {
		resp.Redis = "up"
		if err := h.redis.Ping(ctx).Err(); err != nil {
			resp.Redis = "down"
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
}
