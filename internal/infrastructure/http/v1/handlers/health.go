package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"stockflow/internal/infrastructure/storage/postgres"
)

// Database is what health checks look at. *postgres.Pool implements it.
type Database interface {
	Ping(ctx context.Context) error
	Stats() postgres.PoolStats
}

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	db      Database
	version string
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db Database, version string) *HealthHandler {
	return &HealthHandler{db: db, version: version}
}

// Live reports whether the process is alive.
// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Ready reports whether the service can accept traffic.
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if err := h.db.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "error",
			"checks": map[string]string{
				"database": "unhealthy: " + err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"checks": map[string]string{
			"database": "healthy",
		},
	})
}

// Info returns application information.
// GET /health/info
func (h *HealthHandler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"app":      "stockflow",
		"version":  h.version,
		"database": h.db.Stats(),
	})
}
