package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// HealthHandler reports process and dependency health
type HealthHandler struct {
	db    *sqlx.DB
	redis *redis.Client
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db *sqlx.DB, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{
		db:    db,
		redis: redisClient,
	}
}

// Health pings the database and Redis. Returns 503 when either is down.
func (h *HealthHandler) Health(c *gin.Context) {
	httpStatus := http.StatusOK
	overall := "ok"
	checks := gin.H{}

	if err := h.db.PingContext(c.Request.Context()); err != nil {
		checks["database"] = "down: " + err.Error()
		httpStatus = http.StatusServiceUnavailable
		overall = "degraded"
	} else {
		checks["database"] = "up"
	}

	if err := h.redis.Ping(c.Request.Context()).Err(); err != nil {
		checks["redis"] = "down: " + err.Error()
		httpStatus = http.StatusServiceUnavailable
		overall = "degraded"
	} else {
		checks["redis"] = "up"
	}

	c.JSON(httpStatus, gin.H{
		"status":    overall,
		"checks":    checks,
		"timestamp": time.Now().UTC(),
	})
}
