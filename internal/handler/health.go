package handler

import (
	"context"
	"net/http"
	"time"

	"fastclick/internal/infra"
	"fastclick/internal/service"
	"fastclick/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// HealthDeps are probed by /health. Gate, Hub and Breaker are optional.
type HealthDeps struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Gate    interface{ State() service.GateState }
	Hub     interface{ Clients() int }
	Breaker interface{ State() infra.BreakerState }
}

// Health reports DB and Redis connectivity plus queue and session state.
// 503 only when the DB or Redis is unreachable.
func Health(d HealthDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := d.DB.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "connected"
		if d.Redis.Ping(ctx).Err() != nil {
			redisStatus = "error"
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		body := gin.H{
			"ok":    status == http.StatusOK,
			"db":    dbStatus,
			"redis": redisStatus,
		}
		if redisStatus == "connected" {
			if depth, err := worker.DLQDepth(ctx, d.Redis); err == nil {
				body["dlq"] = depth
			}
		}
		if d.Gate != nil {
			body["session"] = d.Gate.State().String()
		}
		if d.Hub != nil {
			body["ws_clients"] = d.Hub.Clients()
		}
		if d.Breaker != nil {
			body["mail_breaker"] = d.Breaker.State().String()
		}
		c.JSON(status, body)
	}
}
