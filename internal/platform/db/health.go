package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats represents database connection pool statistics.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
	Healthy         bool   `json:"healthy"`
}

// StatsRecorder receives pool gauges; satisfied by the telemetry provider.
type StatsRecorder interface {
	SetPoolStats(total, idle, acquired int32)
}

// GetPoolStats returns connection pool statistics.
func GetPoolStats(pool *pgxpool.Pool) *PoolStats {
	stat := pool.Stat()
	return &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
		Healthy:         stat.TotalConns() > 0,
	}
}

func publish(stats *PoolStats, rec StatsRecorder) {
	if rec == nil || stats == nil {
		return
	}
	rec.SetPoolStats(stats.TotalConns, stats.IdleConns, stats.AcquiredConns)
}

// PublishPoolStats pushes pool gauges to rec every interval until ctx is done.
func PublishPoolStats(ctx context.Context, pool *pgxpool.Pool, rec StatsRecorder, interval time.Duration) error {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	publish(GetPoolStats(pool), rec)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			publish(GetPoolStats(pool), rec)
		}
	}
}

// HealthHandler returns a handler for the database health check endpoint.
// rec may be nil.
func HealthHandler(pool *pgxpool.Pool, rec StatsRecorder) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		err := pool.Ping(ctx)
		stats := GetPoolStats(pool)
		publish(stats, rec)

		if err != nil {
			stats.Healthy = false
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
				"pool":   stats,
			})
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"pool":   stats,
		})
	}
}
