package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/Shrey-sa/tree-tracker/internal/metrics"
	"github.com/Shrey-sa/tree-tracker/internal/platform/database"
	"github.com/Shrey-sa/tree-tracker/internal/version"
)

// healthHandler pings the store and, when configured, Redis. It always
// answers 200 so the body can report partial outages.
func healthHandler(db *database.Handle, rc *redis.Client) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 500*time.Millisecond)
		defer cancel()

		dbStatus := "ok"
		start := time.Now()
		err := db.Ping(ctx)
		metrics.ObservePing(metrics.DepDatabase, string(db.Driver), time.Since(start), err)
		if err != nil {
			dbStatus = "down"
		}

		cacheStatus := "disabled"
		if rc != nil {
			cacheStatus = "ok"
			start = time.Now()
			_, err := rc.Ping(ctx).Result()
			metrics.ObservePing(metrics.DepRedis, "redis", time.Since(start), err)
			if err != nil {
				cacheStatus = "down"
			}
		}

		return c.JSON(http.StatusOK, map[string]any{
			"status":  "ok",
			"time":    time.Now().UTC().Format(time.RFC3339),
			"version": version.String(),
			"db":      dbStatus,
			"cache":   cacheStatus,
		})
	}
}
