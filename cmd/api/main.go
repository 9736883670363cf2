package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/Shrey-sa/tree-tracker/internal/config"
	"github.com/Shrey-sa/tree-tracker/internal/digest"
	"github.com/Shrey-sa/tree-tracker/internal/digest/domain"
	"github.com/Shrey-sa/tree-tracker/internal/logger"
	"github.com/Shrey-sa/tree-tracker/internal/metrics"
	"github.com/Shrey-sa/tree-tracker/internal/platform/database"
	"github.com/Shrey-sa/tree-tracker/internal/platform/validation"
	"github.com/Shrey-sa/tree-tracker/internal/version"
)

// @title           Tree Tracker Digest API
// @version         1.0
// @description     Scheduled overdue-task and inspection-reminder email digests.
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization

func main() {
	_ = godotenv.Load()

	if handleCLICommand(os.Args[1:]) {
		return
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.AppEnv, "tracker-api")
	log.Info().Str("addr", cfg.AppAddr).Str("version", version.String()).Str("config", cfg.String()).Msg("starting api server")

	db, err := database.Open(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to open database")
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})
		defer redisClient.Close()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middlewares
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.Secure())
	e.Use(metrics.HTTPMiddleware())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOriginFunc: func(origin string) (bool, error) {
			return matchCORSOrigin(origin, cfg.CORSAllowedOrigins), nil
		},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "X-Cron-Token"},
	}))

	// Validator
	e.Validator = validation.New()

	dg, err := digest.NewRegistrar(db, redisClient, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to wire digests")
	}
	dg.Register(e)

	e.GET("/healthz", healthHandler(db, redisClient))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	if sc := dg.Scheduler(); sc != nil {
		sc.Start()
		log.Info().
			Time("next_overdue", sc.Next(domain.ReportOverdue)).
			Time("next_inspection", sc.Next(domain.ReportInspection)).
			Msg("digest scheduler started")
	}

	// Start server
	go func() {
		if err := e.Start(cfg.AppAddr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if sc := dg.Scheduler(); sc != nil {
		if err := sc.Stop(ctx); err != nil {
			log.Warn().Err(err).Msg("scheduler did not drain")
		}
	}
	if err := e.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	// Accepted async runs finish before the store closes.
	drainCtx, drainCancel := context.WithTimeout(context.Background(), cfg.DigestRunTimeout)
	defer drainCancel()
	if err := dg.Drain(drainCtx); err != nil {
		log.Warn().Err(err).Msg("async digest runs did not drain")
	}
	log.Info().Msg("server stopped")
}
