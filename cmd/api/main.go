package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/GerganaNoneva/beautysalon/internal/api/router"
	"github.com/GerganaNoneva/beautysalon/internal/app/bootstrap"
	"github.com/GerganaNoneva/beautysalon/internal/appointments"
	"github.com/GerganaNoneva/beautysalon/internal/catalog"
	appconfig "github.com/GerganaNoneva/beautysalon/internal/config"
	"github.com/GerganaNoneva/beautysalon/internal/events"
	"github.com/GerganaNoneva/beautysalon/internal/http/handlers"
	"github.com/GerganaNoneva/beautysalon/internal/salon"
	"github.com/GerganaNoneva/beautysalon/internal/scheduling"
	"github.com/GerganaNoneva/beautysalon/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting beauty salon booking API",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := bootstrap.BuildPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	sqlDB, err := bootstrap.BuildSQLDB(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open catalog database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = sqlDB.Close() }()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient == nil {
		logger.Error("redis is required for salon profiles", "addr", cfg.RedisAddr)
		os.Exit(1)
	}
	defer func() { _ = redisClient.Close() }()

	transport, err := setupEventTransport(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	metricsHandler, schedulingMetrics := setupSchedulingMetrics()

	profiles := salon.NewStore(redisClient, cfg.DefaultTimezone)
	services := catalog.NewRepository(sqlDB)
	outbox := events.NewOutboxStore(pool)
	scheduler := scheduling.NewService(profiles, services, appointments.NewRepository(pool), scheduling.Options{
		LookaheadDays:   cfg.LookaheadDays,
		MaxBlocks:       cfg.MaxFreeBlocks,
		MinBlockMinutes: cfg.MinFreeBlockMinutes,
		Publisher:       outbox,
		Metrics:         schedulingMetrics,
		Logger:          logger,
	})

	deliverer := setupDeliverer(outbox, transport, cfg, logger)
	go deliverer.Start(ctx)

	r := router.New(&router.Config{
		Logger:             logger,
		Availability:       handlers.NewAvailabilityHandler(scheduler, services, logger),
		Booking:            handlers.NewBookingHandler(scheduler, logger),
		AdminBooking:       handlers.NewAdminBookingHandler(scheduler, logger),
		SalonHandler:       salon.NewHandler(profiles, logger),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
	})
	if cfg.AdminJWTSecret == "" {
		logger.Warn("ADMIN_JWT_SECRET not set; admin routes disabled")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}
