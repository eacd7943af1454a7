package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/fleetpilot/fleet-api/internal/business/tollscan"
	"github.com/fleetpilot/fleet-api/internal/business/tollscan/linkt"
	"github.com/fleetpilot/fleet-api/internal/platform/config"
	apirouter "github.com/fleetpilot/fleet-api/internal/platform/http"
	"github.com/fleetpilot/fleet-api/internal/platform/postgres"
	"github.com/fleetpilot/fleet-api/internal/platform/ratelimit"
	"github.com/fleetpilot/fleet-api/internal/repository"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load(".env.local", ".env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	gin.SetMode(cfg.GinMode)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := postgres.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}
	defer db.Close()

	if err := postgres.Ping(ctx, db); err != nil {
		log.Fatalf("database ping: %v", err)
	}
	if cfg.MigrateOnBoot {
		if err := postgres.RunMigrations(ctx, db); err != nil {
			// The store degrades gracefully on a missing schema, so a
			// failed migration is loud but not fatal.
			logger.Error("migrations not applied", "err", err)
		}
	}

	noticeRepo := repository.NewNoticeRepository(db, logger)
	statsRepo := repository.NewStatsRepository(db, noticeRepo, logger)
	sweepRepo := repository.NewSweepRepository(db)

	driver := linkt.NewDriver(linkt.Config{
		BaseURL:     cfg.PortalBaseURL,
		Headless:    cfg.PortalHeadless,
		SnapshotDir: cfg.PortalSnapshotDir,
	}, logger)

	engine := tollscan.NewService(
		driver,
		linkt.NewParser(),
		noticeRepo,
		sweepRepo,
		tollscan.NewCoalescer(),
		tollscan.RetryPolicy{MaxAttempts: cfg.SearchMaxAttempts, BaseDelay: cfg.SearchBaseDelay},
		cfg.SearchOverallTimeout,
		cfg.SweepWorkers,
		tollscan.NewSlogAudit(logger),
		logger,
	)

	limiter := ratelimit.New(cfg.RateLimitSearches, cfg.RateLimitWindow)

	router := apirouter.NewRouter(noticeRepo, statsRepo, sweepRepo, engine, limiter, []byte(cfg.JWTSecret), cfg.AllowedOrigins)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()
	logger.Info("server listening", "port", cfg.Port)

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "err", err)
	}
	logger.Info("server exited")
}
