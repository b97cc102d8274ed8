package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/memalihaider/umttechverse02-sub001/docs" // This is for Swagger
	"github.com/memalihaider/umttechverse02-sub001/internal/app"
	"github.com/memalihaider/umttechverse02-sub001/internal/config"
	"github.com/memalihaider/umttechverse02-sub001/internal/handlers"
	"github.com/memalihaider/umttechverse02-sub001/internal/logger"
	"github.com/memalihaider/umttechverse02-sub001/internal/scheduler"
	"github.com/memalihaider/umttechverse02-sub001/internal/server"
)

// @title Techverse Registration API
// @version 1.0
// @description Backend API for event registration, team access, phase submissions and judging
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@umttechverse.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logger
	log := logger.Setup(logger.Config{
		Level:   cfg.Log.Level,
		JSON:    cfg.App.Env == "production",
		Service: cfg.App.Name,
		Version: cfg.App.Version,
	})

	log.Info("Starting application",
		"env", cfg.App.Env,
		"log_level", cfg.Log.Level,
		"store_driver", cfg.StoreDriver,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize stores
	stores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		log.Error("Failed to initialize stores", "error", err)
		os.Exit(1)
	}
	defer stores.Close()

	// Run database migrations
	if err := stores.Migrate(ctx, cfg.Database.MigrationsDir); err != nil {
		log.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	log.Info("Database migrations completed")

	// Initialize services
	svc, err := app.NewServices(ctx, cfg, stores)
	if err != nil {
		log.Error("Failed to initialize services", "error", err)
		os.Exit(1)
	}

	if err := svc.Bootstrap(ctx, cfg); err != nil {
		log.Error("Failed to bootstrap accounts", "error", err)
		os.Exit(1)
	}

	// Initialize scheduler
	var exporter scheduler.LeaderboardExporter
	if svc.LeaderboardExport != nil {
		exporter = svc.Evaluations
	}
	schedulerService := scheduler.NewScheduler(svc.Registrations, exporter, svc.Audit, svc.Alerter, &cfg.Scheduler)
	schedulerService.Start()
	defer schedulerService.Stop()

	srv := server.New(ctx, &server.HTTPServerConfig{
		ListenAddr:               net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		EnablePprof:              cfg.App.Env == "development",
		Log:                      log,
		DrainDuration:            cfg.Server.DrainDelay,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              cfg.Server.TimeoutRead,
		WriteTimeout:             cfg.Server.TimeoutWrite,
		IdleTimeout:              cfg.Server.TimeoutIdle,
		CORS:                     &cfg.CORS,
		RateLimit:                cfg.RateLimit,
	}, server.Handlers{
		Registrations: handlers.NewRegistrationHandler(svc.Registrations),
		Team:          handlers.NewTeamHandler(svc.Access, svc.Submissions),
		Evaluations:   handlers.NewEvaluationHandler(svc.Evaluations, svc.Audit),
		Admin:         handlers.NewAdminHandler(svc.Admins, svc.Audit),
	}, svc.Tokens)

	srv.RunInBackground()
	log.Info("Server started", "address", net.JoinHostPort(cfg.Server.Host, cfg.Server.Port))

	// Wait for interrupt signal to gracefully shut down the server
	<-ctx.Done()
	log.Info("Server shutting down...")

	srv.Shutdown()
	log.Info("Server stopped")
}
