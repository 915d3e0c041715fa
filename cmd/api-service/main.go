package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/cuongbtq/booking-service/internal/api/handler"
	"github.com/cuongbtq/booking-service/internal/api/router"
	"github.com/cuongbtq/booking-service/internal/booking"
	"github.com/cuongbtq/booking-service/internal/clock"
	"github.com/cuongbtq/booking-service/internal/config"
	"github.com/cuongbtq/booking-service/internal/metrics"
	"github.com/cuongbtq/booking-service/internal/notification"
	"github.com/cuongbtq/booking-service/internal/storage"
	"github.com/cuongbtq/booking-service/shared/logger"
	"github.com/cuongbtq/booking-service/shared/postgresql"
	"github.com/cuongbtq/booking-service/shared/rabbitmq"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateAPIConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	settings, err := cfg.BookingSettings()
	if err != nil {
		return fmt.Errorf("invalid booking config: %w", err)
	}

	appLogger, err := logger.New(cfg.Logger())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting API service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("timezone", settings.Location.String()),
	)

	dbClient, err := postgresql.NewClient(cfg.PostgreSQL(), appLogger.Component("postgresql"))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbClient.Close()

	appLogger.Info("Database connection established")

	rabbitClient, err := rabbitmq.NewClient(cfg.RabbitMQClient(), appLogger.Component("rabbitmq"))
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}
	defer rabbitClient.Close()

	appLogger.Info("RabbitMQ connection established")

	var m *metrics.Metrics
	var serviceOpts []booking.Option
	if cfg.Metrics.Enabled {
		m = metrics.New()
		serviceOpts = append(serviceOpts, booking.WithRecorder(m))
	}

	clk := clock.System{}
	store := storage.NewStorage(dbClient, appLogger.Component("storage"))
	notifier := notification.NewNotifier(
		rabbitClient,
		store,
		cfg.PushPolicy(settings.Location),
		clk,
		appLogger.Component("notification"),
	)
	service := booking.NewService(store, notifier, clk, settings, appLogger.Component("booking"), serviceOpts...)

	r := initRouter(cfg, appLogger.Logger, service, dbClient, m, settings)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	appLogger.Info("Starting HTTP server",
		slog.String("address", addr),
		slog.Duration("read_timeout", cfg.Server.ReadTimeout),
		slog.Duration("write_timeout", cfg.Server.WriteTimeout),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Shutting down server...", slog.String("signal", sig.String()))
	case err := <-errChan:
		return fmt.Errorf("server failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Server shutdown complete")
	return nil
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(
	cfg *config.Config,
	logger *slog.Logger,
	service *booking.Service,
	db *postgresql.Client,
	m *metrics.Metrics,
	settings booking.Settings,
) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	deps := &handler.Dependencies{
		Logger:      logger,
		Service:     service,
		Location:    settings.Location,
		ServiceName: cfg.App.Name,
		Database:    db,
	}

	opts := router.Options{MetricsPath: cfg.Metrics.Path}
	if m != nil {
		opts.Metrics = m
	}
	return router.SetupRouter(deps, opts)
}
