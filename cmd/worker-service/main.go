package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/cuongbtq/booking-service/internal/config"
	"github.com/cuongbtq/booking-service/internal/metrics"
	"github.com/cuongbtq/booking-service/internal/worker"
	"github.com/cuongbtq/booking-service/internal/worker/dedup"
	"github.com/cuongbtq/booking-service/internal/worker/deliver"
	workerstorage "github.com/cuongbtq/booking-service/internal/worker/storage"
	"github.com/cuongbtq/booking-service/shared/logger"
	"github.com/cuongbtq/booking-service/shared/postgresql"
	"github.com/cuongbtq/booking-service/shared/rabbitmq"
	"github.com/cuongbtq/booking-service/shared/redis"
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

	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := logger.New(cfg.Logger())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
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

	redisClient, err := redis.NewClient(cfg.RedisClient(), appLogger.Component("redis"))
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	appLogger.Info("Redis connection established")

	var recorder worker.Recorder
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		m := metrics.New()
		recorder = m
		metricsServer = metrics.NewServer(m, cfg.Metrics.Port, cfg.Metrics.Path, appLogger.Component("metrics"))
		go func() {
			if err := metricsServer.Start(); err != nil {
				appLogger.Error("Metrics server failed", slog.Any("error", err))
			}
		}()
	}

	sender := deliver.NewLogSender(appLogger.Component("deliver"))

	workerInstance := worker.NewWorker(&worker.Config{
		Logger:          appLogger.Component("worker"),
		Source:          rabbitClient,
		Deliverer:       deliver.NewRouter(sender, sender, sender),
		DeliveryLog:     workerstorage.NewStorage(dbClient.GetDB(), appLogger.Component("storage")),
		Dedup:           dedup.NewTracker(redisClient, cfg.Redis.DedupTTL, appLogger.Component("dedup")),
		Recorder:        recorder,
		WorkerID:        workerID(),
		QueueName:       cfg.RabbitMQ.Queue.Name,
		Concurrency:     cfg.Worker.Concurrency,
		PrefetchCount:   cfg.RabbitMQ.Consumer.PrefetchCount,
		DeliveryTimeout: cfg.Worker.DeliveryTimeout,
		MaxRedeliveries: cfg.Worker.MaxRedeliveries,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- workerInstance.Start(ctx)
	}()

	appLogger.Info("Worker service started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case err := <-errChan:
		if err == nil {
			err = errors.New("delivery channel closed by broker")
		}
		appLogger.Error("Worker error", slog.Any("error", err))
		runErr = err
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	if err := workerInstance.Stop(shutdownCtx); err != nil {
		appLogger.Warn("Worker shutdown timeout exceeded, forcing exit", slog.Any("error", err))
	} else {
		appLogger.Info("Worker stopped gracefully")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("Failed to stop metrics server", slog.Any("error", err))
		}
	}

	appLogger.Info("Worker service shutdown complete")
	return runErr
}

// workerID identifies this process in the delivery log.
func workerID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
