// Package worker consumes notification messages from RabbitMQ and delivers
// them with a bounded pool of goroutines.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cuongbtq/booking-service/internal/notification"
	"github.com/cuongbtq/booking-service/internal/worker/domain"
)

// Outcomes reported to the Recorder
const (
	OutcomeDelivered = "delivered"
	OutcomeDuplicate = "duplicate"
	OutcomeInvalid   = "invalid"
	OutcomeRequeued  = "requeued"
	OutcomeFailed    = "failed"
)

// Source is the broker consumer.
type Source interface {
	Consume(consumerTag string, prefetch int) (<-chan amqp.Delivery, error)
}

// Deliverer sends a message through its channel.
type Deliverer interface {
	Deliver(ctx context.Context, msg notification.Message) error
}

// DeliveryLog counts attempts and stores the final status per message.
type DeliveryLog interface {
	BeginAttempt(ctx context.Context, msg notification.Message, workerID string) (int, error)
	UpdateStatus(ctx context.Context, messageID, status, errorMsg string) error
}

// Dedup remembers delivered message ids.
type Dedup interface {
	HasDelivered(ctx context.Context, messageID string) bool
	MarkDelivered(ctx context.Context, messageID string) (bool, error)
}

// Recorder observes processed messages.
type Recorder interface {
	MessageProcessed(kind, outcome string)
	DeliveryDuration(kind string, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) MessageProcessed(string, string)        {}
func (nopRecorder) DeliveryDuration(string, time.Duration) {}

// Config holds worker configuration
type Config struct {
	Logger          *slog.Logger
	Source          Source
	Deliverer       Deliverer
	DeliveryLog     DeliveryLog
	Dedup           Dedup
	Recorder        Recorder
	WorkerID        string
	QueueName       string
	Concurrency     int
	PrefetchCount   int
	DeliveryTimeout time.Duration
	MaxRedeliveries int
}

// Worker represents the notification delivery worker
type Worker struct {
	logger          *slog.Logger
	source          Source
	deliverer       Deliverer
	deliveryLog     DeliveryLog
	dedup           Dedup
	recorder        Recorder
	workerID        string
	queueName       string
	concurrency     int
	prefetchCount   int
	deliveryTimeout time.Duration
	maxRedeliveries int

	jobsChan chan *domain.Delivery
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}
	concurrency := max(cfg.Concurrency, 1)

	return &Worker{
		logger:          cfg.Logger,
		source:          cfg.Source,
		deliverer:       cfg.Deliverer,
		deliveryLog:     cfg.DeliveryLog,
		dedup:           cfg.Dedup,
		recorder:        recorder,
		workerID:        cfg.WorkerID,
		queueName:       cfg.QueueName,
		concurrency:     concurrency,
		prefetchCount:   max(cfg.PrefetchCount, concurrency),
		deliveryTimeout: cfg.DeliveryTimeout,
		maxRedeliveries: cfg.MaxRedeliveries,
		jobsChan:        make(chan *domain.Delivery, concurrency),
		stopChan:        make(chan struct{}),
	}
}

// Start consumes and delivers messages until ctx is canceled or the broker
// closes the delivery channel.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("delivery_timeout", w.deliveryTimeout),
		slog.Int("max_redeliveries", w.maxRedeliveries),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return fmt.Errorf("failed to setup consumer: %w", err)
	}

	w.spawnWorkerPool(ctx)
	w.startMessageDispatcher(ctx, deliveries)
	return nil
}

// Stop signals the pool to stop and waits for in-flight deliveries, or for
// ctx to expire.
func (w *Worker) Stop(ctx context.Context) error {
	w.logger.Info("Stopping worker...")
	w.stopOnce.Do(func() { close(w.stopChan) })

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("Worker stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker shutdown timed out: %w", ctx.Err())
	}
}
