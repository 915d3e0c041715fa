package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/booking-service/internal/worker/domain"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	w.logger.Info("Spawning worker pool",
		slog.Int("concurrency", w.concurrency),
		slog.String("worker_id", w.workerID),
	)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}
}

// workerLoop is the main processing loop for each worker goroutine
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	w.logger.Debug("Worker goroutine started",
		slog.String("worker_name", workerName),
	)

	for {
		select {
		case <-w.stopChan:
			w.logger.Debug("Worker goroutine stopping - stopChan closed",
				slog.String("worker_name", workerName),
			)
			return

		case <-ctx.Done():
			w.logger.Debug("Worker goroutine stopping - context canceled",
				slog.String("worker_name", workerName),
			)
			return

		case job := <-w.jobsChan:
			// in-flight deliveries finish even when the worker is shutting down
			err := w.processDelivery(context.WithoutCancel(ctx), workerName, job)
			w.settle(workerName, job, err)
		}
	}
}

// settle ACKs successful and duplicate deliveries and NACKs the rest,
// requeueing only retryable errors.
func (w *Worker) settle(workerName string, job *domain.Delivery, err error) {
	msg := job.Message

	if err == nil || errors.Is(err, domain.ErrAlreadyDelivered) {
		if ackErr := job.Acker.Ack(false); ackErr != nil {
			w.logger.Error("Failed to ACK message",
				slog.String("worker_name", workerName),
				slog.String("message_id", msg.ID),
				slog.Any("error", ackErr),
			)
		}
		return
	}

	requeue := shouldRequeue(err)
	w.logger.Error("Message delivery failed",
		slog.String("worker_name", workerName),
		slog.String("message_id", msg.ID),
		slog.String("kind", string(msg.Kind)),
		slog.Bool("requeue", requeue),
		slog.Any("error", err),
	)

	if nackErr := job.Acker.Nack(false, requeue); nackErr != nil {
		w.logger.Error("Failed to NACK message",
			slog.String("worker_name", workerName),
			slog.String("message_id", msg.ID),
			slog.Any("error", nackErr),
		)
	}
}

// shouldRequeue determines if a delivery should be requeued based on the error type
func shouldRequeue(err error) bool {
	if errors.Is(err, domain.ErrMaxRedeliveriesExceeded) ||
		errors.Is(err, domain.ErrInvalidMessage) ||
		errors.Is(err, domain.ErrUnsupportedKind) {
		return false
	}
	return domain.IsRetryable(err)
}
