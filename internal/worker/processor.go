package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/booking-service/internal/worker/domain"
)

// processDelivery delivers one message: skip if already delivered, count the
// attempt, deliver with a timeout and record the outcome.
func (w *Worker) processDelivery(ctx context.Context, workerName string, job *domain.Delivery) error {
	msg := job.Message
	kind := string(msg.Kind)
	logger := w.logger.With(
		slog.String("worker_name", workerName),
		slog.String("message_id", msg.ID),
		slog.String("kind", kind),
		slog.Int64("job_id", msg.JobID),
	)

	if w.dedup.HasDelivered(ctx, msg.ID) {
		logger.Info("Message already delivered, skipping")
		w.recorder.MessageProcessed(kind, OutcomeDuplicate)
		return domain.ErrAlreadyDelivered
	}

	attempt, err := w.deliveryLog.BeginAttempt(ctx, msg, w.workerID)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyDelivered) {
			w.recorder.MessageProcessed(kind, OutcomeDuplicate)
			return err
		}
		w.recorder.MessageProcessed(kind, OutcomeRequeued)
		return domain.NewRetryableError(err)
	}

	if w.maxRedeliveries > 0 && attempt > w.maxRedeliveries+1 {
		logger.Warn("Message exceeded max redeliveries",
			slog.Int("attempt", attempt),
			slog.Int("max_redeliveries", w.maxRedeliveries),
		)
		w.updateStatus(ctx, logger, msg.ID, domain.DeliveryStatusFailed, domain.ErrMaxRedeliveriesExceeded.Error())
		w.recorder.MessageProcessed(kind, OutcomeFailed)
		return domain.ErrMaxRedeliveriesExceeded
	}

	logger.Info("Delivering message",
		slog.Int("attempt", attempt),
		slog.Bool("redelivered", job.Redelivered),
	)

	deliverCtx := ctx
	if w.deliveryTimeout > 0 {
		var cancel context.CancelFunc
		deliverCtx, cancel = context.WithTimeout(ctx, w.deliveryTimeout)
		defer cancel()
	}

	start := time.Now()
	err = w.deliverer.Deliver(deliverCtx, msg)
	w.recorder.DeliveryDuration(kind, time.Since(start))

	if err != nil {
		if errors.Is(deliverCtx.Err(), context.DeadlineExceeded) && !domain.IsRetryable(err) {
			err = domain.NewRetryableError(err)
		}
		w.updateStatus(ctx, logger, msg.ID, domain.DeliveryStatusFailed, err.Error())
		if shouldRequeue(err) {
			w.recorder.MessageProcessed(kind, OutcomeRequeued)
		} else {
			w.recorder.MessageProcessed(kind, OutcomeFailed)
		}
		return fmt.Errorf("deliver %s message: %w", kind, err)
	}

	w.updateStatus(ctx, logger, msg.ID, domain.DeliveryStatusDelivered, "")
	if _, markErr := w.dedup.MarkDelivered(ctx, msg.ID); markErr != nil {
		logger.Warn("Failed to mark message delivered", slog.Any("error", markErr))
	}
	w.recorder.MessageProcessed(kind, OutcomeDelivered)

	logger.Info("Message delivered", slog.Int("attempt", attempt))
	return nil
}

func (w *Worker) updateStatus(ctx context.Context, logger *slog.Logger, messageID, status, errorMsg string) {
	if err := w.deliveryLog.UpdateStatus(ctx, messageID, status, errorMsg); err != nil {
		logger.Error("Failed to update delivery status",
			slog.String("status", status),
			slog.Any("error", err),
		)
	}
}
