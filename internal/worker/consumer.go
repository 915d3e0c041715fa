package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cuongbtq/booking-service/internal/notification"
	"github.com/cuongbtq/booking-service/internal/worker/domain"
)

// setupConsumer starts a manual-ack consumer tagged with the worker id
func (w *Worker) setupConsumer() (<-chan amqp.Delivery, error) {
	deliveries, err := w.source.Consume(w.workerID, w.prefetchCount)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	w.logger.Info("RabbitMQ consumer started",
		slog.String("consumer_tag", w.workerID),
		slog.String("queue", w.queueName),
		slog.Int("prefetch_count", w.prefetchCount),
	)
	return deliveries, nil
}

// decodeMessage parses a delivery body and checks that the payload matches
// the message kind.
func decodeMessage(body []byte) (notification.Message, error) {
	var msg notification.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return msg, fmt.Errorf("%w: %w", domain.ErrInvalidMessage, err)
	}
	if _, err := uuid.Parse(msg.ID); err != nil {
		return msg, fmt.Errorf("%w: id %q is not a UUID", domain.ErrInvalidMessage, msg.ID)
	}
	if !msg.Kind.Valid() {
		return msg, fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidMessage, msg.Kind)
	}

	var hasPayload bool
	switch msg.Kind {
	case notification.KindEmail:
		hasPayload = msg.Email != nil
	case notification.KindPush:
		hasPayload = msg.Push != nil
	case notification.KindSMS:
		hasPayload = msg.SMS != nil
	}
	if !hasPayload {
		return msg, fmt.Errorf("%w: %s message without payload", domain.ErrInvalidMessage, msg.Kind)
	}
	return msg, nil
}

// startMessageDispatcher decodes deliveries and hands them to the pool.
// Malformed messages are rejected without requeue.
func (w *Worker) startMessageDispatcher(ctx context.Context, deliveries <-chan amqp.Delivery) {
	w.logger.Info("Message dispatcher started",
		slog.String("worker_id", w.workerID),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Message dispatcher stopped - context canceled")
			return

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("RabbitMQ delivery channel closed")
				return
			}

			msg, err := decodeMessage(delivery.Body)
			if err != nil {
				w.logger.Error("Rejecting malformed message",
					slog.Uint64("delivery_tag", delivery.DeliveryTag),
					slog.Any("error", err),
				)
				w.recorder.MessageProcessed(string(msg.Kind), OutcomeInvalid)
				if nackErr := delivery.Nack(false, false); nackErr != nil {
					w.logger.Error("Failed to NACK malformed message",
						slog.Any("error", nackErr),
					)
				}
				continue
			}

			job := &domain.Delivery{
				Message:     msg,
				DeliveryTag: delivery.DeliveryTag,
				Redelivered: delivery.Redelivered,
				Acker:       delivery,
			}

			select {
			case w.jobsChan <- job:
				w.logger.Debug("Message dispatched to worker pool",
					slog.String("message_id", msg.ID),
					slog.Uint64("delivery_tag", delivery.DeliveryTag),
				)
			case <-ctx.Done():
				w.logger.Info("Message dispatcher stopped while dispatching message")
				if nackErr := delivery.Nack(false, true); nackErr != nil {
					w.logger.Error("Failed to NACK message on shutdown",
						slog.Any("error", nackErr),
					)
				}
				return
			}
		}
	}
}
