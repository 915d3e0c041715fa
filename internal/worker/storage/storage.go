package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/booking-service/internal/notification"
	"github.com/cuongbtq/booking-service/internal/worker/domain"
)

// Storage keeps the delivery log of notification messages
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// BeginAttempt records an attempt to deliver msg and returns the attempt
// number, starting at 1. It returns domain.ErrAlreadyDelivered when the log
// already holds a successful delivery.
func (s *Storage) BeginAttempt(ctx context.Context, msg notification.Message, workerID string) (int, error) {
	query := `
		INSERT INTO notification_deliveries (message_id, kind, job_id, status, attempts, worker_id)
		VALUES ($1, $2, NULLIF($3, 0), $4, 1, $5)
		ON CONFLICT (message_id) DO UPDATE
		SET attempts = notification_deliveries.attempts + 1,
		    status = EXCLUDED.status,
		    worker_id = EXCLUDED.worker_id,
		    updated_at = NOW()
		WHERE notification_deliveries.status <> $6
		RETURNING attempts
	`

	var attempts int
	err := s.db.QueryRowContext(ctx, query,
		msg.ID, string(msg.Kind), msg.JobID, domain.DeliveryStatusRunning, workerID, domain.DeliveryStatusDelivered,
	).Scan(&attempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("Message already delivered",
				slog.String("message_id", msg.ID),
				slog.String("worker_id", workerID),
			)
			return 0, domain.ErrAlreadyDelivered
		}
		return 0, fmt.Errorf("failed to record delivery attempt: %w", err)
	}

	s.logger.Debug("Delivery attempt recorded",
		slog.String("message_id", msg.ID),
		slog.String("kind", string(msg.Kind)),
		slog.Int("attempt", attempts),
	)
	return attempts, nil
}

// UpdateStatus sets the final status of a delivery and the error, if any
func (s *Storage) UpdateStatus(ctx context.Context, messageID, status, errorMsg string) error {
	query := `
		UPDATE notification_deliveries
		SET status = $1::text,
		    last_error = $2,
		    delivered_at = CASE WHEN $1::text = $3::text THEN NOW() ELSE delivered_at END,
		    updated_at = NOW()
		WHERE message_id = $4
	`

	result, err := s.db.ExecContext(ctx, query, status, errorMsg, domain.DeliveryStatusDelivered, messageID)
	if err != nil {
		return fmt.Errorf("failed to update delivery status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		s.logger.Warn("Delivery status update - no rows affected",
			slog.String("message_id", messageID),
		)
	}

	s.logger.Info("Delivery status updated",
		slog.String("message_id", messageID),
		slog.String("status", status),
	)
	return nil
}
