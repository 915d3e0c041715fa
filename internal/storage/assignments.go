package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/booking-service/internal/booking/domain"
)

const assignmentSelect = `
	SELECT id, user_id, job_id, created_at, will_expire_at, cancel_at, completed_at, completed_by
	FROM translator_job_rel`

// CreateAssignment inserts an assignment. The partial unique index on active
// rows turns a lost race into domain.ErrAlreadyAssigned.
func (s *Storage) CreateAssignment(ctx context.Context, a *domain.Assignment) error {
	query := `
		INSERT INTO translator_job_rel (user_id, job_id, created_at, will_expire_at, cancel_at, completed_at, completed_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := s.db.QueryRowxContext(ctx, query,
		a.UserID, a.JobID, a.CreatedAt, a.WillExpireAt, a.CancelAt, a.CompletedAt, a.CompletedBy,
	).Scan(&a.ID)
	if err != nil {
		if isUniqueViolation(err) {
			s.logger.Warn("Active assignment already exists",
				slog.Int64("job_id", a.JobID),
				slog.Int64("translator_id", a.UserID),
			)
			return domain.ErrAlreadyAssigned
		}
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	return nil
}

// ActiveAssignment returns the job's assignment that is neither cancelled nor completed.
func (s *Storage) ActiveAssignment(ctx context.Context, jobID int64) (*domain.Assignment, error) {
	var a domain.Assignment
	query := assignmentSelect + ` WHERE job_id = $1 AND cancel_at IS NULL AND completed_at IS NULL`
	if err := getOne(ctx, s.db, &a, "active assignment", query, jobID); err != nil {
		return nil, err
	}
	return &a, nil
}

// LatestCompletedAssignment returns the most recently completed assignment of a job.
func (s *Storage) LatestCompletedAssignment(ctx context.Context, jobID int64) (*domain.Assignment, error) {
	var a domain.Assignment
	query := assignmentSelect + ` WHERE job_id = $1 AND completed_at IS NOT NULL ORDER BY completed_at DESC, id DESC LIMIT 1`
	if err := getOne(ctx, s.db, &a, "completed assignment", query, jobID); err != nil {
		return nil, err
	}
	return &a, nil
}

// CancelAssignment stamps cancel_at on an assignment.
func (s *Storage) CancelAssignment(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE translator_job_rel SET cancel_at = $1 WHERE id = $2`
	if err := s.execExpectOneRow(ctx, domain.ErrNotFound, query, at, id); err != nil {
		return fmt.Errorf("failed to cancel assignment %d: %w", id, err)
	}
	return nil
}

// CompleteAssignment stamps completed_at and completed_by on an assignment.
func (s *Storage) CompleteAssignment(ctx context.Context, id int64, at time.Time, by int64) error {
	query := `UPDATE translator_job_rel SET completed_at = $1, completed_by = $2 WHERE id = $3`
	if err := s.execExpectOneRow(ctx, domain.ErrNotFound, query, at, by, id); err != nil {
		return fmt.Errorf("failed to complete assignment %d: %w", id, err)
	}
	return nil
}

// HasConflictingAssignment checks the translator's other active jobs for
// overlap with [start, end).
func (s *Storage) HasConflictingAssignment(ctx context.Context, translatorID, excludeJobID int64, start, end time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM translator_job_rel r
			JOIN jobs j ON j.id = r.job_id
			WHERE r.user_id = $1
			  AND r.job_id <> $2
			  AND r.cancel_at IS NULL
			  AND r.completed_at IS NULL
			  AND j.status IN ('assigned', 'started')
			  AND j.due < $3
			  AND j.due + make_interval(mins => j.duration) > $4
		)
	`

	var conflict bool
	if err := sqlx.GetContext(ctx, s.db, &conflict, query, translatorID, excludeJobID, end, start); err != nil {
		return false, fmt.Errorf("failed to check conflicting assignments: %w", err)
	}
	return conflict, nil
}
