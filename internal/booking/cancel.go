package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/booking-service/internal/booking/domain"
)

// CancelJob withdraws a job on behalf of its customer or hands it back on
// behalf of its translator.
func (s *Service) CancelJob(ctx context.Context, jobID int64, actor *domain.User) (*Result, error) {
	if actor == nil {
		return nil, domain.ErrForbidden
	}
	switch actor.Role {
	case domain.RoleCustomer:
		return s.cancelByCustomer(ctx, jobID, actor)
	case domain.RoleTranslator:
		return s.cancelByTranslator(ctx, jobID, actor)
	}
	return nil, fmt.Errorf("role %q cannot cancel jobs: %w", actor.Role, domain.ErrForbidden)
}

func (s *Service) cancelByCustomer(ctx context.Context, jobID int64, customer *domain.User) (*Result, error) {
	var job *domain.Job
	var p parties
	var released *domain.Assignment
	var old domain.Status

	err := s.store.WithinTx(ctx, func(tx Store) error {
		var err error
		job, err = tx.LockJob(ctx, jobID)
		if err != nil {
			return err
		}
		if job.UserID != customer.ID {
			return fmt.Errorf("job %d belongs to another customer: %w", jobID, domain.ErrForbidden)
		}
		if job.Status != domain.StatusPending && job.Status != domain.StatusAssigned {
			return domain.NewValidationError("status", fmt.Sprintf("a %s job cannot be cancelled", job.Status))
		}

		p, err = s.loadParties(ctx, tx, job)
		if err != nil {
			return err
		}
		released, err = s.assign.CancelActive(ctx, tx, job.ID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		old = job.Status
		job.WithdrawAt = &now
		if job.Due.Sub(now) >= s.settings.CancelWindow {
			job.Status = domain.StatusWithdrawBefore24
		} else {
			job.Status = domain.StatusWithdrawAfter24
		}
		job.UpdatedAt = now

		if err := tx.UpdateJob(ctx, job); err != nil {
			return fmt.Errorf("failed to update job: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recorder.StatusChanged(old, job.Status)

	s.logger.Info("Job cancelled by customer",
		slog.Int64("job_id", job.ID),
		slog.String("status", string(job.Status)),
	)

	effs := effects{emailCustomer(job, p,
		fmt.Sprintf("Cancellation of booking #%d", job.ID), tmplCancelledCustomer, nil)}
	if p.translator != nil && released != nil {
		effs = append(effs, pushUser(p.translator, job.ID, NotifyJobCancelled,
			fmt.Sprintf("The customer has cancelled the booking for %s. Check your previous bookings for details.", bookingLabel(job, p.language))))
	}

	return &Result{Job: job, Message: "success", Warnings: s.dispatch(ctx, job.ID, effs)}, nil
}

func (s *Service) cancelByTranslator(ctx context.Context, jobID int64, translator *domain.User) (*Result, error) {
	var job *domain.Job
	var p parties
	var candidates []domain.User
	var old domain.Status

	err := s.store.WithinTx(ctx, func(tx Store) error {
		var err error
		job, err = tx.LockJob(ctx, jobID)
		if err != nil {
			return err
		}

		active, err := tx.ActiveAssignment(ctx, job.ID)
		if errors.Is(err, domain.ErrNotFound) || (err == nil && active.UserID != translator.ID) {
			return fmt.Errorf("job %d is not assigned to translator %d: %w", jobID, translator.ID, domain.ErrForbidden)
		}
		if err != nil {
			return fmt.Errorf("failed to load assignment: %w", err)
		}

		now := s.clock.Now()
		if job.Due.Sub(now) <= s.settings.CancelWindow {
			return domain.ErrTooLateToCancel
		}

		p, err = s.loadParties(ctx, tx, job)
		if err != nil {
			return err
		}

		if _, err := s.assign.CancelActive(ctx, tx, job.ID); err != nil {
			return err
		}

		old = job.Status
		job.Status = domain.StatusPending
		job.CreatedAt = now
		job.UpdatedAt = now
		job.WillExpireAt = s.settings.Expiry.WillExpireAt(job.Due, now)
		if err := tx.UpdateJob(ctx, job); err != nil {
			return fmt.Errorf("failed to update job: %w", err)
		}

		candidates, err = s.matcher.FindCandidates(ctx, tx, job)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.recorder.StatusChanged(old, job.Status)

	s.logger.Info("Job cancelled by translator",
		slog.Int64("job_id", job.ID),
		slog.Int64("translator_id", translator.ID),
	)

	var effs effects
	effs = append(effs,
		pushUser(p.customer, job.ID, NotifyJobCancelled,
			fmt.Sprintf("Your %s has been cancelled by the interpreter. We are now looking for a replacement.", bookingLabel(job, p.language))),
		pushTranslators(jobData(job, p, NotifyNewJob), candidates, translator.ID),
	)

	return &Result{Job: job, Message: "success", Warnings: s.dispatch(ctx, job.ID, effs)}, nil
}

// ReopenJob puts a job back on offer. A timed out job is cloned into a new
// booking; any other job is reset in place. The resulting job id is returned
// in Result.Job.
func (s *Service) ReopenJob(ctx context.Context, jobID int64, actor *domain.User) (*Result, error) {
	if actor == nil || !actor.Role.IsAdmin() {
		return nil, fmt.Errorf("only admins can reopen jobs: %w", domain.ErrForbidden)
	}

	var reopened *domain.Job
	var p parties
	var candidates []domain.User
	var old domain.Status

	err := s.store.WithinTx(ctx, func(tx Store) error {
		job, err := tx.LockJob(ctx, jobID)
		if err != nil {
			return err
		}
		old = job.Status

		now := s.clock.Now()
		expires := s.settings.Expiry.WillExpireAt(job.Due, now)

		if job.Status != domain.StatusTimedOut {
			job.Status = domain.StatusPending
			job.CreatedAt = now
			job.UpdatedAt = now
			job.WillExpireAt = expires
			if err := tx.UpdateJob(ctx, job); err != nil {
				return fmt.Errorf("failed to update job: %w", err)
			}
			reopened = job
		} else {
			clone := *job
			clone.ID = 0
			clone.Status = domain.StatusPending
			clone.CreatedAt = now
			clone.UpdatedAt = now
			clone.WillExpireAt = expires
			clone.EndAt = nil
			clone.WithdrawAt = nil
			clone.SessionTime = ""
			clone.EmailSent = false
			clone.Cust16HourEmail = false
			clone.Cust48HourEmail = false
			clone.Ignore = false
			clone.IgnoreExpired = false
			clone.AdminComments = fmt.Sprintf("This booking is a reopening of booking #%d", job.ID)
			if err := tx.CreateJob(ctx, &clone); err != nil {
				return fmt.Errorf("failed to create reopened job: %w", err)
			}
			reopened = &clone
		}

		if _, err := s.assign.CancelActive(ctx, tx, job.ID); err != nil {
			return err
		}
		// Records who reopened the job; created already cancelled so it never becomes active.
		if err := tx.CreateAssignment(ctx, &domain.Assignment{
			UserID:       actor.ID,
			JobID:        job.ID,
			CreatedAt:    now,
			WillExpireAt: expires,
			CancelAt:     &now,
		}); err != nil {
			return fmt.Errorf("failed to record reopen: %w", err)
		}

		p, err = s.loadParties(ctx, tx, reopened)
		if err != nil {
			return err
		}
		candidates, err = s.matcher.FindCandidates(ctx, tx, reopened)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.recorder.StatusChanged(old, domain.StatusPending)

	s.logger.Info("Job reopened",
		slog.Int64("job_id", jobID),
		slog.Int64("reopened_job_id", reopened.ID),
		slog.Int64("actor_id", actor.ID),
	)

	effs := effects{pushTranslators(jobData(reopened, p, NotifyJobReopened), candidates, 0)}
	return &Result{Job: reopened, Message: "Tolk cancelled!", Warnings: s.dispatch(ctx, reopened.ID, effs)}, nil
}

// EndJob completes a started job, computing the session time from due to now.
// Jobs that are not started are left untouched.
func (s *Service) EndJob(ctx context.Context, jobID int64, actor *domain.User) (*Result, error) {
	if actor == nil {
		return nil, domain.ErrForbidden
	}

	var job *domain.Job
	var p parties
	ended := false

	err := s.store.WithinTx(ctx, func(tx Store) error {
		var err error
		job, err = tx.LockJob(ctx, jobID)
		if err != nil {
			return err
		}
		p, err = s.loadParties(ctx, tx, job)
		if err != nil {
			return err
		}
		if !s.participates(actor, job, p) {
			return fmt.Errorf("user %d is not part of job %d: %w", actor.ID, jobID, domain.ErrForbidden)
		}
		if job.Status != domain.StatusStarted {
			return nil
		}

		now := s.clock.Now()
		job.EndAt = &now
		job.Status = domain.StatusCompleted
		job.SessionTime = domain.SessionLength(job.Due, now)
		job.UpdatedAt = now
		if err := tx.UpdateJob(ctx, job); err != nil {
			return fmt.Errorf("failed to update job: %w", err)
		}

		if p.assignment != nil && p.assignment.Active() {
			if err := tx.CompleteAssignment(ctx, p.assignment.ID, now, actor.ID); err != nil {
				return fmt.Errorf("failed to complete assignment: %w", err)
			}
		}
		ended = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !ended {
		return &Result{Job: job, Message: "success"}, nil
	}
	s.recorder.StatusChanged(domain.StatusStarted, domain.StatusCompleted)

	s.logger.Info("Session ended",
		slog.Int64("job_id", job.ID),
		slog.String("session_time", job.SessionTime),
		slog.Int64("ended_by", actor.ID),
	)

	return &Result{Job: job, Message: "success", Warnings: s.dispatch(ctx, job.ID, sessionEndedEmails(job, p))}, nil
}

// CustomerNotCall records that the customer did not show up for the session.
func (s *Service) CustomerNotCall(ctx context.Context, jobID int64, actor *domain.User) (*Result, error) {
	if actor == nil || (actor.Role != domain.RoleTranslator && !actor.Role.IsAdmin()) {
		return nil, domain.ErrForbidden
	}

	var job *domain.Job
	var old domain.Status
	err := s.store.WithinTx(ctx, func(tx Store) error {
		var err error
		job, err = tx.LockJob(ctx, jobID)
		if err != nil {
			return err
		}
		if job.Status != domain.StatusAssigned && job.Status != domain.StatusStarted {
			return domain.NewValidationError("status", fmt.Sprintf("a %s job cannot be marked as not carried out", job.Status))
		}

		active, err := tx.ActiveAssignment(ctx, job.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("failed to load assignment: %w", err)
		}
		if actor.Role == domain.RoleTranslator && (active == nil || active.UserID != actor.ID) {
			return fmt.Errorf("job %d is not assigned to translator %d: %w", jobID, actor.ID, domain.ErrForbidden)
		}

		now := s.clock.Now()
		old = job.Status
		job.EndAt = &now
		job.Status = domain.StatusNotCarriedOutCustomer
		job.UpdatedAt = now
		if err := tx.UpdateJob(ctx, job); err != nil {
			return fmt.Errorf("failed to update job: %w", err)
		}
		if active != nil {
			if err := tx.CompleteAssignment(ctx, active.ID, now, active.UserID); err != nil {
				return fmt.Errorf("failed to complete assignment: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recorder.StatusChanged(old, job.Status)

	s.logger.Info("Customer did not show up",
		slog.Int64("job_id", job.ID),
		slog.Int64("actor_id", actor.ID),
	)
	return &Result{Job: job, Message: "success"}, nil
}

// participates reports whether actor is the job's customer, its translator or an admin.
func (s *Service) participates(actor *domain.User, job *domain.Job, p parties) bool {
	if actor.Role.IsAdmin() || actor.ID == job.UserID {
		return true
	}
	return p.assignment != nil && p.assignment.UserID == actor.ID
}
