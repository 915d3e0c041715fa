package booking

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/cuongbtq/booking-service/internal/booking/domain"
)

// UserJobs splits a user's current jobs into immediate and scheduled ones.
type UserJobs struct {
	Emergency []domain.Job
	Normal    []domain.Job
}

// ListUserJobs returns the current jobs of a customer or translator.
func (s *Service) ListUserJobs(ctx context.Context, user *domain.User) (*UserJobs, error) {
	var jobs []domain.Job
	var err error

	switch user.Role {
	case domain.RoleCustomer:
		jobs, err = s.store.ListCustomerJobs(ctx, user.ID, domain.ActiveStatuses)
	case domain.RoleTranslator:
		jobs, err = s.store.ListTranslatorJobs(ctx, user.ID)
	default:
		return &UserJobs{Emergency: []domain.Job{}, Normal: []domain.Job{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	out := &UserJobs{Emergency: []domain.Job{}, Normal: []domain.Job{}}
	for _, job := range jobs {
		if job.Immediate {
			out.Emergency = append(out.Emergency, job)
		} else {
			out.Normal = append(out.Normal, job)
		}
	}
	slices.SortStableFunc(out.Normal, func(a, b domain.Job) int { return a.Due.Compare(b.Due) })
	return out, nil
}

// JobHistory returns a page of the user's finished jobs, most recent due first.
func (s *Service) JobHistory(ctx context.Context, user *domain.User, page int) (domain.Page[domain.Job], error) {
	page = max(page, 1)
	perPage := s.settings.HistoryPageSize

	jobs, total, err := s.store.JobHistory(ctx, HistoryQuery{
		UserID:       user.ID,
		AsTranslator: user.Role == domain.RoleTranslator,
		Statuses:     domain.HistoryStatuses,
	}, page, perPage)
	if err != nil {
		return domain.Page[domain.Job]{}, fmt.Errorf("failed to load job history: %w", err)
	}
	return domain.NewPage(jobs, page, perPage, total), nil
}

// PotentialJobs returns the pending jobs a translator could accept.
func (s *Service) PotentialJobs(ctx context.Context, translator *domain.User) ([]domain.Job, error) {
	if translator == nil || translator.Role != domain.RoleTranslator {
		return nil, domain.ErrForbidden
	}
	return s.matcher.PotentialJobs(ctx, s.store, translator)
}

// PotentialTranslators returns the translators eligible for a job.
func (s *Service) PotentialTranslators(ctx context.Context, jobID int64) ([]domain.User, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return s.matcher.FindCandidates(ctx, s.store, job)
}

// ContactDetails completes a booking after creation.
type ContactDetails struct {
	UserEmail    string
	Reference    string
	Address      *string
	Instructions string
	Town         string
}

// ConfirmBooking stores contact details of a new booking, sends the customer
// a receipt and offers the job to eligible translators. Empty address fields
// fall back to the customer's profile.
func (s *Service) ConfirmBooking(ctx context.Context, jobID int64, actor *domain.User, details ContactDetails) (*Result, error) {
	if actor == nil {
		return nil, domain.ErrForbidden
	}

	var job *domain.Job
	var p parties
	var candidates []domain.User

	err := s.store.WithinTx(ctx, func(tx Store) error {
		var err error
		job, err = tx.LockJob(ctx, jobID)
		if err != nil {
			return err
		}
		if job.UserID != actor.ID && !actor.Role.IsAdmin() {
			return fmt.Errorf("job %d belongs to another customer: %w", jobID, domain.ErrForbidden)
		}
		p, err = s.loadParties(ctx, tx, job)
		if err != nil {
			return err
		}

		job.UserEmail = details.UserEmail
		job.Reference = details.Reference
		if details.Address != nil {
			job.Address = *details.Address
			job.Instructions = details.Instructions
			job.Town = details.Town
			if p.customer != nil {
				job.Address = fallback(job.Address, p.customer.Address)
				job.Instructions = fallback(job.Instructions, p.customer.Instructions)
				job.Town = fallback(job.Town, p.customer.City)
			}
		}
		job.UpdatedAt = s.clock.Now()
		if err := tx.UpdateJob(ctx, job); err != nil {
			return fmt.Errorf("failed to update job: %w", err)
		}

		candidates, err = s.matcher.FindCandidates(ctx, tx, job)
		return err
	})
	if err != nil {
		return nil, err
	}

	effs := effects{
		emailCustomer(job, p, fmt.Sprintf("We have received your interpreter booking. Booking #%d", job.ID), tmplJobCreated, nil),
		pushTranslators(jobData(job, p, NotifyNewJob), candidates, 0),
	}
	return &Result{Job: job, Message: "success", Warnings: s.dispatch(ctx, job.ID, effs)}, nil
}

func fallback(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// ResendPush broadcasts a job to its eligible translators again.
func (s *Service) ResendPush(ctx context.Context, jobID int64) (*Result, error) {
	job, p, candidates, err := s.broadcastTargets(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := s.notifier.SendPushToTranslators(ctx, jobData(job, p, NotifyNewJob), candidates, 0); err != nil {
		s.recorder.NotificationFailed("push:resend")
		return nil, fmt.Errorf("failed to resend push for job %d: %w", jobID, err)
	}
	s.logger.Info("Push resent", slog.Int64("job_id", jobID), slog.Int("recipients", len(candidates)))
	return &Result{Job: job, Message: "Push sent"}, nil
}

// ResendSMS sends a job to its eligible translators by SMS.
func (s *Service) ResendSMS(ctx context.Context, jobID int64) (*Result, error) {
	job, p, candidates, err := s.broadcastTargets(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := s.notifier.SendSMSToTranslators(ctx, jobData(job, p, NotifyNewJob), candidates); err != nil {
		s.recorder.NotificationFailed("sms:resend")
		return nil, fmt.Errorf("failed to resend sms for job %d: %w", jobID, err)
	}
	s.logger.Info("SMS resent", slog.Int64("job_id", jobID), slog.Int("recipients", len(candidates)))
	return &Result{Job: job, Message: "SMS sent"}, nil
}

func (s *Service) broadcastTargets(ctx context.Context, jobID int64) (*domain.Job, parties, []domain.User, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, parties{}, nil, err
	}
	p, err := s.loadParties(ctx, s.store, job)
	if err != nil {
		return nil, parties{}, nil, err
	}
	candidates, err := s.matcher.FindCandidates(ctx, s.store, job)
	if err != nil {
		return nil, parties{}, nil, err
	}
	return job, p, candidates, nil
}

// ListExpiring returns pending jobs that are still on offer, soonest expiry first.
func (s *Service) ListExpiring(ctx context.Context, page int) (domain.Page[domain.Job], error) {
	return s.listByExpiry(ctx, false, page)
}

// ListExpired returns pending jobs whose offer expired before the job is due.
func (s *Service) ListExpired(ctx context.Context, page int) (domain.Page[domain.Job], error) {
	return s.listByExpiry(ctx, true, page)
}

func (s *Service) listByExpiry(ctx context.Context, expired bool, page int) (domain.Page[domain.Job], error) {
	page = max(page, 1)
	perPage := s.settings.AdminPageSize
	jobs, total, err := s.store.ListPendingByExpiry(ctx, ExpiryQuery{Now: s.clock.Now(), Expired: expired}, page, perPage)
	if err != nil {
		return domain.Page[domain.Job]{}, fmt.Errorf("failed to list jobs by expiry: %w", err)
	}
	return domain.NewPage(jobs, page, perPage, total), nil
}

// ListAlerts returns jobs whose session ran at least twice the booked
// duration and that nobody has ignored yet.
func (s *Service) ListAlerts(ctx context.Context, page int) (domain.Page[domain.Job], error) {
	page = max(page, 1)
	perPage := s.settings.AdminPageSize
	jobs, total, err := s.store.ListSessionAlerts(ctx, page, perPage)
	if err != nil {
		return domain.Page[domain.Job]{}, fmt.Errorf("failed to list session alerts: %w", err)
	}
	return domain.NewPage(jobs, page, perPage, total), nil
}

// IgnoreExpiring sets the ignore flag, which hides a job from both the
// expiring queue and the session alerts.
func (s *Service) IgnoreExpiring(ctx context.Context, jobID int64) error {
	return s.store.SetJobFlag(ctx, jobID, FlagIgnore, true)
}

// IgnoreExpired hides a job from the expired queue.
func (s *Service) IgnoreExpired(ctx context.Context, jobID int64) error {
	return s.store.SetJobFlag(ctx, jobID, FlagIgnoreExpired, true)
}

// ListThrottles returns a page of unhandled failed-login throttles.
func (s *Service) ListThrottles(ctx context.Context, page int) (domain.Page[domain.Throttle], error) {
	page = max(page, 1)
	perPage := s.settings.AdminPageSize
	items, total, err := s.store.ListThrottles(ctx, page, perPage)
	if err != nil {
		return domain.Page[domain.Throttle]{}, fmt.Errorf("failed to list throttles: %w", err)
	}
	return domain.NewPage(items, page, perPage, total), nil
}

// IgnoreThrottle hides a throttle record.
func (s *Service) IgnoreThrottle(ctx context.Context, id int64) error {
	return s.store.IgnoreThrottle(ctx, id)
}

// ListJobs returns a page of jobs matching an admin filter.
func (s *Service) ListJobs(ctx context.Context, filter JobFilter, page int) (domain.Page[domain.Job], error) {
	page = max(page, 1)
	perPage := s.settings.AdminPageSize
	jobs, total, err := s.store.ListJobs(ctx, filter, page, perPage)
	if err != nil {
		return domain.Page[domain.Job]{}, fmt.Errorf("failed to list jobs: %w", err)
	}
	return domain.NewPage(jobs, page, perPage, total), nil
}
