package booking

import (
	"context"
	"fmt"

	"github.com/cuongbtq/booking-service/internal/booking/domain"
	"github.com/cuongbtq/booking-service/internal/clock"
)

// StatusChange is an administrative status change request.
type StatusChange struct {
	Requested         domain.Status
	AdminComments     string
	SessionTime       string
	TranslatorChanged bool
	ActorID           int64
}

// Transition is the outcome of Lifecycle.ChangeStatus.
type Transition struct {
	Changed bool
	Log     *domain.StatusChangeLog
	effects effects
}

// Lifecycle owns the legal status transitions of a job and their side effects.
type Lifecycle struct {
	clock   clock.Clock
	expiry  domain.ExpiryPolicy
	matcher *Matcher
}

// NewLifecycle creates a Lifecycle.
func NewLifecycle(clk clock.Clock, expiry domain.ExpiryPolicy, matcher *Matcher) *Lifecycle {
	return &Lifecycle{clock: clk, expiry: expiry, matcher: matcher}
}

type transitionFunc func(ctx context.Context, tx Store, job *domain.Job, p parties, req StatusChange) (bool, effects, error)

// ChangeStatus applies req to job in memory, persisting only assignment side
// records through tx. The caller saves the job and, after commit, dispatches
// the returned effects.
func (l *Lifecycle) ChangeStatus(ctx context.Context, tx Store, job *domain.Job, p parties, req StatusChange) (Transition, error) {
	old := job.Status
	if req.Requested == "" || req.Requested == old {
		return Transition{}, nil
	}
	if !req.Requested.Valid() {
		return Transition{}, domain.NewValidationError("status", fmt.Sprintf("unknown status %q", req.Requested))
	}

	var apply transitionFunc
	switch old {
	case domain.StatusTimedOut:
		apply = l.fromTimedOut
	case domain.StatusCompleted:
		apply = l.fromCompleted
	case domain.StatusStarted:
		apply = l.fromStarted
	case domain.StatusPending:
		apply = l.fromPending
	case domain.StatusWithdrawAfter24:
		apply = l.fromWithdrawAfter24
	case domain.StatusAssigned:
		apply = l.fromAssigned
	default:
		return Transition{}, nil
	}

	changed, effs, err := apply(ctx, tx, job, p, req)
	if err != nil || !changed {
		return Transition{}, err
	}

	if job.Status.ReleasesTranslator() && p.assignment != nil && p.assignment.Active() {
		now := l.clock.Now()
		if err := tx.CancelAssignment(ctx, p.assignment.ID, now); err != nil {
			return Transition{}, fmt.Errorf("failed to release assignment %d: %w", p.assignment.ID, err)
		}
		p.assignment.CancelAt = &now
	}

	return Transition{
		Changed: true,
		Log:     &domain.StatusChangeLog{OldStatus: old, NewStatus: job.Status},
		effects: effs,
	}, nil
}

func (l *Lifecycle) fromTimedOut(ctx context.Context, tx Store, job *domain.Job, p parties, req StatusChange) (bool, effects, error) {
	var effs effects

	switch {
	case req.Requested == domain.StatusPending:
		now := l.clock.Now()
		job.Status = domain.StatusPending
		job.CreatedAt = now
		job.WillExpireAt = l.expiry.WillExpireAt(job.Due, now)
		job.EmailSent = false

		candidates, err := l.matcher.FindCandidates(ctx, tx, job)
		if err != nil {
			return false, nil, err
		}
		effs = append(effs, emailCustomer(job, p,
			fmt.Sprintf("Booking #%d has been reopened", job.ID), tmplJobReopened, nil))
		effs = append(effs, pushTranslators(jobData(job, p, NotifyNewJob), candidates, 0))
		return true, effs, nil

	case req.Requested == domain.StatusAssigned && req.TranslatorChanged:
		job.Status = domain.StatusAssigned
		effs = append(effs, emailCustomer(job, p,
			fmt.Sprintf("Confirmation: an interpreter has accepted your booking (booking #%d)", job.ID), tmplJobAccepted, nil))
		return true, effs, nil
	}

	return false, nil, nil
}

func (l *Lifecycle) fromCompleted(_ context.Context, _ Store, job *domain.Job, _ parties, req StatusChange) (bool, effects, error) {
	if req.Requested == domain.StatusTimedOut && req.AdminComments == "" {
		return false, nil, nil
	}
	job.Status = req.Requested
	job.AdminComments = req.AdminComments
	return true, nil, nil
}

func (l *Lifecycle) fromStarted(ctx context.Context, tx Store, job *domain.Job, p parties, req StatusChange) (bool, effects, error) {
	if req.AdminComments == "" {
		return false, nil, nil
	}

	var effs effects
	if req.Requested == domain.StatusCompleted {
		if req.SessionTime == "" {
			return false, nil, nil
		}
		hours, minutes, err := domain.ParseSessionTime(req.SessionTime)
		if err != nil {
			return false, nil, err
		}

		now := l.clock.Now()
		job.EndAt = &now
		job.SessionTime = fmt.Sprintf("%02d:%02d:00", hours, minutes)

		if p.assignment != nil && p.assignment.Active() {
			if err := tx.CompleteAssignment(ctx, p.assignment.ID, now, req.ActorID); err != nil {
				return false, nil, fmt.Errorf("failed to complete assignment: %w", err)
			}
		}

		effs = append(effs, sessionEndedEmails(job, p)...)
	}

	job.Status = req.Requested
	job.AdminComments = req.AdminComments
	return true, effs, nil
}

func (l *Lifecycle) fromPending(_ context.Context, _ Store, job *domain.Job, p parties, req StatusChange) (bool, effects, error) {
	var effs effects

	if req.Requested == domain.StatusAssigned {
		if !req.TranslatorChanged {
			return false, nil, nil
		}
		job.Status = domain.StatusAssigned
		job.AdminComments = req.AdminComments

		effs = append(effs,
			emailCustomer(job, p,
				fmt.Sprintf("Confirmation: an interpreter has accepted your booking (booking #%d)", job.ID), tmplJobAccepted, nil),
			emailUser(job, p, p.translator,
				fmt.Sprintf("You have been assigned booking #%d", job.ID), tmplJobAssigned, nil),
			sessionReminder(p.customer, job, p),
			sessionReminder(p.translator, job, p),
		)
		return true, effs, nil
	}

	if req.Requested == domain.StatusTimedOut && req.AdminComments == "" {
		return false, nil, nil
	}
	job.Status = req.Requested
	job.AdminComments = req.AdminComments

	effs = append(effs, emailCustomer(job, p,
		fmt.Sprintf("Cancellation of booking #%d", job.ID), tmplCancelledCustomer, nil))
	return true, effs, nil
}

func (l *Lifecycle) fromWithdrawAfter24(_ context.Context, _ Store, job *domain.Job, _ parties, req StatusChange) (bool, effects, error) {
	if req.Requested != domain.StatusTimedOut || req.AdminComments == "" {
		return false, nil, nil
	}
	job.Status = domain.StatusTimedOut
	job.AdminComments = req.AdminComments
	return true, nil, nil
}

func (l *Lifecycle) fromAssigned(_ context.Context, _ Store, job *domain.Job, p parties, req StatusChange) (bool, effects, error) {
	switch req.Requested {
	case domain.StatusWithdrawBefore24, domain.StatusWithdrawAfter24, domain.StatusTimedOut:
	default:
		return false, nil, nil
	}
	if req.Requested == domain.StatusTimedOut && req.AdminComments == "" {
		return false, nil, nil
	}

	job.Status = req.Requested
	job.AdminComments = req.AdminComments

	var effs effects
	if req.Requested != domain.StatusTimedOut {
		effs = append(effs,
			emailCustomer(job, p,
				fmt.Sprintf("Cancellation of booking #%d", job.ID), tmplCancelledCustomer, nil),
			emailUser(job, p, p.translator,
				fmt.Sprintf("Cancellation of booking #%d", job.ID), tmplCancelledTranslator, nil),
		)
	}
	return true, effs, nil
}

// sessionEndedEmails informs the customer (invoice) and translator (salary) that a session ended.
func sessionEndedEmails(job *domain.Job, p parties) effects {
	subject := fmt.Sprintf("Information about the completed interpretation for booking #%d", job.ID)
	session := domain.ReadableSession(job.SessionTime)
	return effects{
		emailCustomer(job, p, subject, tmplSessionEnded, map[string]any{"session_time": session, "for_text": "faktura"}),
		emailUser(job, p, p.translator, subject, tmplSessionEnded, map[string]any{"session_time": session, "for_text": "lön"}),
	}
}
