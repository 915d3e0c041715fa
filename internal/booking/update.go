package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/booking-service/internal/booking/domain"
)

// UpdateRequest is an admin edit of a booking. Nil and zero fields are left unchanged.
type UpdateRequest struct {
	Due             *time.Time
	FromLanguageID  int64
	Status          domain.Status
	AdminComments   *string
	SessionTime     string
	Reference       *string
	TranslatorID    int64
	TranslatorEmail string
}

// UpdateJob applies an admin edit: translator, due date, language and status
// in that order, followed by comments and reference. One consolidated change
// log is stored. Notifications are only sent while the booking lies in the future.
func (s *Service) UpdateJob(ctx context.Context, jobID int64, req UpdateRequest, admin *domain.User) (*Result, error) {
	if admin == nil || !admin.Role.IsAdmin() {
		return nil, fmt.Errorf("only admins can update bookings: %w", domain.ErrForbidden)
	}

	var (
		job         *domain.Job
		p           parties
		log         *domain.ChangeLog
		tChange     TranslatorChange
		transition  Transition
		oldDue      time.Time
		oldLanguage string
	)

	err := s.store.WithinTx(ctx, func(tx Store) error {
		var err error
		job, err = tx.LockJob(ctx, jobID)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		log = &domain.ChangeLog{JobID: job.ID, ActorID: admin.ID, ActorName: admin.Name, CreatedAt: now}

		p, err = s.loadParties(ctx, tx, job)
		if err != nil {
			return err
		}
		oldLanguage = p.language

		tChange, err = s.assign.ChangeTranslator(ctx, tx, job, p.assignment, TranslatorRequest{
			TranslatorID:    req.TranslatorID,
			TranslatorEmail: req.TranslatorEmail,
		})
		if err != nil {
			return err
		}
		if tChange.Changed {
			log.Translator = tChange.Log
			p.assignment = tChange.Assignment
			p.translator = tChange.NewUser
		}

		oldDue = job.Due
		if req.Due != nil && !req.Due.Equal(job.Due) {
			log.Due = &domain.DueChangeLog{OldDue: job.Due, NewDue: *req.Due}
			job.Due = *req.Due
			job.WillExpireAt = s.settings.Expiry.WillExpireAt(job.Due, job.CreatedAt)
		}

		if req.FromLanguageID != 0 && req.FromLanguageID != job.FromLanguageID {
			lang, err := tx.GetLanguage(ctx, req.FromLanguageID)
			if err != nil {
				return fmt.Errorf("language %d: %w", req.FromLanguageID, err)
			}
			log.Language = &domain.LanguageChangeLog{OldLanguageID: job.FromLanguageID, NewLanguageID: req.FromLanguageID}
			job.FromLanguageID = req.FromLanguageID
			p.language = lang.Name
		}

		comments := job.AdminComments
		if req.AdminComments != nil {
			comments = *req.AdminComments
		}
		transition, err = s.lifecycle.ChangeStatus(ctx, tx, job, p, StatusChange{
			Requested:         req.Status,
			AdminComments:     comments,
			SessionTime:       req.SessionTime,
			TranslatorChanged: tChange.Changed,
			ActorID:           admin.ID,
		})
		if err != nil {
			return err
		}
		if transition.Changed {
			log.Status = transition.Log
		}

		job.AdminComments = comments
		if req.Reference != nil {
			job.Reference = *req.Reference
		}
		job.UpdatedAt = now

		if err := tx.UpdateJob(ctx, job); err != nil {
			return fmt.Errorf("failed to update job: %w", err)
		}
		if !log.Empty() {
			if err := tx.SaveChangeLog(ctx, log); err != nil {
				return fmt.Errorf("failed to save change log: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if transition.Changed {
		s.recorder.StatusChanged(transition.Log.OldStatus, transition.Log.NewStatus)
	}

	s.logger.Info("Booking updated",
		slog.Int64("job_id", job.ID),
		slog.Int64("actor_id", admin.ID),
		slog.String("actor_name", admin.Name),
		slog.Any("changes", log),
	)

	if !job.Due.After(s.clock.Now()) {
		return &Result{Job: job, Log: log, Message: "Updated"}, nil
	}

	effs := transition.effects
	if log.Due != nil {
		effs = append(effs, dueChangedEmails(job, p, oldDue)...)
	}
	if tChange.Changed {
		effs = append(effs, translatorChangedEmails(job, p, tChange)...)
	}
	if log.Language != nil {
		effs = append(effs, languageChangedEmails(job, p, oldLanguage)...)
	}

	return &Result{Job: job, Log: log, Message: "success", Warnings: s.dispatch(ctx, job.ID, effs)}, nil
}

func dueChangedEmails(job *domain.Job, p parties, oldDue time.Time) effects {
	subject := fmt.Sprintf("Booking #%d has a new time", job.ID)
	extra := map[string]any{"old_due": oldDue.Format(domain.DueLayout)}
	effs := effects{emailCustomer(job, p, subject, tmplDueChanged, extra)}
	if p.translator != nil && p.assignment != nil && p.assignment.Active() {
		effs = append(effs, emailUser(job, p, p.translator, subject, tmplDueChanged, extra))
	}
	return effs
}

func translatorChangedEmails(job *domain.Job, p parties, change TranslatorChange) effects {
	subject := fmt.Sprintf("Booking #%d has a new interpreter", job.ID)
	effs := effects{
		emailCustomer(job, p, subject, tmplTranslatorChanged, nil),
		emailUser(job, p, change.NewUser, subject, tmplTranslatorNew, nil),
	}
	if change.OldUser != nil {
		effs = append(effs, emailUser(job, p, change.OldUser, subject, tmplTranslatorOld, nil))
	}
	return effs
}

func languageChangedEmails(job *domain.Job, p parties, oldLanguage string) effects {
	subject := fmt.Sprintf("Booking #%d has a new language", job.ID)
	extra := map[string]any{"old_language": oldLanguage}
	effs := effects{emailCustomer(job, p, subject, tmplLanguageChanged, extra)}
	if p.translator != nil && p.assignment != nil && p.assignment.Active() {
		effs = append(effs, emailUser(job, p, p.translator, subject, tmplLanguageChanged, extra))
	}
	return effs
}

// DistanceFeedRequest updates travel and handling details of a job.
type DistanceFeedRequest struct {
	JobID           int64
	Distance        string
	Time            string
	SessionTime     string
	AdminComment    string
	Flagged         *bool
	ManuallyHandled *bool
	ByAdmin         *bool
}

// DistanceFeed stores the distance record and handling flags of a job.
// A flagged job must carry a comment.
func (s *Service) DistanceFeed(ctx context.Context, req DistanceFeedRequest) (*Result, error) {
	if req.Flagged != nil && *req.Flagged && req.AdminComment == "" {
		return nil, domain.NewValidationError("admincomment", "Please, add comment")
	}

	updateDistance := req.Distance != "" || req.Time != ""
	updateDetails := req.AdminComment != "" || req.SessionTime != "" ||
		req.Flagged != nil || req.ManuallyHandled != nil || req.ByAdmin != nil

	var job *domain.Job
	err := s.store.WithinTx(ctx, func(tx Store) error {
		var err error
		job, err = tx.LockJob(ctx, req.JobID)
		if err != nil {
			return err
		}

		if updateDistance {
			if err := tx.UpsertDistance(ctx, domain.Distance{JobID: job.ID, Distance: req.Distance, Time: req.Time}); err != nil {
				return fmt.Errorf("failed to update distance: %w", err)
			}
		}

		if !updateDetails {
			return nil
		}
		if req.AdminComment != "" {
			job.AdminComments = req.AdminComment
		}
		if req.SessionTime != "" {
			job.SessionTime = req.SessionTime
		}
		if req.Flagged != nil {
			job.Flagged = *req.Flagged
		}
		if req.ManuallyHandled != nil {
			job.ManuallyHandled = *req.ManuallyHandled
		}
		if req.ByAdmin != nil {
			job.ByAdmin = *req.ByAdmin
		}
		job.UpdatedAt = s.clock.Now()
		return tx.UpdateJob(ctx, job)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("job %d: %w", req.JobID, err)
		}
		return nil, err
	}

	return &Result{Job: job, Message: "Record updated!"}, nil
}
