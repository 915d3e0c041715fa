package booking

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/booking-service/internal/booking/domain"
)

// NotificationType tags a push notification.
type NotificationType string

const (
	NotifyNewJob             NotificationType = "suitable_job"
	NotifyJobAccepted        NotificationType = "job_accepted"
	NotifyJobCancelled       NotificationType = "job_cancelled"
	NotifyJobReopened        NotificationType = "job_reopened"
	NotifySessionStartRemind NotificationType = "session_start_remind"
)

// Email templates.
const (
	tmplJobCreated          = "job-created"
	tmplJobAccepted         = "job-accepted"
	tmplJobAssigned         = "job-assigned-translator"
	tmplJobReopened         = "job-change-status-to-customer"
	tmplCancelledCustomer   = "status-changed-from-pending-or-assigned-customer"
	tmplCancelledTranslator = "job-cancel-translator"
	tmplSessionEnded        = "session-ended"
	tmplDueChanged          = "job-changed-date"
	tmplTranslatorChanged   = "job-changed-translator"
	tmplTranslatorNew       = "job-changed-translator-new-translator"
	tmplTranslatorOld       = "job-changed-translator-old-translator"
	tmplLanguageChanged     = "job-changed-lang"
)

// effect is a notification deferred until the state change has committed.
type effect struct {
	name string
	run  func(ctx context.Context, n Notifier) error
}

type effects []effect

// dispatch runs every effect, isolating failures, and returns one warning per failed effect.
func (s *Service) dispatch(ctx context.Context, jobID int64, effs effects) []string {
	var warnings []string
	for _, eff := range effs {
		if err := eff.run(ctx, s.notifier); err != nil {
			s.logger.Warn("Notification failed",
				slog.Int64("job_id", jobID),
				slog.String("notification", eff.name),
				slog.Any("error", err),
			)
			s.recorder.NotificationFailed(eff.name)
			warnings = append(warnings, fmt.Sprintf("%s: %v", eff.name, err))
		}
	}
	return warnings
}

// parties are the people and labels a job's notifications refer to.
type parties struct {
	customer   *domain.User
	translator *domain.User
	assignment *domain.Assignment
	language   string
}

func (p parties) customerEmail(job *domain.Job) string {
	if job.UserEmail != "" {
		return job.UserEmail
	}
	if p.customer == nil {
		return ""
	}
	return p.customer.Email
}

func (p parties) customerName() string {
	if p.customer == nil {
		return ""
	}
	return p.customer.Name
}

func emailData(job *domain.Job, p parties, extra map[string]any) map[string]any {
	data := map[string]any{
		"job_id":   job.ID,
		"language": p.language,
		"duration": domain.FormatDuration(job.Duration),
		"due":      job.Due.Format(domain.DueLayout),
	}
	if p.customer != nil {
		data["customer_name"] = p.customer.Name
	}
	if p.translator != nil {
		data["translator_name"] = p.translator.Name
	}
	for k, v := range extra {
		data[k] = v
	}
	return data
}

func emailCustomer(job *domain.Job, p parties, subject, template string, extra map[string]any) effect {
	snapshot := *job
	return effect{name: "email:" + template, run: func(ctx context.Context, n Notifier) error {
		to := p.customerEmail(&snapshot)
		if to == "" {
			return nil
		}
		return n.SendEmail(ctx, Email{
			To: to, Name: p.customerName(), Subject: subject, Template: template,
			Data: emailData(&snapshot, p, extra),
		})
	}}
}

func emailUser(job *domain.Job, p parties, user *domain.User, subject, template string, extra map[string]any) effect {
	snapshot := *job
	return effect{name: "email:" + template, run: func(ctx context.Context, n Notifier) error {
		if user == nil || user.Email == "" {
			return nil
		}
		return n.SendEmail(ctx, Email{
			To: user.Email, Name: user.Name, Subject: subject, Template: template,
			Data: emailData(&snapshot, p, extra),
		})
	}}
}

// pushUser sends a push to one user, honouring their push settings.
func pushUser(user *domain.User, jobID int64, kind NotificationType, message string) effect {
	return effect{name: "push:" + string(kind), run: func(ctx context.Context, n Notifier) error {
		if user == nil {
			return nil
		}
		enabled, err := n.IsPushEnabled(ctx, user.ID)
		if err != nil || !enabled {
			return err
		}
		delayed, err := n.IsPushDelayed(ctx, user.ID)
		if err != nil {
			return err
		}
		return n.SendPushToUsers(ctx, Push{
			Users:    []domain.User{*user},
			JobID:    jobID,
			Data:     map[string]any{"notification_type": string(kind)},
			Messages: map[string]string{"en": message},
			Delayed:  delayed,
		})
	}}
}

func pushTranslators(data JobData, recipients []domain.User, exclude int64) effect {
	return effect{name: "push:" + string(data.NotificationType), run: func(ctx context.Context, n Notifier) error {
		if len(recipients) == 0 {
			return nil
		}
		return n.SendPushToTranslators(ctx, data, recipients, exclude)
	}}
}

// jobData builds the broadcast payload of a job.
func jobData(job *domain.Job, p parties, kind NotificationType) JobData {
	data := JobData{
		JobID:                job.ID,
		FromLanguageID:       job.FromLanguageID,
		Language:             p.language,
		Immediate:            job.Immediate,
		Duration:             job.Duration,
		Status:               job.Status,
		Gender:               job.Gender,
		Certified:            string(job.Certification),
		JobType:              job.JobType,
		Due:                  job.Due,
		DueDate:              job.Due.Format(domain.DueDateLayout),
		DueTime:              job.Due.Format(domain.DueTimeLayout),
		CustomerPhoneType:    job.CustomerPhoneType,
		CustomerPhysicalType: job.CustomerPhysicalType,
		CustomerTown:         job.Town,
		JobFor:               job.Requirement().Labels(),
		NotificationType:     kind,
	}
	if p.customer != nil {
		data.CustomerType = p.customer.CustomerType
	}
	return data
}

func bookingLabel(job *domain.Job, language string) string {
	return fmt.Sprintf("%s interpreter, %s, %s", language, domain.FormatDuration(job.Duration), job.Due.Format(domain.DueLayout))
}

func sessionReminder(user *domain.User, job *domain.Job, p parties) effect {
	msg := fmt.Sprintf("Reminder: your %s session starts at %s and lasts %s.",
		p.language, job.Due.Format(domain.DueLayout), domain.FormatDuration(job.Duration))
	return pushUser(user, job.ID, NotifySessionStartRemind, msg)
}
