package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cuongbtq/booking-service/internal/booking/domain"
	"github.com/cuongbtq/booking-service/internal/clock"
)

// Result is the outcome of a booking operation. Warnings lists notifications
// that failed after the change was committed.
type Result struct {
	Job      *domain.Job
	Message  string
	Log      *domain.ChangeLog
	Jobs     []domain.Job
	Warnings []string
}

// Service is the booking use-case facade.
type Service struct {
	store     Store
	notifier  Notifier
	clock     clock.Clock
	settings  Settings
	logger    *slog.Logger
	recorder  Recorder
	matcher   *Matcher
	assign    *AssignmentManager
	lifecycle *Lifecycle
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// NewService wires the booking core.
func NewService(store Store, notifier Notifier, clk clock.Clock, settings Settings, logger *slog.Logger, opts ...Option) *Service {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	matcher := NewMatcher()
	s := &Service{
		store:     store,
		notifier:  notifier,
		clock:     clk,
		settings:  settings,
		logger:    logger,
		recorder:  nopRecorder{},
		matcher:   matcher,
		assign:    NewAssignmentManager(clk),
		lifecycle: NewLifecycle(clk, settings.Expiry, matcher),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BookingRequest is the raw input of CreateBooking.
type BookingRequest struct {
	FromLanguageID       int64
	Immediate            bool
	DueDate              string // m/d/Y
	DueTime              string // H:i
	CustomerPhoneType    bool
	CustomerPhysicalType bool
	Duration             int
	JobFor               []string
	ByAdmin              bool
}

const (
	msgFillAllFields = "All fields must be filled in"
	msgMakeChoice    = "You must make a choice here"
)

func (r BookingRequest) validate() error {
	if r.FromLanguageID == 0 {
		return domain.NewValidationError("from_language_id", msgFillAllFields)
	}
	if r.Immediate {
		if r.Duration <= 0 {
			return domain.NewValidationError("duration", msgFillAllFields)
		}
		return nil
	}
	if strings.TrimSpace(r.DueDate) == "" {
		return domain.NewValidationError("due_date", msgFillAllFields)
	}
	if strings.TrimSpace(r.DueTime) == "" {
		return domain.NewValidationError("due_time", msgFillAllFields)
	}
	if !r.CustomerPhoneType && !r.CustomerPhysicalType {
		return domain.NewValidationError("customer_phone_type", msgMakeChoice)
	}
	if r.Duration <= 0 {
		return domain.NewValidationError("duration", msgFillAllFields)
	}
	return nil
}

// CreateBooking validates and stores a new booking for a customer.
func (s *Service) CreateBooking(ctx context.Context, customer *domain.User, req BookingRequest) (*Result, error) {
	if customer == nil || customer.Role != domain.RoleCustomer {
		return nil, fmt.Errorf("only customers can create bookings: %w", domain.ErrForbidden)
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	job := &domain.Job{
		UserID:               customer.ID,
		FromLanguageID:       req.FromLanguageID,
		Duration:             req.Duration,
		Immediate:            req.Immediate,
		CustomerPhoneType:    req.CustomerPhoneType,
		CustomerPhysicalType: req.CustomerPhysicalType,
		Status:               domain.StatusPending,
		CreatedAt:            now,
		UpdatedAt:            now,
		ByAdmin:              req.ByAdmin,
	}

	if req.Immediate {
		job.Due = now.Add(s.settings.ImmediateLeadTime)
		job.CustomerPhoneType = true
	} else {
		due, err := time.ParseInLocation(domain.BookingDueLayout,
			strings.TrimSpace(req.DueDate)+" "+strings.TrimSpace(req.DueTime), s.settings.Location)
		if err != nil {
			return nil, domain.NewValidationError("due_date", "invalid due date or time")
		}
		if due.Before(now) {
			return nil, domain.ErrPastDueDate
		}
		job.Due = due
	}

	requirement := domain.DeriveRequirement(req.JobFor)
	job.Gender = requirement.Gender
	job.Certification = requirement.Certification

	jobType, ok := domain.JobTypeForConsumer(customer.ConsumerType)
	if !ok {
		jobType = domain.JobTypeUnpaid
	}
	job.JobType = jobType
	job.WillExpireAt = s.settings.Expiry.WillExpireAt(job.Due, now)

	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	s.recorder.BookingCreated(job.JobType)
	s.logger.Info("Booking created",
		slog.Int64("job_id", job.ID),
		slog.Int64("user_id", customer.ID),
		slog.Bool("immediate", job.Immediate),
		slog.String("job_type", string(job.JobType)),
	)

	return &Result{Job: job, Message: "success"}, nil
}

// AcceptJob lets a translator claim a pending job. The result lists the
// translator's remaining potential jobs.
func (s *Service) AcceptJob(ctx context.Context, jobID int64, translator *domain.User) (*Result, error) {
	res, err := s.accept(ctx, jobID, translator)
	if err != nil {
		return nil, err
	}

	jobs, err := s.matcher.PotentialJobs(ctx, s.store, translator)
	if err != nil {
		s.logger.Warn("Failed to refresh potential jobs",
			slog.Int64("translator_id", translator.ID),
			slog.Any("error", err),
		)
	}
	res.Jobs = jobs
	return res, nil
}

// AcceptJobWithID lets a translator claim a job addressed directly, for
// example from a push notification.
func (s *Service) AcceptJobWithID(ctx context.Context, jobID int64, translator *domain.User) (*Result, error) {
	return s.accept(ctx, jobID, translator)
}

func (s *Service) accept(ctx context.Context, jobID int64, translator *domain.User) (*Result, error) {
	if translator == nil || translator.Role != domain.RoleTranslator {
		return nil, fmt.Errorf("only translators can accept jobs: %w", domain.ErrForbidden)
	}

	var job *domain.Job
	var p parties
	err := s.store.WithinTx(ctx, func(tx Store) error {
		var err error
		job, _, err = s.assign.Accept(ctx, tx, jobID, translator)
		if err != nil {
			return err
		}
		p, err = s.loadParties(ctx, tx, job)
		return err
	})
	if err != nil {
		s.recorder.AcceptOutcome(acceptOutcome(err))
		if job != nil && (errors.Is(err, domain.ErrAlreadyAssigned) || errors.Is(err, domain.ErrAlreadyBooked)) {
			return nil, fmt.Errorf("job %d (%s): %w", job.ID, job.Due.Format(domain.DueLayout), err)
		}
		return nil, err
	}
	s.recorder.AcceptOutcome(acceptOutcome(nil))
	s.recorder.StatusChanged(domain.StatusPending, domain.StatusAssigned)

	var effs effects
	effs = append(effs,
		emailCustomer(job, p,
			fmt.Sprintf("Confirmation: an interpreter has accepted your booking (booking #%d)", job.ID), tmplJobAccepted, nil),
		pushUser(p.customer, job.ID, NotifyJobAccepted,
			fmt.Sprintf("Your booking for %s has been accepted by an interpreter. Open the app for details.", bookingLabel(job, p.language))),
	)

	s.logger.Info("Job accepted",
		slog.Int64("job_id", job.ID),
		slog.Int64("translator_id", translator.ID),
	)

	return &Result{
		Job:      job,
		Message:  fmt.Sprintf("You have now accepted and received the booking for %s", bookingLabel(job, p.language)),
		Warnings: s.dispatch(ctx, job.ID, effs),
	}, nil
}

func acceptOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrAlreadyBooked):
		return "already_booked"
	case errors.Is(err, domain.ErrAlreadyAssigned):
		return "already_assigned"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	}
	return "error"
}

// loadParties resolves the customer, the current translator and the language of a job.
func (s *Service) loadParties(ctx context.Context, store Store, job *domain.Job) (parties, error) {
	var p parties

	customer, err := store.GetUser(ctx, job.UserID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return p, fmt.Errorf("failed to load customer: %w", err)
	}
	p.customer = customer

	lang, err := store.GetLanguage(ctx, job.FromLanguageID)
	switch {
	case err == nil:
		p.language = lang.Name
	case !errors.Is(err, domain.ErrNotFound):
		return p, fmt.Errorf("failed to load language: %w", err)
	}

	a, err := s.assign.Current(ctx, store, job.ID)
	if err != nil {
		return p, err
	}
	p.assignment = a
	if a != nil {
		translator, err := store.GetUser(ctx, a.UserID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return p, fmt.Errorf("failed to load translator: %w", err)
		}
		p.translator = translator
	}
	return p, nil
}

// GetJob returns a job by id.
func (s *Service) GetJob(ctx context.Context, id int64) (*domain.Job, error) {
	return s.store.GetJob(ctx, id)
}

// GetUser returns a user by id.
func (s *Service) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return s.store.GetUser(ctx, id)
}
