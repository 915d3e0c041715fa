package booking

import (
	"context"
	"time"

	"github.com/cuongbtq/booking-service/internal/booking/domain"
)

// JobFlag names a boolean job column that admin queues toggle.
type JobFlag string

const (
	FlagIgnore        JobFlag = "ignore"
	FlagIgnoreExpired JobFlag = "ignore_expired"
)

// JobFilter selects jobs for the admin listing. Zero values do not filter.
type JobFilter struct {
	ID               int64
	LanguageIDs      []int64
	Statuses         []domain.Status
	JobTypes         []domain.JobType
	CustomerEmails   []string
	TranslatorEmails []string
	TimeType         string // "created" or "due"
	From             *time.Time
	To               *time.Time
	Flagged          *bool
	Physical         *bool
	Phone            *bool
	ConsumerType     string
	MissingDistance  bool
	LowRatingOnly    bool
}

// HistoryQuery selects finished jobs of a customer or translator.
type HistoryQuery struct {
	UserID       int64
	AsTranslator bool
	Statuses     []domain.Status
}

// ExpiryQuery selects pending jobs by expiry state.
type ExpiryQuery struct {
	Now     time.Time
	Expired bool
}

// JobStore persists jobs and their side records.
type JobStore interface {
	CreateJob(ctx context.Context, job *domain.Job) error
	GetJob(ctx context.Context, id int64) (*domain.Job, error)
	// LockJob loads a job and holds a row lock until the transaction ends.
	LockJob(ctx context.Context, id int64) (*domain.Job, error)
	UpdateJob(ctx context.Context, job *domain.Job) error
	// MarkAssigned flips a pending job to assigned, failing with
	// domain.ErrAlreadyAssigned if the job is no longer pending.
	MarkAssigned(ctx context.Context, jobID int64) error
	SetJobFlag(ctx context.Context, jobID int64, flag JobFlag, value bool) error
	ListCustomerJobs(ctx context.Context, userID int64, statuses []domain.Status) ([]domain.Job, error)
	ListTranslatorJobs(ctx context.Context, translatorID int64) ([]domain.Job, error)
	JobHistory(ctx context.Context, q HistoryQuery, page, perPage int) ([]domain.Job, int, error)
	ListPendingJobs(ctx context.Context, jobType domain.JobType, languageIDs []int64) ([]domain.Job, error)
	ListPendingByExpiry(ctx context.Context, q ExpiryQuery, page, perPage int) ([]domain.Job, int, error)
	// ListSessionAlerts lists jobs not ignored whose session ran at least twice the booked duration.
	ListSessionAlerts(ctx context.Context, page, perPage int) ([]domain.Job, int, error)
	ListJobs(ctx context.Context, f JobFilter, page, perPage int) ([]domain.Job, int, error)
	UpsertDistance(ctx context.Context, d domain.Distance) error
	SaveChangeLog(ctx context.Context, log *domain.ChangeLog) error
}

// AssignmentStore persists translator assignments.
type AssignmentStore interface {
	CreateAssignment(ctx context.Context, a *domain.Assignment) error
	ActiveAssignment(ctx context.Context, jobID int64) (*domain.Assignment, error)
	LatestCompletedAssignment(ctx context.Context, jobID int64) (*domain.Assignment, error)
	CancelAssignment(ctx context.Context, id int64, at time.Time) error
	CompleteAssignment(ctx context.Context, id int64, at time.Time, by int64) error
	// HasConflictingAssignment reports whether the translator holds an active
	// assignment on another job overlapping [start, end).
	HasConflictingAssignment(ctx context.Context, translatorID, excludeJobID int64, start, end time.Time) (bool, error)
}

// UserStore reads users, their meta and related lookups.
type UserStore interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListTranslators(ctx context.Context, translatorType domain.TranslatorType, languageID int64) ([]domain.User, error)
	UserLanguageIDs(ctx context.Context, userID int64) ([]int64, error)
	UserTownIDs(ctx context.Context, userID int64) ([]int64, error)
	BlacklistedTranslators(ctx context.Context, customerID int64) ([]int64, error)
	CustomersBlacklisting(ctx context.Context, translatorID int64) ([]int64, error)
	GetLanguage(ctx context.Context, id int64) (*domain.Language, error)
	ListThrottles(ctx context.Context, page, perPage int) ([]domain.Throttle, int, error)
	IgnoreThrottle(ctx context.Context, id int64) error
}

// Store is the persistence port of the booking core.
type Store interface {
	JobStore
	AssignmentStore
	UserStore

	// WithinTx runs fn in a transaction. fn receives a Store bound to it;
	// returning an error rolls back.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

// Email is an outbound email.
type Email struct {
	To       string         `json:"to"`
	Name     string         `json:"name"`
	Subject  string         `json:"subject"`
	Template string         `json:"template"`
	Data     map[string]any `json:"data,omitempty"`
}

// Push is a push notification to specific users.
type Push struct {
	Users    []domain.User     `json:"-"`
	JobID    int64             `json:"job_id"`
	Data     map[string]any    `json:"data"`
	Messages map[string]string `json:"messages"`
	Delayed  bool              `json:"delayed"`
}

// JobData is the job summary broadcast to translators.
type JobData struct {
	JobID                int64            `json:"job_id"`
	FromLanguageID       int64            `json:"from_language_id"`
	Language             string           `json:"language"`
	Immediate            bool             `json:"immediate"`
	Duration             int              `json:"duration"`
	Status               domain.Status    `json:"status"`
	Gender               domain.Gender    `json:"gender,omitempty"`
	Certified            string           `json:"certified,omitempty"`
	JobType              domain.JobType   `json:"job_type"`
	Due                  time.Time        `json:"due"`
	DueDate              string           `json:"due_date"`
	DueTime              string           `json:"due_time"`
	CustomerPhoneType    bool             `json:"customer_phone_type"`
	CustomerPhysicalType bool             `json:"customer_physical_type"`
	CustomerTown         string           `json:"customer_town,omitempty"`
	CustomerType         string           `json:"customer_type,omitempty"`
	JobFor               []string         `json:"job_for"`
	NotificationType     NotificationType `json:"notification_type"`
}

// Notifier is the notification port. Implementations hand messages to a
// delivery channel and return domain.ErrDeliveryFailure wrapped errors.
type Notifier interface {
	SendEmail(ctx context.Context, email Email) error
	// SendPushToTranslators broadcasts a job to recipients, skipping excludeUserID.
	SendPushToTranslators(ctx context.Context, data JobData, recipients []domain.User, excludeUserID int64) error
	SendPushToUsers(ctx context.Context, push Push) error
	SendSMSToTranslators(ctx context.Context, data JobData, recipients []domain.User) error
	IsPushEnabled(ctx context.Context, userID int64) (bool, error)
	IsPushDelayed(ctx context.Context, userID int64) (bool, error)
}

// Recorder receives booking events for metrics.
type Recorder interface {
	BookingCreated(jobType domain.JobType)
	StatusChanged(from, to domain.Status)
	AcceptOutcome(outcome string)
	NotificationFailed(kind string)
}

type nopRecorder struct{}

func (nopRecorder) BookingCreated(domain.JobType)              {}
func (nopRecorder) StatusChanged(domain.Status, domain.Status) {}
func (nopRecorder) AcceptOutcome(string)                       {}
func (nopRecorder) NotificationFailed(string)                  {}
