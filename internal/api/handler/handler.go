package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/cuongbtq/booking-service/internal/booking"
	"github.com/cuongbtq/booking-service/internal/booking/domain"
)

// BookingService is the booking use-case surface served over HTTP.
// *booking.Service implements it.
type BookingService interface {
	CreateBooking(ctx context.Context, customer *domain.User, req booking.BookingRequest) (*booking.Result, error)
	ConfirmBooking(ctx context.Context, jobID int64, actor *domain.User, details booking.ContactDetails) (*booking.Result, error)
	UpdateJob(ctx context.Context, jobID int64, req booking.UpdateRequest, admin *domain.User) (*booking.Result, error)
	AcceptJob(ctx context.Context, jobID int64, translator *domain.User) (*booking.Result, error)
	AcceptJobWithID(ctx context.Context, jobID int64, translator *domain.User) (*booking.Result, error)
	CancelJob(ctx context.Context, jobID int64, actor *domain.User) (*booking.Result, error)
	ReopenJob(ctx context.Context, jobID int64, actor *domain.User) (*booking.Result, error)
	EndJob(ctx context.Context, jobID int64, actor *domain.User) (*booking.Result, error)
	CustomerNotCall(ctx context.Context, jobID int64, actor *domain.User) (*booking.Result, error)
	DistanceFeed(ctx context.Context, req booking.DistanceFeedRequest) (*booking.Result, error)
	ResendPush(ctx context.Context, jobID int64) (*booking.Result, error)
	ResendSMS(ctx context.Context, jobID int64) (*booking.Result, error)

	GetJob(ctx context.Context, id int64) (*domain.Job, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	ListUserJobs(ctx context.Context, user *domain.User) (*booking.UserJobs, error)
	JobHistory(ctx context.Context, user *domain.User, page int) (domain.Page[domain.Job], error)
	PotentialJobs(ctx context.Context, translator *domain.User) ([]domain.Job, error)
	PotentialTranslators(ctx context.Context, jobID int64) ([]domain.User, error)
	ListJobs(ctx context.Context, filter booking.JobFilter, page int) (domain.Page[domain.Job], error)

	ListExpiring(ctx context.Context, page int) (domain.Page[domain.Job], error)
	ListExpired(ctx context.Context, page int) (domain.Page[domain.Job], error)
	ListAlerts(ctx context.Context, page int) (domain.Page[domain.Job], error)
	IgnoreExpiring(ctx context.Context, jobID int64) error
	IgnoreExpired(ctx context.Context, jobID int64) error
	ListThrottles(ctx context.Context, page int) (domain.Page[domain.Throttle], error)
	IgnoreThrottle(ctx context.Context, id int64) error
}

var _ BookingService = (*booking.Service)(nil)

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger      *slog.Logger
	Service     BookingService
	Location    *time.Location
	ServiceName string
	Database    HealthChecker
}

// JobHandler handles booking HTTP requests
type JobHandler struct {
	logger   *slog.Logger
	service  BookingService
	location *time.Location
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &JobHandler{
		logger:   deps.Logger,
		service:  deps.Service,
		location: loc,
	}
}
