package dto

import (
	"time"

	"github.com/cuongbtq/booking-service/internal/booking"
	"github.com/cuongbtq/booking-service/internal/booking/domain"
)

type CreateBookingRequest struct {
	FromLanguageID       int64    `json:"from_language_id"`
	Immediate            bool     `json:"immediate"`
	DueDate              string   `json:"due_date"`
	DueTime              string   `json:"due_time"`
	CustomerPhoneType    bool     `json:"customer_phone_type"`
	CustomerPhysicalType bool     `json:"customer_physical_type"`
	Duration             int      `json:"duration"`
	JobFor               []string `json:"job_for"`
	ByAdmin              bool     `json:"by_admin"`
}

func (r CreateBookingRequest) ToBooking() booking.BookingRequest {
	return booking.BookingRequest{
		FromLanguageID:       r.FromLanguageID,
		Immediate:            r.Immediate,
		DueDate:              r.DueDate,
		DueTime:              r.DueTime,
		CustomerPhoneType:    r.CustomerPhoneType,
		CustomerPhysicalType: r.CustomerPhysicalType,
		Duration:             r.Duration,
		JobFor:               r.JobFor,
		ByAdmin:              r.ByAdmin,
	}
}

type UpdateJobRequest struct {
	Due             string  `json:"due"`
	FromLanguageID  int64   `json:"from_language_id"`
	Status          string  `json:"status"`
	AdminComments   *string `json:"admin_comments"`
	SessionTime     string  `json:"session_time"`
	Reference       *string `json:"reference"`
	TranslatorID    int64   `json:"translator_id"`
	TranslatorEmail string  `json:"translator_email"`
}

// ToUpdate parses Due in loc using the "2006-01-02 15:04:05" layout.
func (r UpdateJobRequest) ToUpdate(loc *time.Location) (booking.UpdateRequest, error) {
	req := booking.UpdateRequest{
		FromLanguageID:  r.FromLanguageID,
		Status:          domain.Status(r.Status),
		AdminComments:   r.AdminComments,
		SessionTime:     r.SessionTime,
		Reference:       r.Reference,
		TranslatorID:    r.TranslatorID,
		TranslatorEmail: r.TranslatorEmail,
	}
	if r.Due != "" {
		due, err := time.ParseInLocation(domain.DueLayout, r.Due, loc)
		if err != nil {
			return req, domain.NewValidationError("due", "Invalid date format")
		}
		req.Due = &due
	}
	return req, nil
}

type AcceptJobRequest struct {
	JobID int64 `json:"job_id" binding:"required"`
}

type ConfirmBookingRequest struct {
	UserEmail    string  `json:"user_email"`
	Reference    string  `json:"reference"`
	Address      *string `json:"address"`
	Instructions string  `json:"instructions"`
	Town         string  `json:"town"`
}

func (r ConfirmBookingRequest) ToContact() booking.ContactDetails {
	return booking.ContactDetails{
		UserEmail:    r.UserEmail,
		Reference:    r.Reference,
		Address:      r.Address,
		Instructions: r.Instructions,
		Town:         r.Town,
	}
}

type DistanceFeedRequest struct {
	JobID           int64  `json:"job_id" binding:"required"`
	Distance        string `json:"distance"`
	Time            string `json:"time"`
	SessionTime     string `json:"session_time"`
	AdminComment    string `json:"admin_comment"`
	Flagged         *bool  `json:"flagged"`
	ManuallyHandled *bool  `json:"manually_handled"`
	ByAdmin         *bool  `json:"by_admin"`
}

func (r DistanceFeedRequest) ToFeed() booking.DistanceFeedRequest {
	return booking.DistanceFeedRequest{
		JobID:           r.JobID,
		Distance:        r.Distance,
		Time:            r.Time,
		SessionTime:     r.SessionTime,
		AdminComment:    r.AdminComment,
		Flagged:         r.Flagged,
		ManuallyHandled: r.ManuallyHandled,
		ByAdmin:         r.ByAdmin,
	}
}

type PageRequest struct {
	Page int `form:"page"`
}

// ListJobsRequest holds the admin search filters. From and To are dates in
// the "2006-01-02" layout.
type ListJobsRequest struct {
	Page             int      `form:"page"`
	ID               int64    `form:"id"`
	LanguageIDs      []int64  `form:"lang"`
	Statuses         []string `form:"status"`
	JobTypes         []string `form:"job_type"`
	CustomerEmails   []string `form:"customer_email"`
	TranslatorEmails []string `form:"translator_email"`
	TimeType         string   `form:"filter_timetype"`
	From             string   `form:"from"`
	To               string   `form:"to"`
	Flagged          *bool    `form:"flagged"`
	Physical         *bool    `form:"physical"`
	Phone            *bool    `form:"phone"`
	ConsumerType     string   `form:"consumer_type"`
	MissingDistance  bool     `form:"missing_distance"`
	LowRatingOnly    bool     `form:"low_rating"`
}

func (r ListJobsRequest) ToFilter(loc *time.Location) (booking.JobFilter, error) {
	filter := booking.JobFilter{
		ID:               r.ID,
		LanguageIDs:      r.LanguageIDs,
		CustomerEmails:   r.CustomerEmails,
		TranslatorEmails: r.TranslatorEmails,
		TimeType:         r.TimeType,
		Flagged:          r.Flagged,
		Physical:         r.Physical,
		Phone:            r.Phone,
		ConsumerType:     r.ConsumerType,
		MissingDistance:  r.MissingDistance,
		LowRatingOnly:    r.LowRatingOnly,
	}
	for _, s := range r.Statuses {
		filter.Statuses = append(filter.Statuses, domain.Status(s))
	}
	for _, t := range r.JobTypes {
		filter.JobTypes = append(filter.JobTypes, domain.JobType(t))
	}

	if r.From != "" {
		from, err := time.ParseInLocation(domain.DueDateLayout, r.From, loc)
		if err != nil {
			return filter, domain.NewValidationError("from", "Invalid date format")
		}
		filter.From = &from
	}
	if r.To != "" {
		to, err := time.ParseInLocation(domain.DueDateLayout, r.To, loc)
		if err != nil {
			return filter, domain.NewValidationError("to", "Invalid date format")
		}
		// inclusive of the whole day
		to = to.Add(24*time.Hour - time.Second)
		filter.To = &to
	}
	return filter, nil
}

type JobDTO struct {
	ID                   int64      `json:"id"`
	UserID               int64      `json:"user_id"`
	FromLanguageID       int64      `json:"from_language_id"`
	JobType              string     `json:"job_type"`
	Gender               string     `json:"gender,omitempty"`
	Certified            string     `json:"certified,omitempty"`
	Duration             int        `json:"duration"`
	Immediate            bool       `json:"immediate"`
	CustomerPhoneType    bool       `json:"customer_phone_type"`
	CustomerPhysicalType bool       `json:"customer_physical_type"`
	Status               string     `json:"status"`
	Due                  time.Time  `json:"due"`
	WillExpireAt         time.Time  `json:"will_expire_at"`
	EndAt                *time.Time `json:"end_at,omitempty"`
	Flagged              bool       `json:"flagged"`
	ManuallyHandled      bool       `json:"manually_handled"`
	ByAdmin              bool       `json:"by_admin"`
	AdminComments        string     `json:"admin_comments,omitempty"`
	Reference            string     `json:"reference,omitempty"`
	SessionTime          string     `json:"session_time,omitempty"`
	UserEmail            string     `json:"user_email,omitempty"`
	Address              string     `json:"address,omitempty"`
	Instructions         string     `json:"instructions,omitempty"`
	Town                 string     `json:"town,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

func NewJobDTO(job *domain.Job) JobDTO {
	return JobDTO{
		ID:                   job.ID,
		UserID:               job.UserID,
		FromLanguageID:       job.FromLanguageID,
		JobType:              string(job.JobType),
		Gender:               string(job.Gender),
		Certified:            string(job.Certification),
		Duration:             job.Duration,
		Immediate:            job.Immediate,
		CustomerPhoneType:    job.CustomerPhoneType,
		CustomerPhysicalType: job.CustomerPhysicalType,
		Status:               string(job.Status),
		Due:                  job.Due,
		WillExpireAt:         job.WillExpireAt,
		EndAt:                job.EndAt,
		Flagged:              job.Flagged,
		ManuallyHandled:      job.ManuallyHandled,
		ByAdmin:              job.ByAdmin,
		AdminComments:        job.AdminComments,
		Reference:            job.Reference,
		SessionTime:          job.SessionTime,
		UserEmail:            job.UserEmail,
		Address:              job.Address,
		Instructions:         job.Instructions,
		Town:                 job.Town,
		CreatedAt:            job.CreatedAt,
		UpdatedAt:            job.UpdatedAt,
	}
}

func NewJobDTOs(jobs []domain.Job) []JobDTO {
	out := make([]JobDTO, len(jobs))
	for i := range jobs {
		out[i] = NewJobDTO(&jobs[i])
	}
	return out
}

type UserJobsResponse struct {
	Emergency []JobDTO `json:"emergency_jobs"`
	Normal    []JobDTO `json:"normal_jobs"`
}

type TranslatorDTO struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	City  string `json:"city,omitempty"`
}

func NewTranslatorDTOs(users []domain.User) []TranslatorDTO {
	out := make([]TranslatorDTO, len(users))
	for i, u := range users {
		out[i] = TranslatorDTO{ID: u.ID, Name: u.Name, Email: u.Email, City: u.City}
	}
	return out
}

type ResultResponse struct {
	Job      *JobDTO           `json:"job,omitempty"`
	Jobs     []JobDTO          `json:"jobs,omitempty"`
	Message  string            `json:"message,omitempty"`
	Log      *domain.ChangeLog `json:"log,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
}

func NewResultResponse(res *booking.Result) ResultResponse {
	out := ResultResponse{
		Message:  res.Message,
		Log:      res.Log,
		Warnings: res.Warnings,
	}
	if res.Job != nil {
		job := NewJobDTO(res.Job)
		out.Job = &job
	}
	if len(res.Jobs) > 0 {
		out.Jobs = NewJobDTOs(res.Jobs)
	}
	return out
}

type PageResponse[T any] struct {
	Items    []T `json:"items"`
	Page     int `json:"page"`
	PerPage  int `json:"per_page"`
	Total    int `json:"total"`
	LastPage int `json:"last_page"`
}

// NewPageResponse converts the items of page with conv.
func NewPageResponse[S, T any](page domain.Page[S], conv func(S) T) PageResponse[T] {
	items := make([]T, len(page.Items))
	for i, item := range page.Items {
		items[i] = conv(item)
	}
	return PageResponse[T]{
		Items:    items,
		Page:     page.Page,
		PerPage:  page.PerPage,
		Total:    page.Total,
		LastPage: page.LastPage,
	}
}

type ThrottleDTO struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	IP        string    `json:"ip"`
	CreatedAt time.Time `json:"created_at"`
}

func NewThrottleDTO(t domain.Throttle) ThrottleDTO {
	return ThrottleDTO{ID: t.ID, UserID: t.UserID, IP: t.IP, CreatedAt: t.CreatedAt}
}

type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}
