package domain

import "time"

// Gender is an optional translator gender requirement. Empty means no requirement.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Certification is the certification requirement of a job. Empty means none.
type Certification string

const (
	CertNormal       Certification = "normal"
	CertYes          Certification = "yes"
	CertLaw          Certification = "law"
	CertHealth       Certification = "health"
	CertNormalLaw    Certification = "n_law"
	CertNormalHealth Certification = "n_health"
	CertBoth         Certification = "both"
)

// Job is a translation booking.
type Job struct {
	ID                   int64         `db:"id"`
	UserID               int64         `db:"user_id"`
	FromLanguageID       int64         `db:"from_language_id"`
	JobType              JobType       `db:"job_type"`
	Gender               Gender        `db:"gender"`
	Certification        Certification `db:"certified"`
	Duration             int           `db:"duration"`
	Immediate            bool          `db:"immediate"`
	CustomerPhoneType    bool          `db:"customer_phone_type"`
	CustomerPhysicalType bool          `db:"customer_physical_type"`
	Status               Status        `db:"status"`
	Due                  time.Time     `db:"due"`
	CreatedAt            time.Time     `db:"created_at"`
	UpdatedAt            time.Time     `db:"updated_at"`
	WillExpireAt         time.Time     `db:"will_expire_at"`
	EndAt                *time.Time    `db:"end_at"`
	WithdrawAt           *time.Time    `db:"withdraw_at"`
	Ignore               bool          `db:"ignore"`
	IgnoreExpired        bool          `db:"ignore_expired"`
	IgnoreFeedback       bool          `db:"ignore_feedback"`
	Flagged              bool          `db:"flagged"`
	ManuallyHandled      bool          `db:"manually_handled"`
	ByAdmin              bool          `db:"by_admin"`
	EmailSent            bool          `db:"email_sent"`
	Cust16HourEmail      bool          `db:"cust_16_hour_email"`
	Cust48HourEmail      bool          `db:"cust_48_hour_email"`
	AdminComments        string        `db:"admin_comments"`
	Reference            string        `db:"reference"`
	SessionTime          string        `db:"session_time"`
	UserEmail            string        `db:"user_email"`
	Address              string        `db:"address"`
	Instructions         string        `db:"instructions"`
	Town                 string        `db:"town"`
}

// Requirement returns the translator requirement of the job.
func (j *Job) Requirement() JobRequirement {
	return JobRequirement{Gender: j.Gender, Certification: j.Certification}
}

// InPersonOnly reports whether the job can only be served on site.
func (j *Job) InPersonOnly() bool {
	return !j.CustomerPhoneType && j.CustomerPhysicalType
}

// Window is the time span the job occupies.
func (j *Job) Window() (time.Time, time.Time) {
	return j.Due, j.Due.Add(time.Duration(j.Duration) * time.Minute)
}

// Assignment is one translator's claim on a job. Rows are never reassigned to
// another translator; superseded rows get CancelAt.
type Assignment struct {
	ID           int64      `db:"id"`
	UserID       int64      `db:"user_id"`
	JobID        int64      `db:"job_id"`
	CreatedAt    time.Time  `db:"created_at"`
	WillExpireAt time.Time  `db:"will_expire_at"`
	CancelAt     *time.Time `db:"cancel_at"`
	CompletedAt  *time.Time `db:"completed_at"`
	CompletedBy  *int64     `db:"completed_by"`
}

// Active reports whether the assignment is the job's current claim.
func (a *Assignment) Active() bool {
	return a.CancelAt == nil && a.CompletedAt == nil
}

// User is an account joined with its meta attributes.
type User struct {
	ID                 int64           `db:"id"`
	Name               string          `db:"name"`
	Email              string          `db:"email"`
	Phone              string          `db:"phone"`
	Role               Role            `db:"role"`
	ConsumerType       ConsumerType    `db:"consumer_type"`
	CustomerType       string          `db:"customer_type"`
	TranslatorType     TranslatorType  `db:"translator_type"`
	TranslatorLevel    TranslatorLevel `db:"translator_level"`
	Gender             Gender          `db:"gender"`
	City               string          `db:"city"`
	Address            string          `db:"address"`
	Instructions       string          `db:"instructions"`
	NotGetNotification bool            `db:"not_get_notification"`
	NotGetNighttime    bool            `db:"not_get_nighttime"`
	NotGetEmergency    bool            `db:"not_get_emergency"`
}

// Language is a bookable language.
type Language struct {
	ID     int64  `db:"id"`
	Name   string `db:"language"`
	Active bool   `db:"active"`
}

// Throttle is a failed-login rate limit record.
type Throttle struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	IP        string    `db:"ip"`
	Ignore    bool      `db:"ignore"`
	CreatedAt time.Time `db:"created_at"`
}

// Distance is the travel record of an in-person job.
type Distance struct {
	JobID    int64  `db:"job_id"`
	Distance string `db:"distance"`
	Time     string `db:"time"`
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Items    []T `json:"items"`
	Page     int `json:"page"`
	PerPage  int `json:"per_page"`
	Total    int `json:"total"`
	LastPage int `json:"last_page"`
}

// NewPage builds a page, deriving LastPage from total.
func NewPage[T any](items []T, page, perPage, total int) Page[T] {
	last := 1
	if perPage > 0 && total > 0 {
		last = (total + perPage - 1) / perPage
	}
	return Page[T]{Items: items, Page: page, PerPage: perPage, Total: total, LastPage: last}
}
