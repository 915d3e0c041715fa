package domain

// Status is the lifecycle state of a booking job.
type Status string

const (
	StatusPending               Status = "pending"
	StatusAssigned              Status = "assigned"
	StatusStarted               Status = "started"
	StatusCompleted             Status = "completed"
	StatusWithdrawBefore24      Status = "withdrawbefore24"
	StatusWithdrawAfter24       Status = "withdrawafter24"
	StatusTimedOut              Status = "timedout"
	StatusNotCarriedOutCustomer Status = "not_carried_out_customer"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAssigned, StatusStarted, StatusCompleted,
		StatusWithdrawBefore24, StatusWithdrawAfter24, StatusTimedOut, StatusNotCarriedOutCustomer:
		return true
	}
	return false
}

// IsTerminal reports whether no further customer-driven transition is expected.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusWithdrawBefore24, StatusWithdrawAfter24, StatusNotCarriedOutCustomer:
		return true
	}
	return false
}

// ReleasesTranslator reports whether a job in this status no longer holds an
// assignment open: withdrawn or timed out jobs free the translator's calendar.
func (s Status) ReleasesTranslator() bool {
	switch s {
	case StatusWithdrawBefore24, StatusWithdrawAfter24, StatusTimedOut:
		return true
	}
	return false
}

// ActiveStatuses are the statuses a customer sees in their current job list.
var ActiveStatuses = []Status{StatusPending, StatusAssigned, StatusStarted}

// HistoryStatuses are the statuses listed in a customer's job history.
var HistoryStatuses = []Status{StatusCompleted, StatusWithdrawBefore24, StatusWithdrawAfter24, StatusTimedOut}

// Role is the account role of a user.
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleTranslator Role = "translator"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// IsAdmin reports whether the role may perform administrative updates.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// JobType is the commercial category of a job.
type JobType string

const (
	JobTypePaid   JobType = "paid"
	JobTypeRWS    JobType = "rws"
	JobTypeUnpaid JobType = "unpaid"
)

// ConsumerType is the customer classification stored in user meta.
type ConsumerType string

const (
	ConsumerRWS  ConsumerType = "rwsconsumer"
	ConsumerNGO  ConsumerType = "ngo"
	ConsumerPaid ConsumerType = "paid"
)

// TranslatorType is the translator classification stored in user meta.
type TranslatorType string

const (
	TranslatorProfessional TranslatorType = "professional"
	TranslatorRWS          TranslatorType = "rwstranslator"
	TranslatorVolunteer    TranslatorType = "volunteer"
)

// JobTypeForConsumer maps a customer's consumer type to the job type of their bookings.
func JobTypeForConsumer(c ConsumerType) (JobType, bool) {
	switch c {
	case ConsumerRWS:
		return JobTypeRWS, true
	case ConsumerNGO:
		return JobTypeUnpaid, true
	case ConsumerPaid:
		return JobTypePaid, true
	}
	return "", false
}

// TranslatorTypeForJob maps a job type to the translator type allowed to take it.
func TranslatorTypeForJob(t JobType) TranslatorType {
	switch t {
	case JobTypePaid:
		return TranslatorProfessional
	case JobTypeRWS:
		return TranslatorRWS
	default:
		return TranslatorVolunteer
	}
}

// JobTypeForTranslator is the inverse of TranslatorTypeForJob. Unknown types see unpaid jobs.
func JobTypeForTranslator(t TranslatorType) JobType {
	switch t {
	case TranslatorProfessional:
		return JobTypePaid
	case TranslatorRWS:
		return JobTypeRWS
	default:
		return JobTypeUnpaid
	}
}

// TranslatorLevel is a translator's certification level.
type TranslatorLevel string

const (
	LevelCertified       TranslatorLevel = "Certified"
	LevelCertifiedLaw    TranslatorLevel = "Certified with specialisation in law"
	LevelCertifiedHealth TranslatorLevel = "Certified with specialisation in health care"
	LevelLayman          TranslatorLevel = "Layman"
	LevelReadCourses     TranslatorLevel = "Read Translation courses"
)

// AllLevels lists every translator level.
var AllLevels = []TranslatorLevel{
	LevelCertified, LevelCertifiedLaw, LevelCertifiedHealth, LevelLayman, LevelReadCourses,
}
