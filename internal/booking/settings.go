package booking

import (
	"fmt"
	"time"

	"github.com/cuongbtq/booking-service/internal/booking/domain"
)

// Settings tunes the booking rules.
type Settings struct {
	// ImmediateLeadTime is added to now to get the due time of immediate jobs.
	ImmediateLeadTime time.Duration
	// CancelWindow is how long before due a translator may still cancel and
	// the boundary between the two customer withdraw statuses.
	CancelWindow    time.Duration
	HistoryPageSize int
	AdminPageSize   int
	Expiry          domain.ExpiryPolicy
	// Location is used to interpret booking date and time input.
	Location *time.Location
}

// DefaultSettings returns the production defaults.
func DefaultSettings() Settings {
	return Settings{
		ImmediateLeadTime: 5 * time.Minute,
		CancelWindow:      24 * time.Hour,
		HistoryPageSize:   15,
		AdminPageSize:     15,
		Expiry:            domain.DefaultExpiryPolicy(),
		Location:          time.UTC,
	}
}

// Validate checks the settings.
func (s Settings) Validate() error {
	if s.ImmediateLeadTime <= 0 {
		return fmt.Errorf("immediate lead time must be greater than 0")
	}
	if s.CancelWindow <= 0 {
		return fmt.Errorf("cancel window must be greater than 0")
	}
	if s.HistoryPageSize <= 0 || s.AdminPageSize <= 0 {
		return fmt.Errorf("page sizes must be greater than 0")
	}
	return s.Expiry.Validate()
}
