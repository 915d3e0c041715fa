package domain

import (
	"fmt"
	"time"
)

// MidWindowRule selects the expiry of jobs booked between 24 and 72 hours ahead.
type MidWindowRule string

const (
	// MidWindowCreatedPlus16h expires the job 16 hours after it was created.
	MidWindowCreatedPlus16h MidWindowRule = "created_plus_16h"
	// MidWindowDueMinus48h expires the job 48 hours before it is due.
	MidWindowDueMinus48h MidWindowRule = "due_minus_48h"
)

// ExpiryPolicy computes when an unaccepted job stops being offered.
type ExpiryPolicy struct {
	MidWindow MidWindowRule
}

// DefaultExpiryPolicy matches the behaviour of existing bookings.
func DefaultExpiryPolicy() ExpiryPolicy {
	return ExpiryPolicy{MidWindow: MidWindowCreatedPlus16h}
}

// Validate checks the configured rule.
func (p ExpiryPolicy) Validate() error {
	switch p.MidWindow {
	case "", MidWindowCreatedPlus16h, MidWindowDueMinus48h:
		return nil
	}
	return fmt.Errorf("unknown expiry mid window rule %q", p.MidWindow)
}

// WillExpireAt returns the expiry for a job due at due and created at created.
// Hours are whole hours, truncated.
//
//	h <= 24        created + 90min
//	24 < h <= 72   created + 16h (or due - 48h)
//	72 < h <= 90   due
//	h > 90         due - 48h
func (p ExpiryPolicy) WillExpireAt(due, created time.Time) time.Time {
	hours := int(due.Sub(created) / time.Hour)

	switch {
	case hours <= 24:
		return created.Add(90 * time.Minute)
	case hours <= 72:
		if p.MidWindow == MidWindowDueMinus48h {
			return due.Add(-48 * time.Hour)
		}
		return created.Add(16 * time.Hour)
	case hours <= 90:
		return due
	default:
		return due.Add(-48 * time.Hour)
	}
}
