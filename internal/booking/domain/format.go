package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Layouts used for booking input and notification text.
const (
	BookingDueLayout = "01/02/2006 15:04"
	DueLayout        = "2006-01-02 15:04:05"
	DueDateLayout    = "2006-01-02"
	DueTimeLayout    = "15:04:05"
)

// FormatDuration renders a duration in minutes, e.g. "45min", "1h", "01h 30min".
func FormatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dmin", minutes)
	}
	if minutes == 60 {
		return "1h"
	}
	return fmt.Sprintf("%02dh %02dmin", minutes/60, minutes%60)
}

// SessionLength renders the time between start and end as HH:MM:SS.
// Only the hour-of-day part of the difference is kept.
func SessionLength(start, end time.Time) string {
	d := end.Sub(start)
	if d < 0 {
		d = -d
	}
	total := int(d / time.Second)
	h := (total / 3600) % 24
	m := (total / 60) % 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// ReadableSession renders an HH:MM[:SS] session time as "H tim M min".
func ReadableSession(session string) string {
	parts := strings.Split(session, ":")
	if len(parts) < 2 {
		return session
	}
	return fmt.Sprintf("%s tim %s min", parts[0], parts[1])
}

// ParseSessionTime validates an admin supplied "H:MM" session time.
func ParseSessionTime(session string) (hours, minutes int, err error) {
	parts := strings.Split(strings.TrimSpace(session), ":")
	if len(parts) != 2 {
		return 0, 0, NewValidationError("session_time", "session time must be H:MM")
	}
	hours, err = strconv.Atoi(parts[0])
	if err != nil || hours < 0 {
		return 0, 0, NewValidationError("session_time", "session time must be H:MM")
	}
	minutes, err = strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, 0, NewValidationError("session_time", "session time must be H:MM")
	}
	return hours, minutes, nil
}

// SessionMinutes converts a stored "HH:MM:SS" session time to minutes.
// It reports false for anything else.
func SessionMinutes(session string) (float64, bool) {
	parts := strings.Split(session, ":")
	if len(parts) != 3 {
		return 0, false
	}
	var n [3]int
	for i, part := range parts {
		v, err := strconv.Atoi(part)
		if err != nil || v < 0 {
			return 0, false
		}
		n[i] = v
	}
	return float64(n[0]*60+n[1]) + float64(n[2])/60, true
}

// SessionOverrun reports whether a job's recorded session lasted at least
// twice its booked duration.
func (j *Job) SessionOverrun() bool {
	minutes, ok := SessionMinutes(j.SessionTime)
	return ok && minutes >= float64(j.Duration*2)
}
