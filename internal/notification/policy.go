package notification

import "time"

// Policy is the night window in which opted-out users get delayed pushes.
type Policy struct {
	NightStartHour int
	NightEndHour   int
	Location       *time.Location
}

// DefaultPolicy is 22:00 to 07:00 UTC.
func DefaultPolicy() Policy {
	return Policy{NightStartHour: 22, NightEndHour: 7, Location: time.UTC}
}

// IsNight reports whether t falls in [start, end), wrapping past midnight.
// Equal hours disable the window.
func (p Policy) IsNight(t time.Time) bool {
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	hour := t.In(loc).Hour()

	switch {
	case p.NightStartHour == p.NightEndHour:
		return false
	case p.NightStartHour > p.NightEndHour:
		return hour >= p.NightStartHour || hour < p.NightEndHour
	default:
		return hour >= p.NightStartHour && hour < p.NightEndHour
	}
}
