package notification

import (
	"time"

	"github.com/cuongbtq/booking-service/internal/booking"
)

// Kind is the delivery channel of a message.
type Kind string

const (
	KindEmail Kind = "email"
	KindPush  Kind = "push"
	KindSMS   Kind = "sms"
)

// RoutingKey is the broker routing key for messages of kind k.
func (k Kind) RoutingKey() string {
	return "notification." + string(k)
}

// Valid reports whether k is a known channel.
func (k Kind) Valid() bool {
	switch k {
	case KindEmail, KindPush, KindSMS:
		return true
	}
	return false
}

// Message is the envelope published for the worker to deliver. Exactly one
// of Email, Push or SMS is set, matching Kind.
type Message struct {
	ID        string         `json:"id"`
	Kind      Kind           `json:"kind"`
	JobID     int64          `json:"job_id,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	Email     *booking.Email `json:"email,omitempty"`
	Push      *Push          `json:"push,omitempty"`
	SMS       *SMS           `json:"sms,omitempty"`
}

// Push is a push notification to a set of users.
type Push struct {
	UserIDs  []int64           `json:"user_ids"`
	Data     map[string]any    `json:"data"`
	Messages map[string]string `json:"messages"`
	// Delayed asks the provider to hold the push until the night window ends.
	Delayed bool `json:"delayed"`
}

// SMS is a text message to a set of phone numbers.
type SMS struct {
	Phones []string `json:"phones"`
	Text   string   `json:"text"`
}
