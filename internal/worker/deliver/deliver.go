// Package deliver hands notification messages to channel senders.
package deliver

import (
	"context"
	"fmt"

	"github.com/cuongbtq/booking-service/internal/booking"
	"github.com/cuongbtq/booking-service/internal/notification"
	"github.com/cuongbtq/booking-service/internal/worker/domain"
)

// EmailSender delivers one email.
type EmailSender interface {
	SendEmail(ctx context.Context, email booking.Email) error
}

// PushSender delivers one push to a set of users.
type PushSender interface {
	SendPush(ctx context.Context, jobID int64, push notification.Push) error
}

// SMSSender delivers one text to a set of phones.
type SMSSender interface {
	SendSMS(ctx context.Context, sms notification.SMS) error
}

// Router dispatches a message to the sender of its kind.
type Router struct {
	Email EmailSender
	Push  PushSender
	SMS   SMSSender
}

// NewRouter routes every kind to senders.
func NewRouter(email EmailSender, push PushSender, sms SMSSender) *Router {
	return &Router{Email: email, Push: push, SMS: sms}
}

// Deliver sends msg. A kind without a sender or payload is a permanent error.
func (r *Router) Deliver(ctx context.Context, msg notification.Message) error {
	switch {
	case msg.Kind == notification.KindEmail && msg.Email != nil && r.Email != nil:
		return r.Email.SendEmail(ctx, *msg.Email)
	case msg.Kind == notification.KindPush && msg.Push != nil && r.Push != nil:
		return r.Push.SendPush(ctx, msg.JobID, *msg.Push)
	case msg.Kind == notification.KindSMS && msg.SMS != nil && r.SMS != nil:
		return r.SMS.SendSMS(ctx, *msg.SMS)
	}
	return fmt.Errorf("%w: %q", domain.ErrUnsupportedKind, msg.Kind)
}
