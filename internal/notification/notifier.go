// Package notification turns booking notifications into broker messages.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/cuongbtq/booking-service/internal/booking"
	"github.com/cuongbtq/booking-service/internal/booking/domain"
	"github.com/cuongbtq/booking-service/internal/clock"
	"github.com/cuongbtq/booking-service/shared/rabbitmq"
)

const contentTypeJSON = "application/json"

// Publisher hands a message to the broker.
type Publisher interface {
	PublishWithRetry(ctx context.Context, msg rabbitmq.Message) error
}

// UserLookup reads the push settings of a user.
type UserLookup interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)
}

var _ booking.Notifier = (*Notifier)(nil)

// Notifier implements booking.Notifier by publishing messages for the worker.
type Notifier struct {
	publisher Publisher
	users     UserLookup
	policy    Policy
	clock     clock.Clock
	logger    *slog.Logger
	newID     func() string
}

// NewNotifier creates a Notifier.
func NewNotifier(publisher Publisher, users UserLookup, policy Policy, clk clock.Clock, logger *slog.Logger) *Notifier {
	return &Notifier{
		publisher: publisher,
		users:     users,
		policy:    policy,
		clock:     clk,
		logger:    logger,
		newID:     uuid.NewString,
	}
}

func (n *Notifier) publish(ctx context.Context, msg Message) error {
	msg.ID = n.newID()
	msg.CreatedAt = n.clock.Now()

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: marshal %s message: %w", domain.ErrDeliveryFailure, msg.Kind, err)
	}

	err = n.publisher.PublishWithRetry(ctx, rabbitmq.Message{
		ID:          msg.ID,
		RoutingKey:  msg.Kind.RoutingKey(),
		ContentType: contentTypeJSON,
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("%w: publish %s message: %w", domain.ErrDeliveryFailure, msg.Kind, err)
	}

	n.logger.Info("Notification queued",
		slog.String("message_id", msg.ID),
		slog.String("kind", string(msg.Kind)),
		slog.Int64("job_id", msg.JobID),
	)
	return nil
}

// SendEmail queues an email.
func (n *Notifier) SendEmail(ctx context.Context, email booking.Email) error {
	var jobID int64
	if id, ok := email.Data["job_id"].(int64); ok {
		jobID = id
	}
	return n.publish(ctx, Message{Kind: KindEmail, JobID: jobID, Email: &email})
}

// SendPushToTranslators broadcasts a job to the recipients who accept pushes.
// Night-sensitive recipients get a separate delayed push while the night
// window is open.
func (n *Notifier) SendPushToTranslators(ctx context.Context, data booking.JobData, recipients []domain.User, excludeUserID int64) error {
	night := n.policy.IsNight(n.clock.Now())

	var now, later []int64
	for _, user := range recipients {
		if user.ID == excludeUserID || user.NotGetNotification {
			continue
		}
		if data.Immediate && user.NotGetEmergency {
			continue
		}
		if night && user.NotGetNighttime {
			later = append(later, user.ID)
		} else {
			now = append(now, user.ID)
		}
	}

	payload := jobPayload(data)
	messages := map[string]string{"en": jobPushText(data)}

	for _, batch := range []struct {
		ids     []int64
		delayed bool
	}{{now, false}, {later, true}} {
		if len(batch.ids) == 0 {
			continue
		}
		err := n.publish(ctx, Message{
			Kind:  KindPush,
			JobID: data.JobID,
			Push:  &Push{UserIDs: batch.ids, Data: payload, Messages: messages, Delayed: batch.delayed},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// SendPushToUsers queues a push to specific users.
func (n *Notifier) SendPushToUsers(ctx context.Context, push booking.Push) error {
	ids := make([]int64, 0, len(push.Users))
	for _, user := range push.Users {
		ids = append(ids, user.ID)
	}
	if len(ids) == 0 {
		return nil
	}

	return n.publish(ctx, Message{
		Kind:  KindPush,
		JobID: push.JobID,
		Push:  &Push{UserIDs: ids, Data: push.Data, Messages: push.Messages, Delayed: push.Delayed},
	})
}

// SendSMSToTranslators texts the recipients that have a phone number.
func (n *Notifier) SendSMSToTranslators(ctx context.Context, data booking.JobData, recipients []domain.User) error {
	phones := make([]string, 0, len(recipients))
	for _, user := range recipients {
		if user.Phone != "" {
			phones = append(phones, user.Phone)
		}
	}
	if len(phones) == 0 {
		n.logger.Debug("No SMS recipients with a phone number", slog.Int64("job_id", data.JobID))
		return nil
	}

	return n.publish(ctx, Message{
		Kind:  KindSMS,
		JobID: data.JobID,
		SMS:   &SMS{Phones: phones, Text: jobSMSText(data)},
	})
}

// IsPushEnabled reports whether the user accepts push notifications.
func (n *Notifier) IsPushEnabled(ctx context.Context, userID int64) (bool, error) {
	user, err := n.users.GetUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load push settings: %w", err)
	}
	return !user.NotGetNotification, nil
}

// IsPushDelayed reports whether a push to the user must wait for the night
// window to end.
func (n *Notifier) IsPushDelayed(ctx context.Context, userID int64) (bool, error) {
	user, err := n.users.GetUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load push settings: %w", err)
	}
	return user.NotGetNighttime && n.policy.IsNight(n.clock.Now()), nil
}

func jobPayload(data booking.JobData) map[string]any {
	raw, err := json.Marshal(data)
	if err != nil {
		return map[string]any{"job_id": data.JobID, "notification_type": string(data.NotificationType)}
	}
	payload := map[string]any{}
	_ = json.Unmarshal(raw, &payload)
	return payload
}

func jobPushText(data booking.JobData) string {
	duration := domain.FormatDuration(data.Duration)
	if data.Immediate {
		return fmt.Sprintf("New emergency booking for a %s interpreter, %s", data.Language, duration)
	}
	return fmt.Sprintf("New booking for a %s interpreter, %s, %s %s", data.Language, duration, data.DueDate, data.DueTime)
}

func jobSMSText(data booking.JobData) string {
	duration := domain.FormatDuration(data.Duration)
	if data.CustomerPhysicalType && !data.CustomerPhoneType {
		town := data.CustomerTown
		if town == "" {
			town = "the customer's address"
		}
		return fmt.Sprintf("New on-site interpreting job: %s, %s at %s in %s, %s. Log in to accept the job.",
			data.Language, data.DueDate, data.DueTime, town, duration)
	}
	return fmt.Sprintf("New phone interpreting job: %s, %s at %s, %s. Log in to accept the job.",
		data.Language, data.DueDate, data.DueTime, duration)
}
