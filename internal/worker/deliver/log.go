package deliver

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/booking-service/internal/booking"
	"github.com/cuongbtq/booking-service/internal/notification"
	"github.com/cuongbtq/booking-service/internal/worker/domain"
)

// LogSender writes every message to the log instead of a provider. It is the
// sender used until real email, push and SMS providers are configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendEmail(ctx context.Context, email booking.Email) error {
	if err := ctx.Err(); err != nil {
		return domain.NewRetryableError(err)
	}
	s.logger.Info("Email delivered",
		slog.String("to", email.To),
		slog.String("subject", email.Subject),
		slog.String("template", email.Template),
	)
	return nil
}

func (s *LogSender) SendPush(ctx context.Context, jobID int64, push notification.Push) error {
	if err := ctx.Err(); err != nil {
		return domain.NewRetryableError(err)
	}
	s.logger.Info("Push delivered",
		slog.Int64("job_id", jobID),
		slog.Int("recipients", len(push.UserIDs)),
		slog.Bool("delayed", push.Delayed),
		slog.String("message", push.Messages["en"]),
	)
	return nil
}

func (s *LogSender) SendSMS(ctx context.Context, sms notification.SMS) error {
	if err := ctx.Err(); err != nil {
		return domain.NewRetryableError(err)
	}
	s.logger.Info("SMS delivered",
		slog.Int("recipients", len(sms.Phones)),
		slog.String("text", sms.Text),
	)
	return nil
}
