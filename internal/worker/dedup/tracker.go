// Package dedup remembers delivered notification messages in redis so a
// redelivered message is acknowledged without being sent twice.
package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "notification:delivered:"

// DefaultTTL is how long a delivered message id is remembered.
const DefaultTTL = 24 * time.Hour

type Tracker struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewTracker(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tracker{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (t *Tracker) key(messageID string) string {
	return keyPrefix + messageID
}

// HasDelivered reports whether messageID was marked delivered. A redis error
// is logged and reported as not delivered.
func (t *Tracker) HasDelivered(ctx context.Context, messageID string) bool {
	key := t.key(messageID)

	exists, err := t.client.Exists(ctx, key).Result()
	if err != nil {
		t.logger.Error("Redis error checking delivered message",
			slog.String("message_id", messageID),
			slog.String("redis_key", key),
			slog.Any("error", err),
		)
		return false
	}

	delivered := exists == 1
	t.logger.Debug("Checked delivered message",
		slog.String("message_id", messageID),
		slog.Bool("delivered", delivered),
	)
	return delivered
}

// MarkDelivered records messageID as delivered. It returns false when the id
// was already recorded by another worker.
func (t *Tracker) MarkDelivered(ctx context.Context, messageID string) (bool, error) {
	key := t.key(messageID)

	ok, err := t.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), t.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark message %s delivered: %w", messageID, err)
	}

	t.logger.Debug("Marked message delivered",
		slog.String("message_id", messageID),
		slog.Duration("ttl", t.ttl),
		slog.Bool("first", ok),
	)
	return ok, nil
}

// Clear forgets messageID so it can be delivered again.
func (t *Tracker) Clear(ctx context.Context, messageID string) error {
	if err := t.client.Del(ctx, t.key(messageID)).Err(); err != nil {
		return fmt.Errorf("clear message %s: %w", messageID, err)
	}
	return nil
}
