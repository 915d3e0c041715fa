package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/booking-service/internal/booking/domain"
)

const userSelect = `
	SELECT
		u.id, u.name, u.email, u.phone, u.role,
		COALESCE(m.consumer_type, '') AS consumer_type,
		COALESCE(m.customer_type, '') AS customer_type,
		COALESCE(m.translator_type, '') AS translator_type,
		COALESCE(m.translator_level, '') AS translator_level,
		COALESCE(m.gender, '') AS gender,
		COALESCE(m.city, '') AS city,
		COALESCE(m.address, '') AS address,
		COALESCE(m.instructions, '') AS instructions,
		COALESCE(m.not_get_notification, FALSE) AS not_get_notification,
		COALESCE(m.not_get_nighttime, FALSE) AS not_get_nighttime,
		COALESCE(m.not_get_emergency, FALSE) AS not_get_emergency
	FROM users u
	LEFT JOIN user_meta m ON m.user_id = u.id`

// GetUser returns a user joined with its meta.
func (s *Storage) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	if err := getOne(ctx, s.db, &u, "user", userSelect+` WHERE u.id = $1`, id); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByEmail returns a user by email.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	if err := getOne(ctx, s.db, &u, "user", userSelect+` WHERE u.email = $1`, email); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListTranslators lists translators of a type who speak the language.
func (s *Storage) ListTranslators(ctx context.Context, translatorType domain.TranslatorType, languageID int64) ([]domain.User, error) {
	query := userSelect + `
		WHERE u.role = $1
		  AND m.translator_type = $2
		  AND EXISTS (SELECT 1 FROM user_languages ul WHERE ul.user_id = u.id AND ul.language_id = $3)
		ORDER BY u.id
	`

	users := []domain.User{}
	if err := sqlx.SelectContext(ctx, s.db, &users, query, domain.RoleTranslator, translatorType, languageID); err != nil {
		return nil, fmt.Errorf("failed to list translators: %w", err)
	}
	return users, nil
}

func (s *Storage) selectIDs(ctx context.Context, what, query string, arg int64) ([]int64, error) {
	ids := []int64{}
	if err := sqlx.SelectContext(ctx, s.db, &ids, query, arg); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", what, err)
	}
	return ids, nil
}

// UserLanguageIDs lists the languages a user speaks.
func (s *Storage) UserLanguageIDs(ctx context.Context, userID int64) ([]int64, error) {
	return s.selectIDs(ctx, "user languages",
		`SELECT language_id FROM user_languages WHERE user_id = $1 ORDER BY language_id`, userID)
}

// UserTownIDs lists the towns a user serves.
func (s *Storage) UserTownIDs(ctx context.Context, userID int64) ([]int64, error) {
	return s.selectIDs(ctx, "user towns",
		`SELECT town_id FROM user_towns WHERE user_id = $1 ORDER BY town_id`, userID)
}

// BlacklistedTranslators lists translators a customer has blocked.
func (s *Storage) BlacklistedTranslators(ctx context.Context, customerID int64) ([]int64, error) {
	return s.selectIDs(ctx, "blacklisted translators",
		`SELECT translator_id FROM users_blacklist WHERE user_id = $1 ORDER BY translator_id`, customerID)
}

// CustomersBlacklisting lists customers who have blocked the translator.
func (s *Storage) CustomersBlacklisting(ctx context.Context, translatorID int64) ([]int64, error) {
	return s.selectIDs(ctx, "blacklisting customers",
		`SELECT user_id FROM users_blacklist WHERE translator_id = $1 ORDER BY user_id`, translatorID)
}

// GetLanguage returns a language by ID
func (s *Storage) GetLanguage(ctx context.Context, id int64) (*domain.Language, error) {
	var l domain.Language
	if err := getOne(ctx, s.db, &l, "language", `SELECT id, language, active FROM languages WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &l, nil
}

// ListThrottles pages the throttle records that are not ignored.
func (s *Storage) ListThrottles(ctx context.Context, page, perPage int) ([]domain.Throttle, int, error) {
	var total int
	if err := sqlx.GetContext(ctx, s.db, &total, `SELECT COUNT(*) FROM throttles WHERE NOT ignore`); err != nil {
		return nil, 0, fmt.Errorf("failed to count throttles: %w", err)
	}

	query := `
		SELECT id, user_id, ip, ignore, created_at
		FROM throttles
		WHERE NOT ignore
		ORDER BY id
		LIMIT $1 OFFSET $2
	`
	throttles := []domain.Throttle{}
	if err := sqlx.SelectContext(ctx, s.db, &throttles, query, perPage, offset(page, perPage)); err != nil {
		return nil, 0, fmt.Errorf("failed to list throttles: %w", err)
	}
	return throttles, total, nil
}

// IgnoreThrottle hides a throttle record from the admin list.
func (s *Storage) IgnoreThrottle(ctx context.Context, id int64) error {
	if err := s.execExpectOneRow(ctx, domain.ErrNotFound, `UPDATE throttles SET ignore = TRUE WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to ignore throttle %d: %w", id, err)
	}
	return nil
}
