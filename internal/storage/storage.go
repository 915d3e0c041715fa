package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/cuongbtq/booking-service/internal/booking"
	"github.com/cuongbtq/booking-service/internal/booking/domain"
	"github.com/cuongbtq/booking-service/shared/postgresql"
)

const uniqueViolation = "23505"

var _ booking.Store = (*Storage)(nil)

// Storage is the PostgreSQL implementation of booking.Store.
type Storage struct {
	db     sqlx.ExtContext
	pg     *postgresql.Client // nil inside a transaction
	logger *slog.Logger
}

// NewStorage creates a Storage on top of a connected client.
func NewStorage(pg *postgresql.Client, logger *slog.Logger) *Storage {
	return &Storage{
		db:     pg.GetDB(),
		pg:     pg,
		logger: logger,
	}
}

// WithinTx runs fn in a transaction. Nested calls reuse the outer one.
func (s *Storage) WithinTx(ctx context.Context, fn func(tx booking.Store) error) error {
	if s.pg == nil {
		return fn(s)
	}
	return s.pg.WithTx(ctx, func(tx *sqlx.Tx) error {
		return fn(&Storage{db: tx, logger: s.logger})
	})
}

func getOne(ctx context.Context, q sqlx.QueryerContext, dest any, what, query string, args ...any) error {
	err := sqlx.GetContext(ctx, q, dest, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", what, err)
	}
	return nil
}

// execExpectOneRow runs an UPDATE and returns notFound when it touched no row.
func (s *Storage) execExpectOneRow(ctx context.Context, notFound error, query string, args ...any) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func offset(page, perPage int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * perPage
}

func statusStrings(statuses []domain.Status) []string {
	out := make([]string, len(statuses))
	for i, st := range statuses {
		out[i] = string(st)
	}
	return out
}

func jobTypeStrings(types []domain.JobType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}
