package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/cuongbtq/booking-service/internal/booking"
	"github.com/cuongbtq/booking-service/internal/booking/domain"
)

const jobSelect = `
	SELECT
		j.id, j.user_id, j.from_language_id, j.job_type, j.gender, j.certified,
		j.duration, j.immediate, j.customer_phone_type, j.customer_physical_type,
		j.status, j.due, j.created_at, j.updated_at, j.will_expire_at, j.end_at, j.withdraw_at,
		j.ignore, j.ignore_expired, j.ignore_feedback, j.flagged, j.manually_handled,
		j.by_admin, j.email_sent, j.cust_16_hour_email, j.cust_48_hour_email,
		j.admin_comments, j.reference, j.session_time, j.user_email,
		j.address, j.instructions, j.town
	FROM jobs j`

var jobFlagColumns = map[booking.JobFlag]string{
	booking.FlagIgnore:        "ignore",
	booking.FlagIgnoreExpired: "ignore_expired",
}

// CreateJob inserts every persisted column of a job and sets its ID.
func (s *Storage) CreateJob(ctx context.Context, job *domain.Job) error {
	query := `
		INSERT INTO jobs (
			user_id, from_language_id, job_type, gender, certified,
			duration, immediate, customer_phone_type, customer_physical_type,
			status, due, created_at, updated_at, will_expire_at, end_at, withdraw_at,
			ignore, ignore_expired, ignore_feedback, flagged, manually_handled,
			by_admin, email_sent, cust_16_hour_email, cust_48_hour_email,
			admin_comments, reference, session_time, user_email,
			address, instructions, town
		) VALUES (
			:user_id, :from_language_id, :job_type, :gender, :certified,
			:duration, :immediate, :customer_phone_type, :customer_physical_type,
			:status, :due, :created_at, :updated_at, :will_expire_at, :end_at, :withdraw_at,
			:ignore, :ignore_expired, :ignore_feedback, :flagged, :manually_handled,
			:by_admin, :email_sent, :cust_16_hour_email, :cust_48_hour_email,
			:admin_comments, :reference, :session_time, :user_email,
			:address, :instructions, :town
		)
		RETURNING id
	`

	rows, err := sqlx.NamedQueryContext(ctx, s.db, query, job)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to create job: %w", err)
		}
		return fmt.Errorf("failed to create job: no id returned")
	}
	if err := rows.Scan(&job.ID); err != nil {
		return fmt.Errorf("failed to scan job id: %w", err)
	}

	s.logger.Debug("Job created", slog.Int64("job_id", job.ID), slog.String("job_type", string(job.JobType)))
	return nil
}

// GetJob retrieves a job by ID
func (s *Storage) GetJob(ctx context.Context, id int64) (*domain.Job, error) {
	var job domain.Job
	if err := getOne(ctx, s.db, &job, "job", jobSelect+` WHERE j.id = $1`, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// LockJob reads a job with a row lock held until the transaction ends.
func (s *Storage) LockJob(ctx context.Context, id int64) (*domain.Job, error) {
	var job domain.Job
	if err := getOne(ctx, s.db, &job, "job", jobSelect+` WHERE j.id = $1 FOR UPDATE`, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateJob writes every mutable column of a job.
func (s *Storage) UpdateJob(ctx context.Context, job *domain.Job) error {
	query := `
		UPDATE jobs
		SET from_language_id = :from_language_id,
			job_type = :job_type,
			gender = :gender,
			certified = :certified,
			duration = :duration,
			immediate = :immediate,
			customer_phone_type = :customer_phone_type,
			customer_physical_type = :customer_physical_type,
			status = :status,
			due = :due,
			created_at = :created_at,
			updated_at = :updated_at,
			will_expire_at = :will_expire_at,
			end_at = :end_at,
			withdraw_at = :withdraw_at,
			ignore = :ignore,
			ignore_expired = :ignore_expired,
			ignore_feedback = :ignore_feedback,
			flagged = :flagged,
			manually_handled = :manually_handled,
			by_admin = :by_admin,
			email_sent = :email_sent,
			cust_16_hour_email = :cust_16_hour_email,
			cust_48_hour_email = :cust_48_hour_email,
			admin_comments = :admin_comments,
			reference = :reference,
			session_time = :session_time,
			user_email = :user_email,
			address = :address,
			instructions = :instructions,
			town = :town
		WHERE id = :id
	`

	query, args, err := sqlx.Named(query, job)
	if err != nil {
		return fmt.Errorf("failed to bind job update: %w", err)
	}
	query = s.db.Rebind(query)

	if err := s.execExpectOneRow(ctx, fmt.Errorf("job %d: %w", job.ID, domain.ErrNotFound), query, args...); err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	return nil
}

// MarkAssigned moves a pending job to assigned. Zero affected rows means
// another translator won the race.
func (s *Storage) MarkAssigned(ctx context.Context, jobID int64) error {
	query := `
		UPDATE jobs
		SET status = $1,
		    updated_at = NOW()
		WHERE id = $2
		  AND status = $3
	`

	err := s.execExpectOneRow(ctx, domain.ErrAlreadyAssigned, query, domain.StatusAssigned, jobID, domain.StatusPending)
	if err != nil {
		s.logger.Warn("Failed to mark job assigned",
			slog.Int64("job_id", jobID),
			slog.Any("error", err),
		)
		return fmt.Errorf("failed to mark job assigned: %w", err)
	}
	return nil
}

// SetJobFlag toggles one of the admin queue flags.
func (s *Storage) SetJobFlag(ctx context.Context, jobID int64, flag booking.JobFlag, value bool) error {
	column, ok := jobFlagColumns[flag]
	if !ok {
		return fmt.Errorf("unknown job flag %q", flag)
	}

	query := fmt.Sprintf(`UPDATE jobs SET %s = $1, updated_at = NOW() WHERE id = $2`, column)
	if err := s.execExpectOneRow(ctx, domain.ErrNotFound, query, value, jobID); err != nil {
		return fmt.Errorf("failed to set %s on job %d: %w", column, jobID, err)
	}
	return nil
}

func (s *Storage) selectJobs(ctx context.Context, what, query string, args ...any) ([]domain.Job, error) {
	jobs := []domain.Job{}
	if err := sqlx.SelectContext(ctx, s.db, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", what, err)
	}
	return jobs, nil
}

// pageJobs counts the rows matching where and returns one page of them.
func (s *Storage) pageJobs(ctx context.Context, what string, where *whereBuilder, orderBy string, page, perPage int) ([]domain.Job, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM jobs j` + where.String()
	if err := sqlx.GetContext(ctx, s.db, &total, countQuery, where.args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count %s: %w", what, err)
	}

	n := where.next()
	query := jobSelect + where.String() + ` ORDER BY ` + orderBy + fmt.Sprintf(` LIMIT $%d OFFSET $%d`, n, n+1)
	args := append(append([]any{}, where.args...), perPage, offset(page, perPage))

	jobs, err := s.selectJobs(ctx, what, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

// ListCustomerJobs lists a customer's jobs in the given statuses by due time.
func (s *Storage) ListCustomerJobs(ctx context.Context, userID int64, statuses []domain.Status) ([]domain.Job, error) {
	return s.selectJobs(ctx, "customer jobs",
		jobSelect+` WHERE j.user_id = $1 AND j.status = ANY($2) ORDER BY j.due, j.id`,
		userID, pq.Array(statusStrings(statuses)))
}

// ListTranslatorJobs lists the jobs a translator currently holds.
func (s *Storage) ListTranslatorJobs(ctx context.Context, translatorID int64) ([]domain.Job, error) {
	return s.selectJobs(ctx, "translator jobs",
		jobSelect+` JOIN translator_job_rel r ON r.job_id = j.id
		WHERE r.user_id = $1 AND r.cancel_at IS NULL AND r.completed_at IS NULL
		  AND j.status IN ('assigned', 'started')
		ORDER BY j.id`,
		translatorID)
}

// JobHistory pages through finished jobs, newest due first.
func (s *Storage) JobHistory(ctx context.Context, q booking.HistoryQuery, page, perPage int) ([]domain.Job, int, error) {
	where := &whereBuilder{}
	if q.AsTranslator {
		where.add(`EXISTS (SELECT 1 FROM translator_job_rel r
			WHERE r.job_id = j.id AND r.user_id = $%d AND r.cancel_at IS NULL)`, q.UserID)
	} else {
		where.add("j.user_id = $%d", q.UserID)
	}
	where.add("j.status = ANY($%d)", pq.Array(statusStrings(q.Statuses)))

	return s.pageJobs(ctx, "job history", where, "j.due DESC, j.id", page, perPage)
}

// ListPendingJobs lists pending jobs of a type in any of the languages.
func (s *Storage) ListPendingJobs(ctx context.Context, jobType domain.JobType, languageIDs []int64) ([]domain.Job, error) {
	return s.selectJobs(ctx, "pending jobs",
		jobSelect+` WHERE j.status = $1 AND j.job_type = $2 AND j.from_language_id = ANY($3) ORDER BY j.id`,
		domain.StatusPending, jobType, pq.Array(languageIDs))
}

// ListPendingByExpiry pages the admin expiring or expired queue.
func (s *Storage) ListPendingByExpiry(ctx context.Context, q booking.ExpiryQuery, page, perPage int) ([]domain.Job, int, error) {
	where := &whereBuilder{}
	where.add("j.status = $%d", domain.StatusPending)
	if q.Expired {
		where.raw("NOT j.ignore_expired")
		where.add("j.will_expire_at < $%d", q.Now)
		where.add("j.due >= $%d", q.Now)
	} else {
		where.raw("NOT j.ignore")
		where.add("j.will_expire_at >= $%d", q.Now)
	}

	return s.pageJobs(ctx, "jobs by expiry", where, "j.will_expire_at, j.id", page, perPage)
}

// sessionOverrun holds for jobs whose "HH:MM:SS" session lasted at least
// twice the booked duration.
const sessionOverrun = `CASE WHEN j.session_time ~ '^[0-9]+:[0-9]{2}:[0-9]{2}$'
		THEN EXTRACT(EPOCH FROM j.session_time::interval) / 60 >= j.duration * 2
		ELSE FALSE END`

// ListSessionAlerts pages jobs whose session overran, newest first.
func (s *Storage) ListSessionAlerts(ctx context.Context, page, perPage int) ([]domain.Job, int, error) {
	where := &whereBuilder{}
	where.raw("NOT j.ignore")
	where.raw(sessionOverrun)

	return s.pageJobs(ctx, "session alerts", where, "j.created_at DESC, j.id DESC", page, perPage)
}

// ListJobs pages the admin job search, newest first.
func (s *Storage) ListJobs(ctx context.Context, f booking.JobFilter, page, perPage int) ([]domain.Job, int, error) {
	return s.pageJobs(ctx, "jobs", jobFilterWhere(f), "j.created_at DESC, j.id DESC", page, perPage)
}

// UpsertDistance stores the travel record of a job.
func (s *Storage) UpsertDistance(ctx context.Context, d domain.Distance) error {
	query := `
		INSERT INTO distances (job_id, distance, time)
		VALUES ($1, $2, $3)
		ON CONFLICT (job_id) DO UPDATE
		SET distance = EXCLUDED.distance,
		    time = EXCLUDED.time
	`

	if _, err := s.db.ExecContext(ctx, query, d.JobID, d.Distance, d.Time); err != nil {
		return fmt.Errorf("failed to upsert distance: %w", err)
	}
	return nil
}

type changeSet struct {
	Status     *domain.StatusChangeLog     `json:"status,omitempty"`
	Translator *domain.TranslatorChangeLog `json:"translator,omitempty"`
	Due        *domain.DueChangeLog        `json:"due,omitempty"`
	Language   *domain.LanguageChangeLog   `json:"language,omitempty"`
}

// SaveChangeLog appends an audit record with its changes as JSONB.
func (s *Storage) SaveChangeLog(ctx context.Context, log *domain.ChangeLog) error {
	changes, err := json.Marshal(changeSet{
		Status:     log.Status,
		Translator: log.Translator,
		Due:        log.Due,
		Language:   log.Language,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal changes: %w", err)
	}

	query := `
		INSERT INTO job_change_logs (job_id, actor_id, actor_name, changes, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.db.ExecContext(ctx, query, log.JobID, log.ActorID, log.ActorName, changes, log.CreatedAt); err != nil {
		return fmt.Errorf("failed to save change log: %w", err)
	}
	return nil
}
