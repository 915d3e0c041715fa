package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/cuongbtq/booking-service/internal/booking/domain"
	"github.com/cuongbtq/booking-service/internal/clock"
)

// AssignmentManager maintains the append-only translator history of jobs.
type AssignmentManager struct {
	clock clock.Clock
}

// NewAssignmentManager creates an AssignmentManager.
func NewAssignmentManager(clk clock.Clock) *AssignmentManager {
	return &AssignmentManager{clock: clk}
}

// TranslatorRequest names the translator an admin wants on a job.
// Email takes precedence over ID.
type TranslatorRequest struct {
	TranslatorID    int64
	TranslatorEmail string
}

// TranslatorChange is the outcome of ChangeTranslator.
type TranslatorChange struct {
	Changed    bool
	Previous   *domain.Assignment
	Assignment *domain.Assignment
	OldUser    *domain.User
	NewUser    *domain.User
	Log        *domain.TranslatorChangeLog
}

// Current returns the active assignment of a job, falling back to the most
// recently completed one. It returns nil when the job has neither.
func (m *AssignmentManager) Current(ctx context.Context, store AssignmentStore, jobID int64) (*domain.Assignment, error) {
	a, err := store.ActiveAssignment(ctx, jobID)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to load active assignment: %w", err)
	}

	a, err = store.LatestCompletedAssignment(ctx, jobID)
	if err == nil {
		return a, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return nil, fmt.Errorf("failed to load completed assignment: %w", err)
}

// CancelActive cancels the active assignment of a job and returns it, or nil if there was none.
func (m *AssignmentManager) CancelActive(ctx context.Context, store AssignmentStore, jobID int64) (*domain.Assignment, error) {
	a, err := store.ActiveAssignment(ctx, jobID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load active assignment: %w", err)
	}

	now := m.clock.Now()
	if err := store.CancelAssignment(ctx, a.ID, now); err != nil {
		return nil, fmt.Errorf("failed to cancel assignment %d: %w", a.ID, err)
	}
	a.CancelAt = &now
	return a, nil
}

// ChangeTranslator moves job to the requested translator. The current row is
// cancelled and a new one inserted; rows are never rewritten to another user.
func (m *AssignmentManager) ChangeTranslator(ctx context.Context, store Store, job *domain.Job, current *domain.Assignment, req TranslatorRequest) (TranslatorChange, error) {
	if req.TranslatorID == 0 && req.TranslatorEmail == "" {
		return TranslatorChange{}, nil
	}

	override := req.TranslatorEmail != ""
	var requested *domain.User
	var err error
	if override {
		requested, err = store.GetUserByEmail(ctx, req.TranslatorEmail)
		if err != nil {
			return TranslatorChange{}, fmt.Errorf("translator %q: %w", req.TranslatorEmail, err)
		}
	} else {
		requested, err = store.GetUser(ctx, req.TranslatorID)
		if err != nil {
			return TranslatorChange{}, fmt.Errorf("translator %d: %w", req.TranslatorID, err)
		}
	}
	if requested.Role != domain.RoleTranslator {
		return TranslatorChange{}, domain.NewValidationError("translator", "user is not a translator")
	}

	// A completed row is history, not something to supersede.
	if current != nil && !current.Active() {
		current = nil
	}

	if current != nil && current.UserID == requested.ID && !override {
		return TranslatorChange{}, nil
	}

	now := m.clock.Now()
	change := TranslatorChange{Changed: true, NewUser: requested}
	next := &domain.Assignment{
		UserID:       requested.ID,
		JobID:        job.ID,
		CreatedAt:    now,
		WillExpireAt: job.WillExpireAt,
	}

	if current != nil {
		if err := store.CancelAssignment(ctx, current.ID, now); err != nil {
			return TranslatorChange{}, fmt.Errorf("failed to cancel assignment %d: %w", current.ID, err)
		}
		current.CancelAt = &now
		next.WillExpireAt = current.WillExpireAt
		change.Previous = current

		old, err := store.GetUser(ctx, current.UserID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return TranslatorChange{}, fmt.Errorf("failed to load previous translator: %w", err)
		}
		change.OldUser = old
	}

	if err := store.CreateAssignment(ctx, next); err != nil {
		return TranslatorChange{}, fmt.Errorf("failed to create assignment: %w", err)
	}
	change.Assignment = next

	change.Log = &domain.TranslatorChangeLog{NewTranslator: requested.Email}
	if change.OldUser != nil {
		change.Log.OldTranslator = change.OldUser.Email
	}
	return change, nil
}

// Accept claims a pending job for translator. It must run inside a
// transaction; the job row lock, the overlap check, the insert and the
// status flip form one unit so that concurrent accepts yield one winner.
func (m *AssignmentManager) Accept(ctx context.Context, tx Store, jobID int64, translator *domain.User) (*domain.Job, *domain.Assignment, error) {
	job, err := tx.LockJob(ctx, jobID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load job %d: %w", jobID, err)
	}

	start, end := job.Window()
	conflict, err := tx.HasConflictingAssignment(ctx, translator.ID, job.ID, start, end)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check booking conflicts: %w", err)
	}
	if conflict {
		return job, nil, domain.ErrAlreadyBooked
	}

	if job.Status != domain.StatusPending {
		return job, nil, domain.ErrAlreadyAssigned
	}

	a := &domain.Assignment{
		UserID:       translator.ID,
		JobID:        job.ID,
		CreatedAt:    m.clock.Now(),
		WillExpireAt: job.WillExpireAt,
	}
	if err := tx.CreateAssignment(ctx, a); err != nil {
		return job, nil, fmt.Errorf("failed to create assignment: %w", err)
	}
	if err := tx.MarkAssigned(ctx, job.ID); err != nil {
		return job, nil, err
	}

	job.Status = domain.StatusAssigned
	return job, a, nil
}
