package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/booking-service/internal/booking/domain"
)

func validBooking() BookingRequest {
	return BookingRequest{
		FromLanguageID:    langSwedish,
		DueDate:           "03/05/2026",
		DueTime:           "10:00",
		CustomerPhoneType: true,
		Duration:          90,
	}
}

func TestService_CreateBookingValidation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*BookingRequest)
		wantField string
		wantMsg   string
	}{
		{
			name:      "missing language",
			mutate:    func(r *BookingRequest) { r.FromLanguageID = 0 },
			wantField: "from_language_id",
			wantMsg:   "All fields must be filled in",
		},
		{
			name:      "missing due date",
			mutate:    func(r *BookingRequest) { r.DueDate = " " },
			wantField: "due_date",
			wantMsg:   "All fields must be filled in",
		},
		{
			name:      "missing due time",
			mutate:    func(r *BookingRequest) { r.DueTime = "" },
			wantField: "due_time",
			wantMsg:   "All fields must be filled in",
		},
		{
			name:      "no meeting type",
			mutate:    func(r *BookingRequest) { r.CustomerPhoneType = false },
			wantField: "customer_phone_type",
			wantMsg:   "You must make a choice here",
		},
		{
			name:      "missing duration",
			mutate:    func(r *BookingRequest) { r.Duration = 0 },
			wantField: "duration",
			wantMsg:   "All fields must be filled in",
		},
		{
			name: "immediate booking still needs a duration",
			mutate: func(r *BookingRequest) {
				r.Immediate = true
				r.DueDate, r.DueTime, r.Duration = "", "", 0
			},
			wantField: "duration",
			wantMsg:   "All fields must be filled in",
		},
		{
			name:      "unparsable due",
			mutate:    func(r *BookingRequest) { r.DueDate = "2026-03-05" },
			wantField: "due_date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := validBooking()
			tt.mutate(&req)

			_, err := f.svc.CreateBooking(context.Background(), f.user(t, customerID), req)

			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, verr.Message)
			}
			assert.Zero(t, f.store.jobCount())
		})
	}
}

func TestService_CreateBooking(t *testing.T) {
	tests := []struct {
		name     string
		customer int64
		mutate   func(*BookingRequest)
		check    func(t *testing.T, job *domain.Job)
	}{
		{
			name:     "scheduled booking",
			customer: customerID,
			check: func(t *testing.T, job *domain.Job) {
				due := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
				assert.Equal(t, due, job.Due)
				assert.Equal(t, domain.StatusPending, job.Status)
				assert.Equal(t, domain.JobTypePaid, job.JobType)
				assert.Equal(t, domain.DefaultExpiryPolicy().WillExpireAt(due, baseTime), job.WillExpireAt)
				assert.False(t, job.Immediate)
			},
		},
		{
			name:     "immediate booking is due shortly and by phone",
			customer: customerID,
			mutate: func(r *BookingRequest) {
				r.Immediate = true
				r.DueDate, r.DueTime = "", ""
				r.CustomerPhoneType, r.CustomerPhysicalType = false, true
			},
			check: func(t *testing.T, job *domain.Job) {
				assert.Equal(t, baseTime.Add(5*time.Minute), job.Due)
				assert.True(t, job.Immediate)
				assert.True(t, job.CustomerPhoneType)
				assert.Equal(t, baseTime.Add(90*time.Minute), job.WillExpireAt)
			},
		},
		{
			name:     "job_for selection becomes the requirement",
			customer: customerID,
			mutate: func(r *BookingRequest) {
				r.JobFor = []string{domain.JobForFemale, domain.JobForNormal, domain.JobForCertifiedLaw}
			},
			check: func(t *testing.T, job *domain.Job) {
				assert.Equal(t, domain.GenderFemale, job.Gender)
				assert.Equal(t, domain.CertNormalLaw, job.Certification)
			},
		},
		{
			name:     "ngo customers book unpaid jobs",
			customer: otherCustomerID,
			check: func(t *testing.T, job *domain.Job) {
				assert.Equal(t, domain.JobTypeUnpaid, job.JobType)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := validBooking()
			if tt.mutate != nil {
				tt.mutate(&req)
			}

			res, err := f.svc.CreateBooking(context.Background(), f.user(t, tt.customer), req)

			require.NoError(t, err)
			assert.Equal(t, "success", res.Message)
			stored := f.store.job(res.Job.ID)
			assert.Equal(t, tt.customer, stored.UserID)
			tt.check(t, &stored)
			assert.Equal(t, 1, f.recorder.created)
		})
	}
}

func TestService_CreateBookingRejects(t *testing.T) {
	t.Run("translators cannot book", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.CreateBooking(context.Background(), f.user(t, translatorA), validBooking())
		require.ErrorIs(t, err, domain.ErrForbidden)
		assert.Zero(t, f.store.jobCount())
	})

	t.Run("due date in the past", func(t *testing.T) {
		f := newFixture(t)
		req := validBooking()
		req.DueDate = "03/01/2026"
		_, err := f.svc.CreateBooking(context.Background(), f.user(t, customerID), req)
		require.ErrorIs(t, err, domain.ErrPastDueDate)
		assert.Zero(t, f.store.jobCount())
	})
}

func TestService_AcceptJob(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusPending, 48*time.Hour)
	other := f.seedJob(t, domain.StatusPending, 72*time.Hour)

	res, err := f.svc.AcceptJob(ctx, job.ID, f.user(t, translatorA))

	require.NoError(t, err)
	assert.Equal(t, domain.StatusAssigned, res.Job.Status)
	assert.Contains(t, res.Message, "You have now accepted and received the booking for Swedish interpreter")
	assert.Equal(t, []int64{other.ID}, jobIDs(res.Jobs))
	assert.Empty(t, res.Warnings)

	assert.Equal(t, []string{tmplJobAccepted}, f.notifier.templates())
	assert.Len(t, f.notifier.emailsTo("anna@example.com"), 1)
	assert.Equal(t, []NotificationType{NotifyJobAccepted}, f.notifier.pushKinds())
	assert.Equal(t, []string{"success"}, f.recorder.outcomes)
}

func TestService_AcceptJobRespectsPushSettings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.notifier.noPush[customerID] = true
	job := f.seedJob(t, domain.StatusPending, 48*time.Hour)

	_, err := f.svc.AcceptJobWithID(ctx, job.ID, f.user(t, translatorA))

	require.NoError(t, err)
	assert.Equal(t, []string{tmplJobAccepted}, f.notifier.templates())
	assert.Empty(t, f.notifier.pushes)
}

func TestService_AcceptJobFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusAssigned, 48*time.Hour)

	_, err := f.svc.AcceptJobWithID(ctx, job.ID, f.user(t, translatorA))
	require.ErrorIs(t, err, domain.ErrAlreadyAssigned)

	_, err = f.svc.AcceptJobWithID(ctx, 999, f.user(t, translatorA))
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.AcceptJobWithID(ctx, job.ID, f.user(t, customerID))
	require.ErrorIs(t, err, domain.ErrForbidden)

	assert.Equal(t, []string{"already_assigned", "not_found"}, f.recorder.outcomes)
	assert.Empty(t, f.notifier.emails)
}

func TestService_NotificationFailureKeepsChange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.notifier.failEmail = errors.New("smtp down")
	job := f.seedJob(t, domain.StatusPending, 48*time.Hour)

	res, err := f.svc.AcceptJobWithID(ctx, job.ID, f.user(t, translatorA))

	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "smtp down")
	assert.Equal(t, domain.StatusAssigned, f.store.job(job.ID).Status)
	assert.Equal(t, 1, f.store.activeCount(job.ID))
	assert.Equal(t, []NotificationType{NotifyJobAccepted}, f.notifier.pushKinds())
	assert.Equal(t, []string{"email:" + tmplJobAccepted}, f.recorder.failures)
}
