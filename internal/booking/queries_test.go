package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/booking-service/internal/booking/domain"
)

func TestService_ListUserJobs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	urgent := f.seedJob(t, domain.StatusPending, 5*time.Minute, func(j *domain.Job) { j.Immediate = true })
	later := f.seedJob(t, domain.StatusAssigned, 72*time.Hour)
	sooner := f.seedJob(t, domain.StatusPending, 48*time.Hour)
	f.seedJob(t, domain.StatusCompleted, -time.Hour)
	f.seedJob(t, domain.StatusPending, 24*time.Hour, func(j *domain.Job) { j.UserID = otherCustomerID })
	f.assign(t, later.ID, translatorA)

	jobs, err := f.svc.ListUserJobs(ctx, f.user(t, customerID))
	require.NoError(t, err)
	assert.Equal(t, []int64{urgent.ID}, jobIDs(jobs.Emergency))
	assert.Equal(t, []int64{sooner.ID, later.ID}, jobIDs(jobs.Normal))

	jobs, err = f.svc.ListUserJobs(ctx, f.user(t, translatorA))
	require.NoError(t, err)
	assert.Empty(t, jobs.Emergency)
	assert.Equal(t, []int64{later.ID}, jobIDs(jobs.Normal))

	jobs, err = f.svc.ListUserJobs(ctx, f.user(t, adminID))
	require.NoError(t, err)
	assert.Empty(t, jobs.Emergency)
	assert.Empty(t, jobs.Normal)
}

func TestService_JobHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for i := range 17 {
		status := domain.HistoryStatuses[i%len(domain.HistoryStatuses)]
		job := f.seedJob(t, status, -time.Duration(i+1)*time.Hour)
		if i < 3 {
			f.assign(t, job.ID, translatorB)
		}
	}
	f.seedJob(t, domain.StatusPending, 48*time.Hour)

	page, err := f.svc.JobHistory(ctx, f.user(t, customerID), 2)
	require.NoError(t, err)
	assert.Equal(t, 17, page.Total)
	assert.Equal(t, 2, page.LastPage)
	assert.Equal(t, 15, page.PerPage)
	require.Len(t, page.Items, 2)
	assert.Equal(t, baseTime.Add(-16*time.Hour), page.Items[0].Due)
	assert.Equal(t, baseTime.Add(-17*time.Hour), page.Items[1].Due)

	page, err = f.svc.JobHistory(ctx, f.user(t, customerID), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Len(t, page.Items, 15)
	assert.Equal(t, baseTime.Add(-time.Hour), page.Items[0].Due)

	page, err = f.svc.JobHistory(ctx, f.user(t, translatorB), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 1, page.LastPage)
}

func TestService_ExpiryQueues(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	expiresAt := func(d time.Duration) func(*domain.Job) {
		return func(j *domain.Job) { j.WillExpireAt = baseTime.Add(d) }
	}

	late := f.seedJob(t, domain.StatusPending, 96*time.Hour, expiresAt(48*time.Hour))
	soon := f.seedJob(t, domain.StatusPending, 48*time.Hour, expiresAt(time.Hour))
	expired := f.seedJob(t, domain.StatusPending, 24*time.Hour, expiresAt(-time.Hour))
	f.seedJob(t, domain.StatusPending, -time.Hour, expiresAt(-2*time.Hour))
	f.seedJob(t, domain.StatusAssigned, 48*time.Hour, expiresAt(2*time.Hour))

	page, err := f.svc.ListExpiring(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{soon.ID, late.ID}, jobIDs(page.Items))

	page, err = f.svc.ListExpired(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{expired.ID}, jobIDs(page.Items))

	require.NoError(t, f.svc.IgnoreExpiring(ctx, soon.ID))
	require.NoError(t, f.svc.IgnoreExpired(ctx, expired.ID))

	page, err = f.svc.ListExpiring(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{late.ID}, jobIDs(page.Items))

	page, err = f.svc.ListExpired(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	assert.ErrorIs(t, f.svc.IgnoreExpiring(ctx, 404), domain.ErrNotFound)
}

func TestService_ListAlerts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	session := func(st string, createdAgo time.Duration) func(*domain.Job) {
		return func(j *domain.Job) {
			j.SessionTime = st
			j.CreatedAt = baseTime.Add(-createdAgo)
		}
	}

	older := f.seedJob(t, domain.StatusCompleted, -48*time.Hour, session("02:00:00", 72*time.Hour))
	newer := f.seedJob(t, domain.StatusCompleted, -24*time.Hour, session("03:30:00", 48*time.Hour))
	f.seedJob(t, domain.StatusCompleted, -24*time.Hour, session("01:10:00", 48*time.Hour))
	f.seedJob(t, domain.StatusPending, 48*time.Hour)

	page, err := f.svc.ListAlerts(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{newer.ID, older.ID}, jobIDs(page.Items))
	assert.Equal(t, 2, page.Total)

	require.NoError(t, f.svc.IgnoreExpiring(ctx, newer.ID))

	page, err = f.svc.ListAlerts(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{older.ID}, jobIDs(page.Items))
}

func TestService_Throttles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.addThrottle(domain.Throttle{ID: 1, UserID: customerID, IP: "10.0.0.1", CreatedAt: baseTime})
	f.store.addThrottle(domain.Throttle{ID: 2, UserID: translatorA, IP: "10.0.0.2", CreatedAt: baseTime})

	page, err := f.svc.ListThrottles(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	require.NoError(t, f.svc.IgnoreThrottle(ctx, 1))
	page, err = f.svc.ListThrottles(ctx, 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(2), page.Items[0].ID)

	assert.ErrorIs(t, f.svc.IgnoreThrottle(ctx, 9), domain.ErrNotFound)
}

func TestService_ConfirmBooking(t *testing.T) {
	tests := []struct {
		name      string
		details   ContactDetails
		wantTo    string
		wantAddr  string
		wantInstr string
		wantTown  string
	}{
		{
			name:      "empty address fields fall back to the profile",
			details:   ContactDetails{Address: ptr(""), Reference: "PO-7"},
			wantTo:    "anna@example.com",
			wantAddr:  "Storgatan 1",
			wantInstr: "Ring the bell",
			wantTown:  "Uppsala",
		},
		{
			name:      "provided address wins",
			details:   ContactDetails{Address: ptr("Kungsgatan 2"), Instructions: "Floor 3", Town: "Lund", UserEmail: "desk@example.com"},
			wantTo:    "desk@example.com",
			wantAddr:  "Kungsgatan 2",
			wantInstr: "Floor 3",
			wantTown:  "Lund",
		},
		{
			name:    "no address leaves the job as is",
			details: ContactDetails{},
			wantTo:  "anna@example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			job := f.seedJob(t, domain.StatusPending, 48*time.Hour)

			_, err := f.svc.ConfirmBooking(context.Background(), job.ID, f.user(t, customerID), tt.details)

			require.NoError(t, err)
			stored := f.store.job(job.ID)
			assert.Equal(t, tt.wantAddr, stored.Address)
			assert.Equal(t, tt.wantInstr, stored.Instructions)
			assert.Equal(t, tt.wantTown, stored.Town)
			assert.Equal(t, tt.details.Reference, stored.Reference)

			require.Len(t, f.notifier.emails, 1)
			assert.Equal(t, tt.wantTo, f.notifier.emails[0].To)
			assert.Equal(t, tmplJobCreated, f.notifier.emails[0].Template)
			require.Len(t, f.notifier.pushes, 1)
			assert.Equal(t, []int64{translatorA, translatorB, translatorD}, f.notifier.pushes[0].Recipients)
		})
	}
}

func TestService_ConfirmBookingOfAnotherCustomer(t *testing.T) {
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusPending, 48*time.Hour)

	_, err := f.svc.ConfirmBooking(context.Background(), job.ID, f.user(t, otherCustomerID), ContactDetails{Reference: "x"})

	require.ErrorIs(t, err, domain.ErrForbidden)
	assert.Empty(t, f.store.job(job.ID).Reference)
}

func TestService_Resend(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusPending, 48*time.Hour, func(j *domain.Job) { j.Gender = domain.GenderFemale })

	res, err := f.svc.ResendPush(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "Push sent", res.Message)
	require.Len(t, f.notifier.pushes, 1)
	assert.Equal(t, []int64{translatorA, translatorD}, f.notifier.pushes[0].Recipients)

	res, err = f.svc.ResendSMS(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "SMS sent", res.Message)
	require.Len(t, f.notifier.sms, 1)
	assert.Equal(t, []string{"Kvinna"}, f.notifier.sms[0].JobFor)

	_, err = f.svc.ResendPush(ctx, 404)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_PotentialTranslatorsAndJobs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusPending, 48*time.Hour, func(j *domain.Job) { j.Certification = domain.CertYes })

	translators, err := f.svc.PotentialTranslators(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{translatorA, translatorD}, userIDs(translators))

	jobs, err := f.svc.PotentialJobs(ctx, f.user(t, translatorB))
	require.NoError(t, err)
	assert.Empty(t, jobs)

	_, err = f.svc.PotentialJobs(ctx, f.user(t, customerID))
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestService_ListJobs(t *testing.T) {
	f := newFixture(t)
	a := f.seedJob(t, domain.StatusPending, 48*time.Hour)
	f.seedJob(t, domain.StatusCompleted, -time.Hour)
	c := f.seedJob(t, domain.StatusPending, 24*time.Hour, func(j *domain.Job) { j.FromLanguageID = langArabic })

	page, err := f.svc.ListJobs(context.Background(), JobFilter{Statuses: []domain.Status{domain.StatusPending}}, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID, c.ID}, jobIDs(page.Items))

	page, err = f.svc.ListJobs(context.Background(), JobFilter{LanguageIDs: []int64{langArabic}}, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{c.ID}, jobIDs(page.Items))
}
