package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/booking-service/internal/booking/domain"
)

func ptr[T any](v T) *T { return &v }

func TestService_UpdateJobComposesChanges(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusAssigned, 72*time.Hour)
	f.assign(t, job.ID, translatorA)
	newDue := baseTime.Add(96 * time.Hour)

	res, err := f.svc.UpdateJob(ctx, job.ID, UpdateRequest{
		Due:            &newDue,
		FromLanguageID: langArabic,
		TranslatorID:   translatorB,
		Reference:      ptr("REF-1"),
	}, f.user(t, adminID))

	require.NoError(t, err)
	assert.Equal(t, "success", res.Message)
	assert.Empty(t, res.Warnings)

	stored := f.store.job(job.ID)
	assert.Equal(t, newDue, stored.Due)
	assert.Equal(t, baseTime.Add(48*time.Hour), stored.WillExpireAt)
	assert.Equal(t, langArabic, stored.FromLanguageID)
	assert.Equal(t, "REF-1", stored.Reference)
	assert.Equal(t, domain.StatusAssigned, stored.Status)

	active, err := f.store.ActiveAssignment(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, translatorB, active.UserID)

	require.Len(t, f.store.logs(), 1)
	log := f.store.logs()[0]
	assert.Equal(t, adminID, log.ActorID)
	assert.Equal(t, "Admin", log.ActorName)
	assert.Nil(t, log.Status)
	assert.Equal(t, &domain.TranslatorChangeLog{OldTranslator: "tove@example.com", NewTranslator: "bo@example.com"}, log.Translator)
	assert.Equal(t, &domain.DueChangeLog{OldDue: baseTime.Add(72 * time.Hour), NewDue: newDue}, log.Due)
	assert.Equal(t, &domain.LanguageChangeLog{OldLanguageID: langSwedish, NewLanguageID: langArabic}, log.Language)

	assert.ElementsMatch(t, []string{
		tmplDueChanged, tmplDueChanged,
		tmplTranslatorChanged, tmplTranslatorNew, tmplTranslatorOld,
		tmplLanguageChanged, tmplLanguageChanged,
	}, f.notifier.templates())
	assert.Len(t, f.notifier.emailsTo("tove@example.com"), 1)
	assert.Len(t, f.notifier.emailsTo("bo@example.com"), 3)
	assert.Equal(t, "Swedish", f.notifier.emailsTo("anna@example.com")[2].Data["old_language"])
}

func TestService_UpdateJobAssignsPendingJob(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusPending, 48*time.Hour)

	res, err := f.svc.UpdateJob(ctx, job.ID, UpdateRequest{
		Status:       domain.StatusAssigned,
		TranslatorID: translatorA,
	}, f.user(t, adminID))

	require.NoError(t, err)
	assert.Equal(t, domain.StatusAssigned, f.store.job(job.ID).Status)
	assert.Equal(t, &domain.StatusChangeLog{OldStatus: domain.StatusPending, NewStatus: domain.StatusAssigned}, res.Log.Status)
	assert.Equal(t, 1, f.store.activeCount(job.ID))

	assert.ElementsMatch(t, []string{tmplJobAccepted, tmplJobAssigned, tmplTranslatorChanged, tmplTranslatorNew}, f.notifier.templates())
	assert.Equal(t, []NotificationType{NotifySessionStartRemind, NotifySessionStartRemind}, f.notifier.pushKinds())
	assert.Len(t, f.recorder.transitions, 1)
}

func TestService_UpdateJobWithoutTranslatorKeepsPending(t *testing.T) {
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusPending, 48*time.Hour)

	res, err := f.svc.UpdateJob(context.Background(), job.ID, UpdateRequest{Status: domain.StatusAssigned}, f.user(t, adminID))

	require.NoError(t, err)
	assert.Equal(t, "success", res.Message)
	assert.Equal(t, domain.StatusPending, f.store.job(job.ID).Status)
	assert.True(t, res.Log.Empty())
	assert.Empty(t, f.store.logs())
	assert.Empty(t, f.notifier.emails)
}

func TestService_UpdateJobInThePastIsSilent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	job := f.seedJob(t, domain.StatusStarted, -2*time.Hour)
	f.assign(t, job.ID, translatorA)

	res, err := f.svc.UpdateJob(ctx, job.ID, UpdateRequest{
		Status:        domain.StatusCompleted,
		AdminComments: ptr("finished by phone"),
		SessionTime:   "1:15",
	}, f.user(t, adminID))

	require.NoError(t, err)
	assert.Equal(t, "Updated", res.Message)
	assert.Empty(t, f.notifier.emails)
	assert.Empty(t, f.notifier.pushes)

	stored := f.store.job(job.ID)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
	assert.Equal(t, "01:15:00", stored.SessionTime)
	assert.Equal(t, "finished by phone", stored.AdminComments)

	rows := f.store.assignmentsFor(job.ID)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].CompletedBy)
	assert.Equal(t, adminID, *rows[0].CompletedBy)
	require.Len(t, f.store.logs(), 1)
}

func TestService_UpdateJobRejects(t *testing.T) {
	tests := []struct {
		name    string
		actor   int64
		req     UpdateRequest
		wantErr error
		wantVal bool
	}{
		{
			name:    "customer",
			actor:   customerID,
			req:     UpdateRequest{Reference: ptr("x")},
			wantErr: domain.ErrForbidden,
		},
		{
			name:    "unknown translator email",
			actor:   adminID,
			req:     UpdateRequest{TranslatorEmail: "ghost@example.com", Reference: ptr("x")},
			wantErr: domain.ErrNotFound,
		},
		{
			name:    "unknown language",
			actor:   adminID,
			req:     UpdateRequest{FromLanguageID: 99, Reference: ptr("x")},
			wantErr: domain.ErrNotFound,
		},
		{
			name:    "unknown status",
			actor:   adminID,
			req:     UpdateRequest{Status: "archived", Reference: ptr("x")},
			wantVal: true,
		},
		{
			name:    "malformed session time",
			actor:   adminID,
			req:     UpdateRequest{Status: domain.StatusCompleted, AdminComments: ptr("c"), SessionTime: "soon"},
			wantVal: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			job := f.seedJob(t, domain.StatusStarted, time.Hour)
			f.assign(t, job.ID, translatorA)

			_, err := f.svc.UpdateJob(context.Background(), job.ID, tt.req, f.user(t, tt.actor))

			if tt.wantVal {
				assert.True(t, domain.IsValidation(err))
			} else {
				require.ErrorIs(t, err, tt.wantErr)
			}
			stored := f.store.job(job.ID)
			assert.Equal(t, domain.StatusStarted, stored.Status)
			assert.Empty(t, stored.Reference)
			assert.Equal(t, 1, f.store.activeCount(job.ID))
			assert.Empty(t, f.store.logs())
		})
	}
}

func TestService_DistanceFeed(t *testing.T) {
	ctx := context.Background()

	t.Run("flagging needs a comment", func(t *testing.T) {
		f := newFixture(t)
		job := f.seedJob(t, domain.StatusCompleted, -time.Hour)

		_, err := f.svc.DistanceFeed(ctx, DistanceFeedRequest{JobID: job.ID, Flagged: ptr(true)})

		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "admincomment", verr.Field)
		assert.Equal(t, "Please, add comment", verr.Message)
		assert.False(t, f.store.job(job.ID).Flagged)
	})

	t.Run("updates only provided fields", func(t *testing.T) {
		f := newFixture(t)
		job := f.seedJob(t, domain.StatusCompleted, -time.Hour, func(j *domain.Job) {
			j.ByAdmin = true
			j.SessionTime = "00:45:00"
		})
		f.clock.Advance(time.Minute)

		res, err := f.svc.DistanceFeed(ctx, DistanceFeedRequest{
			JobID:           job.ID,
			Distance:        "12 km",
			Time:            "20 min",
			AdminComment:    "checked",
			Flagged:         ptr(true),
			ManuallyHandled: ptr(true),
		})

		require.NoError(t, err)
		assert.Equal(t, "Record updated!", res.Message)
		assert.Equal(t, domain.Distance{JobID: job.ID, Distance: "12 km", Time: "20 min"}, f.store.data.distances[job.ID])

		stored := f.store.job(job.ID)
		assert.True(t, stored.Flagged)
		assert.True(t, stored.ManuallyHandled)
		assert.True(t, stored.ByAdmin)
		assert.Equal(t, "checked", stored.AdminComments)
		assert.Equal(t, "00:45:00", stored.SessionTime)
		assert.Equal(t, baseTime.Add(time.Minute), stored.UpdatedAt)
	})

	t.Run("distance only leaves the job untouched", func(t *testing.T) {
		f := newFixture(t)
		job := f.seedJob(t, domain.StatusCompleted, -time.Hour)
		f.clock.Advance(time.Minute)

		_, err := f.svc.DistanceFeed(ctx, DistanceFeedRequest{JobID: job.ID, Distance: "3 km"})

		require.NoError(t, err)
		assert.Equal(t, "3 km", f.store.data.distances[job.ID].Distance)
		assert.Equal(t, baseTime, f.store.job(job.ID).UpdatedAt)
	})

	t.Run("unknown job", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.DistanceFeed(ctx, DistanceFeedRequest{JobID: 42, Distance: "3 km"})
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}
