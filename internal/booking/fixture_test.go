package booking

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cuongbtq/booking-service/internal/booking/domain"
	"github.com/cuongbtq/booking-service/internal/clock"
)

var _ Store = (*memStore)(nil)

type pushCall struct {
	Kind       NotificationType
	Recipients []int64
	Exclude    int64
	Delayed    bool
	Message    string
}

type fakeNotifier struct {
	mu        sync.Mutex
	emails    []Email
	pushes    []pushCall
	sms       []JobData
	failEmail error
	failPush  error
	noPush    map[int64]bool
	night     map[int64]bool
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{noPush: map[int64]bool{}, night: map[int64]bool{}}
}

func (f *fakeNotifier) SendEmail(_ context.Context, email Email) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failEmail != nil {
		return f.failEmail
	}
	f.emails = append(f.emails, email)
	return nil
}

func (f *fakeNotifier) SendPushToTranslators(_ context.Context, data JobData, recipients []domain.User, exclude int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPush != nil {
		return f.failPush
	}
	ids := make([]int64, 0, len(recipients))
	for _, r := range recipients {
		ids = append(ids, r.ID)
	}
	f.pushes = append(f.pushes, pushCall{Kind: data.NotificationType, Recipients: ids, Exclude: exclude})
	return nil
}

func (f *fakeNotifier) SendPushToUsers(_ context.Context, push Push) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPush != nil {
		return f.failPush
	}
	ids := make([]int64, 0, len(push.Users))
	for _, u := range push.Users {
		ids = append(ids, u.ID)
	}
	kind, _ := push.Data["notification_type"].(string)
	f.pushes = append(f.pushes, pushCall{
		Kind: NotificationType(kind), Recipients: ids, Delayed: push.Delayed, Message: push.Messages["en"],
	})
	return nil
}

func (f *fakeNotifier) SendSMSToTranslators(_ context.Context, data JobData, _ []domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sms = append(f.sms, data)
	return nil
}

func (f *fakeNotifier) IsPushEnabled(_ context.Context, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.noPush[userID], nil
}

func (f *fakeNotifier) IsPushDelayed(_ context.Context, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.night[userID], nil
}

func (f *fakeNotifier) templates() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.emails))
	for _, e := range f.emails {
		out = append(out, e.Template)
	}
	return out
}

func (f *fakeNotifier) emailsTo(addr string) []Email {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Email
	for _, e := range f.emails {
		if e.To == addr {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeNotifier) pushKinds() []NotificationType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]NotificationType, 0, len(f.pushes))
	for _, p := range f.pushes {
		out = append(out, p.Kind)
	}
	return out
}

type fakeRecorder struct {
	mu          sync.Mutex
	created     int
	transitions []domain.StatusChangeLog
	outcomes    []string
	failures    []string
}

func (r *fakeRecorder) BookingCreated(domain.JobType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created++
}

func (r *fakeRecorder) StatusChanged(from, to domain.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, domain.StatusChangeLog{OldStatus: from, NewStatus: to})
}

func (r *fakeRecorder) AcceptOutcome(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *fakeRecorder) NotificationFailed(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, kind)
}

// Fixture ids.
const (
	langSwedish     int64 = 1
	langArabic      int64 = 2
	customerID      int64 = 1
	otherCustomerID int64 = 2
	translatorA     int64 = 10 // professional, certified, female
	translatorB     int64 = 11 // professional, layman, male
	translatorC     int64 = 12 // volunteer, layman, male
	translatorD     int64 = 13 // professional, certified in law, female
	adminID         int64 = 100
)

var baseTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	store    *memStore
	notifier *fakeNotifier
	clock    *clock.Fake
	recorder *fakeRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := newMemStore()
	store.addLanguage(langSwedish, "Swedish")
	store.addLanguage(langArabic, "Arabic")

	store.addUser(domain.User{ID: customerID, Name: "Anna Customer", Email: "anna@example.com", Role: domain.RoleCustomer,
		ConsumerType: domain.ConsumerPaid, City: "Uppsala", Address: "Storgatan 1", Instructions: "Ring the bell"})
	store.addUser(domain.User{ID: otherCustomerID, Name: "Olle Customer", Email: "olle@example.com", Role: domain.RoleCustomer,
		ConsumerType: domain.ConsumerNGO})
	store.addUser(domain.User{ID: translatorA, Name: "Tove", Email: "tove@example.com", Role: domain.RoleTranslator,
		TranslatorType: domain.TranslatorProfessional, TranslatorLevel: domain.LevelCertified, Gender: domain.GenderFemale},
		langSwedish, langArabic)
	store.addUser(domain.User{ID: translatorB, Name: "Bo", Email: "bo@example.com", Role: domain.RoleTranslator,
		TranslatorType: domain.TranslatorProfessional, TranslatorLevel: domain.LevelLayman, Gender: domain.GenderMale},
		langSwedish)
	store.addUser(domain.User{ID: translatorC, Name: "Cid", Email: "cid@example.com", Role: domain.RoleTranslator,
		TranslatorType: domain.TranslatorVolunteer, TranslatorLevel: domain.LevelLayman, Gender: domain.GenderMale},
		langSwedish)
	store.addUser(domain.User{ID: translatorD, Name: "Dana", Email: "dana@example.com", Role: domain.RoleTranslator,
		TranslatorType: domain.TranslatorProfessional, TranslatorLevel: domain.LevelCertifiedLaw, Gender: domain.GenderFemale},
		langSwedish)
	store.addUser(domain.User{ID: adminID, Name: "Admin", Email: "admin@example.com", Role: domain.RoleAdmin})

	clk := clock.NewFake(baseTime)
	notifier := newFakeNotifier()
	recorder := &fakeRecorder{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &fixture{
		svc:      NewService(store, notifier, clk, DefaultSettings(), logger, WithRecorder(recorder)),
		store:    store,
		notifier: notifier,
		clock:    clk,
		recorder: recorder,
	}
}

func (f *fixture) user(t *testing.T, id int64) *domain.User {
	t.Helper()
	u, err := f.store.GetUser(context.Background(), id)
	if err != nil {
		t.Fatalf("user %d: %v", id, err)
	}
	return u
}

// seedJob stores a paid Swedish job owned by customerID, due in dueIn.
func (f *fixture) seedJob(t *testing.T, status domain.Status, dueIn time.Duration, mutate ...func(*domain.Job)) *domain.Job {
	t.Helper()
	now := f.clock.Now()
	job := &domain.Job{
		UserID:            customerID,
		FromLanguageID:    langSwedish,
		JobType:           domain.JobTypePaid,
		Duration:          60,
		CustomerPhoneType: true,
		Status:            status,
		Due:               now.Add(dueIn),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	job.WillExpireAt = domain.DefaultExpiryPolicy().WillExpireAt(job.Due, now)
	for _, m := range mutate {
		m(job)
	}
	if err := f.store.CreateJob(context.Background(), job); err != nil {
		t.Fatalf("seed job: %v", err)
	}
	return job
}

// assign gives job an active assignment for translatorID.
func (f *fixture) assign(t *testing.T, jobID, translatorID int64) *domain.Assignment {
	t.Helper()
	a := &domain.Assignment{UserID: translatorID, JobID: jobID, CreatedAt: f.clock.Now()}
	if err := f.store.CreateAssignment(context.Background(), a); err != nil {
		t.Fatalf("assign: %v", err)
	}
	return a
}

func runEffects(ctx context.Context, effs effects, n Notifier) []error {
	var errs []error
	for _, e := range effs {
		if err := e.run(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
