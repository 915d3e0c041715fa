package booking

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/cuongbtq/booking-service/internal/booking/domain"
)

type memData struct {
	nextJobID        int64
	nextAssignmentID int64
	jobs             map[int64]domain.Job
	assignments      map[int64]domain.Assignment
	users            map[int64]domain.User
	languages        map[int64]domain.Language
	userLanguages    map[int64][]int64
	userTowns        map[int64][]int64
	blacklist        map[int64][]int64
	throttles        map[int64]domain.Throttle
	distances        map[int64]domain.Distance
	changeLogs       []domain.ChangeLog
}

func (d *memData) clone() *memData {
	c := *d
	c.jobs = maps.Clone(d.jobs)
	c.assignments = maps.Clone(d.assignments)
	c.users = maps.Clone(d.users)
	c.languages = maps.Clone(d.languages)
	c.userLanguages = maps.Clone(d.userLanguages)
	c.userTowns = maps.Clone(d.userTowns)
	c.blacklist = maps.Clone(d.blacklist)
	c.throttles = maps.Clone(d.throttles)
	c.distances = maps.Clone(d.distances)
	c.changeLogs = slices.Clone(d.changeLogs)
	return &c
}

// memStore is an in-memory Store. WithinTx serialises transactions and
// restores a snapshot on error.
type memStore struct {
	mu   *sync.Mutex
	data *memData
	inTx bool
}

func newMemStore() *memStore {
	return &memStore{
		mu: &sync.Mutex{},
		data: &memData{
			nextJobID:        1,
			nextAssignmentID: 1,
			jobs:             map[int64]domain.Job{},
			assignments:      map[int64]domain.Assignment{},
			users:            map[int64]domain.User{},
			languages:        map[int64]domain.Language{},
			userLanguages:    map[int64][]int64{},
			userTowns:        map[int64][]int64{},
			blacklist:        map[int64][]int64{},
			throttles:        map[int64]domain.Throttle{},
			distances:        map[int64]domain.Distance{},
		},
	}
}

func (m *memStore) lock() func() {
	if m.inTx {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *memStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if m.inTx {
		return fn(m)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.data.clone()
	if err := fn(&memStore{mu: m.mu, data: m.data, inTx: true}); err != nil {
		*m.data = *snapshot
		return err
	}
	return nil
}

// seeding helpers

func (m *memStore) addUser(u domain.User, languages ...int64) {
	defer m.lock()()
	m.data.users[u.ID] = u
	if len(languages) > 0 {
		m.data.userLanguages[u.ID] = languages
	}
}

func (m *memStore) addLanguage(id int64, name string) {
	defer m.lock()()
	m.data.languages[id] = domain.Language{ID: id, Name: name, Active: true}
}

func (m *memStore) addTowns(userID int64, towns ...int64) {
	defer m.lock()()
	m.data.userTowns[userID] = towns
}

func (m *memStore) addBlacklist(customerID, translatorID int64) {
	defer m.lock()()
	m.data.blacklist[customerID] = append(m.data.blacklist[customerID], translatorID)
}

func (m *memStore) addThrottle(t domain.Throttle) {
	defer m.lock()()
	m.data.throttles[t.ID] = t
}

func (m *memStore) job(id int64) domain.Job {
	defer m.lock()()
	return m.data.jobs[id]
}

func (m *memStore) jobCount() int {
	defer m.lock()()
	return len(m.data.jobs)
}

func (m *memStore) assignmentsFor(jobID int64) []domain.Assignment {
	defer m.lock()()
	var out []domain.Assignment
	for _, a := range m.data.assignments {
		if a.JobID == jobID {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b domain.Assignment) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (m *memStore) activeCount(jobID int64) int {
	n := 0
	for _, a := range m.assignmentsFor(jobID) {
		if a.Active() {
			n++
		}
	}
	return n
}

func (m *memStore) logs() []domain.ChangeLog {
	defer m.lock()()
	return slices.Clone(m.data.changeLogs)
}

// JobStore

func (m *memStore) CreateJob(_ context.Context, job *domain.Job) error {
	defer m.lock()()
	job.ID = m.data.nextJobID
	m.data.nextJobID++
	m.data.jobs[job.ID] = *job
	return nil
}

func (m *memStore) GetJob(_ context.Context, id int64) (*domain.Job, error) {
	defer m.lock()()
	job, ok := m.data.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &job, nil
}

func (m *memStore) LockJob(ctx context.Context, id int64) (*domain.Job, error) {
	return m.GetJob(ctx, id)
}

func (m *memStore) UpdateJob(_ context.Context, job *domain.Job) error {
	defer m.lock()()
	if _, ok := m.data.jobs[job.ID]; !ok {
		return domain.ErrNotFound
	}
	m.data.jobs[job.ID] = *job
	return nil
}

func (m *memStore) MarkAssigned(_ context.Context, jobID int64) error {
	defer m.lock()()
	job, ok := m.data.jobs[jobID]
	if !ok || job.Status != domain.StatusPending {
		return domain.ErrAlreadyAssigned
	}
	job.Status = domain.StatusAssigned
	m.data.jobs[jobID] = job
	return nil
}

func (m *memStore) SetJobFlag(_ context.Context, jobID int64, flag JobFlag, value bool) error {
	defer m.lock()()
	job, ok := m.data.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	switch flag {
	case FlagIgnore:
		job.Ignore = value
	case FlagIgnoreExpired:
		job.IgnoreExpired = value
	}
	m.data.jobs[jobID] = job
	return nil
}

func (m *memStore) filterJobs(keep func(domain.Job) bool) []domain.Job {
	out := []domain.Job{}
	for _, job := range m.data.jobs {
		if keep(job) {
			out = append(out, job)
		}
	}
	slices.SortFunc(out, func(a, b domain.Job) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (m *memStore) ListCustomerJobs(_ context.Context, userID int64, statuses []domain.Status) ([]domain.Job, error) {
	defer m.lock()()
	jobs := m.filterJobs(func(j domain.Job) bool {
		return j.UserID == userID && slices.Contains(statuses, j.Status)
	})
	slices.SortStableFunc(jobs, func(a, b domain.Job) int { return a.Due.Compare(b.Due) })
	return jobs, nil
}

func (m *memStore) translatorHolds(translatorID, jobID int64, activeOnly bool) bool {
	for _, a := range m.data.assignments {
		if a.UserID != translatorID || a.JobID != jobID {
			continue
		}
		if activeOnly && !a.Active() {
			continue
		}
		if !activeOnly && a.CancelAt != nil {
			continue
		}
		return true
	}
	return false
}

func (m *memStore) ListTranslatorJobs(_ context.Context, translatorID int64) ([]domain.Job, error) {
	defer m.lock()()
	return m.filterJobs(func(j domain.Job) bool {
		live := j.Status == domain.StatusAssigned || j.Status == domain.StatusStarted
		return live && m.translatorHolds(translatorID, j.ID, true)
	}), nil
}

func paginate[T any](items []T, page, perPage int) []T {
	start := (page - 1) * perPage
	if start >= len(items) {
		return []T{}
	}
	return items[start:min(start+perPage, len(items))]
}

func (m *memStore) JobHistory(_ context.Context, q HistoryQuery, page, perPage int) ([]domain.Job, int, error) {
	defer m.lock()()
	jobs := m.filterJobs(func(j domain.Job) bool {
		if !slices.Contains(q.Statuses, j.Status) {
			return false
		}
		if q.AsTranslator {
			return m.translatorHolds(q.UserID, j.ID, false)
		}
		return j.UserID == q.UserID
	})
	slices.SortStableFunc(jobs, func(a, b domain.Job) int { return b.Due.Compare(a.Due) })
	return paginate(jobs, page, perPage), len(jobs), nil
}

func (m *memStore) ListPendingJobs(_ context.Context, jobType domain.JobType, languageIDs []int64) ([]domain.Job, error) {
	defer m.lock()()
	return m.filterJobs(func(j domain.Job) bool {
		return j.Status == domain.StatusPending && j.JobType == jobType && slices.Contains(languageIDs, j.FromLanguageID)
	}), nil
}

func (m *memStore) ListPendingByExpiry(_ context.Context, q ExpiryQuery, page, perPage int) ([]domain.Job, int, error) {
	defer m.lock()()
	jobs := m.filterJobs(func(j domain.Job) bool {
		if j.Status != domain.StatusPending {
			return false
		}
		if q.Expired {
			return !j.IgnoreExpired && j.WillExpireAt.Before(q.Now) && !j.Due.Before(q.Now)
		}
		return !j.Ignore && !j.WillExpireAt.Before(q.Now)
	})
	slices.SortStableFunc(jobs, func(a, b domain.Job) int { return a.WillExpireAt.Compare(b.WillExpireAt) })
	return paginate(jobs, page, perPage), len(jobs), nil
}

func (m *memStore) ListSessionAlerts(_ context.Context, page, perPage int) ([]domain.Job, int, error) {
	defer m.lock()()
	jobs := m.filterJobs(func(j domain.Job) bool { return !j.Ignore && j.SessionOverrun() })
	slices.SortStableFunc(jobs, func(a, b domain.Job) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return paginate(jobs, page, perPage), len(jobs), nil
}

func (m *memStore) ListJobs(_ context.Context, f JobFilter, page, perPage int) ([]domain.Job, int, error) {
	defer m.lock()()
	jobs := m.filterJobs(func(j domain.Job) bool {
		if f.ID != 0 && j.ID != f.ID {
			return false
		}
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, j.Status) {
			return false
		}
		if len(f.LanguageIDs) > 0 && !slices.Contains(f.LanguageIDs, j.FromLanguageID) {
			return false
		}
		if len(f.JobTypes) > 0 && !slices.Contains(f.JobTypes, j.JobType) {
			return false
		}
		return true
	})
	return paginate(jobs, page, perPage), len(jobs), nil
}

func (m *memStore) UpsertDistance(_ context.Context, d domain.Distance) error {
	defer m.lock()()
	m.data.distances[d.JobID] = d
	return nil
}

func (m *memStore) SaveChangeLog(_ context.Context, log *domain.ChangeLog) error {
	defer m.lock()()
	m.data.changeLogs = append(m.data.changeLogs, *log)
	return nil
}

// AssignmentStore

func (m *memStore) CreateAssignment(_ context.Context, a *domain.Assignment) error {
	defer m.lock()()
	if a.Active() {
		for _, other := range m.data.assignments {
			if other.JobID == a.JobID && other.Active() {
				return domain.ErrAlreadyAssigned
			}
		}
	}
	a.ID = m.data.nextAssignmentID
	m.data.nextAssignmentID++
	m.data.assignments[a.ID] = *a
	return nil
}

func (m *memStore) ActiveAssignment(_ context.Context, jobID int64) (*domain.Assignment, error) {
	defer m.lock()()
	for _, a := range m.data.assignments {
		if a.JobID == jobID && a.Active() {
			return &a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memStore) LatestCompletedAssignment(_ context.Context, jobID int64) (*domain.Assignment, error) {
	defer m.lock()()
	var latest *domain.Assignment
	for _, a := range m.data.assignments {
		if a.JobID != jobID || a.CompletedAt == nil {
			continue
		}
		if latest == nil || a.CompletedAt.After(*latest.CompletedAt) {
			latest = &a
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	return latest, nil
}

func (m *memStore) CancelAssignment(_ context.Context, id int64, at time.Time) error {
	defer m.lock()()
	a, ok := m.data.assignments[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.CancelAt = &at
	m.data.assignments[id] = a
	return nil
}

func (m *memStore) CompleteAssignment(_ context.Context, id int64, at time.Time, by int64) error {
	defer m.lock()()
	a, ok := m.data.assignments[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.CompletedAt = &at
	a.CompletedBy = &by
	m.data.assignments[id] = a
	return nil
}

func (m *memStore) HasConflictingAssignment(_ context.Context, translatorID, excludeJobID int64, start, end time.Time) (bool, error) {
	defer m.lock()()
	for _, a := range m.data.assignments {
		if a.UserID != translatorID || a.JobID == excludeJobID || !a.Active() {
			continue
		}
		job := m.data.jobs[a.JobID]
		if job.Status != domain.StatusAssigned && job.Status != domain.StatusStarted {
			continue
		}
		s, e := job.Window()
		if s.Before(end) && e.After(start) {
			return true, nil
		}
	}
	return false, nil
}

// UserStore

func (m *memStore) GetUser(_ context.Context, id int64) (*domain.User, error) {
	defer m.lock()()
	u, ok := m.data.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	defer m.lock()()
	for _, u := range m.data.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memStore) ListTranslators(_ context.Context, translatorType domain.TranslatorType, languageID int64) ([]domain.User, error) {
	defer m.lock()()
	out := []domain.User{}
	for _, u := range m.data.users {
		if u.Role == domain.RoleTranslator && u.TranslatorType == translatorType &&
			slices.Contains(m.data.userLanguages[u.ID], languageID) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memStore) UserLanguageIDs(_ context.Context, userID int64) ([]int64, error) {
	defer m.lock()()
	return m.data.userLanguages[userID], nil
}

func (m *memStore) UserTownIDs(_ context.Context, userID int64) ([]int64, error) {
	defer m.lock()()
	return m.data.userTowns[userID], nil
}

func (m *memStore) BlacklistedTranslators(_ context.Context, customerID int64) ([]int64, error) {
	defer m.lock()()
	return m.data.blacklist[customerID], nil
}

func (m *memStore) CustomersBlacklisting(_ context.Context, translatorID int64) ([]int64, error) {
	defer m.lock()()
	var out []int64
	for customer, translators := range m.data.blacklist {
		if slices.Contains(translators, translatorID) {
			out = append(out, customer)
		}
	}
	return out, nil
}

func (m *memStore) GetLanguage(_ context.Context, id int64) (*domain.Language, error) {
	defer m.lock()()
	l, ok := m.data.languages[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &l, nil
}

func (m *memStore) ListThrottles(_ context.Context, page, perPage int) ([]domain.Throttle, int, error) {
	defer m.lock()()
	var out []domain.Throttle
	for _, t := range m.data.throttles {
		if !t.Ignore {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b domain.Throttle) int { return cmp.Compare(a.ID, b.ID) })
	return paginate(out, page, perPage), len(out), nil
}

func (m *memStore) IgnoreThrottle(_ context.Context, id int64) error {
	defer m.lock()()
	t, ok := m.data.throttles[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.Ignore = true
	m.data.throttles[id] = t
	return nil
}
