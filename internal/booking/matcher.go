package booking

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/cuongbtq/booking-service/internal/booking/domain"
)

// Matcher finds translators for jobs and jobs for translators.
type Matcher struct{}

// NewMatcher creates a Matcher.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// FindCandidates returns the translators eligible for job, sorted by id.
func (m *Matcher) FindCandidates(ctx context.Context, users UserStore, job *domain.Job) ([]domain.User, error) {
	translators, err := users.ListTranslators(ctx, domain.TranslatorTypeForJob(job.JobType), job.FromLanguageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list translators: %w", err)
	}

	blacklist, err := users.BlacklistedTranslators(ctx, job.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load blacklist: %w", err)
	}

	req := job.Requirement()
	candidates := make([]domain.User, 0, len(translators))
	for _, t := range translators {
		if slices.Contains(blacklist, t.ID) {
			continue
		}
		if !req.Matches(t.Gender, t.TranslatorLevel) {
			continue
		}
		candidates = append(candidates, t)
	}

	slices.SortFunc(candidates, func(a, b domain.User) int { return cmp.Compare(a.ID, b.ID) })
	return candidates, nil
}

// FilterByLocation drops in-person-only jobs whose customer shares no town with the translator.
func (m *Matcher) FilterByLocation(ctx context.Context, users UserStore, jobs []domain.Job, translatorID int64) ([]domain.Job, error) {
	var translatorTowns []int64
	loaded := false
	customerTowns := map[int64][]int64{}

	kept := make([]domain.Job, 0, len(jobs))
	for _, job := range jobs {
		if !job.InPersonOnly() {
			kept = append(kept, job)
			continue
		}

		if !loaded {
			towns, err := users.UserTownIDs(ctx, translatorID)
			if err != nil {
				return nil, fmt.Errorf("failed to load translator towns: %w", err)
			}
			translatorTowns, loaded = towns, true
		}

		towns, ok := customerTowns[job.UserID]
		if !ok {
			var err error
			towns, err = users.UserTownIDs(ctx, job.UserID)
			if err != nil {
				return nil, fmt.Errorf("failed to load customer towns: %w", err)
			}
			customerTowns[job.UserID] = towns
		}

		if sharesTown(translatorTowns, towns) {
			kept = append(kept, job)
		}
	}
	return kept, nil
}

// PotentialJobs returns the pending jobs translator may accept.
func (m *Matcher) PotentialJobs(ctx context.Context, store Store, translator *domain.User) ([]domain.Job, error) {
	languages, err := store.UserLanguageIDs(ctx, translator.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load translator languages: %w", err)
	}
	if len(languages) == 0 {
		return []domain.Job{}, nil
	}

	jobs, err := store.ListPendingJobs(ctx, domain.JobTypeForTranslator(translator.TranslatorType), languages)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending jobs: %w", err)
	}

	blockedBy, err := store.CustomersBlacklisting(ctx, translator.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load blacklist: %w", err)
	}

	eligible := make([]domain.Job, 0, len(jobs))
	for _, job := range jobs {
		if slices.Contains(blockedBy, job.UserID) {
			continue
		}
		if !job.Requirement().Matches(translator.Gender, translator.TranslatorLevel) {
			continue
		}
		eligible = append(eligible, job)
	}

	return m.FilterByLocation(ctx, store, eligible, translator.ID)
}

func sharesTown(a, b []int64) bool {
	for _, t := range a {
		if slices.Contains(b, t) {
			return true
		}
	}
	return false
}
