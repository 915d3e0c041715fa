package domain

import "slices"

// Selections accepted in a booking's job_for list.
const (
	JobForMale             = "male"
	JobForFemale           = "female"
	JobForNormal           = "normal"
	JobForCertified        = "certified"
	JobForCertifiedLaw     = "certified_in_law"
	JobForCertifiedHealth  = "certified_in_health"
	jobForCertifiedHealthV = "certified_in_helth" // legacy client spelling
)

// JobRequirement is the translator profile a job asks for.
type JobRequirement struct {
	Gender        Gender
	Certification Certification
}

// DeriveRequirement builds the requirement from the raw job_for selection.
// "normal" wins over any single certification; combined with one it yields
// the mixed variants both, n_law and n_health.
func DeriveRequirement(jobFor []string) JobRequirement {
	has := func(v string) bool { return slices.Contains(jobFor, v) }
	health := has(JobForCertifiedHealth) || has(jobForCertifiedHealthV)

	var req JobRequirement
	switch {
	case has(JobForMale):
		req.Gender = GenderMale
	case has(JobForFemale):
		req.Gender = GenderFemale
	}

	switch {
	case has(JobForNormal):
		req.Certification = CertNormal
	case has(JobForCertified):
		req.Certification = CertYes
	case has(JobForCertifiedLaw):
		req.Certification = CertLaw
	case health:
		req.Certification = CertHealth
	}

	if has(JobForNormal) {
		switch {
		case has(JobForCertified):
			req.Certification = CertBoth
		case has(JobForCertifiedLaw):
			req.Certification = CertNormalLaw
		case health:
			req.Certification = CertNormalHealth
		}
	}

	return req
}

// RequiredLevels returns the translator levels that satisfy a certification.
func RequiredLevels(c Certification) []TranslatorLevel {
	switch c {
	case CertYes, CertBoth:
		return []TranslatorLevel{LevelCertified, LevelCertifiedLaw, LevelCertifiedHealth}
	case CertLaw, CertNormalLaw:
		return []TranslatorLevel{LevelCertifiedLaw}
	case CertHealth, CertNormalHealth:
		return []TranslatorLevel{LevelCertifiedHealth}
	case CertNormal:
		return []TranslatorLevel{LevelLayman, LevelReadCourses}
	default:
		return AllLevels
	}
}

// Matches reports whether a translator with gender and level satisfies the requirement.
func (r JobRequirement) Matches(gender Gender, level TranslatorLevel) bool {
	if r.Gender != "" && r.Gender != gender {
		return false
	}
	return slices.Contains(RequiredLevels(r.Certification), level)
}

// Labels returns the human readable job_for labels sent in push payloads.
func (r JobRequirement) Labels() []string {
	labels := []string{}
	switch r.Gender {
	case GenderMale:
		labels = append(labels, "Man")
	case GenderFemale:
		labels = append(labels, "Kvinna")
	}

	switch r.Certification {
	case "":
	case CertBoth:
		labels = append(labels, "Godkänd tolk", "Auktoriserad")
	case CertYes:
		labels = append(labels, "Auktoriserad")
	case CertNormalHealth:
		labels = append(labels, "Sjukvårdstolk")
	case CertLaw, CertNormalLaw:
		labels = append(labels, "Rättstolk")
	default:
		labels = append(labels, string(r.Certification))
	}
	return labels
}
