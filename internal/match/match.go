package match

import (
	"strings"

	"autoapply-engine/internal/domain"
)

// Filter keeps the jobs a profile would apply to. Three independent
// predicates ANDed: location, title, contract type. A missing preference on
// either side is always permissive, never restrictive.
func Filter(jobs []domain.Job, p domain.Profile) []domain.Job {
	out := make([]domain.Job, 0, len(jobs))
	for _, j := range jobs {
		keep, _ := Keep(j, p)
		if keep {
			out = append(out, j)
		}
	}
	return out
}

// Keep reports whether one job passes the profile, with the first failing
// predicate named for logging.
func Keep(j domain.Job, p domain.Profile) (keep bool, reason string) {
	if !passesLocation(j, p) {
		return false, "location"
	}
	if !passesTitle(j, p) {
		return false, "title"
	}
	if !j.ContractType.Compatible(p.ContractPref) {
		return false, "contract_type"
	}
	return true, ""
}

func passesLocation(j domain.Job, p domain.Profile) bool {
	if len(p.Locations) == 0 {
		return true
	}
	place := strings.ToLower(strings.TrimSpace(j.Location))
	for _, want := range p.Locations {
		if domain.IsLocationWildcard(want) {
			return true
		}
		w := strings.ToLower(strings.TrimSpace(want))
		if w == "" {
			continue
		}
		if strings.Contains(place, w) {
			return true
		}
	}
	return false
}

func passesTitle(j domain.Job, p domain.Profile) bool {
	if len(p.Titles) == 0 {
		return true
	}
	title := strings.ToLower(strings.TrimSpace(j.Title))
	for _, want := range p.Titles {
		w := strings.ToLower(strings.TrimSpace(want))
		if w == "" {
			continue
		}
		if strings.Contains(title, w) {
			return true
		}
	}
	return false
}
