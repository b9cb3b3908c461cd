package domain

import (
	"net/mail"
	"strings"
	"time"
)

// Profile holds one candidate's search preferences and sending identity.
// Read-only to the runner; only the candidate's own profile-update action
// mutates it.
type Profile struct {
	OwnerID        string       `json:"owner_id"`
	CandidateName  string       `json:"candidate_name"`
	CampaignEmail  string       `json:"campaign_email"`
	AutoApply      bool         `json:"auto_apply"`
	Titles         []string     `json:"titles"`    // ordered, empty = any
	Locations      []string     `json:"locations"` // free text, may hold wildcards
	ContractPref   ContractType `json:"contract_type"`
	FallbackLetter string       `json:"fallback_letter"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// locationWildcards mean "anywhere": a profile listing one of these passes
// the location predicate for every job.
var locationWildcards = map[string]bool{
	"remote":                  true,
	"everywhere":              true,
	"anywhere":                true,
	"anywhere in the country": true,
	"france entière":          true,
	"toute la france":         true,
}

func IsLocationWildcard(loc string) bool {
	return locationWildcards[strings.ToLower(strings.TrimSpace(loc))]
}

func (p Profile) PrimaryTitle() string {
	if len(p.Titles) == 0 {
		return ""
	}
	return p.Titles[0]
}

func (p Profile) PrimaryLocation() string {
	if len(p.Locations) == 0 {
		return ""
	}
	return p.Locations[0]
}

// Incomplete reports why the profile cannot drive a campaign run, or ""
// when it can. Checked before any listing is fetched.
func (p Profile) Incomplete() string {
	if !p.AutoApply {
		return "auto-apply is disabled on the profile"
	}
	if strings.TrimSpace(p.CandidateName) == "" {
		return "candidate name is missing"
	}
	if strings.TrimSpace(p.CampaignEmail) == "" {
		return "campaign email is missing"
	}
	if _, err := mail.ParseAddress(p.CampaignEmail); err != nil {
		return "campaign email is malformed"
	}
	return ""
}
