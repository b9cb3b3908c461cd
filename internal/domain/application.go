package domain

import "time"

type ApplicationStatus string

const (
	ApplicationSent    ApplicationStatus = "sent"
	ApplicationFailed  ApplicationStatus = "failed"
	ApplicationReplied ApplicationStatus = "replied"
)

// Application is the persisted outcome of attempting one listing for one
// campaign. TargetExternalID is the dedup key: at most one row per
// (campaign, external id), whatever the status.
type Application struct {
	ID               int64             `json:"id"`
	CampaignID       string            `json:"campaign_id"`
	TargetExternalID string            `json:"target_external_id"`
	TargetName       string            `json:"target_name"`
	TargetEmail      string            `json:"target_email"`
	TargetURL        string            `json:"target_url"`
	Source           string            `json:"source"`
	LetterText       string            `json:"letter_text,omitempty"`
	Status           ApplicationStatus `json:"status"`
	ErrorMessage     string            `json:"error_message,omitempty"`
	SentAt           time.Time         `json:"sent_at"`
}
