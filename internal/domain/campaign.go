package domain

import "time"

type CampaignStatus string

const (
	CampaignActive    CampaignStatus = "active"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
	CampaignCancelled CampaignStatus = "cancelled"
)

// Campaign is a time-boxed, quota-bounded application run owned by one
// candidate. Status moves active→completed automatically when EndsAt passes;
// pause/resume/cancel are candidate actions only, the runner never resumes a
// paused campaign.
type Campaign struct {
	ID           string         `json:"id"`
	OwnerID      string         `json:"owner_id"`
	Status       CampaignStatus `json:"status"`
	DurationDays int            `json:"duration_days"`
	EndsAt       time.Time      `json:"ends_at"`
	MaxPerDay    int            `json:"max_applications_per_day"`
	TotalSent    int            `json:"total_sent"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (c Campaign) Expired(now time.Time) bool {
	return !c.EndsAt.After(now)
}
