package httpapi

import (
	"context"
	"sync/atomic"

	"autoapply-engine/internal/config"
	"autoapply-engine/internal/events"
	"autoapply-engine/internal/runner"
	"autoapply-engine/internal/store"
)

// CampaignRunner is the trigger surface the handlers need; *runner.Runner
// implements it, tests inject doubles.
type CampaignRunner interface {
	RunCampaignDay(ctx context.Context, campaignID, ownerID string) (runner.RunResult, error)
	RunAll(ctx context.Context, ownerID string) []runner.RunResult
}

type Deps struct {
	Store *store.DB

	Hub *events.Hub

	Runner CampaignRunner

	// TriggerToken guards /run/scheduled; empty means the endpoint is open.
	TriggerToken string

	// RunStatus holds the last scheduled-run outcome (stores httpapi.RunStatus).
	RunStatus *atomic.Value

	// Atomic config snapshot (stores config.Config)
	CfgVal *atomic.Value

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)
}
