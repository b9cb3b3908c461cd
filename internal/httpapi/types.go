package httpapi

import "autoapply-engine/internal/runner"

// RunStatus mirrors the last scheduled sweep for the UI, including the full
// per-campaign outcome list.
type RunStatus struct {
	Running     bool               `json:"running"`
	LastRunAt   string             `json:"last_run_at"`
	LastOkAt    string             `json:"last_ok_at"`
	LastSent    int                `json:"last_sent"`
	LastError   string             `json:"last_error"`
	LastResults []runner.RunResult `json:"last_results,omitempty"`
}
