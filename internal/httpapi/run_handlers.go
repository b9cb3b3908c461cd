package httpapi

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"autoapply-engine/internal/runner"
)

type RunHandler struct {
	Runner       CampaignRunner
	TriggerToken string
	RunStatus    *atomic.Value // httpapi.RunStatus
}

func (h RunHandler) authorized(r *http.Request) bool {
	if h.TriggerToken == "" {
		return true
	}
	token := r.URL.Query().Get("token")
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		token = strings.TrimPrefix(auth, "Bearer ")
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.TriggerToken)) == 1
}

// Scheduled fires the daily sweep over every active campaign and answers
// with the per-campaign results once the sweep finishes.
func (h RunHandler) Scheduled(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		WriteError(w, r, http.StatusUnauthorized, "unauthorized", "invalid trigger token")
		return
	}

	st := h.RunStatus.Load().(RunStatus)
	if st.Running {
		writeJSON(w, map[string]any{"ok": false, "processed": 0, "msg": "already running"})
		return
	}
	h.RunStatus.Store(RunStatus{
		Running:     true,
		LastRunAt:   time.Now().Format(time.RFC3339),
		LastOkAt:    st.LastOkAt,
		LastResults: st.LastResults,
	})

	// detached from the request: a disconnecting caller must not abort a
	// sweep that is already dispatching mail
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 15*time.Minute)
	defer cancel()
	results := h.Runner.RunAll(ctx, "")
	if results == nil {
		results = []runner.RunResult{}
	}

	sent := 0
	firstErr := ""
	for _, res := range results {
		sent += res.Sent
		if firstErr == "" && res.Reason != "" {
			firstErr = res.Reason
		}
	}

	now := time.Now().Format(time.RFC3339)
	next := RunStatus{
		LastRunAt:   now,
		LastOkAt:    st.LastOkAt,
		LastSent:    sent,
		LastError:   firstErr,
		LastResults: results,
	}
	if firstErr == "" {
		next.LastOkAt = now
	}
	h.RunStatus.Store(next)

	writeJSON(w, map[string]any{
		"ok":        true,
		"processed": len(results),
		"results":   results,
	})
}

func (h RunHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.RunStatus.Load().(RunStatus))
}

// Manual runs the caller's campaigns inline and answers with the per
// campaign results plus a one-line summary.
func (h RunHandler) Manual(w http.ResponseWriter, r *http.Request) {
	owner := userID(r)
	results := h.Runner.RunAll(r.Context(), owner)
	if results == nil {
		results = []runner.RunResult{}
	}
	writeJSON(w, map[string]any{
		"ok":        true,
		"processed": len(results),
		"results":   results,
		"summary":   runner.Summarize(results),
	})
}

// ManualByPath expects /campaigns/{id}/run and runs that one campaign inline.
func (h RunHandler) ManualByPath(w http.ResponseWriter, r *http.Request) {
	id, action := splitCampaignPath(r.URL.Path)
	if id == "" || action != "run" {
		WriteError(w, r, http.StatusNotFound, "not_found", "unknown action")
		return
	}
	res, err := h.Runner.RunCampaignDay(r.Context(), id, userID(r))
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "run_error", err.Error())
		return
	}
	writeJSON(w, res)
}
