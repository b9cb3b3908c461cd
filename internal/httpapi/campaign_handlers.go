package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"autoapply-engine/internal/config"
	"autoapply-engine/internal/domain"
	"autoapply-engine/internal/store"

	"github.com/google/uuid"
)

type CampaignHandler struct {
	Store  *store.DB
	CfgVal *atomic.Value // config.Config
}

type createCampaignRequest struct {
	DurationDays int `json:"duration_days"`
	MaxPerDay    int `json:"max_per_day"`
}

func (h CampaignHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", "invalid JSON: "+err.Error())
		return
	}

	cfg := h.CfgVal.Load().(config.Config)
	if req.DurationDays <= 0 {
		req.DurationDays = cfg.Defaults.DurationDays
	}
	if req.MaxPerDay <= 0 {
		req.MaxPerDay = cfg.Defaults.MaxPerDay
	}

	now := time.Now().UTC()
	c := domain.Campaign{
		ID:           uuid.NewString(),
		OwnerID:      userID(r),
		Status:       domain.CampaignActive,
		DurationDays: req.DurationDays,
		EndsAt:       now.AddDate(0, 0, req.DurationDays),
		MaxPerDay:    req.MaxPerDay,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.Store.CreateCampaign(r.Context(), c); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	WriteJSON(w, http.StatusCreated, c)
}

func (h CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.Store.ListActiveCampaigns(r.Context(), time.Now().UTC(), userID(r))
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	if list == nil {
		list = []domain.Campaign{}
	}
	writeJSON(w, list)
}

// GetByPath expects /campaigns/{id}.
func (h CampaignHandler) GetByPath(w http.ResponseWriter, r *http.Request) {
	id, rest := splitCampaignPath(r.URL.Path)
	if id == "" {
		WriteError(w, r, http.StatusBadRequest, "bad_path", "campaign id is required")
		return
	}
	if rest == "applications" {
		h.listApplications(w, r, id)
		return
	}
	if rest != "" {
		WriteError(w, r, http.StatusNotFound, "not_found", "unknown resource")
		return
	}

	c, err := h.Store.GetCampaign(r.Context(), id, userID(r))
	if errors.Is(err, store.ErrNotFound) {
		WriteError(w, r, http.StatusNotFound, "not_found", "campaign not found")
		return
	}
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	writeJSON(w, c)
}

// TransitionByPath expects /campaigns/{id}/pause, /resume or /cancel.
func (h CampaignHandler) TransitionByPath(w http.ResponseWriter, r *http.Request) {
	id, action := splitCampaignPath(r.URL.Path)
	if id == "" {
		WriteError(w, r, http.StatusBadRequest, "bad_path", "campaign id is required")
		return
	}

	var target domain.CampaignStatus
	switch action {
	case "pause":
		target = domain.CampaignPaused
	case "resume":
		target = domain.CampaignActive
	case "cancel":
		target = domain.CampaignCancelled
	default:
		WriteError(w, r, http.StatusNotFound, "not_found", "unknown action")
		return
	}

	err := h.Store.TransitionCampaign(r.Context(), id, userID(r), target)
	switch {
	case errors.Is(err, store.ErrNotFound):
		WriteError(w, r, http.StatusNotFound, "not_found", "campaign not found")
		return
	case errors.Is(err, store.ErrBadTransition):
		WriteError(w, r, http.StatusConflict, "bad_transition", err.Error())
		return
	case err != nil:
		WriteError(w, r, http.StatusInternalServerError, "store_error", err.Error())
		return
	}

	c, err := h.Store.GetCampaign(r.Context(), id, userID(r))
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	writeJSON(w, c)
}

func (h CampaignHandler) listApplications(w http.ResponseWriter, r *http.Request, id string) {
	apps, err := h.Store.ListApplications(r.Context(), id, userID(r))
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	if apps == nil {
		apps = []domain.Application{}
	}
	writeJSON(w, apps)
}

// splitCampaignPath turns /campaigns/{id}[/{rest}] into (id, rest).
func splitCampaignPath(path string) (id, rest string) {
	p := strings.TrimPrefix(path, "/campaigns/")
	p = strings.Trim(p, "/")
	if p == "" {
		return "", ""
	}
	parts := strings.SplitN(p, "/", 2)
	id = parts[0]
	if len(parts) == 2 {
		rest = parts[1]
	}
	return id, rest
}
