package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"autoapply-engine/internal/domain"
	"autoapply-engine/internal/store"
)

type ProfileHandler struct {
	Store *store.DB
}

func (h ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.Store.GetProfile(r.Context(), userID(r))
	if errors.Is(err, store.ErrNotFound) {
		WriteError(w, r, http.StatusNotFound, "not_found", "profile not found")
		return
	}
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	writeJSON(w, p)
}

func (h ProfileHandler) Put(w http.ResponseWriter, r *http.Request) {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var incoming domain.Profile
	if err := dec.Decode(&incoming); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", "invalid JSON: "+err.Error())
		return
	}

	incoming.OwnerID = userID(r)
	incoming.UpdatedAt = time.Now().UTC()

	// a profile may be saved half-finished; incompleteness only blocks runs
	if err := h.Store.PutProfile(r.Context(), incoming); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	writeJSON(w, incoming)
}
