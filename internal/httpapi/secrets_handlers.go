package httpapi

import (
	"encoding/json"
	"net/http"

	"autoapply-engine/internal/secrets"
)

type SecretsHandler struct{}

type setSecretRequest struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

var knownSecrets = map[string]bool{
	secrets.NameSMTPPassword:        true,
	secrets.NameIMAPPassword:        true,
	secrets.NameGeneratorAPIKey:     true,
	secrets.NameFranceTravailSecret: true,
	secrets.NameAdzunaAppKey:        true,
	secrets.NameJoobleKey:           true,
}

// Set writes one secret into the OS keychain. Values are never echoed back.
func (h SecretsHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req setSecretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", "invalid JSON: "+err.Error())
		return
	}
	if !knownSecrets[req.Name] {
		WriteError(w, r, http.StatusBadRequest, "unknown_secret", "unknown secret name: "+req.Name)
		return
	}
	if err := secrets.Set(req.Name, req.Value); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "keyring_error", err.Error())
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

// Delete removes one secret from the keychain.
func (h SecretsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req setSecretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", "invalid JSON: "+err.Error())
		return
	}
	if !knownSecrets[req.Name] {
		WriteError(w, r, http.StatusBadRequest, "unknown_secret", "unknown secret name: "+req.Name)
		return
	}
	if err := secrets.Delete(req.Name); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "keyring_error", err.Error())
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}
