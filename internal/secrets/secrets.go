package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"autoapply-engine/internal/config"

	"github.com/zalando/go-keyring"
)

const (
	// “Service” groups the engine's secrets in the OS keychain.
	KeyringService = "autoapply"
)

// Names are the well-known secret slots. Each maps to one keychain account
// and one environment fallback.
const (
	NameSMTPPassword        = "smtp_password"
	NameIMAPPassword        = "imap_password"
	NameGeneratorAPIKey     = "generator_api_key"
	NameFranceTravailSecret = "francetravail_client_secret"
	NameAdzunaAppKey        = "adzuna_app_key"
	NameJoobleKey           = "jooble_api_key"
)

var envFallbacks = map[string]string{
	NameSMTPPassword:        "SMTP_PASSWORD",
	NameIMAPPassword:        "IMAP_PASSWORD",
	NameGeneratorAPIKey:     "GEMINI_API_KEY",
	NameFranceTravailSecret: "FRANCETRAVAIL_CLIENT_SECRET",
	NameAdzunaAppKey:        "ADZUNA_APP_KEY",
	NameJoobleKey:           "JOOBLE_API_KEY",
}

// Get looks the secret up in the keychain first, then falls back to the
// environment. Empty values count as missing.
func Get(name string) (string, error) {
	pw, err := keyring.Get(KeyringService, name)
	if err == nil && strings.TrimSpace(pw) != "" {
		return pw, nil
	}

	if env := envFallbacks[name]; env != "" {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("secret %q not found (set it in keychain or via env)", name)
}

// Optional is Get for secrets whose absence just disables a feature.
func Optional(name string) string {
	v, err := Get(name)
	if err != nil {
		return ""
	}
	return v
}

func Set(name string, value string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("secret name is empty")
	}
	if strings.TrimSpace(value) == "" {
		return errors.New("secret value is empty")
	}
	return keyring.Set(KeyringService, name, value)
}

func Delete(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("secret name is empty")
	}
	return keyring.Delete(KeyringService, name)
}

// TriggerToken guards the scheduled-run HTTP endpoint. It is env-only so
// that a cron sidecar can share it without keychain access.
func TriggerToken() string {
	return strings.TrimSpace(os.Getenv("AUTOAPPLY_TRIGGER_TOKEN"))
}

// MissingForConfig lists the secrets the given configuration needs but
// cannot resolve, so startup can warn in one place.
func MissingForConfig(cfg config.Config) []string {
	var need []string
	need = append(need, NameSMTPPassword)
	if cfg.Sources.FranceTravail.Enabled {
		need = append(need, NameFranceTravailSecret)
	}
	if cfg.Sources.Adzuna.Enabled {
		need = append(need, NameAdzunaAppKey)
	}
	if cfg.Sources.Jooble.Enabled {
		need = append(need, NameJoobleKey)
	}
	if cfg.Generator.Enabled {
		need = append(need, NameGeneratorAPIKey)
	}
	if cfg.Replies.Enabled {
		need = append(need, NameIMAPPassword)
	}

	var missing []string
	for _, name := range need {
		if _, err := Get(name); err != nil {
			missing = append(missing, name)
		}
	}
	return missing
}
