// config/overlay.go
package config

import (
	"os"
	"strconv"
)

// OverlayEnv applies environment overrides on top of the loaded file, so a
// container deployment can steer the engine without editing config.yml.
// Unset variables leave the file's values alone.
func OverlayEnv(cfg *Config) {
	if v := os.Getenv("AUTOAPPLY_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.App.Port = p
		}
	}
	if v := os.Getenv("AUTOAPPLY_DATA_DIR"); v != "" {
		cfg.App.DataDir = v
	}
	if v := os.Getenv("FRANCETRAVAIL_CLIENT_ID"); v != "" {
		cfg.Sources.FranceTravail.ClientID = v
	}
	if v := os.Getenv("ADZUNA_APP_ID"); v != "" {
		cfg.Sources.Adzuna.AppID = v
	}
	if v := os.Getenv("SMTP_HOST"); v != "" {
		cfg.SMTP.Host = v
	}
	if v := os.Getenv("SMTP_USERNAME"); v != "" {
		cfg.SMTP.Username = v
	}
}
