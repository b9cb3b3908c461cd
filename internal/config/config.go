// engine/internal/config/config.go
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the YAML-backed engine configuration. Credentials never live
// here: secrets (API keys, SMTP and IMAP passwords) come from the keychain
// or environment, the file only carries the non-secret halves.
type Config struct {
	App struct {
		Port    int    `yaml:"port"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	Scheduler struct {
		Enabled bool   `yaml:"enabled"`
		Cron    string `yaml:"cron"`
	} `yaml:"scheduler"`

	Defaults struct {
		MaxPerDay    int `yaml:"max_per_day"`
		DurationDays int `yaml:"duration_days"`
	} `yaml:"defaults"`

	Sources struct {
		FranceTravail struct {
			Enabled  bool   `yaml:"enabled"`
			ClientID string `yaml:"client_id"`
		} `yaml:"francetravail"`
		Adzuna struct {
			Enabled bool   `yaml:"enabled"`
			AppID   string `yaml:"app_id"`
		} `yaml:"adzuna"`
		Jooble struct {
			Enabled bool `yaml:"enabled"`
		} `yaml:"jooble"`
		HelloWork struct {
			Enabled bool `yaml:"enabled"`
		} `yaml:"hellowork"`
	} `yaml:"sources"`

	SMTP struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Username string `yaml:"username"`
		FromName string `yaml:"from_name"`
		FromAddr string `yaml:"from_addr"`
	} `yaml:"smtp"`

	Generator struct {
		Enabled bool   `yaml:"enabled"`
		Model   string `yaml:"model"`
	} `yaml:"generator"`

	Replies struct {
		Enabled     bool   `yaml:"enabled"`
		IMAPHost    string `yaml:"imap_host"`
		IMAPPort    int    `yaml:"imap_port"`
		Username    string `yaml:"username"`
		Mailbox     string `yaml:"mailbox"`
		PollSeconds int    `yaml:"poll_seconds"`
	} `yaml:"replies"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}
