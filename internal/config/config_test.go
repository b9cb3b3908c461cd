package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	var cfg Config
	cfg.App.Port = 8787
	cfg.App.DataDir = "/tmp/autoapply"
	cfg.Defaults.MaxPerDay = 10
	cfg.Defaults.DurationDays = 30
	cfg.Sources.Adzuna.Enabled = true
	cfg.Sources.Adzuna.AppID = "app-123"
	cfg.SMTP.Host = "smtp.example.com"
	cfg.SMTP.Username = "bot@example.com"
	cfg.SMTP.FromAddr = "bot@example.com"
	return cfg
}

func TestNormalizeAndValidateAcceptsValidConfig(t *testing.T) {
	out, res := NormalizeAndValidate(validConfig())
	assert.True(t, res.OK(), "errors: %v", res.Errors)
	assert.Equal(t, 587, out.SMTP.Port, "smtp port defaults to 587")
}

func TestNormalizeAndValidateErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no sources", func(c *Config) { c.Sources.Adzuna.Enabled = false }, "No sources enabled"},
		{"adzuna without app id", func(c *Config) { c.Sources.Adzuna.AppID = "" }, "app_id"},
		{"missing smtp host", func(c *Config) { c.SMTP.Host = "  " }, "smtp.host"},
		{"zero quota", func(c *Config) { c.Defaults.MaxPerDay = 0 }, "max_per_day"},
		{"bad cron", func(c *Config) {
			c.Scheduler.Enabled = true
			c.Scheduler.Cron = "not a cron"
		}, "cron"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			_, res := NormalizeAndValidate(cfg)
			require.False(t, res.OK())
			assert.Contains(t, res.Errors[0], tc.want)
		})
	}
}

func TestNormalizeFillsReplyDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.Replies.Enabled = true
	cfg.Replies.IMAPHost = "imap.example.com"
	cfg.Replies.IMAPPort = 993
	cfg.Replies.Username = "bot@example.com"

	out, res := NormalizeAndValidate(cfg)
	require.True(t, res.OK(), "errors: %v", res.Errors)
	assert.Equal(t, "INBOX", out.Replies.Mailbox)
	assert.Equal(t, 300, out.Replies.PollSeconds)
}

func TestSaveAtomicRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")

	cfg := validConfig()
	require.NoError(t, SaveAtomic(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.SMTP.Host, got.SMTP.Host)
	assert.Equal(t, cfg.Defaults.MaxPerDay, got.Defaults.MaxPerDay)

	// a second save keeps a .bak of the previous file
	cfg.App.Port = 9000
	require.NoError(t, SaveAtomic(path, cfg))
	_, err = os.Stat(path + ".bak")
	assert.NoError(t, err)
}

func TestSaveAtomicRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")

	cfg := validConfig()
	cfg.SMTP.Host = ""
	err := SaveAtomic(path, cfg)
	require.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "invalid config must not be written")
}

func TestEnsureUserConfigCopiesDefaultOnce(t *testing.T) {
	dir := t.TempDir()
	def := filepath.Join(dir, "default.yml")
	require.NoError(t, os.WriteFile(def, []byte("app:\n  port: 8787\n"), 0o644))

	userPath, err := EnsureUserConfig(dir, def)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.yml"), userPath)

	// user edits survive a second bootstrap
	require.NoError(t, os.WriteFile(userPath, []byte("app:\n  port: 9999\n"), 0o644))
	again, err := EnsureUserConfig(dir, def)
	require.NoError(t, err)
	got, err := Load(again)
	require.NoError(t, err)
	assert.Equal(t, 9999, got.App.Port)
}

func TestOverlayEnv(t *testing.T) {
	cfg := validConfig()
	t.Setenv("AUTOAPPLY_PORT", "9090")
	t.Setenv("SMTP_HOST", "smtp.other.example")
	OverlayEnv(&cfg)
	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, "smtp.other.example", cfg.SMTP.Host)
	assert.Equal(t, "bot@example.com", cfg.SMTP.Username, "unset vars leave values alone")
}
