package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a normalized copy plus everything wrong or
// suspicious about it. Errors block startup, warnings only get logged.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	out.SMTP.Host = strings.TrimSpace(out.SMTP.Host)
	out.SMTP.Username = strings.TrimSpace(out.SMTP.Username)
	out.SMTP.FromAddr = strings.TrimSpace(out.SMTP.FromAddr)
	out.Replies.IMAPHost = strings.TrimSpace(out.Replies.IMAPHost)
	out.Scheduler.Cron = strings.TrimSpace(out.Scheduler.Cron)

	// ---- Validation rules ----

	if !out.Sources.FranceTravail.Enabled && !out.Sources.Adzuna.Enabled &&
		!out.Sources.Jooble.Enabled && !out.Sources.HelloWork.Enabled {
		res.addErr("No sources enabled: enable francetravail, adzuna, jooble or hellowork")
	}

	if out.Sources.FranceTravail.Enabled && out.Sources.FranceTravail.ClientID == "" {
		res.addErr("sources.francetravail.client_id is required when francetravail is enabled")
	}
	if out.Sources.Adzuna.Enabled && out.Sources.Adzuna.AppID == "" {
		res.addErr("sources.adzuna.app_id is required when adzuna is enabled")
	}

	// scheduler sanity
	if out.Scheduler.Enabled {
		if out.Scheduler.Cron == "" {
			res.addErr("scheduler.cron is required when scheduler.enabled=true")
		} else if _, err := cron.ParseStandard(out.Scheduler.Cron); err != nil {
			res.addErr("scheduler.cron is not a valid cron expression: %v", err)
		}
	}

	// defaults sanity
	if out.Defaults.MaxPerDay <= 0 {
		res.addErr("defaults.max_per_day must be > 0")
	} else if out.Defaults.MaxPerDay > 50 {
		res.addWarn("defaults.max_per_day is very high (%d) and may trip provider rate limits.", out.Defaults.MaxPerDay)
	}
	if out.Defaults.DurationDays <= 0 {
		res.addErr("defaults.duration_days must be > 0")
	}

	// dispatch required fields (password not required here; it lives in the keychain)
	if strings.TrimSpace(out.SMTP.Host) == "" {
		res.addErr("smtp.host is required")
	}
	if out.SMTP.Port == 0 {
		out.SMTP.Port = 587
	}
	if out.SMTP.Username == "" {
		res.addErr("smtp.username is required")
	}
	if out.SMTP.FromAddr == "" {
		res.addWarn("smtp.from_addr is empty; smtp.username will be used as the sender address.")
	}

	// reply watching required fields if enabled
	if out.Replies.Enabled {
		if out.Replies.IMAPHost == "" {
			res.addErr("replies.imap_host is required when replies.enabled=true")
		}
		if out.Replies.IMAPPort == 0 {
			res.addErr("replies.imap_port is required when replies.enabled=true")
		}
		if strings.TrimSpace(out.Replies.Username) == "" {
			res.addErr("replies.username is required when replies.enabled=true")
		}
		if strings.TrimSpace(out.Replies.Mailbox) == "" {
			out.Replies.Mailbox = "INBOX"
		}
		if out.Replies.PollSeconds <= 0 {
			out.Replies.PollSeconds = 300
		} else if out.Replies.PollSeconds < 30 {
			res.addWarn("replies.poll_seconds is very low (%d) and may cause rate limits.", out.Replies.PollSeconds)
		}
	}

	if out.Generator.Enabled && out.Generator.Model == "" {
		out.Generator.Model = "gemini-2.5-flash"
	}

	return out, res
}
