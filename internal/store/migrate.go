package store

func (d *DB) Migrate() error {
	tx, err := d.Pool.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}
	if v >= 1 {
		return tx.Commit()
	}

	// ---- Schema v1 ----

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS profiles (
  owner_id TEXT PRIMARY KEY,
  candidate_name TEXT NOT NULL DEFAULT '',
  campaign_email TEXT NOT NULL DEFAULT '',
  auto_apply INTEGER NOT NULL DEFAULT 0,
  titles TEXT NOT NULL DEFAULT '[]',
  locations TEXT NOT NULL DEFAULT '[]',
  contract_type TEXT NOT NULL DEFAULT '',
  fallback_letter TEXT NOT NULL DEFAULT '',
  updated_at TEXT NOT NULL
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS campaigns (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  duration_days INTEGER NOT NULL,
  ends_at TEXT NOT NULL,
  max_per_day INTEGER NOT NULL,
  total_sent INTEGER NOT NULL DEFAULT 0,
  running INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS applications (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  campaign_id TEXT NOT NULL,
  target_external_id TEXT NOT NULL,
  target_name TEXT NOT NULL DEFAULT '',
  target_email TEXT NOT NULL DEFAULT '',
  target_url TEXT NOT NULL DEFAULT '',
  source TEXT NOT NULL DEFAULT '',
  letter_text TEXT,
  status TEXT NOT NULL,
  error_message TEXT,
  sent_at TEXT NOT NULL
);
`); err != nil {
		return err
	}

	// the dedup invariant: one attempt per (campaign, listing), ever
	if _, err := tx.Exec(`
CREATE UNIQUE INDEX IF NOT EXISTS idx_applications_campaign_target
ON applications(campaign_id, target_external_id);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_campaigns_status_ends
ON campaigns(status, ends_at);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_applications_target_email
ON applications(target_email);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`PRAGMA user_version = 1;`); err != nil {
		return err
	}

	return tx.Commit()
}
