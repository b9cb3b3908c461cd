package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"autoapply-engine/internal/domain"
)

func (d *DB) GetProfile(ctx context.Context, ownerID string) (domain.Profile, error) {
	row := d.Pool.QueryRowContext(ctx, `
SELECT owner_id, candidate_name, campaign_email, auto_apply, titles, locations, contract_type, fallback_letter, updated_at
FROM profiles WHERE owner_id = ?;`, ownerID)

	var p domain.Profile
	var autoApply int
	var titles, locations, updatedAt string
	err := row.Scan(&p.OwnerID, &p.CandidateName, &p.CampaignEmail, &autoApply,
		&titles, &locations, &p.ContractPref, &p.FallbackLetter, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Profile{}, ErrNotFound
	}
	if err != nil {
		return domain.Profile{}, err
	}
	p.AutoApply = autoApply != 0
	_ = json.Unmarshal([]byte(titles), &p.Titles)
	_ = json.Unmarshal([]byte(locations), &p.Locations)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return p, nil
}

func (d *DB) PutProfile(ctx context.Context, p domain.Profile) error {
	titles, _ := json.Marshal(p.Titles)
	locations, _ := json.Marshal(p.Locations)
	autoApply := 0
	if p.AutoApply {
		autoApply = 1
	}
	_, err := d.Pool.ExecContext(ctx, `
INSERT INTO profiles(owner_id, candidate_name, campaign_email, auto_apply, titles, locations, contract_type, fallback_letter, updated_at)
VALUES(?,?,?,?,?,?,?,?,?)
ON CONFLICT(owner_id) DO UPDATE SET
  candidate_name = excluded.candidate_name,
  campaign_email = excluded.campaign_email,
  auto_apply = excluded.auto_apply,
  titles = excluded.titles,
  locations = excluded.locations,
  contract_type = excluded.contract_type,
  fallback_letter = excluded.fallback_letter,
  updated_at = excluded.updated_at;`,
		p.OwnerID, p.CandidateName, p.CampaignEmail, autoApply,
		string(titles), string(locations), p.ContractPref, p.FallbackLetter,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("put profile: %w", err)
	}
	return nil
}
