package store

import (
	"context"
	"fmt"
	"time"

	"autoapply-engine/internal/domain"
)

// AttemptedIDs returns every target external id this campaign has a row for,
// regardless of status: at-most-one-attempt-ever is deliberate, a failed
// attempt is not retried on a later day.
func (d *DB) AttemptedIDs(ctx context.Context, campaignID string) (map[string]bool, error) {
	rows, err := d.Pool.QueryContext(ctx, `
SELECT target_external_id FROM applications WHERE campaign_id = ?;`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

func (d *DB) InsertApplication(ctx context.Context, a domain.Application) error {
	var letter, errMsg any
	if a.LetterText != "" {
		letter = a.LetterText
	}
	if a.ErrorMessage != "" {
		errMsg = a.ErrorMessage
	}
	_, err := d.Pool.ExecContext(ctx, `
INSERT INTO applications(campaign_id, target_external_id, target_name, target_email, target_url, source, letter_text, status, error_message, sent_at)
VALUES(?,?,?,?,?,?,?,?,?,?);`,
		a.CampaignID, a.TargetExternalID, a.TargetName, a.TargetEmail, a.TargetURL,
		a.Source, letter, a.Status, errMsg, a.SentAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

func (d *DB) ListApplications(ctx context.Context, campaignID, ownerID string) ([]domain.Application, error) {
	rows, err := d.Pool.QueryContext(ctx, `
SELECT a.id, a.campaign_id, a.target_external_id, a.target_name, a.target_email, a.target_url,
       a.source, COALESCE(a.letter_text, ''), a.status, COALESCE(a.error_message, ''), a.sent_at
FROM applications a
JOIN campaigns c ON c.id = a.campaign_id
WHERE a.campaign_id = ? AND c.owner_id = ?
ORDER BY a.id;`, campaignID, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Application
	for rows.Next() {
		var a domain.Application
		var sentAt string
		if err := rows.Scan(&a.ID, &a.CampaignID, &a.TargetExternalID, &a.TargetName,
			&a.TargetEmail, &a.TargetURL, &a.Source, &a.LetterText, &a.Status,
			&a.ErrorMessage, &sentAt); err != nil {
			return nil, err
		}
		a.SentAt, _ = time.Parse(time.RFC3339, sentAt)
		out = append(out, a)
	}
	return out, rows.Err()
}

// MarkRepliedByEmail flips sent applications targeting addr to replied; used
// by the inbox watcher when a recruiter answers.
func (d *DB) MarkRepliedByEmail(ctx context.Context, addr string) (int64, error) {
	res, err := d.Pool.ExecContext(ctx, `
UPDATE applications SET status = 'replied'
WHERE target_email = ? AND status = 'sent';`, addr)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
