package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"autoapply-engine/internal/domain"
)

// ErrBadTransition is returned when a requested status change is not allowed
// by the campaign state machine.
var ErrBadTransition = errors.New("status transition not allowed")

const campaignCols = `id, owner_id, status, duration_days, ends_at, max_per_day, total_sent, created_at, updated_at`

func scanCampaign(row interface{ Scan(...any) error }) (domain.Campaign, error) {
	var c domain.Campaign
	var endsAt, createdAt, updatedAt string
	err := row.Scan(&c.ID, &c.OwnerID, &c.Status, &c.DurationDays, &endsAt, &c.MaxPerDay, &c.TotalSent, &createdAt, &updatedAt)
	if err != nil {
		return domain.Campaign{}, err
	}
	c.EndsAt, _ = time.Parse(time.RFC3339, endsAt)
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return c, nil
}

func (d *DB) CreateCampaign(ctx context.Context, c domain.Campaign) error {
	_, err := d.Pool.ExecContext(ctx, `
INSERT INTO campaigns(id, owner_id, status, duration_days, ends_at, max_per_day, total_sent, created_at, updated_at)
VALUES(?,?,?,?,?,?,?,?,?);`,
		c.ID, c.OwnerID, c.Status, c.DurationDays,
		c.EndsAt.UTC().Format(time.RFC3339), c.MaxPerDay, c.TotalSent,
		c.CreatedAt.UTC().Format(time.RFC3339), c.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

func (d *DB) GetCampaign(ctx context.Context, id, ownerID string) (domain.Campaign, error) {
	row := d.Pool.QueryRowContext(ctx, `
SELECT `+campaignCols+` FROM campaigns WHERE id = ? AND owner_id = ?;`, id, ownerID)
	c, err := scanCampaign(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Campaign{}, ErrNotFound
	}
	return c, err
}

// ListActiveCampaigns returns active, non-expired campaigns; ownerID == ""
// means all owners (the scheduled trigger).
func (d *DB) ListActiveCampaigns(ctx context.Context, now time.Time, ownerID string) ([]domain.Campaign, error) {
	query := `SELECT ` + campaignCols + ` FROM campaigns WHERE status = 'active' AND ends_at >= ?`
	args := []any{now.UTC().Format(time.RFC3339)}
	if ownerID != "" {
		query += ` AND owner_id = ?`
		args = append(args, ownerID)
	}
	query += ` ORDER BY created_at;`

	rows, err := d.Pool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// candidate-driven transitions; the runner's automatic active→completed flip
// goes through CompleteCampaign instead.
var allowedTransitions = map[domain.CampaignStatus][]domain.CampaignStatus{
	domain.CampaignActive: {domain.CampaignPaused, domain.CampaignCancelled},
	domain.CampaignPaused: {domain.CampaignActive, domain.CampaignCancelled},
}

// TransitionCampaign applies a candidate-requested status change, enforcing
// the state machine in one guarded UPDATE.
func (d *DB) TransitionCampaign(ctx context.Context, id, ownerID string, to domain.CampaignStatus) error {
	c, err := d.GetCampaign(ctx, id, ownerID)
	if err != nil {
		return err
	}
	ok := false
	for _, next := range allowedTransitions[c.Status] {
		if next == to {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, c.Status, to)
	}

	res, err := d.Pool.ExecContext(ctx, `
UPDATE campaigns SET status = ?, updated_at = ?
WHERE id = ? AND owner_id = ? AND status = ?;`,
		to, time.Now().UTC().Format(time.RFC3339), id, ownerID, c.Status)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: campaign changed concurrently", ErrBadTransition)
	}
	return nil
}

// CompleteCampaign is the runner's automatic expiry transition.
func (d *DB) CompleteCampaign(ctx context.Context, id string) error {
	_, err := d.Pool.ExecContext(ctx, `
UPDATE campaigns SET status = 'completed', updated_at = ?
WHERE id = ? AND status = 'active';`,
		time.Now().UTC().Format(time.RFC3339), id)
	return err
}

// AddSent bumps total_sent by the number of rows committed this run.
func (d *DB) AddSent(ctx context.Context, id string, n int) error {
	_, err := d.Pool.ExecContext(ctx, `
UPDATE campaigns SET total_sent = total_sent + ?, updated_at = ?
WHERE id = ?;`,
		n, time.Now().UTC().Format(time.RFC3339), id)
	return err
}

// ClaimRun takes the per-campaign run lock: an atomic compare-and-set on the
// running marker. A second invocation of the same campaign observes false
// and no-ops instead of risking a double send.
func (d *DB) ClaimRun(ctx context.Context, id string) (bool, error) {
	res, err := d.Pool.ExecContext(ctx, `
UPDATE campaigns SET running = 1 WHERE id = ? AND running = 0;`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *DB) ReleaseRun(ctx context.Context, id string) {
	if _, err := d.Pool.ExecContext(ctx, `UPDATE campaigns SET running = 0 WHERE id = ?;`, id); err != nil {
		log.Printf("[store] campaign=%s release run: %v", id, err)
	}
}

// ResetRunMarkers clears run claims left behind by a crash. Called once at
// startup, before any run can be in flight; the instance lock guarantees no
// other engine holds a live claim.
func (d *DB) ResetRunMarkers(ctx context.Context) (int64, error) {
	res, err := d.Pool.ExecContext(ctx, `UPDATE campaigns SET running = 0 WHERE running = 1;`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
