package runner

import (
	"context"
	"fmt"
	"log"
	"time"

	"autoapply-engine/internal/domain"
	"autoapply-engine/internal/events"
	"autoapply-engine/internal/letter"
	"autoapply-engine/internal/mail"
	"autoapply-engine/internal/match"
	"autoapply-engine/internal/source"
	"autoapply-engine/internal/store"
)

// Store is the persistence the runner needs; *store.DB implements it, tests
// inject doubles.
type Store interface {
	GetCampaign(ctx context.Context, id, ownerID string) (domain.Campaign, error)
	GetProfile(ctx context.Context, ownerID string) (domain.Profile, error)
	ListActiveCampaigns(ctx context.Context, now time.Time, ownerID string) ([]domain.Campaign, error)
	AttemptedIDs(ctx context.Context, campaignID string) (map[string]bool, error)
	InsertApplication(ctx context.Context, a domain.Application) error
	AddSent(ctx context.Context, id string, n int) error
	CompleteCampaign(ctx context.Context, id string) error
	ClaimRun(ctx context.Context, id string) (bool, error)
	ReleaseRun(ctx context.Context, id string)
}

// Fetcher is the aggregated listing source; *source.Aggregator implements it.
type Fetcher interface {
	Fetch(ctx context.Context, q source.Query) []domain.Job
}

// Publisher receives engine events; *events.Hub implements it.
type Publisher interface {
	Publish(evt string)
}

// RunResult is one campaign-day outcome. Reason is set (and Sent is zero)
// when a precondition short-circuited the run; it is user-presentable text,
// not an exception.
type RunResult struct {
	CampaignID string `json:"campaignId"`
	UserID     string `json:"userId"`
	Sent       int    `json:"sent"`
	Total      int    `json:"total"`
	Reason     string `json:"error,omitempty"`
}

// Runner composes connectors, matcher, generator, dispatcher and store for
// one campaign day. All collaborators are injected; it holds no globals.
type Runner struct {
	Store     Store
	Fetcher   Fetcher
	Generator letter.Generator // nil means fallback-only
	Sender    mail.Sender
	Identity  mail.Identity
	Events    Publisher        // optional
	Now       func() time.Time // defaults to time.Now
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) publish(evt string) {
	if r.Events != nil {
		r.Events.Publish(evt)
	}
}

func skip(c domain.Campaign, ownerID string, kind Kind, reason string) RunResult {
	log.Printf("[runner] campaign=%s skipped kind=%s reason=%q", c.ID, kind, reason)
	return RunResult{CampaignID: c.ID, UserID: ownerID, Reason: reason}
}

// RunCampaignDay executes one day of one campaign. Precondition failures
// come back as a zero-sent RunResult with a reason; only unexpected store
// failures return an error.
func (r *Runner) RunCampaignDay(ctx context.Context, campaignID, ownerID string) (RunResult, error) {
	now := r.now()

	// 1. campaign eligibility — nothing else is touched on failure
	c, err := r.Store.GetCampaign(ctx, campaignID, ownerID)
	if err == store.ErrNotFound {
		return RunResult{CampaignID: campaignID, UserID: ownerID, Reason: "campaign not found"}, nil
	}
	if err != nil {
		return RunResult{}, fmt.Errorf("load campaign: %w", err)
	}
	if c.Status != domain.CampaignActive {
		return skip(c, ownerID, KindCampaignNotEligible, "campaign is "+string(c.Status)), nil
	}
	if c.Expired(now) {
		// flip regardless of whether anything was sent this run
		if err := r.Store.CompleteCampaign(ctx, c.ID); err != nil {
			return RunResult{}, fmt.Errorf("complete campaign: %w", err)
		}
		r.publish(events.CampaignCompleted(c.ID))
		return skip(c, ownerID, KindCampaignNotEligible, "campaign has ended"), nil
	}

	// 2. profile completeness — checked before any listing is fetched
	p, err := r.Store.GetProfile(ctx, ownerID)
	if err == store.ErrNotFound {
		return skip(c, ownerID, KindProfileIncomplete, "profile not found"), nil
	}
	if err != nil {
		return RunResult{}, fmt.Errorf("load profile: %w", err)
	}
	if why := p.Incomplete(); why != "" {
		return skip(c, ownerID, KindProfileIncomplete, why), nil
	}

	// per-campaign run lock: a concurrent second invocation no-ops instead
	// of double-sending before either commits its dedup rows
	claimed, err := r.Store.ClaimRun(ctx, c.ID)
	if err != nil {
		return RunResult{}, fmt.Errorf("claim run: %w", err)
	}
	if !claimed {
		return skip(c, ownerID, KindCampaignNotEligible, "a run is already in progress"), nil
	}
	// bookkeeping writes must not ride a context the trigger can cancel: a
	// failed release would wedge the campaign, a lost outcome row would let
	// the next run re-apply to a target that was already contacted
	detached := context.WithoutCancel(ctx)
	defer r.Store.ReleaseRun(detached, c.ID)

	// 3-4. fetch and match; connector failures already degraded to empty
	jobs := r.Fetcher.Fetch(ctx, source.Query{
		Title:        p.PrimaryTitle(),
		Location:     p.PrimaryLocation(),
		ContractType: p.ContractPref,
		Limit:        c.MaxPerDay * 10, // headroom: most listings drop out below
	})
	matched := match.Filter(jobs, p)

	// 5. drop already-attempted targets (any status) and targets without a
	// usable email
	attempted, err := r.Store.AttemptedIDs(ctx, c.ID)
	if err != nil {
		return RunResult{}, fmt.Errorf("load attempted ids: %w", err)
	}
	fresh := matched[:0]
	for _, j := range matched {
		if attempted[j.ExternalID] || j.TargetEmail == "" {
			continue
		}
		fresh = append(fresh, j)
	}

	// 6. quota
	if c.MaxPerDay > 0 && len(fresh) > c.MaxPerDay {
		fresh = fresh[:c.MaxPerDay]
	}

	// 7. per-job loop: each iteration commits its own row; one item's
	// failure never blocks the next
	sent := 0
	for _, j := range fresh {
		app := r.applyToJob(ctx, p, c, j)
		if err := r.Store.InsertApplication(detached, app); err != nil {
			log.Printf("[runner] campaign=%s target=%s kind=%s err=%v",
				c.ID, j.ExternalID, KindPersistenceFailed, err)
			continue
		}
		if app.Status == domain.ApplicationSent {
			sent++
			r.publish(events.ApplicationSent(c.ID, app.TargetName))
		}
	}

	// 8. counters reflect committed sent rows only
	if err := r.Store.AddSent(detached, c.ID, sent); err != nil {
		return RunResult{}, fmt.Errorf("update counters: %w", err)
	}

	// 9. expiry re-check: the campaign may have ended mid-run
	if c.Expired(r.now()) {
		if err := r.Store.CompleteCampaign(detached, c.ID); err != nil {
			return RunResult{}, fmt.Errorf("complete campaign: %w", err)
		}
		r.publish(events.CampaignCompleted(c.ID))
	}

	res := RunResult{CampaignID: c.ID, UserID: ownerID, Sent: sent, Total: len(fresh)}
	r.publish(events.RunFinished(c.ID, res.Sent, res.Total))
	log.Printf("[runner] campaign=%s done sent=%d total=%d", c.ID, res.Sent, res.Total)
	return res, nil
}

// applyToJob generates, dispatches and shapes the outcome row for one
// listing. It never fails: every path yields exactly one Application.
func (r *Runner) applyToJob(ctx context.Context, p domain.Profile, c domain.Campaign, j domain.Job) domain.Application {
	text := ""
	if r.Generator != nil {
		out, err := r.Generator.Generate(ctx, p, j)
		if err != nil {
			log.Printf("[runner] campaign=%s target=%s kind=%s err=%v",
				c.ID, j.ExternalID, KindContentGenerationFailed, err)
		} else {
			text = out
		}
	}
	if text == "" {
		text = letter.Fallback(p, j)
	}

	res := r.Sender.Send(ctx, mail.Message{
		To:      j.TargetEmail,
		ReplyTo: p.CampaignEmail,
		Subject: "Application for " + j.Title,
		HTML:    letter.HTMLBody(text),
	}, r.Identity)

	app := domain.Application{
		CampaignID:       c.ID,
		TargetExternalID: j.ExternalID,
		TargetName:       j.TargetName(),
		TargetEmail:      j.TargetEmail,
		TargetURL:        j.TargetURL,
		Source:           j.Source,
		LetterText:       text,
		SentAt:           r.now().UTC(),
	}
	if res.OK {
		app.Status = domain.ApplicationSent
	} else {
		app.Status = domain.ApplicationFailed
		app.ErrorMessage = res.Error
		log.Printf("[runner] campaign=%s target=%s kind=%s err=%q",
			c.ID, j.ExternalID, KindDispatchFailed, res.Error)
	}
	return app
}

// RunAll runs every active, non-expired campaign (ownerID == "" means all
// owners). Each campaign runs in its own failure boundary: a panic or error
// in one becomes that campaign's result and the loop goes on.
func (r *Runner) RunAll(ctx context.Context, ownerID string) []RunResult {
	campaigns, err := r.Store.ListActiveCampaigns(ctx, r.now(), ownerID)
	if err != nil {
		log.Printf("[runner] list campaigns: %v", err)
		return nil
	}

	results := make([]RunResult, 0, len(campaigns))
	for _, c := range campaigns {
		results = append(results, r.runIsolated(ctx, c))
	}
	return results
}

func (r *Runner) runIsolated(ctx context.Context, c domain.Campaign) (res RunResult) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[runner] campaign=%s panic: %v", c.ID, rec)
			res = RunResult{CampaignID: c.ID, UserID: c.OwnerID, Reason: fmt.Sprintf("internal error: %v", rec)}
		}
	}()

	res, err := r.RunCampaignDay(ctx, c.ID, c.OwnerID)
	if err != nil {
		log.Printf("[runner] campaign=%s error: %v", c.ID, err)
		return RunResult{CampaignID: c.ID, UserID: c.OwnerID, Reason: err.Error()}
	}
	return res
}

// Summarize builds the manual trigger's human-readable line: total sent when
// anything went out, else the first reported reason, else the generic text.
func Summarize(results []RunResult) string {
	total := 0
	for _, res := range results {
		total += res.Sent
	}
	if total > 0 {
		return fmt.Sprintf("%d application(s) sent across %d campaign(s)", total, len(results))
	}
	for _, res := range results {
		if res.Reason != "" {
			return res.Reason
		}
	}
	return "no new application found or quota reached"
}
