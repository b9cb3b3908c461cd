package runner

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"autoapply-engine/internal/domain"
	"autoapply-engine/internal/mail"
	"autoapply-engine/internal/source"
	"autoapply-engine/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- doubles ----

type fakeStore struct {
	campaigns map[string]domain.Campaign
	profiles  map[string]domain.Profile
	apps      []domain.Application
	running   map[string]bool
	completed map[string]bool
	sentAdded map[string]int

	failInsertFor string          // target external id whose insert fails
	releaseCtx    context.Context // context the last ReleaseRun rode on
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		campaigns: map[string]domain.Campaign{},
		profiles:  map[string]domain.Profile{},
		running:   map[string]bool{},
		completed: map[string]bool{},
		sentAdded: map[string]int{},
	}
}

func (s *fakeStore) GetCampaign(_ context.Context, id, owner string) (domain.Campaign, error) {
	c, ok := s.campaigns[id]
	if !ok || c.OwnerID != owner {
		return domain.Campaign{}, store.ErrNotFound
	}
	return c, nil
}

func (s *fakeStore) GetProfile(_ context.Context, owner string) (domain.Profile, error) {
	p, ok := s.profiles[owner]
	if !ok {
		return domain.Profile{}, store.ErrNotFound
	}
	return p, nil
}

func (s *fakeStore) ListActiveCampaigns(_ context.Context, now time.Time, owner string) ([]domain.Campaign, error) {
	var out []domain.Campaign
	for _, c := range s.campaigns {
		if c.Status != domain.CampaignActive || c.Expired(now) {
			continue
		}
		if owner != "" && c.OwnerID != owner {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *fakeStore) AttemptedIDs(_ context.Context, campaignID string) (map[string]bool, error) {
	out := map[string]bool{}
	for _, a := range s.apps {
		if a.CampaignID == campaignID {
			out[a.TargetExternalID] = true
		}
	}
	return out, nil
}

func (s *fakeStore) InsertApplication(ctx context.Context, a domain.Application) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if a.TargetExternalID == s.failInsertFor {
		return errors.New("disk full")
	}
	for _, prev := range s.apps {
		if prev.CampaignID == a.CampaignID && prev.TargetExternalID == a.TargetExternalID {
			return errors.New("unique constraint violated")
		}
	}
	s.apps = append(s.apps, a)
	return nil
}

func (s *fakeStore) AddSent(ctx context.Context, id string, n int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.sentAdded[id] += n
	c := s.campaigns[id]
	c.TotalSent += n
	s.campaigns[id] = c
	return nil
}

func (s *fakeStore) CompleteCampaign(_ context.Context, id string) error {
	s.completed[id] = true
	c := s.campaigns[id]
	c.Status = domain.CampaignCompleted
	s.campaigns[id] = c
	return nil
}

func (s *fakeStore) ClaimRun(_ context.Context, id string) (bool, error) {
	if s.running[id] {
		return false, nil
	}
	s.running[id] = true
	return true, nil
}

func (s *fakeStore) ReleaseRun(ctx context.Context, id string) {
	s.releaseCtx = ctx
	if ctx.Err() != nil {
		return // a cancelled context never reaches the database
	}
	s.running[id] = false
}

func (s *fakeStore) rowsFor(campaignID string) []domain.Application {
	var out []domain.Application
	for _, a := range s.apps {
		if a.CampaignID == campaignID {
			out = append(out, a)
		}
	}
	return out
}

type fakeFetcher struct {
	jobs  []domain.Job
	calls int
}

func (f *fakeFetcher) Fetch(context.Context, source.Query) []domain.Job {
	f.calls++
	return f.jobs
}

type fakeGenerator struct {
	text  string
	err   error
	calls int
}

func (g *fakeGenerator) Generate(context.Context, domain.Profile, domain.Job) (string, error) {
	g.calls++
	return g.text, g.err
}

type fakeSender struct {
	failFor map[string]string // recipient -> error
	sent    []mail.Message
}

func (s *fakeSender) Send(_ context.Context, msg mail.Message, _ mail.Identity) mail.SendResult {
	if e, ok := s.failFor[msg.To]; ok {
		return mail.SendResult{OK: false, Error: e}
	}
	s.sent = append(s.sent, msg)
	return mail.SendResult{OK: true, ID: fmt.Sprintf("msg-%d", len(s.sent))}
}

// ---- fixtures ----

func activeCampaign(id, owner string, maxPerDay int) domain.Campaign {
	return domain.Campaign{
		ID:        id,
		OwnerID:   owner,
		Status:    domain.CampaignActive,
		EndsAt:    time.Now().Add(24 * time.Hour),
		MaxPerDay: maxPerDay,
	}
}

func completeProfile(owner string) domain.Profile {
	return domain.Profile{
		OwnerID:       owner,
		CandidateName: "Ada Lovelace",
		CampaignEmail: "ada@example.com",
		AutoApply:     true,
	}
}

func jobsWithEmails(n int) []domain.Job {
	out := make([]domain.Job, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, domain.Job{
			ExternalID:  fmt.Sprintf("j%d", i),
			Source:      "adzuna",
			CompanyName: fmt.Sprintf("Co%d", i),
			Title:       "Backend Developer",
			TargetEmail: fmt.Sprintf("jobs%d@example.com", i),
		})
	}
	return out
}

type rig struct {
	store   *fakeStore
	fetcher *fakeFetcher
	gen     *fakeGenerator
	sender  *fakeSender
	runner  *Runner
}

func newRig(jobs []domain.Job) *rig {
	st := newFakeStore()
	f := &fakeFetcher{jobs: jobs}
	g := &fakeGenerator{text: "Dear team, I would love to join."}
	snd := &fakeSender{failFor: map[string]string{}}
	return &rig{
		store:   st,
		fetcher: f,
		gen:     g,
		sender:  snd,
		runner: &Runner{
			Store:     st,
			Fetcher:   f,
			Generator: g,
			Sender:    snd,
			Identity:  mail.Identity{Name: "AutoApply", Address: "noreply@autoapply.test"},
		},
	}
}

// ---- tests ----

func TestIncompleteProfileShortCircuits(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*domain.Profile)
	}{
		{"missing email", func(p *domain.Profile) { p.CampaignEmail = "" }},
		{"malformed email", func(p *domain.Profile) { p.CampaignEmail = "not-an-address" }},
		{"missing name", func(p *domain.Profile) { p.CandidateName = "" }},
		{"auto-apply off", func(p *domain.Profile) { p.AutoApply = false }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := newRig(jobsWithEmails(3))
			r.store.campaigns["c1"] = activeCampaign("c1", "u1", 10)
			p := completeProfile("u1")
			c.mutate(&p)
			r.store.profiles["u1"] = p

			res, err := r.runner.RunCampaignDay(context.Background(), "c1", "u1")
			require.NoError(t, err)
			assert.Zero(t, res.Sent)
			assert.NotEmpty(t, res.Reason)
			assert.Zero(t, r.fetcher.calls, "no connector call")
			assert.Zero(t, r.gen.calls, "no generation call")
			assert.Empty(t, r.sender.sent, "no dispatch call")
			assert.Empty(t, r.store.apps)
		})
	}
}

func TestIneligibleCampaignShortCircuits(t *testing.T) {
	for _, status := range []domain.CampaignStatus{domain.CampaignPaused, domain.CampaignCancelled, domain.CampaignCompleted} {
		t.Run(string(status), func(t *testing.T) {
			r := newRig(jobsWithEmails(3))
			c := activeCampaign("c1", "u1", 10)
			c.Status = status
			r.store.campaigns["c1"] = c
			r.store.profiles["u1"] = completeProfile("u1")

			res, err := r.runner.RunCampaignDay(context.Background(), "c1", "u1")
			require.NoError(t, err)
			assert.Zero(t, res.Sent)
			assert.NotEmpty(t, res.Reason)
			assert.Empty(t, r.store.apps)
			assert.Zero(t, r.fetcher.calls)
		})
	}
}

func TestWrongOwnerIsNotFound(t *testing.T) {
	r := newRig(nil)
	r.store.campaigns["c1"] = activeCampaign("c1", "u1", 10)

	res, err := r.runner.RunCampaignDay(context.Background(), "c1", "intruder")
	require.NoError(t, err)
	assert.Equal(t, "campaign not found", res.Reason)
}

func TestExpiredCampaignCompletesEvenWithZeroSent(t *testing.T) {
	r := newRig(jobsWithEmails(3))
	c := activeCampaign("c1", "u1", 10)
	c.EndsAt = time.Now().Add(-time.Hour)
	r.store.campaigns["c1"] = c
	r.store.profiles["u1"] = completeProfile("u1")

	res, err := r.runner.RunCampaignDay(context.Background(), "c1", "u1")
	require.NoError(t, err)
	assert.Zero(t, res.Sent)
	assert.NotEmpty(t, res.Reason)
	assert.True(t, r.store.completed["c1"])
	assert.Equal(t, domain.CampaignCompleted, r.store.campaigns["c1"].Status)
	assert.Empty(t, r.store.apps)
}

func TestIdempotencyAcrossRuns(t *testing.T) {
	r := newRig(jobsWithEmails(5))
	r.store.campaigns["c1"] = activeCampaign("c1", "u1", 10)
	r.store.profiles["u1"] = completeProfile("u1")

	first, err := r.runner.RunCampaignDay(context.Background(), "c1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 5, first.Sent)

	second, err := r.runner.RunCampaignDay(context.Background(), "c1", "u1")
	require.NoError(t, err)
	assert.Zero(t, second.Sent)
	assert.Zero(t, second.Total)

	assert.Len(t, r.store.apps, 5, "second run must not add rows")
	assert.Equal(t, 5, r.store.campaigns["c1"].TotalSent)
}

func TestQuotaEnforcement(t *testing.T) {
	r := newRig(jobsWithEmails(8))
	r.store.campaigns["c1"] = activeCampaign("c1", "u1", 3)
	r.store.profiles["u1"] = completeProfile("u1")

	res, err := r.runner.RunCampaignDay(context.Background(), "c1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Sent)
	assert.Equal(t, 3, res.Total)
	assert.Len(t, r.store.apps, 3)
	assert.Equal(t, 3, r.store.sentAdded["c1"])
}

func TestJobsWithoutEmailAreSkipped(t *testing.T) {
	jobs := jobsWithEmails(2)
	jobs = append(jobs, domain.Job{ExternalID: "noemail", Source: "adzuna", Title: "Backend Developer"})
	r := newRig(jobs)
	r.store.campaigns["c1"] = activeCampaign("c1", "u1", 10)
	r.store.profiles["u1"] = completeProfile("u1")

	res, err := r.runner.RunCampaignDay(context.Background(), "c1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	for _, a := range r.store.apps {
		assert.NotEqual(t, "noemail", a.TargetExternalID)
	}
}

func TestDispatchFailureIsolation(t *testing.T) {
	r := newRig(jobsWithEmails(3))
	r.store.campaigns["c1"] = activeCampaign("c1", "u1", 10)
	r.store.profiles["u1"] = completeProfile("u1")
	r.sender.failFor["jobs2@example.com"] = "550 rejected"

	res, err := r.runner.RunCampaignDay(context.Background(), "c1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, 3, res.Total)

	rows := r.store.rowsFor("c1")
	require.Len(t, rows, 3)
	var failed *domain.Application
	for i := range rows {
		if rows[i].Status == domain.ApplicationFailed {
			failed = &rows[i]
		}
	}
	require.NotNil(t, failed)
	assert.Equal(t, "j2", failed.TargetExternalID)
	assert.Equal(t, "550 rejected", failed.ErrorMessage)
	assert.Equal(t, 2, r.store.sentAdded["c1"], "counter counts sent rows only")
}

func TestPersistenceFailureIsolation(t *testing.T) {
	r := newRig(jobsWithEmails(3))
	r.store.campaigns["c1"] = activeCampaign("c1", "u1", 10)
	r.store.profiles["u1"] = completeProfile("u1")
	r.store.failInsertFor = "j2"

	res, err := r.runner.RunCampaignDay(context.Background(), "c1", "u1")
	require.NoError(t, err)
	assert.Len(t, r.store.apps, 2, "other rows still commit")
	assert.Equal(t, 2, res.Sent, "a lost row is not counted as sent")
}

func TestGeneratorFailureFallsBackToTemplate(t *testing.T) {
	r := newRig(jobsWithEmails(1))
	r.store.campaigns["c1"] = activeCampaign("c1", "u1", 10)
	r.store.profiles["u1"] = completeProfile("u1")
	r.gen.err = errors.New("quota exceeded")
	r.gen.text = ""

	res, err := r.runner.RunCampaignDay(context.Background(), "c1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent, "generation failure is never fatal")
	require.Len(t, r.store.apps, 1)
	assert.Contains(t, r.store.apps[0].LetterText, "interview")
	assert.Contains(t, r.store.apps[0].LetterText, "Ada Lovelace")
}

func TestConcurrentRunObservesLock(t *testing.T) {
	r := newRig(jobsWithEmails(3))
	r.store.campaigns["c1"] = activeCampaign("c1", "u1", 10)
	r.store.profiles["u1"] = completeProfile("u1")
	r.store.running["c1"] = true // first run still holds the claim

	res, err := r.runner.RunCampaignDay(context.Background(), "c1", "u1")
	require.NoError(t, err)
	assert.Zero(t, res.Sent)
	assert.Contains(t, res.Reason, "already in progress")
	assert.Empty(t, r.store.apps)
}

// cancellingSender kills the run context right after delivering, the way a
// disconnecting HTTP caller does mid-sweep.
type cancellingSender struct {
	inner  *fakeSender
	cancel context.CancelFunc
}

func (s *cancellingSender) Send(ctx context.Context, msg mail.Message, id mail.Identity) mail.SendResult {
	res := s.inner.Send(ctx, msg, id)
	s.cancel()
	return res
}

func TestCancelledRunStillPersistsAndReleases(t *testing.T) {
	r := newRig(jobsWithEmails(2))
	r.store.campaigns["c1"] = activeCampaign("c1", "u1", 10)
	r.store.profiles["u1"] = completeProfile("u1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.runner.Sender = &cancellingSender{inner: r.sender, cancel: cancel}

	res, err := r.runner.RunCampaignDay(ctx, "c1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Sent)
	assert.Len(t, r.store.apps, 2, "dispatched targets must keep their dedup rows")
	assert.Equal(t, 2, r.store.sentAdded["c1"])

	require.NotNil(t, r.store.releaseCtx)
	assert.NoError(t, r.store.releaseCtx.Err(), "release must not ride the cancelled run context")
	assert.False(t, r.store.running["c1"], "claim must be released after a cancelled run")

	// and a later run with a fresh context must not be wedged
	again, err := r.runner.RunCampaignDay(context.Background(), "c1", "u1")
	require.NoError(t, err)
	assert.Empty(t, again.Reason)
}

func TestMatchingFiltersApply(t *testing.T) {
	jobs := []domain.Job{
		{ExternalID: "lyon", Source: "adzuna", Title: "Backend Developer", Location: "Lyon", TargetEmail: "a@b.c"},
		{ExternalID: "paris", Source: "adzuna", Title: "Backend Developer", Location: "Paris", TargetEmail: "a@b.c"},
	}
	r := newRig(jobs)
	r.store.campaigns["c1"] = activeCampaign("c1", "u1", 10)
	p := completeProfile("u1")
	p.Locations = []string{"Paris"}
	r.store.profiles["u1"] = p

	res, err := r.runner.RunCampaignDay(context.Background(), "c1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	require.Len(t, r.store.apps, 1)
	assert.Equal(t, "paris", r.store.apps[0].TargetExternalID)
}

func TestRunAllIsolatesCampaignFailures(t *testing.T) {
	r := newRig(jobsWithEmails(2))
	r.store.campaigns["bad"] = activeCampaign("bad", "u1", 10)
	r.store.campaigns["good"] = activeCampaign("good", "u2", 10)
	r.store.profiles["u1"] = completeProfile("u1")
	r.store.profiles["u2"] = completeProfile("u2")
	r.runner.Store = &panickyStore{fakeStore: r.store, panicOwner: "u1"}

	results := r.runner.RunAll(context.Background(), "")
	require.Len(t, results, 2)

	byID := map[string]RunResult{}
	for _, res := range results {
		byID[res.CampaignID] = res
	}
	assert.Contains(t, byID["bad"].Reason, "internal error")
	assert.Equal(t, 2, byID["good"].Sent)
}

// panickyStore blows up on one owner's profile load to exercise the per
// campaign recover boundary.
type panickyStore struct {
	*fakeStore
	panicOwner string
}

func (s *panickyStore) GetProfile(ctx context.Context, owner string) (domain.Profile, error) {
	if owner == s.panicOwner {
		panic("store exploded")
	}
	return s.fakeStore.GetProfile(ctx, owner)
}

func TestRunAllScopedToOwner(t *testing.T) {
	r := newRig(jobsWithEmails(1))
	r.store.campaigns["mine"] = activeCampaign("mine", "u1", 10)
	r.store.campaigns["theirs"] = activeCampaign("theirs", "u2", 10)
	r.store.profiles["u1"] = completeProfile("u1")
	r.store.profiles["u2"] = completeProfile("u2")

	results := r.runner.RunAll(context.Background(), "u1")
	require.Len(t, results, 1)
	assert.Equal(t, "mine", results[0].CampaignID)
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "no new application found or quota reached", Summarize(nil))
	assert.Equal(t, "profile not found", Summarize([]RunResult{
		{Reason: "profile not found"}, {Reason: "campaign has ended"},
	}))
	assert.Equal(t, "3 application(s) sent across 2 campaign(s)", Summarize([]RunResult{
		{Sent: 1}, {Sent: 2, Reason: ""},
	}))
	assert.Equal(t, "no new application found or quota reached", Summarize([]RunResult{
		{Sent: 0}, {Sent: 0},
	}))
}
