package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialscraper/pkg/config"
	errs "socialscraper/pkg/errors"
	"socialscraper/pkg/logger"
	"socialscraper/pkg/models"
	"socialscraper/pkg/recoup"
	"socialscraper/pkg/schema"
)

// fakeAPI stands in for every collaborator. Runs succeed on the first poll
// unless listed in stuck or failing.
type fakeAPI struct {
	mu sync.Mutex

	socials      map[string][]models.SocialProfile
	refreshed    map[string][]models.SocialProfile
	refetchFails bool
	startErrors  map[string]string
	bulk         schema.Result[[]models.StartResponse]
	pro          schema.Result[[]string]
	stuck        map[string]bool
	failing      map[string]bool

	socialCalls map[string]int
	started     []string
	polled      []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		socials:     map[string][]models.SocialProfile{},
		startErrors: map[string]string{},
		stuck:       map[string]bool{},
		failing:     map[string]bool{},
		socialCalls: map[string]int{},
	}
}

func (f *fakeAPI) FetchSocials(ctx context.Context, artistID string) schema.Result[[]models.SocialProfile] {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.socialCalls[artistID]++
	if f.socialCalls[artistID] > 1 {
		if f.refetchFails {
			return schema.AbsentOf[[]models.SocialProfile](errors.New("timeout"))
		}
		if r, ok := f.refreshed[artistID]; ok {
			return schema.OkOf(r)
		}
	}
	return schema.OkOf(f.socials[artistID])
}

func (f *fakeAPI) Start(ctx context.Context, socialID string) schema.Result[models.StartResponse] {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.started = append(f.started, socialID)
	if msg, ok := f.startErrors[socialID]; ok {
		return schema.OkOf(models.StartResponse{Error: &msg})
	}
	return schema.OkOf(models.StartResponse{RunID: "run-" + socialID, DatasetID: "ds-" + socialID})
}

func (f *fakeAPI) StartAll(ctx context.Context, artistID string) schema.Result[[]models.StartResponse] {
	return f.bulk
}

func (f *fakeAPI) PollStatus(ctx context.Context, runID string) schema.Result[models.StatusReport] {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.polled = append(f.polled, runID)
	switch {
	case f.stuck[runID]:
		return schema.OkOf(models.StatusReport{Status: "RUNNING"})
	case f.failing[runID]:
		return schema.OkOf(models.StatusReport{Status: models.StatusFailed})
	default:
		return schema.OkOf(models.StatusReport{
			Status: models.StatusSucceeded,
			Data:   []json.RawMessage{json.RawMessage(`{"run":"` + runID + `"}`)},
		})
	}
}

func (f *fakeAPI) ProArtists(ctx context.Context) schema.Result[[]string] {
	return f.pro
}

type fakeNotifier struct {
	calls []models.ChatConfig
	err   error
}

func (n *fakeNotifier) Notify(ctx context.Context, chat models.ChatConfig) (recoup.ChatReply, error) {
	n.calls = append(n.calls, chat)
	return recoup.ChatReply{}, n.err
}

type fakeReports struct {
	written []*models.ScrapeOutcome
	err     error
}

func (r *fakeReports) Write(out *models.ScrapeOutcome) (string, error) {
	r.written = append(r.written, out)
	return "/tmp/report.json", r.err
}

type fakeJobs struct {
	jobs    map[string]models.Job
	fetched int
}

func (j *fakeJobs) FetchAll(ctx context.Context) schema.Result[[]models.Job] {
	return schema.AbsentOf[[]models.Job](nil)
}

func (j *fakeJobs) FetchOne(ctx context.Context, id string) schema.Result[models.Job] {
	j.fetched++
	if job, ok := j.jobs[id]; ok {
		return schema.OkOf(job)
	}
	return schema.AbsentOf[models.Job](errors.New("not found"))
}

func profile(id, url string) models.SocialProfile {
	return models.SocialProfile{SocialID: id, Username: id, ProfileURL: url}
}

func instant(ctx context.Context, d time.Duration) error { return ctx.Err() }

func newTestOrchestrator(t *testing.T, api *fakeAPI, deps Deps, log logger.Logger, opts ...Option) *Orchestrator {
	t.Helper()
	deps.Store = api
	deps.Starter = api
	if deps.Pro == nil {
		deps.Pro = api
	}
	cfg := config.DefaultConfig()
	cfg.Notifications.AccountID = ""

	o, err := New(cfg, deps, log, append([]Option{WithSleep(instant)}, opts...)...)
	require.NoError(t, err)
	return o
}

func TestScrapeArtistEndToEnd(t *testing.T) {
	api := newFakeAPI()
	api.socials["A1"] = []models.SocialProfile{
		profile("ig", "https://instagram.com/a1"),
		profile("sp", "https://open.spotify.com/artist/a1"),
		profile("tt", "https://www.tiktok.com/@a1"),
	}
	api.refreshed = map[string][]models.SocialProfile{
		"A1": {profile("ig", "https://instagram.com/a1-new")},
	}

	out, err := newTestOrchestrator(t, api, Deps{}, nil).ScrapeArtist(context.Background(), "A1")
	require.NoError(t, err)

	assert.NotEmpty(t, out.InvocationID)
	assert.Equal(t, "artist:A1", out.Target)
	assert.Len(t, out.StartedRuns, 2)
	assert.Empty(t, out.StartFailures)
	require.Len(t, out.Results, 2)
	assert.Equal(t, 2, out.Succeeded())
	assert.Equal(t, "run-ig", out.Results[0].RunID)
	assert.Equal(t, "run-tt", out.Results[1].RunID)
	assert.NotEmpty(t, out.Results[0].Data)

	assert.ElementsMatch(t, []string{"ig", "tt"}, api.started)
	assert.NotContains(t, api.started, "sp")
	require.Len(t, out.Skipped, 1)
	assert.Equal(t, "sp", out.Skipped[0].SocialID)

	assert.Equal(t, 2, api.socialCalls["A1"])
	assert.Equal(t, "https://instagram.com/a1-new", out.UpdatedSocials["A1"][0].ProfileURL)
	assert.False(t, out.CompletedAt.Before(out.StartedAt))
}

func TestScrapeArtistPartialLaunch(t *testing.T) {
	api := newFakeAPI()
	api.socials["A1"] = []models.SocialProfile{
		profile("s1", "https://instagram.com/a"),
		profile("s2", "https://twitter.com/a"),
		profile("s3", "https://youtube.com/@a"),
	}
	api.startErrors["s2"] = "actor failed to start"

	out, err := newTestOrchestrator(t, api, Deps{}, nil).ScrapeArtist(context.Background(), "A1")
	require.NoError(t, err)

	assert.Len(t, out.StartedRuns, 2)
	require.Len(t, out.StartFailures, 1)
	assert.Equal(t, "s2", out.StartFailures[0].Target.SocialID)
	assert.Equal(t, []string{"run-s1", "run-s3"}, api.polled)
	assert.Len(t, out.Results, 2)
}

func TestZeroEligibleTargetsNeverPolls(t *testing.T) {
	api := newFakeAPI()
	api.socials["A1"] = []models.SocialProfile{profile("sp", "https://open.spotify.com/artist/1")}

	out, err := newTestOrchestrator(t, api, Deps{}, nil).ScrapeArtist(context.Background(), "A1")
	assert.Nil(t, out)
	assert.ErrorIs(t, err, errs.ErrNoRunsStarted)
	assert.True(t, IsNoRunsStarted(err))
	assert.Empty(t, api.started)
	assert.Empty(t, api.polled)
}

func TestAllLaunchesFailedIsFatal(t *testing.T) {
	api := newFakeAPI()
	api.socials["A1"] = []models.SocialProfile{profile("s1", "https://instagram.com/a")}
	api.startErrors["s1"] = "quota"

	_, err := newTestOrchestrator(t, api, Deps{}, nil).ScrapeArtist(context.Background(), "A1")
	assert.ErrorIs(t, err, errs.ErrNoRunsStarted)
	assert.Empty(t, api.polled)
}

func TestRefetchFailureIsNonFatal(t *testing.T) {
	api := newFakeAPI()
	api.socials["A1"] = []models.SocialProfile{profile("s1", "https://instagram.com/a")}
	api.refetchFails = true
	log := logger.NewTestLogger()

	out, err := newTestOrchestrator(t, api, Deps{}, log).ScrapeArtist(context.Background(), "A1")
	require.NoError(t, err)

	assert.NotContains(t, out.UpdatedSocials, "A1")
	assert.True(t, log.HasMessage("Failed to fetch artist socials"))
	assert.Len(t, out.Results, 1)
}

func TestFailedRunsAreReported(t *testing.T) {
	api := newFakeAPI()
	api.socials["A1"] = []models.SocialProfile{
		profile("s1", "https://instagram.com/a"),
		profile("s2", "https://tiktok.com/@a"),
	}
	api.failing["run-s2"] = true

	out, err := newTestOrchestrator(t, api, Deps{}, nil).ScrapeArtist(context.Background(), "A1")
	require.NoError(t, err)
	assert.Equal(t, 1, out.Succeeded())
	assert.Equal(t, 1, out.Failed())
	assert.Nil(t, out.Results[1].Data)
}

func TestScrapeArtistRequiresID(t *testing.T) {
	o := newTestOrchestrator(t, newFakeAPI(), Deps{}, nil)

	_, err := o.ScrapeArtist(context.Background(), "")
	assert.True(t, errs.IsType(err, errs.ErrorTypeConfiguration))
	_, err = o.ScrapeArtistBulk(context.Background(), "")
	assert.True(t, errs.IsType(err, errs.ErrorTypeConfiguration))
}

func TestScrapeArtistBulk(t *testing.T) {
	api := newFakeAPI()
	msg := "private profile"
	api.bulk = schema.OkOf([]models.StartResponse{
		{RunID: "r1", DatasetID: "d1"},
		{RunID: "r2", DatasetID: "d2", Error: &msg},
	})

	out, err := newTestOrchestrator(t, api, Deps{}, nil).ScrapeArtistBulk(context.Background(), "A1")
	require.NoError(t, err)
	assert.Len(t, out.StartedRuns, 1)
	assert.Len(t, out.StartFailures, 1)
	assert.Equal(t, []string{"r1"}, api.polled)
	assert.Empty(t, api.started)
}

func TestScrapeArtistBulkInfrastructureError(t *testing.T) {
	api := newFakeAPI()
	api.bulk = schema.AbsentOf[[]models.StartResponse](errors.New("connection refused"))

	_, err := newTestOrchestrator(t, api, Deps{}, nil).ScrapeArtistBulk(context.Background(), "A1")
	assert.True(t, errs.IsType(err, errs.ErrorTypeLaunch))
	assert.Empty(t, api.polled)
}

func TestScrapeProArtistsCapsByOrder(t *testing.T) {
	api := newFakeAPI()
	var ids []string
	for i := 1; i <= 12; i++ {
		id := fmt.Sprintf("P%02d", i)
		ids = append(ids, id)
		api.socials[id] = []models.SocialProfile{profile("s-"+id, "https://instagram.com/"+id)}
	}
	api.socials["P03"] = nil
	api.pro = schema.OkOf(ids)
	log := logger.NewTestLogger()

	out, err := newTestOrchestrator(t, api, Deps{}, log).ScrapeProArtists(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ids[:10], out.Artists)
	assert.Len(t, out.StartedRuns, 9)
	assert.Zero(t, api.socialCalls["P11"])
	assert.Zero(t, api.socialCalls["P12"])
	assert.True(t, log.HasMessage("No socials found for artist"))
	assert.True(t, log.HasMessage("Scraping batch 3 of 3"))
	assert.Len(t, out.UpdatedSocials, 10)
}

func TestScrapeProArtistsWithoutArtists(t *testing.T) {
	for name, res := range map[string]schema.Result[[]string]{
		"absent": schema.AbsentOf[[]string](errors.New("503")),
		"empty":  schema.OkOf([]string{}),
	} {
		t.Run(name, func(t *testing.T) {
			api := newFakeAPI()
			api.pro = res

			_, err := newTestOrchestrator(t, api, Deps{}, nil).ScrapeProArtists(context.Background())
			assert.True(t, errs.IsType(err, errs.ErrorTypeLaunch))
			assert.Empty(t, api.socialCalls)
		})
	}
}

func TestNotificationRequiresAccount(t *testing.T) {
	api := newFakeAPI()
	api.socials["A1"] = []models.SocialProfile{profile("s1", "https://instagram.com/a")}
	notifier := &fakeNotifier{}

	_, err := newTestOrchestrator(t, api, Deps{Notifier: notifier}, nil).ScrapeArtist(context.Background(), "A1")
	require.NoError(t, err)
	assert.Empty(t, notifier.calls)
}

func TestNotificationUsesJobSettings(t *testing.T) {
	api := newFakeAPI()
	api.socials["A1"] = []models.SocialProfile{profile("s1", "https://instagram.com/a")}
	notifier := &fakeNotifier{err: errors.New("chat down")}
	jobSrc := &fakeJobs{jobs: map[string]models.Job{
		"j1": {ID: "j1", Prompt: "Weekly recap", AccountID: "acc", ArtistAccountID: "A1"},
	}}
	log := logger.NewTestLogger()

	o := newTestOrchestrator(t, api, Deps{Notifier: notifier, Jobs: jobSrc}, log)
	o.config.Notifications.RoomID = "room"

	out, err := o.ScrapeJob(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, "artist:A1", out.Target)

	require.Len(t, notifier.calls, 1)
	chat := notifier.calls[0]
	assert.Equal(t, "acc", chat.AccountID)
	assert.Equal(t, "room", chat.RoomID)
	assert.Equal(t, "A1", chat.ArtistID)
	assert.True(t, strings.HasPrefix(chat.Prompt, "Weekly recap\n\n"))
	assert.Contains(t, chat.Prompt, "1 succeeded")
	assert.True(t, log.HasMessage("Failed to send scrape summary"))
	assert.Equal(t, 1, jobSrc.fetched, "job is fetched once per invocation")
}

func TestWithJobLooksUpChatSettingsOnce(t *testing.T) {
	api := newFakeAPI()
	api.socials["A1"] = []models.SocialProfile{profile("s1", "https://instagram.com/a")}
	notifier := &fakeNotifier{}
	jobSrc := &fakeJobs{jobs: map[string]models.Job{
		"j1": {ID: "j1", Prompt: "Weekly recap", AccountID: "acc", ArtistAccountID: "A1"},
	}}

	o := newTestOrchestrator(t, api, Deps{Notifier: notifier, Jobs: jobSrc}, nil, WithJob("j1"))
	o.config.Notifications.RoomID = "room"

	_, err := o.ScrapeArtist(context.Background(), "A1")
	require.NoError(t, err)
	require.Len(t, notifier.calls, 1)
	assert.Equal(t, "acc", notifier.calls[0].AccountID)
	assert.Equal(t, 1, jobSrc.fetched)

	// Disabled notifications never touch the job source
	o.config.Notifications.Enabled = false
	_, err = o.ScrapeArtist(context.Background(), "A1")
	require.NoError(t, err)
	assert.Equal(t, 1, jobSrc.fetched)
}

func TestScrapeJobUnavailable(t *testing.T) {
	o := newTestOrchestrator(t, newFakeAPI(), Deps{Jobs: &fakeJobs{}}, nil)
	_, err := o.ScrapeJob(context.Background(), "missing")
	assert.True(t, errs.IsType(err, errs.ErrorTypeConfiguration))
}

func TestReportFailureIsNonFatal(t *testing.T) {
	api := newFakeAPI()
	api.socials["A1"] = []models.SocialProfile{profile("s1", "https://instagram.com/a")}
	reports := &fakeReports{err: errors.New("disk full")}

	out, err := newTestOrchestrator(t, api, Deps{Reports: reports}, nil).ScrapeArtist(context.Background(), "A1")
	require.NoError(t, err)
	require.Len(t, reports.written, 1)
	assert.Same(t, out, reports.written[0])
}

func TestMaxDurationAbortsStuckRun(t *testing.T) {
	api := newFakeAPI()
	api.socials["A1"] = []models.SocialProfile{profile("s1", "https://instagram.com/a")}
	api.stuck["run-s1"] = true

	tick := func(ctx context.Context, d time.Duration) error {
		select {
		case <-time.After(time.Millisecond):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	o := newTestOrchestrator(t, api, Deps{}, nil, WithSleep(tick))
	o.config.Scrape.MaxDuration = 50 * time.Millisecond

	_, err := o.ScrapeArtist(context.Background(), "A1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(config.DefaultConfig(), Deps{}, nil)
	assert.True(t, errs.IsType(err, errs.ErrorTypeConfiguration))
}

func TestSummarize(t *testing.T) {
	out := &models.ScrapeOutcome{
		Target:      "pro",
		Artists:     []string{"a", "b"},
		StartedRuns: make([]models.LaunchedRun, 3),
		Results: []models.RunResult{
			{Status: models.StatusSucceeded},
			{Status: models.StatusSucceeded},
			{Status: models.StatusFailed},
		},
	}
	s := Summarize(out)
	assert.Contains(t, s, "2 artist(s)")
	assert.Contains(t, s, "3 run(s) started")
	assert.Contains(t, s, "2 succeeded, 1 failed")
}
