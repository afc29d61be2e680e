package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"socialscraper/pkg/batch"
	"socialscraper/pkg/config"
	errs "socialscraper/pkg/errors"
	"socialscraper/pkg/jobs"
	"socialscraper/pkg/launcher"
	"socialscraper/pkg/logger"
	"socialscraper/pkg/models"
	"socialscraper/pkg/poller"
	"socialscraper/pkg/social"
)

// Deps are the collaborators an Orchestrator composes. Store and Starter
// are required; the rest are optional.
type Deps struct {
	Store    ResultStore
	Starter  launcher.Starter
	Pro      ProArtistSource
	Jobs     jobs.Source
	Notifier Notifier
	Reports  ReportWriter
}

// Orchestrator runs the launch, poll and re-fetch pipeline
type Orchestrator struct {
	deps     Deps
	launcher *launcher.Launcher
	poller   *poller.Engine
	config   *config.Config
	logger   logger.Logger
	jobID    string
	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time
	newID    func() string
}

// Option customizes an Orchestrator
type Option func(*Orchestrator)

// WithJob ties notifications to a customer job's chat settings
func WithJob(jobID string) Option {
	return func(o *Orchestrator) { o.jobID = jobID }
}

// WithSleep replaces every timed wait in the pipeline
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) {
		o.sleep = fn
		o.launcher.Sleep = fn
		o.poller.Sleep = fn
	}
}

// WithClock replaces the time source used for outcome timestamps
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New wires an orchestrator from configuration
func New(cfg *config.Config, deps Deps, log logger.Logger, opts ...Option) (*Orchestrator, error) {
	if deps.Store == nil || deps.Starter == nil {
		return nil, errs.Configuration("orchestrator", "a result store and a scrape launcher are required")
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	l := launcher.New(deps.Starter, log)
	l.BatchSize = cfg.Scrape.LaunchBatchSize
	l.Delay = cfg.Scrape.LaunchBatchDelay
	l.TrailingDelay = cfg.Scrape.TrailingDelay

	p := poller.New(deps.Store, log)
	p.Interval = cfg.Scrape.PollInterval
	p.Mode = poller.Mode(cfg.Scrape.PollMode)
	p.Concurrency = cfg.Scrape.PollConcurrency
	p.Deadline = cfg.Scrape.PollDeadline

	o := &Orchestrator{
		deps:     deps,
		launcher: l,
		poller:   p,
		config:   cfg,
		logger:   log,
		sleep:    batchSleep,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}

	logger.LogComponentStart(log, "orchestrator", map[string]interface{}{
		"poll_mode":     string(p.Mode),
		"poll_interval": p.Interval.String(),
		"max_duration":  cfg.Scrape.MaxDuration.String(),
	})
	return o, nil
}

// launchFunc resolves targets, fills the target side of the outcome and
// starts the runs
type launchFunc func(ctx context.Context, out *models.ScrapeOutcome, log logger.Logger) (launcher.Result, error)

// chatSource yields the chat settings for the summary. It is only called
// when a summary is actually sent.
type chatSource func(ctx context.Context, log logger.Logger) models.ChatConfig

// lookupChat fetches the chat settings of jobID lazily
func (o *Orchestrator) lookupChat(jobID string) chatSource {
	return func(ctx context.Context, log logger.Logger) models.ChatConfig {
		return jobs.Lookup(ctx, o.deps.Jobs, jobID, o.config.Notifications, log)
	}
}

func fixedChat(chat models.ChatConfig) chatSource {
	return func(context.Context, logger.Logger) models.ChatConfig { return chat }
}

// ScrapeArtist scrapes every scrapable social of one artist with one launch
// call per social
func (o *Orchestrator) ScrapeArtist(ctx context.Context, artistID string) (*models.ScrapeOutcome, error) {
	return o.scrapeArtist(ctx, artistID, o.lookupChat(o.jobID))
}

func (o *Orchestrator) scrapeArtist(ctx context.Context, artistID string, chat chatSource) (*models.ScrapeOutcome, error) {
	if artistID == "" {
		return nil, errs.Configuration("scrape artist", "artist_account_id is required")
	}

	return o.execute(ctx, "artist:"+artistID, chat, func(ctx context.Context, out *models.ScrapeOutcome, log logger.Logger) (launcher.Result, error) {
		out.Artists = []string{artistID}
		return o.launchEligible(ctx, out, log)
	})
}

// ScrapeArtistBulk scrapes all socials of one artist with a single bulk
// launch call; no client-side filtering is applied
func (o *Orchestrator) ScrapeArtistBulk(ctx context.Context, artistID string) (*models.ScrapeOutcome, error) {
	if artistID == "" {
		return nil, errs.Configuration("scrape artist", "artist_account_id is required")
	}

	return o.execute(ctx, "artist:"+artistID, o.lookupChat(o.jobID), func(ctx context.Context, out *models.ScrapeOutcome, log logger.Logger) (launcher.Result, error) {
		out.Artists = []string{artistID}
		log.InfoWithFields("Starting scrape for artist social profiles", map[string]interface{}{
			"artist_id": artistID,
		})
		return o.launcher.LaunchArtist(ctx, artistID)
	})
}

// ScrapeProArtists scrapes the first ProArtistLimit pro artists
func (o *Orchestrator) ScrapeProArtists(ctx context.Context) (*models.ScrapeOutcome, error) {
	if o.deps.Pro == nil {
		return nil, errs.Configuration("scrape pro artists", "no pro artist source configured")
	}

	return o.execute(ctx, "pro", o.lookupChat(o.jobID), func(ctx context.Context, out *models.ScrapeOutcome, log logger.Logger) (launcher.Result, error) {
		res := o.deps.Pro.ProArtists(ctx)
		all, ok := res.Get()
		if !ok {
			return launcher.Result{}, errs.Wrap(errs.ErrorTypeLaunch, "scrape pro artists", fmt.Errorf("failed to fetch pro artists: %w", res.Cause()))
		}
		if len(all) == 0 {
			return launcher.Result{}, errs.New(errs.ErrorTypeLaunch, "scrape pro artists", "no pro artists found")
		}

		out.Artists = all
		if limit := o.config.Scrape.ProArtistLimit; limit > 0 && len(all) > limit {
			out.Artists = all[:limit]
		}
		log.InfoWithFields("Fetched pro artists", map[string]interface{}{
			"total":      len(all),
			"processing": len(out.Artists),
		})
		return o.launchEligible(ctx, out, log)
	})
}

// ScrapeJob scrapes the artist of a customer job and notifies with that
// job's chat settings
func (o *Orchestrator) ScrapeJob(ctx context.Context, jobID string) (*models.ScrapeOutcome, error) {
	if o.deps.Jobs == nil {
		return nil, errs.Configuration("scrape job", "no job source configured")
	}
	res := o.deps.Jobs.FetchOne(ctx, jobID)
	job, ok := res.Get()
	if !ok {
		return nil, errs.Wrap(errs.ErrorTypeConfiguration, "scrape job", fmt.Errorf("job %q unavailable: %w", jobID, res.Cause()))
	}
	chat := jobs.Resolve(jobs.ChatConfigFor(job), o.config.Notifications)
	return o.scrapeArtist(ctx, job.ArtistAccountID, fixedChat(chat))
}

// launchEligible fetches socials for out.Artists, filters them and starts
// one run per scrapable social
func (o *Orchestrator) launchEligible(ctx context.Context, out *models.ScrapeOutcome, log logger.Logger) (launcher.Result, error) {
	socials, err := o.fetchSocials(ctx, out.Artists, "Fetching socials", log)
	if err != nil {
		return launcher.Result{}, err
	}

	sel := social.Filter(out.Artists, socials)
	for _, artistID := range sel.NoSocials {
		log.WarnWithFields("No socials found for artist", map[string]interface{}{"artist_id": artistID})
	}
	for _, item := range sel.Skipped {
		log.InfoWithFields("Skipping non-scrapable social", map[string]interface{}{
			"artist_id":   item.ArtistID,
			"social_id":   item.SocialID,
			"username":    item.Username,
			"profile_url": item.ProfileURL,
		})
	}
	out.Skipped = sel.Skipped

	log.InfoWithFields("Total socials to scrape", map[string]interface{}{
		"total_socials": len(sel.Eligible),
		"skipped":       len(sel.Skipped),
	})
	return o.launcher.Launch(ctx, sel.Eligible)
}

// execute runs the shared pipeline under the invocation deadline
func (o *Orchestrator) execute(ctx context.Context, target string, chat chatSource, launch launchFunc) (*models.ScrapeOutcome, error) {
	if d := o.config.Scrape.MaxDuration; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	out := &models.ScrapeOutcome{
		InvocationID: o.newID(),
		Target:       target,
		StartedAt:    o.now(),
	}
	log := o.logger.WithFields(map[string]interface{}{
		"invocation_id": out.InvocationID,
		"target":        target,
	})

	started, err := launch(ctx, out, log)
	if err != nil {
		return nil, err
	}
	out.StartedRuns = started.Started
	out.StartFailures = started.Failed

	if started.Empty() {
		log.ErrorWithFields("No valid scrape runs started", map[string]interface{}{
			"failed": len(started.Failed),
		})
		return nil, fmt.Errorf("%s: %w", target, errs.ErrNoRunsStarted)
	}
	log.InfoWithFields("Started all scrape runs", map[string]interface{}{
		"total_runs":    len(started.Started),
		"total_artists": len(out.Artists),
		"failed":        len(started.Failed),
	})

	results, err := o.poller.PollToCompletion(ctx, started.Handles())
	if err != nil {
		return nil, fmt.Errorf("polling scrape runs: %w", err)
	}
	out.Results = results
	log.InfoWithFields("All scrape runs completed", map[string]interface{}{
		"total":     len(results),
		"succeeded": out.Succeeded(),
		"failed":    out.Failed(),
	})

	log.InfoWithFields("Waiting for webhooks to complete", map[string]interface{}{
		"delay": o.config.Scrape.SettleDelay.String(),
	})
	if err := o.sleep(ctx, o.config.Scrape.SettleDelay); err != nil {
		return nil, fmt.Errorf("settle delay: %w", err)
	}

	updated, err := o.fetchSocials(ctx, out.Artists, "Fetching updated socials", log)
	if err != nil {
		return nil, fmt.Errorf("re-fetching socials: %w", err)
	}
	out.UpdatedSocials = updated
	out.CompletedAt = o.now()

	o.notify(ctx, out, chat, log)
	o.writeReport(out, log)

	logger.LogSummary(log, target, map[string]interface{}{
		"started":        len(out.StartedRuns),
		"start_failures": len(out.StartFailures),
		"succeeded":      out.Succeeded(),
		"failed":         out.Failed(),
		"duration":       out.CompletedAt.Sub(out.StartedAt).String(),
	})
	return out, nil
}

// fetchSocials reads socials for every artist in paced batches. Artists
// whose fetch failed are left out of the map; the error is reserved for
// cancellation and bad batch settings.
func (o *Orchestrator) fetchSocials(ctx context.Context, artistIDs []string, label string, log logger.Logger) (map[string][]models.SocialProfile, error) {
	opts := batch.Options{
		Size:          o.config.Scrape.FetchBatchSize,
		Delay:         o.config.Scrape.FetchBatchDelay,
		TrailingDelay: o.config.Scrape.TrailingDelay,
		Sleep:         o.sleep,
		OnBatch: func(index, total, start, end int) {
			logger.LogBatchProgress(log, label, index, total, start, end)
		},
	}

	outcomes, err := batch.Process(ctx, artistIDs, opts, func(ctx context.Context, artistID string) ([]models.SocialProfile, error) {
		res := o.deps.Store.FetchSocials(ctx, artistID)
		socials, ok := res.Get()
		if !ok {
			return nil, res.Cause()
		}
		return socials, nil
	})
	if err != nil {
		return nil, err
	}

	found := make(map[string][]models.SocialProfile, len(artistIDs))
	for i, artistID := range artistIDs {
		if outcomes[i].Err != nil {
			log.WithField("artist_id", artistID).WithError(outcomes[i].Err).Warn("Failed to fetch artist socials")
			continue
		}
		found[artistID] = outcomes[i].Value
	}
	return found, nil
}

// notify sends the summary prompt when an account is configured. Failures
// never change the outcome.
func (o *Orchestrator) notify(ctx context.Context, out *models.ScrapeOutcome, source chatSource, log logger.Logger) {
	if o.deps.Notifier == nil || !o.config.Notifications.Enabled {
		return
	}

	chat := source(ctx, log)
	if chat.AccountID == "" {
		log.Debug("No account configured, skipping notification")
		return
	}
	chat.Prompt = chat.Prompt + "\n\n" + Summarize(out)

	if _, err := o.deps.Notifier.Notify(ctx, chat); err != nil {
		log.WithError(err).Warn("Failed to send scrape summary")
		return
	}
	log.InfoWithFields("Sent scrape summary", map[string]interface{}{"account_id": chat.AccountID})
}

func (o *Orchestrator) writeReport(out *models.ScrapeOutcome, log logger.Logger) {
	if o.deps.Reports == nil {
		return
	}
	path, err := o.deps.Reports.Write(out)
	if err != nil {
		log.WithError(err).Warn("Failed to write scrape report")
		return
	}
	log.InfoWithFields("Wrote scrape report", map[string]interface{}{"path": path})
}

// Summarize renders a one-paragraph description of an outcome
func Summarize(out *models.ScrapeOutcome) string {
	refreshed := len(out.UpdatedSocials)
	return fmt.Sprintf(
		"Social profile scrape %s finished for %d artist(s): %d run(s) started, %d failed to start, %d succeeded, %d failed. Refreshed socials for %d artist(s).",
		out.Target, len(out.Artists), len(out.StartedRuns), len(out.StartFailures), out.Succeeded(), out.Failed(), refreshed,
	)
}

// IsNoRunsStarted reports whether err is the launch gate failure
func IsNoRunsStarted(err error) bool {
	return errors.Is(err, errs.ErrNoRunsStarted)
}

func batchSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
