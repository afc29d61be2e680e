// Package launcher starts remote scrape runs and partitions the responses
// into started runs and launch failures.
package launcher

import (
	"context"
	"fmt"
	"time"

	"socialscraper/pkg/batch"
	errs "socialscraper/pkg/errors"
	"socialscraper/pkg/logger"
	"socialscraper/pkg/models"
	"socialscraper/pkg/schema"
)

// Starter starts remote scrapes
type Starter interface {
	// Start launches one scrape for a social profile
	Start(ctx context.Context, socialID string) schema.Result[models.StartResponse]
	// StartAll launches scrapes for every social profile of an artist
	StartAll(ctx context.Context, artistID string) schema.Result[[]models.StartResponse]
}

// Result partitions launched targets. Counts are local to one call.
type Result struct {
	Started []models.LaunchedRun
	Failed  []models.StartFailure
}

// Empty reports whether no run started
func (r Result) Empty() bool {
	return len(r.Started) == 0
}

// Handles returns the run handles of the started runs, in launch order
func (r Result) Handles() []models.RunHandle {
	out := make([]models.RunHandle, len(r.Started))
	for i, s := range r.Started {
		out[i] = s.RunHandle
	}
	return out
}

// Launcher issues one start call per target through the batcher
type Launcher struct {
	Starter       Starter
	BatchSize     int
	Delay         time.Duration
	TrailingDelay bool
	Logger        logger.Logger
	Sleep         func(ctx context.Context, d time.Duration) error
}

// New creates a launcher with the default pacing of 3 starts per second
func New(starter Starter, log logger.Logger) *Launcher {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Launcher{
		Starter:   starter,
		BatchSize: 3,
		Delay:     time.Second,
		Logger:    log,
	}
}

// Launch calls Start exactly once per target. Launch failures are routed to
// Result.Failed; the returned error is reserved for configuration problems
// and cancellation.
func (l *Launcher) Launch(ctx context.Context, targets []models.WorkItem) (Result, error) {
	var res Result
	if len(targets) == 0 {
		return res, nil
	}

	opts := batch.Options{
		Size:          l.BatchSize,
		Delay:         l.Delay,
		TrailingDelay: l.TrailingDelay,
		Sleep:         l.Sleep,
		OnBatch: func(index, total, start, end int) {
			logger.LogBatchProgress(l.Logger, "Scraping", index, total, start, end)
		},
	}

	outcomes, err := batch.Process(ctx, targets, opts, func(ctx context.Context, target models.WorkItem) (schema.Result[models.StartResponse], error) {
		return l.Starter.Start(ctx, target.ID()), nil
	})
	if err != nil {
		return res, fmt.Errorf("launching scrapes: %w", err)
	}

	for i, target := range targets {
		l.route(&res, target, outcomes[i].Value)
	}

	l.Logger.InfoWithFields("Launched scrape runs", map[string]interface{}{
		"targets": len(targets),
		"started": len(res.Started),
		"failed":  len(res.Failed),
	})
	return res, nil
}

// LaunchArtist starts scrapes for every social of one artist with a single
// bulk call. An absent or malformed bulk response is an infrastructure error.
func (l *Launcher) LaunchArtist(ctx context.Context, artistID string) (Result, error) {
	var res Result
	if artistID == "" {
		return res, errs.Configuration("launch artist", "artist_account_id is required")
	}

	bulk := l.Starter.StartAll(ctx, artistID)
	responses, ok := bulk.Get()
	if !ok {
		return res, errs.Wrap(errs.ErrorTypeLaunch, "launch artist", fmt.Errorf("failed to start artist social scrape: %w", bulk.Cause()))
	}

	target := models.WorkItem{ArtistID: artistID}
	for _, r := range responses {
		l.route(&res, target, schema.OkOf(r))
	}

	if len(res.Failed) > 0 {
		l.Logger.WarnWithFields("Some scrape runs failed to start", map[string]interface{}{
			"artist_id": artistID,
			"failed":    len(res.Failed),
		})
	}
	return res, nil
}

// route files one response as started or failed
func (l *Launcher) route(res *Result, target models.WorkItem, r schema.Result[models.StartResponse]) {
	log := l.Logger.WithFields(map[string]interface{}{
		"artist_id": target.ArtistID,
		"social_id": target.SocialID,
		"username":  target.Username,
	})

	resp, ok := r.Get()
	switch {
	case !ok:
		log.WithError(r.Cause()).Warn("Failed to start scrape for social")
		res.Failed = append(res.Failed, models.StartFailure{Target: target, Error: r.Cause().Error()})
	case resp.ErrorMessage() != "":
		log.WarnWithFields("Scrape error for social", map[string]interface{}{"error": resp.ErrorMessage()})
		res.Failed = append(res.Failed, models.StartFailure{Target: target, Error: resp.ErrorMessage()})
	case resp.RunID == "" || resp.DatasetID == "":
		log.WarnWithFields("Invalid scrape response for social", map[string]interface{}{
			"run_id":     resp.RunID,
			"dataset_id": resp.DatasetID,
		})
		res.Failed = append(res.Failed, models.StartFailure{Target: target, Error: "response missing runId or datasetId"})
	default:
		log.DebugWithFields("Started scrape for social", map[string]interface{}{
			"run_id":     resp.RunID,
			"dataset_id": resp.DatasetID,
		})
		res.Started = append(res.Started, models.LaunchedRun{
			RunHandle: models.RunHandle{RunID: resp.RunID, DatasetID: resp.DatasetID},
			Target:    target,
		})
	}
}
