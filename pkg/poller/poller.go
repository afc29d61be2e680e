// Package poller drives started scrape runs to a terminal state.
//
// Each run is a small state machine: PENDING until a status query reports
// SUCCEEDED or FAILED. A query that fails or returns an unexpected shape is
// logged and retried on the next tick; it never changes state and never
// fails the call. Unrecognised statuses count as pending.
package poller

import (
	"context"
	"fmt"
	"time"

	"socialscraper/internal/workerpool"
	"socialscraper/pkg/logger"
	"socialscraper/pkg/models"
	"socialscraper/pkg/schema"
)

// StatusSource answers status queries for a run
type StatusSource interface {
	PollStatus(ctx context.Context, runID string) schema.Result[models.StatusReport]
}

// Mode selects how runs are scheduled
type Mode string

const (
	// Sequential polls run N+1 only after run N reached a terminal state
	Sequential Mode = "sequential"
	// Concurrent polls runs independently on a bounded worker pool
	Concurrent Mode = "concurrent"
)

// DefaultInterval is the pause before every status query
const DefaultInterval = 10 * time.Second

// Engine polls runs to completion
type Engine struct {
	Source      StatusSource
	Interval    time.Duration
	Mode        Mode
	Concurrency int
	// Deadline bounds the whole call; zero means no bound beyond ctx
	Deadline time.Duration
	Logger   logger.Logger
	// Sleep replaces the timed wait between queries
	Sleep func(ctx context.Context, d time.Duration) error
}

// New creates an engine with the default interval in sequential mode
func New(source StatusSource, log logger.Logger) *Engine {
	return &Engine{
		Source:      source,
		Interval:    DefaultInterval,
		Mode:        Sequential,
		Concurrency: 4,
		Logger:      log,
	}
}

// PollToCompletion returns exactly one terminal result per run, in input
// order. It returns early only when ctx is done or the deadline passes.
func (e *Engine) PollToCompletion(ctx context.Context, runs []models.RunHandle) ([]models.RunResult, error) {
	if len(runs) == 0 {
		return nil, nil
	}
	if e.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Deadline)
		defer cancel()
	}

	e.log().InfoWithFields("Polling scrape runs", map[string]interface{}{
		"total":    len(runs),
		"mode":     string(e.mode()),
		"interval": e.interval(),
	})

	if e.mode() == Concurrent {
		return e.pollConcurrent(ctx, runs)
	}
	return e.pollSequential(ctx, runs)
}

func (e *Engine) pollSequential(ctx context.Context, runs []models.RunHandle) ([]models.RunResult, error) {
	results := make([]models.RunResult, 0, len(runs))
	for _, run := range runs {
		res, err := e.pollRun(ctx, run)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (e *Engine) pollConcurrent(ctx context.Context, runs []models.RunHandle) ([]models.RunResult, error) {
	out, err := workerpool.Run(ctx, e.Concurrency, runs, e.pollRun, e.log())
	if err != nil {
		return nil, err
	}

	results := make([]models.RunResult, len(out))
	for i, r := range out {
		if r.Err != nil {
			return nil, r.Err
		}
		results[i] = r.Value
	}
	return results, nil
}

// pollRun loops until the run is terminal or ctx is done
func (e *Engine) pollRun(ctx context.Context, run models.RunHandle) (models.RunResult, error) {
	log := e.log().WithField("run_id", run.RunID)

	for attempt := 1; ; attempt++ {
		if err := e.sleep(ctx, e.interval()); err != nil {
			return models.RunResult{}, fmt.Errorf("polling run %s: %w", run.RunID, err)
		}

		report, ok := e.Source.PollStatus(ctx, run.RunID).Get()
		if !ok {
			if ctx.Err() != nil {
				return models.RunResult{}, fmt.Errorf("polling run %s: %w", run.RunID, ctx.Err())
			}
			log.WarnWithFields("Failed to get scraper result", map[string]interface{}{
				"attempt": attempt,
			})
			continue
		}

		logger.LogRunStatus(log, run.RunID, string(report.Status), attempt)
		if !report.Status.IsTerminal() {
			continue
		}

		result := models.RunResult{
			RunID:     run.RunID,
			DatasetID: run.DatasetID,
			Status:    report.Status,
		}
		if report.DatasetID != "" {
			result.DatasetID = report.DatasetID
		}
		if report.Status == models.StatusSucceeded {
			result.Data = report.Data
		}

		log.InfoWithFields("Scrape run finished", map[string]interface{}{
			"status":   string(result.Status),
			"records":  len(result.Data),
			"attempts": attempt,
		})
		return result, nil
	}
}

func (e *Engine) mode() Mode {
	if e.Mode == Concurrent {
		return Concurrent
	}
	return Sequential
}

func (e *Engine) interval() time.Duration {
	if e.Interval <= 0 {
		return DefaultInterval
	}
	return e.Interval
}

func (e *Engine) log() logger.Logger {
	if e.Logger == nil {
		return logger.NewNopLogger()
	}
	return e.Logger
}

func (e *Engine) sleep(ctx context.Context, d time.Duration) error {
	if e.Sleep != nil {
		return e.Sleep(ctx, d)
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
