// Package jobs selects enabled customer jobs and resolves the chat settings
// a job hands to the summary dispatcher.
package jobs

import (
	"context"

	"socialscraper/pkg/config"
	"socialscraper/pkg/logger"
	"socialscraper/pkg/models"
	"socialscraper/pkg/schema"
)

// Source lists scheduled customer jobs
type Source interface {
	FetchAll(ctx context.Context) schema.Result[[]models.Job]
	FetchOne(ctx context.Context, jobID string) schema.Result[models.Job]
}

// Selection splits a job listing by its enabled flag
type Selection struct {
	Total   int
	Enabled []models.Job
	Skipped []models.Job
}

// Select keeps every job that is not explicitly disabled, preserving order
func Select(all []models.Job, log logger.Logger) Selection {
	if log == nil {
		log = logger.NewNopLogger()
	}

	sel := Selection{Total: len(all)}
	for _, job := range all {
		if !job.IsEnabled() {
			log.InfoWithFields("Skipping disabled job", map[string]interface{}{
				"job_id": job.ID,
				"title":  job.Title,
			})
			sel.Skipped = append(sel.Skipped, job)
			continue
		}
		sel.Enabled = append(sel.Enabled, job)
	}
	return sel
}

// FetchEnabled lists enabled jobs. A failed listing yields an empty
// selection and ok=false; nothing is guessed.
func FetchEnabled(ctx context.Context, src Source, log logger.Logger) (Selection, bool) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	res := src.FetchAll(ctx)
	all, ok := res.Get()
	if !ok {
		log.WithError(res.Cause()).Error("Failed to fetch jobs")
		return Selection{}, false
	}

	sel := Select(all, log)
	logger.LogSummary(log, "Job selection", map[string]interface{}{
		"total":   sel.Total,
		"enabled": len(sel.Enabled),
		"skipped": len(sel.Skipped),
	})
	return sel, true
}

// ChatConfigFor maps a job onto the chat fields it carries
func ChatConfigFor(job models.Job) models.ChatConfig {
	return models.ChatConfig{
		Prompt:    job.Prompt,
		AccountID: job.AccountID,
		ArtistID:  job.ArtistAccountID,
	}
}

// Resolve fills every field the job left empty from the configured
// fallbacks. The prompt always ends up non-empty.
func Resolve(fromJob models.ChatConfig, fallback config.NotificationConfig) models.ChatConfig {
	return models.ChatConfig{
		Prompt:    first(fromJob.Prompt, fallback.Prompt, config.DefaultPrompt),
		AccountID: first(fromJob.AccountID, fallback.AccountID),
		RoomID:    first(fromJob.RoomID, fallback.RoomID),
		ArtistID:  first(fromJob.ArtistID, fallback.ArtistID),
		Model:     first(fromJob.Model, fallback.Model),
	}
}

// Lookup resolves the chat settings for jobID. Without a job id, or when
// the job cannot be fetched, only the fallbacks apply.
func Lookup(ctx context.Context, src Source, jobID string, fallback config.NotificationConfig, log logger.Logger) models.ChatConfig {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if jobID == "" || src == nil {
		return Resolve(models.ChatConfig{}, fallback)
	}

	res := src.FetchOne(ctx, jobID)
	job, ok := res.Get()
	if !ok {
		log.WithField("job_id", jobID).WithError(res.Cause()).Warn("Job unavailable, using configured chat settings")
		return Resolve(models.ChatConfig{}, fallback)
	}
	return Resolve(ChatConfigFor(job), fallback)
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
