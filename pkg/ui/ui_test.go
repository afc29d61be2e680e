package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialscraper/pkg/auth"
	"socialscraper/pkg/models"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Output
	Output = &buf
	t.Cleanup(func() { Output = prev })
	return &buf
}

func TestRenderOutcome(t *testing.T) {
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	out := &models.ScrapeOutcome{
		InvocationID: "inv-1",
		Target:       "artist:A1",
		Artists:      []string{"A1"},
		StartedRuns: []models.LaunchedRun{
			{RunHandle: models.RunHandle{RunID: "run-1"}, Target: models.WorkItem{ArtistID: "A1", SocialID: "s1", ProfileURL: "https://instagram.com/a1"}},
			{RunHandle: models.RunHandle{RunID: "run-2"}, Target: models.WorkItem{ArtistID: "A1", SocialID: "s2", Username: "a1music"}},
		},
		StartFailures: []models.StartFailure{{Target: models.WorkItem{ArtistID: "A1", SocialID: "s3"}, Error: "quota exceeded"}},
		Results: []models.RunResult{
			{RunID: "run-1", Status: models.StatusSucceeded},
			{RunID: "run-2", Status: models.StatusFailed},
		},
		UpdatedSocials: map[string][]models.SocialProfile{
			"A1": {{SocialID: "s1", Platform: "instagram", Username: "a1"}},
		},
		StartedAt:   started,
		CompletedAt: started.Add(90 * time.Second),
	}

	rendered := RenderOutcome(out)

	for _, want := range []string{"artist:A1", "inv-1", "run-1", "run-2", "a1music", "quota exceeded", "Updated socials", "1m30s"} {
		assert.Contains(t, rendered, want)
	}
	assert.Contains(t, rendered, string(models.StatusSucceeded))
	assert.Contains(t, rendered, string(models.StatusFailed))
}

func TestRenderOutcomeWithoutRuns(t *testing.T) {
	rendered := RenderOutcome(&models.ScrapeOutcome{Target: "pro"})
	assert.Contains(t, rendered, "Scrape pro")
	assert.NotContains(t, rendered, "Start failures")
}

func TestRenderJobs(t *testing.T) {
	off := false
	rendered := RenderJobs([]models.Job{
		{ID: "job-1", Title: "Weekly report", Schedule: "0 9 * * 1", ArtistAccountID: "A1"},
		{ID: "job-2", Title: "Paused", Enabled: &off},
	})

	assert.Contains(t, rendered, "job-1")
	assert.Contains(t, rendered, "Weekly report")
	assert.Contains(t, rendered, "job-2")
	assert.Contains(t, rendered, "no")
	assert.Contains(t, RenderJobs(nil), "No jobs found")
}

func TestRenderCredentials(t *testing.T) {
	rendered := RenderCredentials([]*auth.Credential{{Profile: "default", APIKey: "sk-recoup-123456"}})
	assert.Contains(t, rendered, "default")
	assert.Contains(t, rendered, "sk-r...3456")
	assert.NotContains(t, rendered, "recoup-12")
}

func TestPrintHelpers(t *testing.T) {
	buf := captureOutput(t)

	PrintError("Scrape failed", errors.New("boom"))
	PrintSuccess("done")
	PrintWarning("careful")
	PrintInfo("Artist", "A1")

	out := buf.String()
	assert.Contains(t, out, "Scrape failed: boom")
	assert.Contains(t, out, "done")
	assert.Contains(t, out, "careful")
	assert.Contains(t, out, "A1")
	assert.Equal(t, 4, strings.Count(out, "\n"))
}

type recordingSender struct {
	titles []string
	err    error
}

func (r *recordingSender) Send(title, message string) error {
	r.titles = append(r.titles, title)
	return r.err
}

func TestDesktopNotifier(t *testing.T) {
	buf := captureOutput(t)
	sender := &recordingSender{err: errors.New("no display")}
	n := NewDesktopNotifierWithSender(sender)

	n.SendSuccess("Scrape complete", "2 runs succeeded")
	n.SendError("Scrape failed", "no runs started")

	require.Len(t, sender.titles, 2)
	assert.Contains(t, buf.String(), "2 runs succeeded")
	assert.Contains(t, buf.String(), "no runs started")

	NewDesktopNotifierWithSender(nil).SendSuccess("quiet", "console only")
	assert.Contains(t, buf.String(), "console only")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "45s", FormatDuration(45*time.Second))
	assert.Equal(t, "2m5s", FormatDuration(125*time.Second))
	assert.Equal(t, "1h1m", FormatDuration(61*time.Minute))
}
