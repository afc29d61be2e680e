package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"socialscraper/pkg/auth"
	"socialscraper/pkg/models"
)

const maxCell = 48

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(cyan).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

// RenderOutcome renders the summary block and per-run table of an outcome
func RenderOutcome(out *models.ScrapeOutcome) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Scrape " + out.Target))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Invocation:"), out.InvocationID)
	fmt.Fprintf(&b, "%s %d\n", labelStyle.Render("Artists:"), len(out.Artists))
	fmt.Fprintf(&b, "%s %d started, %d failed to start, %d skipped\n",
		labelStyle.Render("Runs:"), len(out.StartedRuns), len(out.StartFailures), len(out.Skipped))
	fmt.Fprintf(&b, "%s %s succeeded, %s failed\n",
		labelStyle.Render("Results:"),
		successStyle.Render(fmt.Sprint(out.Succeeded())),
		errorStyle.Render(fmt.Sprint(out.Failed())))
	if !out.CompletedAt.IsZero() {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Duration:"),
			FormatDuration(out.CompletedAt.Sub(out.StartedAt)))
	}

	if len(out.StartedRuns) > 0 {
		status := make(map[string]models.RunResult, len(out.Results))
		for _, r := range out.Results {
			status[r.RunID] = r
		}

		t := newTable("Artist", "Social", "Profile", "Run", "Status", "Items")
		for _, run := range out.StartedRuns {
			res, ok := status[run.RunID]
			st, items := string(models.StatusPending), "-"
			if ok {
				st = string(res.Status)
				items = fmt.Sprint(len(res.Data))
			}
			t.Row(run.Target.ArtistID, run.Target.SocialID, truncate(profileOf(run.Target), maxCell),
				run.RunID, statusText(models.RunStatus(st)), items)
		}
		b.WriteString(t.String())
		b.WriteString("\n")
	}

	if len(out.StartFailures) > 0 {
		t := newTable("Artist", "Social", "Error")
		for _, f := range out.StartFailures {
			t.Row(f.Target.ArtistID, f.Target.SocialID, truncate(f.Error, maxCell))
		}
		b.WriteString(errorStyle.Render("Start failures"))
		b.WriteString("\n")
		b.WriteString(t.String())
		b.WriteString("\n")
	}

	if len(out.UpdatedSocials) > 0 {
		artists := make([]string, 0, len(out.UpdatedSocials))
		for id := range out.UpdatedSocials {
			artists = append(artists, id)
		}
		sort.Strings(artists)

		t := newTable("Artist", "Platform", "Username", "Profile")
		for _, id := range artists {
			for _, s := range out.UpdatedSocials[id] {
				t.Row(id, s.Platform, s.Username, truncate(s.ProfileURL, maxCell))
			}
		}
		b.WriteString(titleStyle.Render("Updated socials"))
		b.WriteString("\n")
		b.WriteString(t.String())
		b.WriteString("\n")
	}

	return b.String()
}

// RenderJobs renders one row per job
func RenderJobs(jobs []models.Job) string {
	if len(jobs) == 0 {
		return dimStyle.Render("No jobs found")
	}

	t := newTable("ID", "Title", "Schedule", "Artist", "Enabled")
	for _, j := range jobs {
		enabled := successStyle.Render("yes")
		if !j.IsEnabled() {
			enabled = dimStyle.Render("no")
		}
		t.Row(j.ID, truncate(j.Title, maxCell), j.Schedule, j.ArtistAccountID, enabled)
	}
	return t.String()
}

// RenderCredentials renders stored profiles with masked keys
func RenderCredentials(creds []*auth.Credential) string {
	if len(creds) == 0 {
		return dimStyle.Render("No stored credentials")
	}

	t := newTable("Profile", "API key", "Updated")
	for _, c := range creds {
		updated := "-"
		if !c.LastModified.IsZero() {
			updated = c.LastModified.Format(time.RFC3339)
		}
		t.Row(c.Profile, auth.Mask(c.APIKey), updated)
	}
	return t.String()
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

func statusText(s models.RunStatus) string {
	switch s {
	case models.StatusSucceeded:
		return successStyle.Render(string(s))
	case models.StatusFailed:
		return errorStyle.Render(string(s))
	default:
		return warningStyle.Render(string(s))
	}
}

func profileOf(w models.WorkItem) string {
	if w.ProfileURL != "" {
		return w.ProfileURL
	}
	return w.Username
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
