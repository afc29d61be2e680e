package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"socialscraper/pkg/jobs"
	"socialscraper/pkg/logger"
	"socialscraper/pkg/models"
	"socialscraper/pkg/recoup"
	"socialscraper/pkg/ui"
)

var listAllJobs bool

// jobsCmd represents the jobs command
var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect scheduled customer jobs",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enabled customer jobs",
	Long: `List customer jobs from the jobs API. Jobs with enabled set to false are
hidden unless --all is given; a job without the flag counts as enabled.`,
	Args: cobra.NoArgs,
	RunE: runJobsList,
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <job_id>",
	Short: "Show a job and the chat settings it resolves to",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsShow,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsListCmd, jobsShowCmd)

	jobsListCmd.Flags().BoolVar(&listAllJobs, "all", false, "include disabled jobs")
}

func runJobsList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	log := logger.GetLogger()
	client := recoup.NewClient(cfg, log)

	sel, ok := jobs.FetchEnabled(cmd.Context(), client, log)
	if !ok {
		return fmt.Errorf("failed to fetch jobs from %s", cfg.API.JobsURL)
	}

	shown := sel.Enabled
	if listAllJobs {
		shown = append(append([]models.Job{}, sel.Enabled...), sel.Skipped...)
	}

	fmt.Fprintln(ui.Output, ui.RenderJobs(shown))
	ui.PrintInfo("Jobs", fmt.Sprintf("%d total, %d enabled, %d disabled", sel.Total, len(sel.Enabled), len(sel.Skipped)))
	return nil
}

func runJobsShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	log := logger.GetLogger()
	client := recoup.NewClient(cfg, log)

	id := strings.TrimSpace(args[0])
	res := client.FetchOne(cmd.Context(), id)
	job, ok := res.Get()
	if !ok {
		if cause := res.Cause(); cause != nil {
			return fmt.Errorf("job %s unavailable: %w", id, cause)
		}
		return fmt.Errorf("job %s unavailable", id)
	}

	fmt.Fprintln(ui.Output, ui.RenderJobs([]models.Job{job}))

	chat := jobs.Resolve(jobs.ChatConfigFor(job), cfg.Notifications)
	ui.PrintHighlight("Chat settings")
	ui.PrintInfo("Account", orNone(chat.AccountID))
	ui.PrintInfo("Room", orNone(chat.RoomID))
	ui.PrintInfo("Artist", orNone(chat.ArtistID))
	ui.PrintInfo("Model", orNone(chat.Model))
	ui.PrintInfo("Prompt", chat.Prompt)
	if !chat.Ready() {
		ui.PrintWarning("Summary cannot be sent without an account and a room")
	}
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
