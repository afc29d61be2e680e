package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"socialscraper/pkg/config"
	"socialscraper/pkg/logger"
	"socialscraper/pkg/models"
	"socialscraper/pkg/orchestrator"
	"socialscraper/pkg/recoup"
	"socialscraper/pkg/report"
	"socialscraper/pkg/ui"
)

var (
	// Scrape command flags
	bulkLaunch    bool
	jobID         string
	proLimit      int
	saveReport    bool
	reportDir     string
	notifyChat    bool
	desktopNotify bool
	outputJSON    bool
)

// scrapeCmd groups the scrape invocations
var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape artist social profiles",
	Long: `Start remote scrapes for artist social profiles, poll every run to a
terminal state and re-fetch the refreshed profiles.

Spotify profiles are never scraped. An invocation fails only when nothing
could be started; individual run failures are listed in the outcome.`,
}

var scrapeArtistCmd = &cobra.Command{
	Use:   "artist <artist_account_id>",
	Short: "Scrape every social profile of one artist",
	Example: `  # One launch call per scrapable social
  socialscraper scrape artist 1c5d0c8e-6f0e-4b3a-9c1e-2a7d1b2c3d4e

  # A single bulk launch call for the artist
  socialscraper scrape artist 1c5d0c8e-6f0e-4b3a-9c1e-2a7d1b2c3d4e --bulk

  # Send the chat summary with a job's settings and keep a report
  socialscraper scrape artist 1c5d0c8e-... --job 42 --report`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		artistID := strings.TrimSpace(args[0])
		return runScrape(cmd, "artist "+artistID, func(ctx context.Context, o *orchestrator.Orchestrator) (*models.ScrapeOutcome, error) {
			if bulkLaunch {
				return o.ScrapeArtistBulk(ctx, artistID)
			}
			return o.ScrapeArtist(ctx, artistID)
		})
	},
}

var scrapeProCmd = &cobra.Command{
	Use:   "pro",
	Short: "Scrape the socials of the first N pro artists",
	Example: `  socialscraper scrape pro
  socialscraper scrape pro --limit 5 --poll-mode concurrent`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScrape(cmd, "pro artists", func(ctx context.Context, o *orchestrator.Orchestrator) (*models.ScrapeOutcome, error) {
			return o.ScrapeProArtists(ctx)
		})
	},
}

var scrapeJobCmd = &cobra.Command{
	Use:   "job <job_id>",
	Short: "Scrape the artist a customer job points at",
	Long: `Look up a customer job, scrape the artist named by its
artist_account_id and send the summary with the job's chat settings.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := strings.TrimSpace(args[0])
		return runScrape(cmd, "job "+id, func(ctx context.Context, o *orchestrator.Orchestrator) (*models.ScrapeOutcome, error) {
			return o.ScrapeJob(ctx, id)
		})
	},
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
	scrapeCmd.AddCommand(scrapeArtistCmd, scrapeProCmd, scrapeJobCmd)

	scrapeCmd.PersistentFlags().BoolVar(&saveReport, "report", false, "save the outcome as a JSON report")
	scrapeCmd.PersistentFlags().StringVar(&reportDir, "report-dir", "", "report directory (default: user data directory)")
	scrapeCmd.PersistentFlags().BoolVar(&notifyChat, "notify", true, "send the chat summary when chat settings are available")
	scrapeCmd.PersistentFlags().BoolVar(&desktopNotify, "desktop", false, "show a desktop notification when the scrape finishes")
	scrapeCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "print the outcome as JSON")

	scrapeArtistCmd.Flags().BoolVar(&bulkLaunch, "bulk", false, "launch all socials with one bulk call")
	scrapeArtistCmd.Flags().StringVar(&jobID, "job", "", "customer job whose chat settings receive the summary")
	scrapeProCmd.Flags().IntVar(&proLimit, "limit", 0, "number of pro artists to scrape (default from config)")
	scrapeProCmd.Flags().StringVar(&jobID, "job", "", "customer job whose chat settings receive the summary")
}

type scrapeFunc func(ctx context.Context, o *orchestrator.Orchestrator) (*models.ScrapeOutcome, error)

func runScrape(cmd *cobra.Command, label string, run scrapeFunc) error {
	flags := map[string]interface{}{
		"limit":      proLimit,
		"report":     saveReport,
		"report-dir": reportDir,
	}
	if cmd.Flags().Changed("notify") {
		flags["notify"] = notifyChat
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	orch, err := buildOrchestrator(cfg, log)
	if err != nil {
		return err
	}

	if !outputJSON {
		ui.PrintInfo("Target", label)
	}

	out, err := run(cmd.Context(), orch)
	if err != nil {
		log.WithError(err).WithField("target", label).Error("Scrape failed")
		if desktopNotify {
			ui.NewDesktopNotifier().SendError("Scrape failed", label+": "+err.Error())
		}
		if orchestrator.IsNoRunsStarted(err) {
			ui.PrintWarning("No scrape runs could be started", label)
		}
		return err
	}

	if outputJSON {
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode outcome: %w", err)
		}
		fmt.Fprintln(ui.Output, string(data))
	} else {
		fmt.Fprintln(ui.Output, ui.RenderOutcome(out))
	}

	if desktopNotify {
		ui.NewDesktopNotifier().SendSuccess("Scrape complete", orchestrator.Summarize(out))
	}
	return nil
}

// buildOrchestrator wires one Recoup client into every collaborator slot
func buildOrchestrator(cfg *config.Config, log logger.Logger) (*orchestrator.Orchestrator, error) {
	client := recoup.NewClient(cfg, log)

	deps := orchestrator.Deps{
		Store:   client,
		Starter: client,
		Pro:     client,
		Jobs:    client,
	}
	if cfg.Notifications.Enabled {
		deps.Notifier = client
	}
	if cfg.Reports.Enabled {
		manager, err := report.NewManager(cfg.Reports.Directory, log)
		if err != nil {
			return nil, err
		}
		deps.Reports = manager
	}

	var opts []orchestrator.Option
	if jobID != "" {
		opts = append(opts, orchestrator.WithJob(jobID))
	}
	return orchestrator.New(cfg, deps, log, opts...)
}
