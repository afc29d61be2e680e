package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"socialscraper/pkg/logger"
	"socialscraper/pkg/models"
	"socialscraper/pkg/report"
	"socialscraper/pkg/ui"
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Browse saved scrape reports",
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved reports, oldest first",
	Args:  cobra.NoArgs,
	RunE:  runReportsList,
}

var reportsShowCmd = &cobra.Command{
	Use:   "show [report]",
	Short: "Show a saved report, the latest by default",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runReportsShow,
}

func init() {
	rootCmd.AddCommand(reportsCmd)
	reportsCmd.AddCommand(reportsListCmd, reportsShowCmd)
}

func reportManager() (*report.Manager, error) {
	cfg, err := loadConfig(nil)
	if err != nil {
		return nil, err
	}
	return report.NewManager(cfg.Reports.Directory, logger.GetLogger())
}

func runReportsList(cmd *cobra.Command, args []string) error {
	m, err := reportManager()
	if err != nil {
		return err
	}

	names, err := m.List()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		ui.PrintInfo("Reports", "none in "+m.Dir())
		return nil
	}
	for _, name := range names {
		fmt.Fprintln(ui.Output, name)
	}
	return nil
}

func runReportsShow(cmd *cobra.Command, args []string) error {
	m, err := reportManager()
	if err != nil {
		return err
	}

	var out *models.ScrapeOutcome
	if len(args) == 1 {
		out, err = m.Load(args[0])
	} else {
		out, err = m.Latest()
	}
	if err != nil {
		return err
	}
	if out == nil {
		ui.PrintInfo("Reports", "none in "+m.Dir())
		return nil
	}

	fmt.Fprintln(ui.Output, ui.RenderOutcome(out))
	return nil
}
