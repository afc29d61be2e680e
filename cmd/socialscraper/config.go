package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"socialscraper/pkg/auth"
	"socialscraper/pkg/config"
	"socialscraper/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage socialscraper configuration files.

Configuration is loaded from, in order of priority:
  - Command line flags
  - Environment variables (RECOUP_*, SOCIALSCRAPER_*)
  - .env files
  - Configuration file
  - Default values`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is created as '.socialscraper.yaml' in the current directory unless
a different path is given with --config.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd, showCmd, validateCmd)
}

const exampleConfig = `# socialscraper configuration
#
# Every value can also be set through the environment, for example
# RECOUP_API_KEY, RECOUP_ACCOUNT_ID or SOCIALSCRAPER_POLL_MODE.

api:
  base_url: "https://api.recoupable.com"
  jobs_url: "https://api.recoupable.com/api/jobs"
  chat_url: "https://chat.recoupable.com/api/chat/generate"
  # Prefer 'socialscraper auth login' over storing the key here
  api_key: ""
  timeout: 30s

scrape:
  # Artists taken from the pro artist list
  pro_artist_limit: 10
  # Social lookups per batch and the pause between batches
  fetch_batch_size: 10
  fetch_batch_delay: 1s
  # Launch calls per batch and the pause between batches
  launch_batch_size: 3
  launch_batch_delay: 1s
  # Also pause after the last launch batch
  trailing_delay: false
  # Pause before every status query
  poll_interval: 10s
  # sequential or concurrent
  poll_mode: "sequential"
  poll_concurrency: 4
  # Bound on polling alone; 0 relies on max_duration
  poll_deadline: 0s
  # Wait between the last terminal run and the re-fetch of socials
  settle_delay: 10s
  # Hard bound on one invocation
  max_duration: 22m

rate_limit:
  requests_per_minute: 120
  # token_bucket or sliding_window
  strategy: token_bucket

retry:
  # Applies to reads only; launch calls are never retried
  max_attempts: 3
  base_delay: 1s
  max_delay: 15s

notifications:
  enabled: true
  # Fallbacks when the job does not provide its own values
  account_id: ""
  room_id: ""
  artist_id: ""
  model: ""
  prompt: ""

reports:
  enabled: false
  # Defaults to the user data directory
  directory: ""

logging:
  # debug, info, warn, error
  level: "info"
  file: ""
  no_color: false
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = ".socialscraper.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists: %s", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(exampleConfig), 0600); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + path)
	fmt.Fprintln(ui.Output, "\nNext steps:")
	fmt.Fprintln(ui.Output, "1. Run 'socialscraper auth login' to store your Recoup API key")
	fmt.Fprintln(ui.Output, "2. Run 'socialscraper config validate' to check the configuration")
	fmt.Fprintln(ui.Output, "3. Start with 'socialscraper scrape artist <artist_account_id>'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	display := *cfg
	if display.API.APIKey != "" {
		display.API.APIKey = auth.Mask(display.API.APIKey)
	}

	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current configuration")
	fmt.Fprintln(ui.Output)
	fmt.Fprint(ui.Output, string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	var warnings []string
	if cfg.API.APIKey == "" {
		if manager, err := auth.NewManager(); err != nil || manager.APIKey(profile) == "" {
			warnings = append(warnings, "no Recoup API key configured or stored")
		}
	}
	n := cfg.Notifications
	if n.Enabled && (n.AccountID == "" || n.RoomID == "") {
		warnings = append(warnings, "chat summaries need an account and a room unless a job provides them")
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			return fmt.Errorf("cannot create log directory: %w", err)
		}
	}

	for _, w := range warnings {
		ui.PrintWarning(w)
	}
	ui.PrintSuccess("Configuration is valid")

	ui.PrintInfo("Poll mode", cfg.Scrape.PollMode)
	ui.PrintInfo("Poll interval", cfg.Scrape.PollInterval.String())
	ui.PrintInfo("Max duration", cfg.Scrape.MaxDuration.String())
	ui.PrintInfo("Rate limit", fmt.Sprintf("%d requests/minute (%s)", cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Strategy))
	ui.PrintInfo("Log level", cfg.Logging.Level)
	return nil
}
