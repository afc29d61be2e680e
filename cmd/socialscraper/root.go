package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"socialscraper/pkg/auth"
	"socialscraper/pkg/config"
	"socialscraper/pkg/logger"
	"socialscraper/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	pollMode   string
	profile    string
	noColor    bool
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "socialscraper",
	Short: "Refresh artist social profiles through the Recoup scraper API",
	Long: `socialscraper starts remote scrapes for an artist's social profiles, waits
for every run to finish and reports what changed.

Features:
  - One artist, one bulk call per artist, or the top pro artists
  - Paced batches so the upstream scraper is not flooded
  - Sequential or concurrent polling with a hard deadline
  - Chat summaries routed through customer job settings
  - Outcome reports saved as JSON
  - API keys kept in the system keychain or an encrypted file`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet {
			logLevel = "error"
		}
		if !quiet && !outputJSON && cmd.Name() != "version" && cmd.Name() != "help" {
			ui.PrintBanner()
		}
	},
}

// Execute runs the root command until it finishes or the process is
// interrupted
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.PrintError("Error", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.socialscraper.yaml or ~/.config/socialscraper/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&pollMode, "poll-mode", "", "poll mode (sequential, concurrent)")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", auth.DefaultProfile, "stored credential profile to use")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored log output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")

	rootCmd.SetVersionTemplate(`socialscraper {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig loads configuration with the global flags and extra applied,
// initializes logging and resolves the API key from stored credentials
// when neither the file nor the environment set one
func loadConfig(extra map[string]interface{}) (*config.Config, error) {
	flags := map[string]interface{}{
		"log-level": logLevel,
		"poll-mode": pollMode,
	}
	for k, v := range extra {
		flags[k] = v
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if noColor {
		cfg.Logging.NoColor = true
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.WithField("version", version).Info("socialscraper starting")

	if cfg.API.APIKey == "" {
		if manager, err := auth.NewManager(); err != nil {
			logger.WithError(err).Warn("Credential store unavailable")
		} else if key := manager.APIKey(profile); key != "" {
			cfg.API.APIKey = key
			logger.WithField("profile", profile).Info("Using stored API key")
		}
	}
	if cfg.API.APIKey == "" {
		logger.Warn("No Recoup API key configured; requests are sent unauthenticated")
	}

	return cfg, nil
}
