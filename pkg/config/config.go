package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the scrape orchestrator
type Config struct {
	// Recoup API endpoints and credentials
	API APIConfig `yaml:"api" json:"api"`

	// Batching, polling and deadline settings
	Scrape ScrapeConfig `yaml:"scrape" json:"scrape"`

	// Client-side rate limiting of outbound API calls
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Retry policy for idempotent reads
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Chat summary hand-off
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Outcome report persistence
	Reports ReportConfig `yaml:"reports" json:"reports"`

	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// APIConfig holds the Recoup API endpoints
type APIConfig struct {
	BaseURL   string        `yaml:"base_url" json:"base_url"`
	JobsURL   string        `yaml:"jobs_url" json:"jobs_url"`
	ChatURL   string        `yaml:"chat_url" json:"chat_url"`
	APIKey    string        `yaml:"api_key" json:"-"`
	UserAgent string        `yaml:"user_agent" json:"user_agent"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
}

// ScrapeConfig holds orchestration timings and sizes
type ScrapeConfig struct {
	ProArtistLimit   int           `yaml:"pro_artist_limit" json:"pro_artist_limit"`
	FetchBatchSize   int           `yaml:"fetch_batch_size" json:"fetch_batch_size"`
	FetchBatchDelay  time.Duration `yaml:"fetch_batch_delay" json:"fetch_batch_delay"`
	LaunchBatchSize  int           `yaml:"launch_batch_size" json:"launch_batch_size"`
	LaunchBatchDelay time.Duration `yaml:"launch_batch_delay" json:"launch_batch_delay"`
	TrailingDelay    bool          `yaml:"trailing_delay" json:"trailing_delay"`
	PollInterval     time.Duration `yaml:"poll_interval" json:"poll_interval"`
	PollMode         string        `yaml:"poll_mode" json:"poll_mode"`
	PollConcurrency  int           `yaml:"poll_concurrency" json:"poll_concurrency"`
	PollDeadline     time.Duration `yaml:"poll_deadline" json:"poll_deadline"`
	SettleDelay      time.Duration `yaml:"settle_delay" json:"settle_delay"`
	MaxDuration      time.Duration `yaml:"max_duration" json:"max_duration"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int    `yaml:"requests_per_minute" json:"requests_per_minute"`
	Strategy          string `yaml:"strategy" json:"strategy"`
}

// RetryConfig holds the retry policy for reads
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
}

// NotificationConfig holds the chat summary fallbacks used when a job does
// not provide its own values
type NotificationConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	AccountID string `yaml:"account_id" json:"account_id"`
	RoomID    string `yaml:"room_id" json:"room_id"`
	ArtistID  string `yaml:"artist_id" json:"artist_id"`
	Model     string `yaml:"model" json:"model"`
	Prompt    string `yaml:"prompt" json:"prompt"`
}

// ReportConfig holds outcome report settings
type ReportConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Directory string `yaml:"directory" json:"directory"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `yaml:"level" json:"level"`
	File    string `yaml:"file" json:"file"`
	NoColor bool   `yaml:"no_color" json:"no_color"`
}

// Poll modes
const (
	PollModeSequential = "sequential"
	PollModeConcurrent = "concurrent"
)

// Rate limit strategies
const (
	RateLimitTokenBucket   = "token_bucket"
	RateLimitSlidingWindow = "sliding_window"
)

// DefaultPrompt is sent to the chat dispatcher when neither the job nor the
// environment provides one
const DefaultPrompt = "Draft a friendly check-in message for our customers."

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:   "https://api.recoupable.com",
			JobsURL:   "https://api.recoupable.com/api/jobs",
			ChatURL:   "https://chat.recoupable.com/api/chat/generate",
			UserAgent: "socialscraper/1.0",
			Timeout:   30 * time.Second,
		},
		Scrape: ScrapeConfig{
			ProArtistLimit:   10,
			FetchBatchSize:   10,
			FetchBatchDelay:  time.Second,
			LaunchBatchSize:  3,
			LaunchBatchDelay: time.Second,
			PollInterval:     10 * time.Second,
			PollMode:         PollModeSequential,
			PollConcurrency:  4,
			SettleDelay:      10 * time.Second,
			MaxDuration:      22 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 120,
			Strategy:          RateLimitTokenBucket,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			MaxDelay:    15 * time.Second,
		},
		Notifications: NotificationConfig{
			Enabled: true,
			Prompt:  DefaultPrompt,
		},
		Reports: ReportConfig{
			Enabled: false,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	setString(&c.API.BaseURL, "RECOUP_API_URL")
	setString(&c.API.JobsURL, "RECOUP_JOBS_API_URL")
	setString(&c.API.ChatURL, "RECOUP_CHAT_API_URL")
	setString(&c.API.APIKey, "RECOUP_API_KEY")

	setString(&c.Notifications.AccountID, "RECOUP_ACCOUNT_ID")
	setString(&c.Notifications.RoomID, "RECOUP_ROOM_ID")
	setString(&c.Notifications.ArtistID, "RECOUP_ARTIST_ID")
	setString(&c.Notifications.Model, "RECOUP_MODEL")
	setString(&c.Notifications.Prompt, "RECOUP_PROMPT")
	if v := os.Getenv("SOCIALSCRAPER_NOTIFICATIONS_ENABLED"); v != "" {
		c.Notifications.Enabled = strings.EqualFold(v, "true")
	}

	setString(&c.Scrape.PollMode, "SOCIALSCRAPER_POLL_MODE")
	setString(&c.RateLimit.Strategy, "SOCIALSCRAPER_RATE_LIMIT_STRATEGY")
	errs = append(errs,
		setDuration(&c.Scrape.PollInterval, "SOCIALSCRAPER_POLL_INTERVAL"),
		setDuration(&c.Scrape.SettleDelay, "SOCIALSCRAPER_SETTLE_DELAY"),
		setDuration(&c.Scrape.MaxDuration, "SOCIALSCRAPER_MAX_DURATION"),
		setInt(&c.Scrape.ProArtistLimit, "SOCIALSCRAPER_PRO_ARTIST_LIMIT"),
		setInt(&c.RateLimit.RequestsPerMinute, "SOCIALSCRAPER_REQUESTS_PER_MINUTE"),
	)

	setString(&c.Reports.Directory, "SOCIALSCRAPER_REPORT_DIR")
	setString(&c.Logging.Level, "SOCIALSCRAPER_LOG_LEVEL")
	setString(&c.Logging.File, "SOCIALSCRAPER_LOG_FILE")

	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".socialscraper.yaml",
		".socialscraper.yml",
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		locations = append(locations, filepath.Join(xdg, "socialscraper", "config.yaml"))
	}
	locations = append(locations,
		filepath.Join(home, ".config", "socialscraper", "config.yaml"),
		filepath.Join(home, ".socialscraper.yaml"),
	)

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("API base URL is required"))
	}
	if c.API.JobsURL == "" {
		errs = append(errs, errors.New("jobs API URL is required"))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("API timeout must be positive"))
	}

	s := c.Scrape
	if s.ProArtistLimit < 1 {
		errs = append(errs, errors.New("pro artist limit must be at least 1"))
	}
	if s.FetchBatchSize < 1 {
		errs = append(errs, errors.New("fetch batch size must be at least 1"))
	}
	if s.LaunchBatchSize < 1 {
		errs = append(errs, errors.New("launch batch size must be at least 1"))
	}
	if s.FetchBatchDelay < 0 || s.LaunchBatchDelay < 0 || s.SettleDelay < 0 {
		errs = append(errs, errors.New("delays cannot be negative"))
	}
	if s.PollInterval <= 0 {
		errs = append(errs, errors.New("poll interval must be positive"))
	}
	switch strings.ToLower(s.PollMode) {
	case PollModeSequential:
	case PollModeConcurrent:
		if s.PollConcurrency < 1 {
			errs = append(errs, errors.New("poll concurrency must be at least 1"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid poll mode %q", s.PollMode))
	}
	if s.PollDeadline < 0 {
		errs = append(errs, errors.New("poll deadline cannot be negative"))
	}
	if s.MaxDuration <= 0 {
		errs = append(errs, errors.New("max duration must be positive"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	switch c.RateLimit.Strategy {
	case "", RateLimitTokenBucket, RateLimitSlidingWindow:
	default:
		errs = append(errs, fmt.Errorf("invalid rate limit strategy %q", c.RateLimit.Strategy))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry max attempts must be at least 1"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if level, ok := flags["log-level"].(string); ok && level != "" {
		c.Logging.Level = level
	}
	if mode, ok := flags["poll-mode"].(string); ok && mode != "" {
		c.Scrape.PollMode = strings.ToLower(mode)
	}
	if limit, ok := flags["limit"].(int); ok && limit > 0 {
		c.Scrape.ProArtistLimit = limit
	}
	if report, ok := flags["report"].(bool); ok && report {
		c.Reports.Enabled = true
	}
	if dir, ok := flags["report-dir"].(string); ok && dir != "" {
		c.Reports.Directory = dir
	}
	if notify, ok := flags["notify"].(bool); ok {
		c.Notifications.Enabled = notify
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".socialscraper.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
