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

// DefaultUserAgent is the desktop Chrome user agent presented by the browser.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36"

// Config holds all configuration options for the story downloader
type Config struct {
	// Browser launch options
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Login and session restore behaviour
	Session SessionConfig `yaml:"session" json:"session"`

	// Story batch loop tuning
	Batch BatchConfig `yaml:"batch" json:"batch"`

	// Minimum payload sizes
	Validation ValidationConfig `yaml:"validation" json:"validation"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// BrowserConfig holds Chrome launch options
type BrowserConfig struct {
	Headless       bool          `yaml:"headless" json:"headless"`
	UserAgent      string        `yaml:"user_agent" json:"user_agent"`
	ExecPath       string        `yaml:"exec_path" json:"exec_path"`
	WindowWidth    int           `yaml:"window_width" json:"window_width"`
	WindowHeight   int           `yaml:"window_height" json:"window_height"`
	StartupTimeout time.Duration `yaml:"startup_timeout" json:"startup_timeout"`
}

// SessionConfig holds login and cookie-restore settings
type SessionConfig struct {
	LoginTimeout    time.Duration `yaml:"login_timeout" json:"login_timeout"`
	PollInterval    time.Duration `yaml:"poll_interval" json:"poll_interval"`
	SubmitAttempts  int           `yaml:"submit_attempts" json:"submit_attempts"`
	PageSettle      time.Duration `yaml:"page_settle" json:"page_settle"`
	RestoreWait     time.Duration `yaml:"restore_wait" json:"restore_wait"`
	ProofScreenshot bool          `yaml:"proof_screenshot" json:"proof_screenshot"`
}

// BatchConfig holds story viewer loop settings
type BatchConfig struct {
	FailureCeiling    int           `yaml:"failure_ceiling" json:"failure_ceiling"`
	SettleDelay       time.Duration `yaml:"settle_delay" json:"settle_delay"`
	ViewerOpenDelay   time.Duration `yaml:"viewer_open_delay" json:"viewer_open_delay"`
	AdvanceDelay      time.Duration `yaml:"advance_delay" json:"advance_delay"`
	ExtractInterval   time.Duration `yaml:"extract_interval" json:"extract_interval"`
	ExtractTimeout    time.Duration `yaml:"extract_timeout" json:"extract_timeout"`
	AccountDelayMin   time.Duration `yaml:"account_delay_min" json:"account_delay_min"`
	AccountDelayMax   time.Duration `yaml:"account_delay_max" json:"account_delay_max"`
	AccountsPerHour   int           `yaml:"accounts_per_hour" json:"accounts_per_hour"`
	// PacingMode is "smooth" (token bucket) or "window" (rolling hour cap)
	PacingMode        string        `yaml:"pacing_mode" json:"pacing_mode"`
}

// ValidationConfig holds the minimum accepted payload sizes
type ValidationConfig struct {
	ImageMinBytes int64 `yaml:"image_min_bytes" json:"image_min_bytes"`
	VideoMinBytes int64 `yaml:"video_min_bytes" json:"video_min_bytes"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	DownloadDirectory   string `yaml:"download_directory" json:"download_directory"`
	DiagnosticDirectory string `yaml:"diagnostic_directory" json:"diagnostic_directory"`
	WriteManifest       bool   `yaml:"write_manifest" json:"write_manifest"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled          bool   `yaml:"enabled" json:"enabled"`
	OnComplete       bool   `yaml:"on_complete" json:"on_complete"`
	OnError          bool   `yaml:"on_error" json:"on_error"`
	NotificationType string `yaml:"notification_type" json:"notification_type"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	File   string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:       false,
			UserAgent:      DefaultUserAgent,
			WindowWidth:    1280,
			WindowHeight:   900,
			StartupTimeout: 30 * time.Second,
		},
		Session: SessionConfig{
			LoginTimeout:    60 * time.Second,
			PollInterval:    500 * time.Millisecond,
			SubmitAttempts:  3,
			PageSettle:      6 * time.Second,
			RestoreWait:     5 * time.Second,
			ProofScreenshot: true,
		},
		Batch: BatchConfig{
			FailureCeiling:  8,
			SettleDelay:     5 * time.Second,
			ViewerOpenDelay: 3 * time.Second,
			AdvanceDelay:    1500 * time.Millisecond,
			ExtractInterval: 500 * time.Millisecond,
			ExtractTimeout:  10 * time.Second,
			AccountDelayMin: 3 * time.Second,
			AccountDelayMax: 6 * time.Second,
			AccountsPerHour: 120,
			PacingMode:      "smooth",
		},
		Validation: ValidationConfig{
			ImageMinBytes: 15_000,
			VideoMinBytes: 200_000,
		},
		Output: OutputConfig{
			DownloadDirectory:   "./downloads",
			DiagnosticDirectory: "./images",
			WriteManifest:       true,
		},
		Notifications: NotificationConfig{
			Enabled:          true,
			OnComplete:       true,
			OnError:          true,
			NotificationType: "terminal",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv("IGSTORIES_HEADLESS"); v != "" {
		c.Browser.Headless = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("IGSTORIES_USER_AGENT"); v != "" {
		c.Browser.UserAgent = v
	}
	if v := os.Getenv("IGSTORIES_CHROME_PATH"); v != "" {
		c.Browser.ExecPath = v
	}
	if v := os.Getenv("IGSTORIES_OUTPUT_DIR"); v != "" {
		c.Output.DownloadDirectory = v
	}
	if v := os.Getenv("IGSTORIES_DIAGNOSTIC_DIR"); v != "" {
		c.Output.DiagnosticDirectory = v
	}
	if v := os.Getenv("IGSTORIES_FAILURE_CEILING"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("IGSTORIES_FAILURE_CEILING: %w", err))
		} else {
			c.Batch.FailureCeiling = n
		}
	}
	if v := os.Getenv("IGSTORIES_IMAGE_MIN_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("IGSTORIES_IMAGE_MIN_BYTES: %w", err))
		} else {
			c.Validation.ImageMinBytes = n
		}
	}
	if v := os.Getenv("IGSTORIES_VIDEO_MIN_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("IGSTORIES_VIDEO_MIN_BYTES: %w", err))
		} else {
			c.Validation.VideoMinBytes = n
		}
	}
	if v := os.Getenv("IGSTORIES_PACING_MODE"); v != "" {
		c.Batch.PacingMode = strings.ToLower(v)
	}
	if v := os.Getenv("IGSTORIES_NOTIFICATIONS_ENABLED"); v != "" {
		c.Notifications.Enabled = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("IGSTORIES_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("IGSTORIES_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}

	return errors.Join(errs...)
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
		".igstories.yaml",
		".igstories.yml",
		filepath.Join(home, ".config", "igstories", "config.yaml"),
		filepath.Join(home, ".config", "igstories", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// DefaultPath returns the per-user config file location
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "igstories", "config.yaml")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Browser.UserAgent == "" {
		errs = append(errs, errors.New("browser user agent is required"))
	}
	if c.Browser.StartupTimeout <= 0 {
		errs = append(errs, errors.New("browser startup timeout must be positive"))
	}

	if c.Session.LoginTimeout <= 0 {
		errs = append(errs, errors.New("login timeout must be positive"))
	}
	if c.Session.PollInterval <= 0 || c.Session.PollInterval > c.Session.LoginTimeout {
		errs = append(errs, errors.New("poll interval must be positive and below the login timeout"))
	}
	if c.Session.SubmitAttempts <= 0 {
		errs = append(errs, errors.New("submit attempts must be positive"))
	}

	if c.Batch.FailureCeiling <= 0 {
		errs = append(errs, errors.New("failure ceiling must be positive"))
	}
	if c.Batch.ExtractInterval <= 0 || c.Batch.ExtractTimeout < c.Batch.ExtractInterval {
		errs = append(errs, errors.New("extract timeout must be at least one extract interval"))
	}
	if c.Batch.AccountDelayMin < 0 || c.Batch.AccountDelayMax < c.Batch.AccountDelayMin {
		errs = append(errs, errors.New("account delay bounds must satisfy 0 <= min <= max"))
	}
	if c.Batch.AccountsPerHour < 0 {
		errs = append(errs, errors.New("accounts per hour cannot be negative"))
	}
	if m := c.Batch.PacingMode; m != "" && m != "smooth" && m != "window" {
		errs = append(errs, errors.New("pacing mode must be smooth or window"))
	}

	if c.Validation.ImageMinBytes < 0 || c.Validation.VideoMinBytes < 0 {
		errs = append(errs, errors.New("size floors cannot be negative"))
	}

	if c.Output.DownloadDirectory == "" {
		errs = append(errs, errors.New("download directory is required"))
	}
	if c.Output.DiagnosticDirectory == "" {
		errs = append(errs, errors.New("diagnostic directory is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}
	validFormats := map[string]bool{"console": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, errors.New("log format must be console or json"))
	}

	validNotifTypes := map[string]bool{
		"terminal": true, "desktop": true, "none": true,
	}
	if !validNotifTypes[strings.ToLower(c.Notifications.NotificationType)] {
		errs = append(errs, errors.New("invalid notification type"))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys that are present with a non-zero value override.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if headless, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = headless
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.DownloadDirectory = outputDir
	}
	if ceiling, ok := flags["failure-ceiling"].(int); ok && ceiling > 0 {
		c.Batch.FailureCeiling = ceiling
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if chromePath, ok := flags["chrome-path"].(string); ok && chromePath != "" {
		c.Browser.ExecPath = chromePath
	}
	if enabled, ok := flags["notifications"].(bool); ok {
		c.Notifications.Enabled = enabled
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".igstories.env"))

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
