package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"igstories/pkg/config"
	"igstories/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage igstories configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (IGSTORIES_*)
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is written to the --config path, or to the per-user location
($HOME/.config/igstories/config.yaml) when none is given.`,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the effective configuration.

This command checks:
  - YAML syntax
  - Value types and ranges
  - Output directory accessibility`,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

const exampleConfig = `# igstories configuration
#
# Every option can also be set through environment variables prefixed
# with IGSTORIES_, for example IGSTORIES_HEADLESS=true.

browser:
  # Run Chrome without a window
  headless: false
  # Leave empty to use the built-in desktop user agent
  user_agent: ""
  # Chrome executable, empty to let chromedp find one
  exec_path: ""
  window_width: 1280
  window_height: 900
  startup_timeout: 30s

session:
  # How long to wait for the feed after submitting the login form
  login_timeout: 60s
  poll_interval: 500ms
  # Submit attempts while Instagram shows "there was a problem"
  submit_attempts: 3
  page_settle: 6s
  # Wait after reloading with a restored session token
  restore_wait: 5s
  # Keep a screenshot proving the session was established
  proof_screenshot: true

batch:
  # Consecutive frames without a save before an account is abandoned
  failure_ceiling: 8
  settle_delay: 5s
  viewer_open_delay: 3s
  # Wait after every ArrowRight
  advance_delay: 1500ms
  # How often and how long to look for new media on one frame
  extract_interval: 500ms
  extract_timeout: 10s
  # Random pause between accounts
  account_delay_min: 3s
  account_delay_max: 6s
  # 0 disables the hourly cap
  accounts_per_hour: 120
  # smooth (token bucket) or window (rolling hour)
  pacing_mode: smooth

validation:
  # Smaller payloads are thumbnails or partial downloads
  image_min_bytes: 15000
  video_min_bytes: 200000

output:
  download_directory: ./downloads
  # Screenshots and markup dumps of failures
  diagnostic_directory: ./images
  # Keep <account>.manifest.json next to the media
  write_manifest: true

notifications:
  enabled: true
  on_complete: true
  on_error: true
  # terminal, desktop or none
  notification_type: terminal

logging:
  # debug, info, warn, error
  level: info
  # console or json
  format: console
  # Optional log file, stdout only when empty
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = config.DefaultPath()
	}

	if _, err := os.Stat(configPath); err == nil {
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Adjust the delays and output directories")
	fmt.Println("2. Run 'igstories config validate' to check the configuration")
	fmt.Println("3. Start with 'igstories run <account> --username <you>'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (IGSTORIES_*)")
	if configFile != "" {
		fmt.Printf("3. Configuration file: %s\n", configFile)
	} else {
		fmt.Printf("3. Configuration file: %s (if present)\n", config.DefaultPath())
	}
	fmt.Println("4. Default values")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	source := configFile
	if source == "" {
		source = config.DefaultPath()
	}
	ui.PrintInfo("Validating configuration", source)

	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	var problems []error
	for _, dir := range []string{cfg.Output.DownloadDirectory, cfg.Output.DiagnosticDirectory} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			problems = append(problems, fmt.Errorf("cannot create %s: %w", dir, err))
		}
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Errorf("cannot create log directory: %w", err))
		}
	}
	if err := errors.Join(problems...); err != nil {
		return err
	}

	if cfg.Batch.AccountsPerHour == 0 {
		ui.PrintWarning("accounts_per_hour is 0, runs are not capped")
	}
	if cfg.Browser.Headless {
		ui.PrintWarning("Headless Chrome is more likely to be challenged by Instagram")
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Download directory:   %s\n", cfg.Output.DownloadDirectory)
	fmt.Printf("  Diagnostic directory: %s\n", cfg.Output.DiagnosticDirectory)
	fmt.Printf("  Failure ceiling:      %d\n", cfg.Batch.FailureCeiling)
	fmt.Printf("  Account delay:        %s to %s\n", cfg.Batch.AccountDelayMin, cfg.Batch.AccountDelayMax)
	fmt.Printf("  Size floors:          %s image, %s video\n",
		ui.FormatBytes(cfg.Validation.ImageMinBytes), ui.FormatBytes(cfg.Validation.VideoMinBytes))
	fmt.Printf("  Log level:            %s\n", cfg.Logging.Level)
	return nil
}
