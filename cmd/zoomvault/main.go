package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zoomvault/zoomvault/internal/config"
	"github.com/zoomvault/zoomvault/internal/logging"
	"github.com/zoomvault/zoomvault/internal/pipeline"
)

var (
	// Version information - will be set during build
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	outputDir  string
	verbose    bool
)

// buildRootCommand creates and configures the root command
func buildRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "zoomvault",
		Short: "A CLI tool to download Zoom cloud recordings",
		Long: `zoomvault enumerates the cloud recordings of every user in a Zoom
account over the past year and downloads the video files to local storage.

This tool helps you:
- Discover recordings across all account users in parallel
- Download video files concurrently with retry and size verification
- Skip files that were already downloaded on a previous run
- Write an authenticated URL list alongside the downloads`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfiguration(cmd)
			if err != nil {
				return err
			}

			if outputDir != "" {
				cfg.Download.OutputDir = outputDir
			}
			if verbose {
				cfg.Logging.Level = "debug"
			}

			if err := logging.InitializeLogging(cfg.Logging); err != nil {
				return fmt.Errorf("failed to initialize logging: %w", err)
			}

			runner, err := pipeline.NewRunner(cfg, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer runner.Close()

			// Per-download and per-user failures are reported in the
			// summary, not through the exit code
			return runner.Run(context.Background())
		},
	}

	rootCmd.AddCommand(createVersionCommand())
	rootCmd.AddCommand(createConfigCommand())

	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "configuration file path (default: config.yaml)")
	rootCmd.PersistentFlags().StringVar(&outputDir, "output-dir", "", "download directory (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "verbose logging")

	rootCmd.SilenceUsage = true

	return rootCmd
}

// loadConfiguration loads the YAML config, falling back to environment
// variables when no config file exists
func loadConfiguration(cmd *cobra.Command) (*config.Config, error) {
	configPath := "config.yaml"
	if configFile != "" {
		configPath = configFile
	}

	if _, err := os.Stat(configPath); err != nil {
		if configFile != "" {
			// An explicitly named config file must exist
			return nil, fmt.Errorf("config file %s not found", configFile)
		}

		cfg, envErr := config.LoadConfigFromEnvironment()
		if envErr == nil {
			return cfg, nil
		}

		cmd.Printf("Configuration file '%s' not found and environment configuration is incomplete.\n\n", configPath)
		cmd.Printf("To get started:\n")
		cmd.Printf("1. Run 'zoomvault config' to see the configuration structure\n")
		cmd.Printf("2. Create config.yaml with your Zoom credentials, or\n")
		cmd.Printf("3. Set ZOOM_ACCOUNT_ID, ZOOM_CLIENT_ID and ZOOM_CLIENT_SECRET\n\n")
		return nil, envErr
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		if strings.Contains(err.Error(), "validation failed") {
			cmd.Printf("Configuration error: %v\n", err)
			cmd.Printf("Run 'zoomvault config' to see the required configuration structure.\n\n")
		}
		return nil, err
	}

	return cfg, nil
}

// createVersionCommand creates the version subcommand
func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display version, commit, and build information for zoomvault",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("zoomvault version %s\n", version)
			cmd.Printf("Commit: %s\n", commit)
			cmd.Printf("Build date: %s\n", buildDate)
		},
	}
}

// createConfigCommand creates the config help subcommand
func createConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show configuration file structure and examples",
		Long:  "Display the required configuration file structure, environment variables, and examples",
		Run: func(cmd *cobra.Command, args []string) {
			configHelp := `Configuration File Structure (config.yaml):

ZOOM API CONFIGURATION (Required):
=================================
zoom:
  account_id: "your_zoom_account_id"       # Zoom Account ID from Server-to-Server OAuth app
  client_id: "your_zoom_client_id"         # Client ID from Server-to-Server OAuth app
  client_secret: "your_zoom_client_secret" # Client Secret from Server-to-Server OAuth app
  base_url: "https://api.zoom.us/v2"       # Zoom API base URL (default: https://api.zoom.us/v2)

# REQUIRED SCOPES: recording:read:admin, user:read:admin
# Uses Server-to-Server OAuth (account-level access, no user tokens needed)

DISCOVERY CONFIGURATION:
=======================
discovery:
  months_back: 12            # Monthly windows before the current month (default: 12)
  user_concurrency: 3        # Users discovered in parallel (default: 3)
  window_concurrency: 6      # Month windows fetched in parallel per user (default: 6)
  page_size: 100             # Listing API page size (default: 100, max: 300)

DOWNLOAD CONFIGURATION:
======================
download:
  output_dir: "./downloads"  # Local download directory (default: ./downloads)
  max_concurrent: 5          # Max concurrent downloads; 1 downloads sequentially (default: 5)
  retry_attempts: 3          # Attempts per file for transport errors (default: 3)
  chunk_size_bytes: 8192     # Streaming read buffer size (default: 8192)
  timeout_seconds: 300       # Download timeout in seconds (default: 300 = 5 minutes)
  url_list_file: "urls.txt"  # Authenticated URL list output (default: urls.txt)

LOGGING CONFIGURATION:
=====================
logging:
  level: "info"              # Log level: debug, info, warn, error (default: info)
  file: ""                   # Optional log file path
  console: true              # Enable console output (default: true)
  json_format: false         # Use JSON log format (default: false)

ACTIVE USERS FILTERING (Optional):
=================================
active_users:
  file: ""                   # Path to active users list file (empty disables filtering)
  watch: false               # Reload the list when the file changes

# Active users file format (one email per line):
# john.doe@company.com
# jane.smith@company.com
# # Lines starting with # are comments

ENVIRONMENT VARIABLES:
=====================

Required Zoom API credentials (override config file):
  ZOOM_ACCOUNT_ID     - Your Zoom account ID
  ZOOM_CLIENT_ID      - Your Zoom OAuth app client ID
  ZOOM_CLIENT_SECRET  - Your Zoom OAuth app client secret
  ZOOM_BASE_URL       - Zoom API base URL (optional)

Other settings:
  DOWNLOAD_OUTPUT_DIR - Download directory
`
			cmd.Print(configHelp)
		},
	}
}

func main() {
	rootCmd := buildRootCommand()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
