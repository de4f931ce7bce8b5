// Package config provides configuration management for the zoomvault application
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ZoomConfig holds Zoom API authentication and connection settings
type ZoomConfig struct {
	AccountID    string `yaml:"account_id" json:"account_id"`
	ClientID     string `yaml:"client_id" json:"client_id"`
	ClientSecret string `yaml:"client_secret" json:"client_secret"`
	BaseURL      string `yaml:"base_url" json:"base_url"`
}

// DiscoveryConfig holds recording discovery settings
type DiscoveryConfig struct {
	MonthsBack        int `yaml:"months_back" json:"months_back"`
	UserConcurrency   int `yaml:"user_concurrency" json:"user_concurrency"`
	WindowConcurrency int `yaml:"window_concurrency" json:"window_concurrency"`
	PageSize          int `yaml:"page_size" json:"page_size"`
}

// DownloadConfig holds download-related settings
type DownloadConfig struct {
	OutputDir      string `yaml:"output_dir" json:"output_dir"`
	MaxConcurrent  int    `yaml:"max_concurrent" json:"max_concurrent"`
	RetryAttempts  int    `yaml:"retry_attempts" json:"retry_attempts"`
	ChunkSizeBytes int    `yaml:"chunk_size_bytes" json:"chunk_size_bytes"`
	TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"`
	URLListFile    string `yaml:"url_list_file" json:"url_list_file"`
}

// TimeoutDuration returns the timeout as a time.Duration
func (d DownloadConfig) TimeoutDuration() time.Duration {
	return time.Duration(d.TimeoutSeconds) * time.Second
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level      string `yaml:"level" json:"level"`
	File       string `yaml:"file" json:"file"`
	Console    bool   `yaml:"console" json:"console"`
	JSONFormat bool   `yaml:"json_format" json:"json_format"`
}

// ActiveUsersConfig holds active users list settings
type ActiveUsersConfig struct {
	File  string `yaml:"file" json:"file"`
	Watch bool   `yaml:"watch" json:"watch"`
}

// Config represents the complete application configuration
type Config struct {
	Zoom        ZoomConfig        `yaml:"zoom" json:"zoom"`
	Discovery   DiscoveryConfig   `yaml:"discovery" json:"discovery"`
	Download    DownloadConfig    `yaml:"download" json:"download"`
	Logging     LoggingConfig     `yaml:"logging" json:"logging"`
	ActiveUsers ActiveUsersConfig `yaml:"active_users" json:"active_users"`

	// consoleSet records whether logging.console appeared in the config
	// file, so an explicit false survives the defaults pass
	consoleSet bool
}

// LoadConfig loads configuration from a YAML file with defaults and environment variable overrides
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	// Load from YAML file
	if err := config.loadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config from file: %w", err)
	}

	// Apply defaults
	config.setDefaults()

	// Override with environment variables
	config.loadFromEnvironment()

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// LoadConfigFromEnvironment builds a configuration from defaults and
// environment variables only, for running without a config file.
func LoadConfigFromEnvironment() (*Config, error) {
	config := &Config{}
	config.setDefaults()
	config.loadFromEnvironment()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// loadFromFile loads configuration from a YAML file
func (c *Config) loadFromFile(configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}

	// A bool field cannot distinguish "console: false" from absent, so
	// probe presence separately
	var presence struct {
		Logging struct {
			Console *bool `yaml:"console"`
		} `yaml:"logging"`
	}
	if err := yaml.Unmarshal(data, &presence); err == nil && presence.Logging.Console != nil {
		c.consoleSet = true
	}

	return nil
}

// setDefaults applies default values for missing configuration
func (c *Config) setDefaults() {
	// Zoom defaults
	if c.Zoom.BaseURL == "" {
		c.Zoom.BaseURL = "https://api.zoom.us/v2"
	}

	// Discovery defaults
	if c.Discovery.MonthsBack == 0 {
		c.Discovery.MonthsBack = 12
	}
	if c.Discovery.UserConcurrency == 0 {
		c.Discovery.UserConcurrency = 3
	}
	if c.Discovery.WindowConcurrency == 0 {
		c.Discovery.WindowConcurrency = 6
	}
	if c.Discovery.PageSize == 0 {
		c.Discovery.PageSize = 100
	}

	// Download defaults
	if c.Download.OutputDir == "" {
		c.Download.OutputDir = "./downloads"
	}
	if c.Download.MaxConcurrent == 0 {
		c.Download.MaxConcurrent = 5
	}
	if c.Download.RetryAttempts == 0 {
		c.Download.RetryAttempts = 3
	}
	if c.Download.ChunkSizeBytes == 0 {
		c.Download.ChunkSizeBytes = 8192
	}
	if c.Download.TimeoutSeconds == 0 {
		c.Download.TimeoutSeconds = 300
	}
	if c.Download.URLListFile == "" {
		c.Download.URLListFile = "urls.txt"
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if !c.consoleSet {
		c.Logging.Console = true
	}
}

// loadFromEnvironment overrides configuration with environment variables
func (c *Config) loadFromEnvironment() {
	if val := os.Getenv("ZOOM_ACCOUNT_ID"); val != "" {
		c.Zoom.AccountID = val
	}
	if val := os.Getenv("ZOOM_CLIENT_ID"); val != "" {
		c.Zoom.ClientID = val
	}
	if val := os.Getenv("ZOOM_CLIENT_SECRET"); val != "" {
		c.Zoom.ClientSecret = val
	}
	if val := os.Getenv("ZOOM_BASE_URL"); val != "" {
		c.Zoom.BaseURL = val
	}

	if val := os.Getenv("DOWNLOAD_OUTPUT_DIR"); val != "" {
		c.Download.OutputDir = val
	}
}

// Validate performs validation on the loaded configuration
func (c *Config) Validate() error {
	// Validate required Zoom configuration
	if c.Zoom.AccountID == "" {
		return fmt.Errorf("zoom.account_id is required")
	}
	if c.Zoom.ClientID == "" {
		return fmt.Errorf("zoom.client_id is required")
	}
	if c.Zoom.ClientSecret == "" {
		return fmt.Errorf("zoom.client_secret is required")
	}

	// Validate discovery configuration
	if c.Discovery.MonthsBack < 1 {
		return fmt.Errorf("discovery.months_back must be >= 1")
	}
	if c.Discovery.UserConcurrency < 1 {
		return fmt.Errorf("discovery.user_concurrency must be >= 1")
	}
	if c.Discovery.WindowConcurrency < 1 {
		return fmt.Errorf("discovery.window_concurrency must be >= 1")
	}
	if c.Discovery.PageSize < 1 || c.Discovery.PageSize > 300 {
		return fmt.Errorf("discovery.page_size must be between 1 and 300")
	}

	// Validate download configuration
	if c.Download.MaxConcurrent < 1 {
		return fmt.Errorf("download.max_concurrent must be >= 1")
	}
	if c.Download.RetryAttempts < 1 {
		return fmt.Errorf("download.retry_attempts must be >= 1")
	}
	if c.Download.ChunkSizeBytes < 1 {
		return fmt.Errorf("download.chunk_size_bytes must be >= 1")
	}
	if c.Download.TimeoutSeconds <= 0 {
		return fmt.Errorf("download.timeout_seconds must be greater than 0")
	}

	// Validate logging configuration
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	return nil
}
