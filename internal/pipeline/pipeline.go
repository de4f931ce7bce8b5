// Package pipeline wires discovery and download into one run
package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/zoomvault/zoomvault/internal/config"
	"github.com/zoomvault/zoomvault/internal/discovery"
	"github.com/zoomvault/zoomvault/internal/download"
	"github.com/zoomvault/zoomvault/internal/logging"
	"github.com/zoomvault/zoomvault/internal/report"
	"github.com/zoomvault/zoomvault/internal/users"
	"github.com/zoomvault/zoomvault/internal/zoom"
)

// Scopes the access token needs for a full run
var requiredScopes = []string{
	"user:read:admin",
	"recording:read:admin",
}

// Runner executes the discovery and download pipeline
type Runner struct {
	config      *config.Config
	auth        zoom.Authenticator
	client      zoom.CloudRecordingClient
	discoverer  *discovery.Discoverer
	engine      *download.Engine
	userManager users.ActiveUserManager
	printer     *report.Printer
}

// NewRunner wires up a Runner from configuration. Run output is written
// to out.
func NewRunner(cfg *config.Config, out io.Writer) (*Runner, error) {
	auth := zoom.NewServerToServerAuth(cfg.Zoom)

	retryClient := zoom.NewRetryHTTPClient(zoom.HTTPClientConfigFromDownloadConfig(cfg.Download))
	authClient := zoom.NewAuthenticatedRetryClient(retryClient, auth)
	client := zoom.NewZoomClient(authClient, cfg.Zoom.BaseURL, cfg.Discovery.PageSize)

	discoverer := discovery.NewDiscoverer(client, discovery.Config{
		MonthsBack:        cfg.Discovery.MonthsBack,
		UserConcurrency:   cfg.Discovery.UserConcurrency,
		WindowConcurrency: cfg.Discovery.WindowConcurrency,
	})

	engine := download.NewEngine(download.EngineConfig{
		OutputDir:     cfg.Download.OutputDir,
		MaxConcurrent: cfg.Download.MaxConcurrent,
		RetryAttempts: cfg.Download.RetryAttempts,
		ChunkSize:     cfg.Download.ChunkSizeBytes,
		Timeout:       cfg.Download.TimeoutDuration(),
	})

	userManager, err := users.NewActiveUserManager(users.ActiveUserConfig{
		FilePath:  cfg.ActiveUsers.File,
		WatchFile: cfg.ActiveUsers.Watch,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create active user manager: %w", err)
	}

	return &Runner{
		config:      cfg,
		auth:        auth,
		client:      client,
		discoverer:  discoverer,
		engine:      engine,
		userManager: userManager,
		printer:     report.NewPrinter(out),
	}, nil
}

// Run executes one full discovery and download pass. Only authentication
// and user-listing failures abort the run; per-window, per-user and
// per-download failures are isolated and reported in the summary.
func (r *Runner) Run(ctx context.Context) error {
	// No meaningful work is possible without a token
	token, err := r.auth.GetAccessToken(ctx)
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	if err := r.auth.ValidateScopes(token, requiredScopes); err != nil {
		// Missing scopes surface later as listing failures; warn early
		logging.WarnWithContext(ctx, "Token scope check: %v", err)
	}

	accountUsers, err := r.client.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list account users: %w", err)
	}

	activeUsers := r.filterActiveUsers(accountUsers)
	logging.InfoWithContext(ctx, "Processing %d of %d account users", len(activeUsers), len(accountUsers))

	descriptors := r.discoverer.DiscoverAll(ctx, token.AccessToken, activeUsers)

	r.printer.PrintVideoList(descriptors)

	if err := report.WriteURLList(r.config.Download.URLListFile, descriptors); err != nil {
		// The URL list is informational output, not a reason to skip downloads
		logging.WarnWithContext(ctx, "Failed to write URL list: %v", err)
	} else {
		logging.InfoWithContext(ctx, "URLs written to %s", r.config.Download.URLListFile)
	}

	if len(descriptors) == 0 {
		r.printer.PrintNoVideos()
		return nil
	}

	summary, err := r.engine.DownloadAll(ctx, descriptors)
	if err != nil {
		return fmt.Errorf("download engine failed: %w", err)
	}

	r.printer.PrintSummary(summary)

	return nil
}

// filterActiveUsers applies the active-users allowlist when configured
func (r *Runner) filterActiveUsers(accountUsers []zoom.User) []zoom.User {
	filtered := make([]zoom.User, 0, len(accountUsers))
	for _, user := range accountUsers {
		if r.userManager.IsUserActive(user.Email) {
			filtered = append(filtered, user)
			continue
		}
		logging.Debug("Skipping inactive user %s", user.Email)
	}
	return filtered
}

// Close releases pipeline resources
func (r *Runner) Close() error {
	return r.userManager.Close()
}
