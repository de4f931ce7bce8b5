package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zoomvault/zoomvault/internal/datewindow"
	"github.com/zoomvault/zoomvault/internal/logging"
	"github.com/zoomvault/zoomvault/internal/urlauth"
	"github.com/zoomvault/zoomvault/internal/zoom"
)

// Lister is the slice of the Zoom client that discovery consumes
type Lister interface {
	ListAllRecordings(ctx context.Context, userID, from, to string) ([]zoom.Recording, error)
}

// Config holds fan-out settings for the discoverer
type Config struct {
	MonthsBack        int              // Monthly windows before the current month
	UserConcurrency   int              // Concurrent users
	WindowConcurrency int              // Concurrent month windows per user
	Now               func() time.Time // Clock, injectable for tests
}

// Discoverer finds downloadable videos across users and month windows
type Discoverer struct {
	lister Lister
	config Config
}

// NewDiscoverer creates a new Discoverer
func NewDiscoverer(lister Lister, config Config) *Discoverer {
	if config.MonthsBack <= 0 {
		config.MonthsBack = 12
	}
	if config.UserConcurrency <= 0 {
		config.UserConcurrency = 3
	}
	if config.WindowConcurrency <= 0 {
		config.WindowConcurrency = 6
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Discoverer{
		lister: lister,
		config: config,
	}
}

// DiscoverUser lists all video download URLs for one user across the
// configured lookback period. Month windows are fetched concurrently;
// a window that fails is logged and contributes zero recordings without
// aborting its siblings.
func (d *Discoverer) DiscoverUser(ctx context.Context, token string, user zoom.User) ([]VideoDescriptor, error) {
	windows := datewindow.Windows(d.config.Now(), d.config.MonthsBack)

	results := make(chan []zoom.Recording, len(windows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.config.WindowConcurrency)

	for _, w := range windows {
		w := w
		g.Go(func() error {
			logging.DebugWithContext(gctx, "Checking %s: %s to %s", user.Email, w.From(), w.To())

			recordings, err := d.lister.ListAllRecordings(gctx, user.ID, w.From(), w.To())
			if err != nil {
				// Window failure is local: log it and report no recordings
				logging.WarnWithContext(gctx, "Error fetching recordings for %s (%s to %s): %v", user.Email, w.From(), w.To(), err)
				return nil
			}

			results <- recordings
			return nil
		})
	}

	// Workers only return nil; Wait is for completion, not errors
	_ = g.Wait()
	close(results)

	var allRecordings []zoom.Recording
	for recordings := range results {
		allRecordings = append(allRecordings, recordings...)
	}

	logging.DebugWithContext(ctx, "%s: %d total recordings found", user.Email, len(allRecordings))

	return d.flatten(ctx, token, allRecordings)
}

// flatten turns raw recordings into one descriptor per mp4 file entry
func (d *Discoverer) flatten(ctx context.Context, token string, recordings []zoom.Recording) ([]VideoDescriptor, error) {
	var descriptors []VideoDescriptor

	for _, rec := range recordings {
		date := recordingDate(rec.StartTime)
		passcode := rec.PlayPasscode()

		for _, f := range rec.RecordingFiles {
			if !strings.EqualFold(f.FileType, "mp4") {
				continue // only keep video
			}
			if f.DownloadURL == "" {
				continue
			}

			authenticatedURL, err := urlauth.Authenticate(f.DownloadURL, token, passcode)
			if err != nil {
				return nil, fmt.Errorf("failed to authenticate download URL for recording %q: %w", rec.Topic, err)
			}

			descriptors = append(descriptors, VideoDescriptor{
				URL:             authenticatedURL,
				Topic:           rec.Topic,
				Date:            date,
				FileID:          f.ID,
				FileSize:        f.FileSize,
				DurationMinutes: rec.Duration,
				RecordingType:   f.RecordingType,
			})
		}
	}

	return descriptors, nil
}

// DiscoverAll runs per-user discovery concurrently across all users. A
// single user's failure is logged with the user's identity and excluded
// from the aggregate; it never aborts other users. Aggregate order follows
// completion order and carries no guarantee.
func (d *Discoverer) DiscoverAll(ctx context.Context, token string, users []zoom.User) []VideoDescriptor {
	results := make(chan []VideoDescriptor, len(users))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.config.UserConcurrency)

	for _, user := range users {
		user := user
		g.Go(func() error {
			userCtx := logging.WithRequestID(gctx, logging.GenerateRequestID())

			descriptors, err := d.DiscoverUser(userCtx, token, user)
			if err != nil {
				logging.ErrorWithContext(userCtx, "Error processing user %s: %v", user.Email, err)
				return nil
			}

			logging.InfoWithContext(userCtx, "Completed processing for %s: %d videos found", user.Email, len(descriptors))
			results <- descriptors
			return nil
		})
	}

	_ = g.Wait()
	close(results)

	var all []VideoDescriptor
	for descriptors := range results {
		all = append(all, descriptors...)
	}

	return all
}
