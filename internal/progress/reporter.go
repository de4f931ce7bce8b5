// Package progress provides download progress reporting for zoomvault
package progress

import (
	"context"
	"sync"

	"github.com/zoomvault/zoomvault/internal/logging"
)

// DefaultIntervalBytes is how many bytes pass between progress reports
const DefaultIntervalBytes = 10 * 1024 * 1024 // 10 MiB

// Reporter creates per-download trackers
type Reporter interface {
	// NewTracker starts tracking one download. expected may be zero when
	// the total size is unknown.
	NewTracker(filename string, expected int64) Tracker
}

// Tracker accumulates downloaded bytes for a single file and reports
// progress as thresholds are crossed
type Tracker interface {
	// Add records n more downloaded bytes
	Add(ctx context.Context, n int64)

	// Downloaded returns the running byte count
	Downloaded() int64
}

// thresholdReporter reports roughly every intervalBytes of downloaded data
type thresholdReporter struct {
	intervalBytes int64
}

// NewThresholdReporter creates a Reporter that logs a progress line each
// time a download crosses another intervalBytes boundary
func NewThresholdReporter(intervalBytes int64) Reporter {
	if intervalBytes <= 0 {
		intervalBytes = DefaultIntervalBytes
	}
	return &thresholdReporter{intervalBytes: intervalBytes}
}

// NewTracker starts tracking one download
func (r *thresholdReporter) NewTracker(filename string, expected int64) Tracker {
	return &thresholdTracker{
		filename:      filename,
		expected:      expected,
		intervalBytes: r.intervalBytes,
	}
}

// thresholdTracker tracks one download. Safe for use from a single
// download goroutine; the mutex covers Downloaded reads from elsewhere.
type thresholdTracker struct {
	filename      string
	expected      int64
	intervalBytes int64

	mutex        sync.Mutex
	downloaded   int64
	lastReported int64
}

// Add records n more downloaded bytes and reports when another interval
// boundary is crossed. Reports include a percentage only when the expected
// size is known.
func (t *thresholdTracker) Add(ctx context.Context, n int64) {
	t.mutex.Lock()
	t.downloaded += n
	downloaded := t.downloaded
	crossed := downloaded-t.lastReported >= t.intervalBytes
	if crossed {
		t.lastReported = downloaded - downloaded%t.intervalBytes
	}
	t.mutex.Unlock()

	if !crossed {
		return
	}

	if t.expected > 0 {
		percent := float64(downloaded) / float64(t.expected) * 100
		logging.InfoWithContext(ctx, "Downloading %s: %.1f%% (%d/%d bytes)", t.filename, percent, downloaded, t.expected)
	} else {
		logging.InfoWithContext(ctx, "Downloading %s: %d bytes", t.filename, downloaded)
	}
}

// Downloaded returns the running byte count
func (t *thresholdTracker) Downloaded() int64 {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.downloaded
}
