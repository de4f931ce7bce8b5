// Package download provides the concurrent download engine for zoomvault
package download

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/zoomvault/zoomvault/internal/discovery"
	"github.com/zoomvault/zoomvault/internal/filename"
	"github.com/zoomvault/zoomvault/internal/logging"
	"github.com/zoomvault/zoomvault/internal/progress"
)

// Outcome is the terminal result for one descriptor. Exactly one of
// Filepath or Err is set.
type Outcome struct {
	Descriptor discovery.VideoDescriptor
	Filepath   string
	Err        string
}

// Summary holds the results of one engine run
type Summary struct {
	Successes []Outcome
	Failures  []Outcome
	Dir       string
}

// EngineConfig holds configuration for the download engine
type EngineConfig struct {
	OutputDir        string        // Download directory, created recursively
	MaxConcurrent    int           // Concurrent downloads; 1 gives sequential mode
	RetryAttempts    int           // Attempts per file for transport errors
	ChunkSize        int           // Read buffer size in bytes
	Timeout          time.Duration // HTTP request timeout
	ProgressInterval int64         // Bytes between progress reports
}

// Engine downloads video descriptors to local storage with bounded
// concurrency, per-file retry and size verification
type Engine struct {
	config     EngineConfig
	httpClient *http.Client
	sanitizer  filename.FileSanitizer
	reporter   progress.Reporter
	semaphore  chan struct{}
}

// NewEngine creates a download engine with the given configuration
func NewEngine(config EngineConfig) *Engine {
	if config.OutputDir == "" {
		config.OutputDir = "./downloads"
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 5
	}
	if config.RetryAttempts <= 0 {
		config.RetryAttempts = 3
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = 8192
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.ProgressInterval <= 0 {
		config.ProgressInterval = progress.DefaultIntervalBytes
	}

	// No Client.Timeout: it would cap the whole body read and kill
	// large transfers on slow links. Headers get a deadline here and the
	// body read is watched per chunk in attemptDownload.
	httpClient := &http.Client{
		Transport: &http.Transport{
			ResponseHeaderTimeout: config.Timeout,
			Proxy:                 http.ProxyFromEnvironment,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// Limit redirects to prevent infinite loops
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}

	return &Engine{
		config:     config,
		httpClient: httpClient,
		sanitizer:  filename.NewFileSanitizer(filename.FileSanitizerOptions{}),
		reporter:   progress.NewThresholdReporter(config.ProgressInterval),
		semaphore:  make(chan struct{}, config.MaxConcurrent),
	}
}

// DownloadAll downloads every descriptor with bounded concurrency, newest
// meeting first, and returns the per-descriptor outcomes. Empty input
// short-circuits without creating the download directory. Each descriptor
// lands in exactly one of Successes or Failures; a failing download never
// aborts its siblings.
func (e *Engine) DownloadAll(ctx context.Context, descriptors []discovery.VideoDescriptor) (*Summary, error) {
	if len(descriptors) == 0 {
		logging.InfoWithContext(ctx, "No videos to download")
		return &Summary{}, nil
	}

	if err := os.MkdirAll(e.config.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download directory %s: %w", e.config.OutputDir, err)
	}
	logging.InfoWithContext(ctx, "Download directory: %s", e.config.OutputDir)

	sorted := sortByDateDescending(descriptors)
	logging.DebugWithContext(ctx, "Sorted %d videos by date (newest first)", len(sorted))

	// Workers hand results to the aggregator over a channel; no shared
	// mutable collection
	outcomes := make(chan Outcome, len(sorted))

	var wg sync.WaitGroup
	for _, descriptor := range sorted {
		descriptor := descriptor
		wg.Add(1)
		go func() {
			defer wg.Done()

			e.semaphore <- struct{}{}
			defer func() { <-e.semaphore }()

			downloadCtx := logging.WithRequestID(ctx, logging.GenerateRequestID())
			outcomes <- e.downloadVideo(downloadCtx, descriptor)
		}()
	}

	wg.Wait()
	close(outcomes)

	summary := &Summary{Dir: e.config.OutputDir}
	for outcome := range outcomes {
		if outcome.Err == "" {
			summary.Successes = append(summary.Successes, outcome)
		} else {
			summary.Failures = append(summary.Failures, outcome)
		}
	}

	return summary, nil
}

// sortByDateDescending orders descriptors newest first. Descriptors with
// the unknown-date sentinel or an unparseable date sort last.
func sortByDateDescending(descriptors []discovery.VideoDescriptor) []discovery.VideoDescriptor {
	sorted := make([]discovery.VideoDescriptor, len(descriptors))
	copy(sorted, descriptors)

	sort.SliceStable(sorted, func(i, j int) bool {
		return dateSortKey(sorted[i].Date).After(dateSortKey(sorted[j].Date))
	})

	return sorted
}

// dateSortKey parses a descriptor date for ordering; failures map to the
// zero time so they land at the end of a descending sort
func dateSortKey(date string) time.Time {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}
	}
	return t
}

// destinationPath derives the on-disk path for a descriptor
func (e *Engine) destinationPath(descriptor discovery.VideoDescriptor) string {
	name := e.sanitizer.GenerateFilename(descriptor.Topic, descriptor.Date, descriptor.RecordingType, descriptor.FileID)
	return filepath.Join(e.config.OutputDir, name)
}
