// Per-file download with retry. Only transport errors are retried across
// attempts; verification and filesystem errors fail the descriptor
// immediately and remove any partial file.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/zoomvault/zoomvault/internal/discovery"
	"github.com/zoomvault/zoomvault/internal/logging"
)

// transportError marks a failure in the HTTP transfer itself: request
// errors, non-success status codes, and body read errors. These are the
// only failures worth a fresh attempt.
type transportError struct {
	err error
}

func (e *transportError) Error() string {
	return e.err.Error()
}

func (e *transportError) Unwrap() error {
	return e.err
}

// isTransportError reports whether err should be retried
func isTransportError(err error) bool {
	var te *transportError
	return errors.As(err, &te)
}

// downloadVideo downloads one descriptor. An existing file at the
// destination is a success without any network access; otherwise the
// transfer is timed and reported as a performance entry.
func (e *Engine) downloadVideo(ctx context.Context, descriptor discovery.VideoDescriptor) Outcome {
	destination := e.destinationPath(descriptor)

	// Skip if file already exists; reruns resume from where they left off
	if _, err := os.Stat(destination); err == nil {
		logging.DebugWithContext(ctx, "Skipping existing file: %s", filepath.Base(destination))
		return Outcome{Descriptor: descriptor, Filepath: destination}
	}

	start := time.Now()
	outcome := e.downloadWithRetry(ctx, descriptor, destination)

	metrics := logging.PerformanceMetrics{
		Operation: "video_download",
		Duration:  time.Since(start),
		Success:   outcome.Err == "",
		Error:     outcome.Err,
		Metadata: map[string]interface{}{
			"file_id": descriptor.FileID,
			"topic":   descriptor.Topic,
		},
	}
	if outcome.Err == "" {
		if info, err := os.Stat(destination); err == nil {
			metrics.BytesProcessed = info.Size()
		}
	}
	logging.LogPerformance(metrics)

	return outcome
}

// downloadWithRetry walks the attempt state machine: an attempt either
// succeeds, fails on transport (retry until the attempt limit), or fails
// fatally (verification or filesystem error, no retry).
func (e *Engine) downloadWithRetry(ctx context.Context, descriptor discovery.VideoDescriptor, destination string) Outcome {
	maxAttempts := e.config.RetryAttempts

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := e.attemptDownload(ctx, descriptor, destination)
		if err == nil {
			logging.InfoWithContext(ctx, "Downloaded: %s (%s)", descriptor.Topic, descriptor.Date)
			return Outcome{Descriptor: descriptor, Filepath: destination}
		}

		if isTransportError(err) {
			message := fmt.Sprintf("request error on attempt %d/%d: %v", attempt, maxAttempts, err)
			if attempt < maxAttempts {
				logging.WarnWithContext(ctx, "%s", message)
				continue
			}
			return Outcome{Descriptor: descriptor, Err: message}
		}

		// Verification or filesystem failure: remove the partial file and
		// fail without further attempts
		if _, statErr := os.Stat(destination); statErr == nil {
			if removeErr := os.Remove(destination); removeErr != nil {
				logging.WarnWithContext(ctx, "Failed to remove incomplete file %s: %v", destination, removeErr)
			}
		}
		return Outcome{Descriptor: descriptor, Err: fmt.Sprintf("error downloading %s: %v", filepath.Base(destination), err)}
	}

	return Outcome{Descriptor: descriptor, Err: "max retries exceeded"}
}

// attemptDownload performs a single streaming download attempt. The
// configured timeout is a stall limit, not a transfer cap: it bounds the
// wait for response headers and for each body chunk, so a multi-gigabyte
// file on a slow link completes as long as bytes keep arriving.
func (e *Engine) attemptDownload(ctx context.Context, descriptor discovery.VideoDescriptor, destination string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", descriptor.URL, nil)
	if err != nil {
		return &transportError{err: fmt.Errorf("failed to create request: %w", err)}
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return &transportError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &transportError{err: fmt.Errorf("HTTP error %d: %s", resp.StatusCode, resp.Status)}
	}

	// Expected size: descriptor's declared size wins, then the response
	// content length, else zero (no verification)
	expected := descriptor.FileSize
	if expected <= 0 && resp.ContentLength > 0 {
		expected = resp.ContentLength
	}

	file, err := os.OpenFile(destination, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	tracker := e.reporter.NewTracker(filepath.Base(destination), expected)
	buffer := make([]byte, e.config.ChunkSize)

	// Cancel the request if no chunk arrives within the stall limit; the
	// timer is re-armed after every successful read
	watchdog := time.AfterFunc(e.config.Timeout, cancel)
	defer watchdog.Stop()

	for {
		n, readErr := resp.Body.Read(buffer)
		watchdog.Reset(e.config.Timeout)

		if n > 0 {
			if _, writeErr := file.Write(buffer[:n]); writeErr != nil {
				return fmt.Errorf("failed to write to file: %w", writeErr)
			}
			tracker.Add(ctx, int64(n))
		}

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return &transportError{err: fmt.Errorf("failed to read response body: %w", readErr)}
		}
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	// Verify the download looks complete before accepting it
	info, err := os.Stat(destination)
	if err != nil {
		return fmt.Errorf("failed to stat downloaded file: %w", err)
	}
	if expected > 0 && info.Size() < expected*9/10 {
		return fmt.Errorf("download incomplete: %d < %d bytes", info.Size(), expected)
	}

	return nil
}
