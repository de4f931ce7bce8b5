package download

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoomvault/zoomvault/internal/config"
	"github.com/zoomvault/zoomvault/internal/discovery"
	"github.com/zoomvault/zoomvault/internal/logging"
)

func testEngine(t *testing.T, retries int) *Engine {
	t.Helper()
	return NewEngine(EngineConfig{
		OutputDir:     filepath.Join(t.TempDir(), "downloads"),
		MaxConcurrent: 2,
		RetryAttempts: retries,
		ChunkSize:     1024,
		Timeout:       5 * time.Second,
	})
}

func TestDownloadAllEmptyInput(t *testing.T) {
	outputDir := filepath.Join(t.TempDir(), "downloads")
	engine := NewEngine(EngineConfig{OutputDir: outputDir})

	summary, err := engine.DownloadAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(summary.Successes) != 0 || len(summary.Failures) != 0 {
		t.Errorf("Expected empty summary, got %+v", summary)
	}

	// The download directory must not be created for an empty run
	if _, err := os.Stat(outputDir); !os.IsNotExist(err) {
		t.Errorf("Expected download directory to not exist, stat err: %v", err)
	}
}

func TestDownloadAllSuccess(t *testing.T) {
	content := strings.Repeat("x", 4096)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(content))
	}))
	defer server.Close()

	engine := testEngine(t, 3)

	descriptors := []discovery.VideoDescriptor{
		{URL: server.URL, Topic: "Meeting One", Date: "2024-01-15", FileID: "f1", FileSize: int64(len(content))},
		{URL: server.URL, Topic: "Meeting Two", Date: "2024-02-20", FileID: "f2", FileSize: int64(len(content))},
	}

	summary, err := engine.DownloadAll(context.Background(), descriptors)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(summary.Successes) != 2 {
		t.Fatalf("Expected 2 successes, got %d (failures: %+v)", len(summary.Successes), summary.Failures)
	}
	if len(summary.Failures) != 0 {
		t.Errorf("Expected no failures, got %+v", summary.Failures)
	}
	if summary.Dir != engine.config.OutputDir {
		t.Errorf("Expected summary dir %s, got %s", engine.config.OutputDir, summary.Dir)
	}

	for _, outcome := range summary.Successes {
		info, err := os.Stat(outcome.Filepath)
		if err != nil {
			t.Errorf("Downloaded file missing: %v", err)
			continue
		}
		if info.Size() != int64(len(content)) {
			t.Errorf("File %s has size %d, want %d", outcome.Filepath, info.Size(), len(content))
		}
	}
}

func TestDownloadSkipsExistingFile(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.Write([]byte("fresh content"))
	}))
	defer server.Close()

	engine := testEngine(t, 3)

	descriptor := discovery.VideoDescriptor{
		URL: server.URL, Topic: "Existing", Date: "2024-01-15", FileID: "f1", FileSize: 100,
	}

	// Pre-create the destination file
	if err := os.MkdirAll(engine.config.OutputDir, 0755); err != nil {
		t.Fatalf("Failed to create output dir: %v", err)
	}
	destination := engine.destinationPath(descriptor)
	if err := os.WriteFile(destination, []byte("already here"), 0644); err != nil {
		t.Fatalf("Failed to pre-create file: %v", err)
	}

	summary, err := engine.DownloadAll(context.Background(), []discovery.VideoDescriptor{descriptor})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(summary.Successes) != 1 {
		t.Fatalf("Expected skip to count as success, got %+v", summary)
	}

	if atomic.LoadInt32(&requests) != 0 {
		t.Errorf("Expected no network requests for existing file, got %d", requests)
	}

	// Existing content must be untouched
	data, _ := os.ReadFile(destination)
	if string(data) != "already here" {
		t.Errorf("Existing file was modified: %q", string(data))
	}
}

func TestDownloadRetriesTransportErrors(t *testing.T) {
	var requests int32
	content := "eventually fine"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&requests, 1)
		if n < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(content))
	}))
	defer server.Close()

	engine := testEngine(t, 3)

	descriptor := discovery.VideoDescriptor{
		URL: server.URL, Topic: "Flaky", Date: "2024-01-15", FileID: "f1", FileSize: int64(len(content)),
	}

	summary, err := engine.DownloadAll(context.Background(), []discovery.VideoDescriptor{descriptor})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(summary.Successes) != 1 {
		t.Fatalf("Expected success after retries, got %+v", summary.Failures)
	}
	if atomic.LoadInt32(&requests) != 3 {
		t.Errorf("Expected 3 attempts, got %d", requests)
	}
}

func TestDownloadFailsAfterRetryLimit(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	engine := testEngine(t, 3)

	descriptor := discovery.VideoDescriptor{
		URL: server.URL, Topic: "Denied", Date: "2024-01-15", FileID: "f1", FileSize: 100,
	}

	summary, err := engine.DownloadAll(context.Background(), []discovery.VideoDescriptor{descriptor})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(summary.Failures) != 1 {
		t.Fatalf("Expected 1 failure, got %+v", summary)
	}
	if atomic.LoadInt32(&requests) != 3 {
		t.Errorf("Expected 3 attempts, got %d", requests)
	}

	failure := summary.Failures[0]
	if !strings.Contains(failure.Err, "attempt 3/3") {
		t.Errorf("Expected failure to mention the final attempt, got %q", failure.Err)
	}
	if !strings.Contains(failure.Err, "403") {
		t.Errorf("Expected failure to carry the HTTP status, got %q", failure.Err)
	}
}

func TestDownloadVerificationFailureDeletesPartial(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		// Far less than the declared size
		w.Write([]byte("tiny"))
	}))
	defer server.Close()

	engine := testEngine(t, 3)

	descriptor := discovery.VideoDescriptor{
		URL: server.URL, Topic: "Truncated", Date: "2024-01-15", FileID: "f1", FileSize: 1 << 20,
	}

	summary, err := engine.DownloadAll(context.Background(), []discovery.VideoDescriptor{descriptor})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(summary.Failures) != 1 {
		t.Fatalf("Expected 1 failure, got %+v", summary)
	}

	// Verification errors are fatal, not retried
	if atomic.LoadInt32(&requests) != 1 {
		t.Errorf("Expected exactly 1 attempt, got %d", requests)
	}

	if !strings.Contains(summary.Failures[0].Err, "incomplete") {
		t.Errorf("Expected incomplete-download error, got %q", summary.Failures[0].Err)
	}

	// The partial file must be removed
	destination := engine.destinationPath(descriptor)
	if _, err := os.Stat(destination); !os.IsNotExist(err) {
		t.Errorf("Expected partial file to be removed, stat err: %v", err)
	}
}

func TestDownloadSlightShortfallWithinToleranceSucceeds(t *testing.T) {
	// 95% of the declared size passes the 90% verification threshold
	content := strings.Repeat("x", 95)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(content))
	}))
	defer server.Close()

	engine := testEngine(t, 3)

	descriptor := discovery.VideoDescriptor{
		URL: server.URL, Topic: "Close Enough", Date: "2024-01-15", FileID: "f1", FileSize: 100,
	}

	summary, err := engine.DownloadAll(context.Background(), []discovery.VideoDescriptor{descriptor})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(summary.Successes) != 1 {
		t.Fatalf("Expected success within tolerance, got %+v", summary.Failures)
	}
}

func TestDownloadSlowStreamOutlivesStallTimeout(t *testing.T) {
	// Chunks keep arriving, but the whole transfer takes several times
	// the configured timeout. The timeout bounds stalls, not the
	// transfer, so this must succeed.
	chunk := strings.Repeat("x", 256)
	chunks := 8
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for i := 0; i < chunks; i++ {
			w.Write([]byte(chunk))
			flusher.Flush()
			time.Sleep(50 * time.Millisecond)
		}
	}))
	defer server.Close()

	engine := NewEngine(EngineConfig{
		OutputDir:     filepath.Join(t.TempDir(), "downloads"),
		MaxConcurrent: 1,
		RetryAttempts: 1,
		ChunkSize:     256,
		Timeout:       150 * time.Millisecond,
	})

	descriptor := discovery.VideoDescriptor{
		URL: server.URL, Topic: "Slow Stream", Date: "2024-01-15", FileID: "f1",
		FileSize: int64(len(chunk) * chunks),
	}

	summary, err := engine.DownloadAll(context.Background(), []discovery.VideoDescriptor{descriptor})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(summary.Successes) != 1 {
		t.Fatalf("Expected slow stream to succeed, got %+v", summary.Failures)
	}
}

func TestDownloadStalledStreamFails(t *testing.T) {
	chunk := strings.Repeat("x", 256)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chunk))
		w.(http.Flusher).Flush()
		// Stop sending and hold the connection until the client gives up
		<-r.Context().Done()
	}))
	defer server.Close()

	engine := NewEngine(EngineConfig{
		OutputDir:     filepath.Join(t.TempDir(), "downloads"),
		MaxConcurrent: 1,
		RetryAttempts: 1,
		ChunkSize:     256,
		Timeout:       100 * time.Millisecond,
	})

	descriptor := discovery.VideoDescriptor{
		URL: server.URL, Topic: "Stalled Stream", Date: "2024-01-15", FileID: "f1", FileSize: 4096,
	}

	summary, err := engine.DownloadAll(context.Background(), []discovery.VideoDescriptor{descriptor})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(summary.Failures) != 1 {
		t.Fatalf("Expected stalled stream to fail, got %+v", summary)
	}
	if !strings.Contains(summary.Failures[0].Err, "attempt 1/1") {
		t.Errorf("Expected a transport failure after the final attempt, got %q", summary.Failures[0].Err)
	}
}

func TestSortByDateDescending(t *testing.T) {
	descriptors := []discovery.VideoDescriptor{
		{FileID: "old", Date: "2024-01-10"},
		{FileID: "unknown", Date: discovery.UnknownDate},
		{FileID: "new", Date: "2024-03-01"},
		{FileID: "mid", Date: "2024-02-15"},
	}

	sorted := sortByDateDescending(descriptors)

	expected := []string{"new", "mid", "old", "unknown"}
	for i, id := range expected {
		if sorted[i].FileID != id {
			t.Errorf("Position %d: expected %s, got %s", i, id, sorted[i].FileID)
		}
	}

	// Input order untouched
	if descriptors[0].FileID != "old" {
		t.Error("sortByDateDescending mutated its input")
	}
}

func TestSequentialModeDownloadsOneAtATime(t *testing.T) {
	content := strings.Repeat("x", 2048)
	var inFlight, maxInFlight int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			peak := atomic.LoadInt32(&maxInFlight)
			if n <= peak || atomic.CompareAndSwapInt32(&maxInFlight, peak, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		w.Write([]byte(content))
		atomic.AddInt32(&inFlight, -1)
	}))
	defer server.Close()

	engine := NewEngine(EngineConfig{
		OutputDir:     filepath.Join(t.TempDir(), "downloads"),
		MaxConcurrent: 1,
		RetryAttempts: 1,
		ChunkSize:     1024,
		Timeout:       5 * time.Second,
	})

	descriptors := []discovery.VideoDescriptor{
		{URL: server.URL + "/a", Topic: "First", Date: "2024-03-01", FileID: "f1", FileSize: int64(len(content))},
		{URL: server.URL + "/b", Topic: "Second", Date: "2024-02-01", FileID: "f2", FileSize: int64(len(content))},
		{URL: server.URL + "/c", Topic: "Third", Date: "2024-01-01", FileID: "f3", FileSize: int64(len(content))},
	}

	summary, err := engine.DownloadAll(context.Background(), descriptors)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(summary.Successes) != 3 {
		t.Fatalf("Expected 3 successes, got %d (failures: %+v)", len(summary.Successes), summary.Failures)
	}
	if peak := atomic.LoadInt32(&maxInFlight); peak != 1 {
		t.Errorf("Expected at most 1 request in flight, observed %d", peak)
	}
}

func TestDownloadEmitsPerformanceEntry(t *testing.T) {
	logger, err := logging.NewLogger(config.LoggingConfig{Level: "info", Console: true})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	var logOutput bytes.Buffer
	logger.SetOutput(&logOutput)
	logging.SetDefaultLogger(logger)
	defer logging.SetDefaultLogger(nil)

	content := strings.Repeat("x", 2048)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(content))
	}))
	defer server.Close()

	engine := testEngine(t, 3)

	descriptor := discovery.VideoDescriptor{
		URL: server.URL, Topic: "Timed", Date: "2024-01-15", FileID: "f1", FileSize: int64(len(content)),
	}

	summary, err := engine.DownloadAll(context.Background(), []discovery.VideoDescriptor{descriptor})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(summary.Successes) != 1 {
		t.Fatalf("Expected 1 success, got %+v", summary.Failures)
	}

	output := logOutput.String()
	if !strings.Contains(output, "Performance: video_download") {
		t.Errorf("Expected a performance entry for the download, got:\n%s", output)
	}
	if !strings.Contains(output, "bytes_processed=2048") {
		t.Errorf("Expected bytes_processed in the performance entry, got:\n%s", output)
	}

	// A skipped file transfers nothing and emits no performance entry
	logOutput.Reset()
	summary, err = engine.DownloadAll(context.Background(), []discovery.VideoDescriptor{descriptor})
	if err != nil {
		t.Fatalf("Unexpected error on rerun: %v", err)
	}
	if len(summary.Successes) != 1 {
		t.Fatalf("Expected skip to count as success, got %+v", summary)
	}
	if strings.Contains(logOutput.String(), "Performance:") {
		t.Errorf("Expected no performance entry for a skipped file, got:\n%s", logOutput.String())
	}
}

func TestDownloadAllMixedOutcomes(t *testing.T) {
	content := "good content"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "bad") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(content))
	}))
	defer server.Close()

	engine := testEngine(t, 2)

	descriptors := []discovery.VideoDescriptor{
		{URL: server.URL + "/good1", Topic: "Good One", Date: "2024-01-15", FileID: "g1", FileSize: int64(len(content))},
		{URL: server.URL + "/bad", Topic: "Bad", Date: "2024-01-16", FileID: "b1", FileSize: 100},
		{URL: server.URL + "/good2", Topic: "Good Two", Date: "2024-01-17", FileID: "g2", FileSize: int64(len(content))},
	}

	summary, err := engine.DownloadAll(context.Background(), descriptors)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(summary.Successes) != 2 {
		t.Errorf("Expected 2 successes, got %d", len(summary.Successes))
	}
	if len(summary.Failures) != 1 {
		t.Errorf("Expected 1 failure, got %d", len(summary.Failures))
	}
	if len(summary.Failures) == 1 && summary.Failures[0].Descriptor.FileID != "b1" {
		t.Errorf("Expected failure for b1, got %s", summary.Failures[0].Descriptor.FileID)
	}
}
