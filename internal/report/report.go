// Package report renders run output: the URL list file, the per-video
// enumeration and the download summary
package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/zoomvault/zoomvault/internal/discovery"
	"github.com/zoomvault/zoomvault/internal/download"
)

// WriteURLList writes one authenticated URL per line to path
func WriteURLList(path string, descriptors []discovery.VideoDescriptor) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create URL list file %s: %w", path, err)
	}
	defer file.Close()

	for _, descriptor := range descriptors {
		if _, err := fmt.Fprintln(file, descriptor.URL); err != nil {
			return fmt.Errorf("failed to write URL list: %w", err)
		}
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close URL list file: %w", err)
	}
	return nil
}

// Printer renders human-readable run output to a writer
type Printer struct {
	w io.Writer
}

// NewPrinter creates a Printer writing to w
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

const separator = "================================================================================"

// PrintVideoList prints the numbered enumeration of discovered videos
func (p *Printer) PrintVideoList(descriptors []discovery.VideoDescriptor) {
	fmt.Fprintf(p.w, "\n%s\n", separator)
	fmt.Fprintf(p.w, "Total video URLs found: %d\n", len(descriptors))
	fmt.Fprintf(p.w, "%s\n\n", separator)

	for i, descriptor := range descriptors {
		typeInfo := ""
		if descriptor.RecordingType != "" {
			typeInfo = fmt.Sprintf(" (%s)", descriptor.RecordingType)
		}
		fmt.Fprintf(p.w, "%d. %s (%s)%s\n", i+1, descriptor.Topic, descriptor.Date, typeInfo)
		fmt.Fprintf(p.w, "   URL: %s\n", descriptor.URL)
		fmt.Fprintf(p.w, "   File ID: %s, Size: %d bytes, Duration: %d minutes\n\n",
			descriptor.FileID, descriptor.FileSize, descriptor.DurationMinutes)
	}
}

// PrintNoVideos prints the empty-run message
func (p *Printer) PrintNoVideos() {
	fmt.Fprintf(p.w, "\nNo videos to download.\n\n")
}

// PrintSummary prints the download summary including every failure with
// its human-readable identity and error message
func (p *Printer) PrintSummary(summary *download.Summary) {
	fmt.Fprintf(p.w, "\n%s\n", separator)
	fmt.Fprintln(p.w, "Download Summary")
	fmt.Fprintf(p.w, "%s\n", separator)
	fmt.Fprintf(p.w, "Successful downloads: %d\n", len(summary.Successes))
	fmt.Fprintf(p.w, "Failed downloads: %d\n", len(summary.Failures))
	fmt.Fprintf(p.w, "Download directory: %s\n", summary.Dir)
	fmt.Fprintf(p.w, "%s\n\n", separator)

	if len(summary.Failures) == 0 {
		return
	}

	fmt.Fprintln(p.w, "Failed downloads:")
	for _, failure := range summary.Failures {
		topic := failure.Descriptor.Topic
		if strings.TrimSpace(topic) == "" {
			topic = "Unknown"
		}
		fmt.Fprintf(p.w, "  - %s (%s): %s\n", topic, failure.Descriptor.Date, failure.Err)
	}
	fmt.Fprintln(p.w)
}
