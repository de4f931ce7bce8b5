// Package discovery walks the account's users and month windows to find
// every downloadable cloud-recording video
package discovery

import (
	"strings"
)

// UnknownDate is the sentinel used when a recording has no start timestamp
const UnknownDate = "unknown_date"

// VideoDescriptor describes one downloadable video file with its metadata.
// Descriptors are immutable once created; FileID is unique within a
// discovery run and disambiguates filenames for meetings with several
// video files.
type VideoDescriptor struct {
	URL             string // Authenticated download URL
	Topic           string // Meeting title, untrusted, sanitized before filesystem use
	Date            string // YYYY-MM-DD derived from the recording start, or UnknownDate
	FileID          string // Opaque identifier of the recording file
	FileSize        int64  // Expected size in bytes, may be zero
	DurationMinutes int    // Informational only
	RecordingType   string // Optional sub-type tag (shared_screen, gallery_view, ...)
}

// recordingDate derives the calendar date from an ISO 8601 start timestamp
// by truncating at the first 'T'. An empty timestamp yields UnknownDate.
func recordingDate(startTime string) string {
	if startTime == "" {
		return UnknownDate
	}
	if idx := strings.Index(startTime, "T"); idx >= 0 {
		return startTime[:idx]
	}
	return startTime
}
