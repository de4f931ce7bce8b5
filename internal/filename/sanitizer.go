// Package filename provides filename sanitization for Zoom recording files
package filename

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// FileSanitizer handles filename derivation for downloaded recordings
type FileSanitizer interface {
	// Sanitize converts an untrusted string to a filesystem-safe one
	Sanitize(name string) string

	// GenerateFilename composes the on-disk filename for one recording file
	GenerateFilename(topic, date, recordingType, fileID string) string
}

// FileSanitizerOptions contains configuration options for the file sanitizer
type FileSanitizerOptions struct {
	// MaxLength sets the maximum length for a sanitized component (default: 200)
	MaxLength int

	// DefaultName is used when sanitization leaves nothing behind (default: "untitled")
	DefaultName string
}

// fileSanitizer is the concrete implementation of FileSanitizer
type fileSanitizer struct {
	maxLength   int
	defaultName string

	invalidCharsRegex *regexp.Regexp
}

// NewFileSanitizer creates a new FileSanitizer with the given options
func NewFileSanitizer(options FileSanitizerOptions) FileSanitizer {
	maxLength := options.MaxLength
	if maxLength <= 0 {
		maxLength = 200
	}

	defaultName := options.DefaultName
	if defaultName == "" {
		defaultName = "untitled"
	}

	return &fileSanitizer{
		maxLength:         maxLength,
		defaultName:       defaultName,
		invalidCharsRegex: regexp.MustCompile(`[<>:"/\\|?*]`),
	}
}

// Sanitize replaces filesystem-invalid characters with underscores, strips
// leading and trailing spaces and dots, and truncates to the maximum length
func (fs *fileSanitizer) Sanitize(name string) string {
	// Canonical unicode form so equal-looking topics produce equal filenames
	normalized := norm.NFC.String(name)

	cleaned := fs.invalidCharsRegex.ReplaceAllString(normalized, "_")

	trimmed := strings.Trim(cleaned, " .")

	if runes := []rune(trimmed); len(runes) > fs.maxLength {
		trimmed = string(runes[:fs.maxLength])
	}

	return trimmed
}

// GenerateFilename composes {topic}_{date}_{recordingType}_{fileID}.mp4,
// omitting the recording-type segment when it is empty. The recording type
// has its underscores converted to hyphens so the underscore stays
// unambiguous as the segment separator.
func (fs *fileSanitizer) GenerateFilename(topic, date, recordingType, fileID string) string {
	safeTopic := fs.Sanitize(topic)
	if safeTopic == "" {
		safeTopic = fs.defaultName
	}

	if recordingType != "" {
		safeType := strings.ReplaceAll(fs.Sanitize(recordingType), "_", "-")
		return safeTopic + "_" + date + "_" + safeType + "_" + fileID + ".mp4"
	}

	return safeTopic + "_" + date + "_" + fileID + ".mp4"
}
