// Package email provides utilities for email address handling
package email

import (
	"regexp"
	"strings"
)

// Basic email validation regex - allows underscores in domain
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9._-]+\.[a-zA-Z]{2,}$`)

// IsValidEmail performs basic email validation
func IsValidEmail(email string) bool {
	if email == "" {
		return false
	}

	// Leading/trailing spaces are invalid
	if strings.TrimSpace(email) != email {
		return false
	}

	// RFC 5321 suggests 320 chars max
	if len(email) > 320 {
		return false
	}

	return emailRegex.MatchString(email)
}

// ExtractUsername extracts the username portion from an email address.
// Returns empty string if the email is invalid or malformed.
func ExtractUsername(email string) string {
	if !IsValidEmail(email) {
		return ""
	}

	username, _, found := strings.Cut(email, "@")
	if !found {
		return ""
	}
	return username
}
