// Package urlauth builds authenticated Zoom download URLs
package urlauth

import (
	"fmt"
	"net/url"
)

// Authenticate embeds the access token, and the passcode when present, into
// a raw download URL as query parameters. Pre-existing query parameters are
// preserved with their multiplicity; an existing access_token or passcode is
// overwritten, so re-authenticating a URL is idempotent. The function is
// pure and fails only on a malformed input URL.
func Authenticate(rawURL, token, passcode string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse download URL %q: %w", rawURL, err)
	}

	query := parsed.Query()
	query.Set("access_token", token)
	if passcode != "" {
		query.Set("passcode", passcode)
	}
	parsed.RawQuery = query.Encode()

	return parsed.String(), nil
}
