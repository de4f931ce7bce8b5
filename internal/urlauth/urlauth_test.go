package urlauth

import (
	"net/url"
	"testing"
)

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name     string
		rawURL   string
		token    string
		passcode string
		expected map[string][]string
	}{
		{
			name:     "token only",
			rawURL:   "https://zoom.us/rec/download/abc123",
			token:    "tok",
			passcode: "",
			expected: map[string][]string{
				"access_token": {"tok"},
			},
		},
		{
			name:     "token and passcode",
			rawURL:   "https://zoom.us/rec/download/abc123",
			token:    "tok",
			passcode: "secret",
			expected: map[string][]string{
				"access_token": {"tok"},
				"passcode":     {"secret"},
			},
		},
		{
			name:     "existing query parameters preserved",
			rawURL:   "https://zoom.us/rec/download/abc123?foo=bar&foo=baz&x=1",
			token:    "tok",
			passcode: "pc",
			expected: map[string][]string{
				"foo":          {"bar", "baz"},
				"x":            {"1"},
				"access_token": {"tok"},
				"passcode":     {"pc"},
			},
		},
		{
			name:     "existing credentials overwritten",
			rawURL:   "https://zoom.us/rec/download/abc123?access_token=old&passcode=stale",
			token:    "new",
			passcode: "fresh",
			expected: map[string][]string{
				"access_token": {"new"},
				"passcode":     {"fresh"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Authenticate(tt.rawURL, tt.token, tt.passcode)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			parsed, err := url.Parse(result)
			if err != nil {
				t.Fatalf("Result is not a valid URL: %v", err)
			}

			query := parsed.Query()
			if len(query) != len(tt.expected) {
				t.Errorf("Expected %d query parameters, got %d: %v", len(tt.expected), len(query), query)
			}

			for key, expectedValues := range tt.expected {
				values := query[key]
				if len(values) != len(expectedValues) {
					t.Errorf("Parameter %s: expected %v, got %v", key, expectedValues, values)
					continue
				}
				for i, v := range expectedValues {
					if values[i] != v {
						t.Errorf("Parameter %s[%d]: expected %q, got %q", key, i, v, values[i])
					}
				}
			}
		})
	}
}

func TestAuthenticateIdempotent(t *testing.T) {
	rawURL := "https://zoom.us/rec/download/abc123?play=1"

	once, err := Authenticate(rawURL, "tok", "pc")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	twice, err := Authenticate(once, "tok", "pc")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if once != twice {
		t.Errorf("Re-authenticating changed the URL:\nfirst:  %s\nsecond: %s", once, twice)
	}
}

func TestAuthenticateMalformedURL(t *testing.T) {
	_, err := Authenticate("https://zoom.us/rec/%zz", "tok", "")
	if err == nil {
		t.Error("Expected error for malformed URL, but got none")
	}
}

func TestAuthenticatePathPreserved(t *testing.T) {
	result, err := Authenticate("https://zoom.us/rec/download/abc123", "tok", "")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	parsed, _ := url.Parse(result)
	if parsed.Path != "/rec/download/abc123" {
		t.Errorf("Expected path /rec/download/abc123, got %s", parsed.Path)
	}
	if parsed.Host != "zoom.us" {
		t.Errorf("Expected host zoom.us, got %s", parsed.Host)
	}
}
