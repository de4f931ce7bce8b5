// Package zoom provides HTTP client with retry logic for Zoom API interactions
package zoom

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/zoomvault/zoomvault/internal/config"
)

// HTTPClientConfig holds configuration for the retry HTTP client
type HTTPClientConfig struct {
	Timeout         time.Duration // Request timeout
	MaxRetries      int           // Maximum number of retries
	RetryWaitMin    time.Duration // Minimum wait time between retries
	RetryWaitMax    time.Duration // Maximum wait time between retries
	RetryableStatus []int         // HTTP status codes that should trigger retries
	MaxRedirects    int           // Maximum number of redirects to follow
}

// HTTPClientConfigFromDownloadConfig creates HTTPClientConfig from DownloadConfig
func HTTPClientConfigFromDownloadConfig(cfg config.DownloadConfig) HTTPClientConfig {
	return HTTPClientConfig{
		Timeout:         cfg.TimeoutDuration(),
		MaxRetries:      cfg.RetryAttempts,
		RetryWaitMin:    500 * time.Millisecond,
		RetryWaitMax:    5 * time.Second,
		RetryableStatus: []int{429, 500, 502, 503, 504},
		MaxRedirects:    10,
	}
}

// RetryHTTPClient is an HTTP client with retry logic and exponential backoff
type RetryHTTPClient struct {
	client *http.Client
	config HTTPClientConfig
}

// NewRetryHTTPClient creates a new HTTP client with retry logic
func NewRetryHTTPClient(config HTTPClientConfig) *RetryHTTPClient {
	// Set defaults if not provided
	if config.RetryWaitMin == 0 {
		config.RetryWaitMin = 500 * time.Millisecond
	}
	if config.RetryWaitMax == 0 {
		config.RetryWaitMax = 5 * time.Second
	}
	if len(config.RetryableStatus) == 0 {
		config.RetryableStatus = []int{429, 500, 502, 503, 504}
	}
	if config.MaxRedirects == 0 {
		config.MaxRedirects = 10
	}

	client := &http.Client{
		Timeout: config.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= config.MaxRedirects {
				return fmt.Errorf("too many redirects: %d", len(via))
			}
			return nil
		},
	}

	return &RetryHTTPClient{
		client: client,
		config: config,
	}
}

// ZoomAPIError represents a Zoom API error response
type ZoomAPIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *ZoomAPIError) Error() string {
	return fmt.Sprintf("zoom API error %d: %s", e.Code, e.Message)
}

// HTTPError represents a general HTTP error
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error %d: %s", e.StatusCode, e.Status)
}

// Do executes an HTTP request with retry logic
func (c *RetryHTTPClient) Do(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		// Clone the request for retry attempts
		reqClone := req.Clone(req.Context())

		resp, err = c.client.Do(reqClone)
		if err != nil {
			// Network errors should be retried
			if attempt < c.config.MaxRetries {
				c.waitForRetry(attempt, 0)
				continue
			}
			return nil, fmt.Errorf("request failed after %d attempts: %w", attempt+1, err)
		}

		// Check if we should retry based on status code
		if c.shouldRetry(resp.StatusCode) {
			// Read response body for error details
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()

			if attempt < c.config.MaxRetries {
				c.waitForRetry(attempt, c.parseRetryAfter(resp))
				continue
			}

			// Max retries exceeded - return appropriate error
			zoomErr := c.parseZoomError(resp.StatusCode, body)
			if zoomErr != nil {
				return nil, zoomErr
			}
			return nil, &HTTPError{
				StatusCode: resp.StatusCode,
				Status:     resp.Status,
				Body:       string(body),
			}
		}

		// Check for other non-2xx status codes that should return errors
		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()

			zoomErr := c.parseZoomError(resp.StatusCode, body)
			if zoomErr != nil {
				return nil, zoomErr
			}
			return nil, &HTTPError{
				StatusCode: resp.StatusCode,
				Status:     resp.Status,
				Body:       string(body),
			}
		}

		// Success case
		return resp, nil
	}

	return resp, err
}

// shouldRetry determines if a request should be retried based on status code
func (c *RetryHTTPClient) shouldRetry(statusCode int) bool {
	for _, retryableStatus := range c.config.RetryableStatus {
		if statusCode == retryableStatus {
			return true
		}
	}
	return false
}

// parseZoomError attempts to parse a Zoom API error response
func (c *RetryHTTPClient) parseZoomError(statusCode int, body []byte) *ZoomAPIError {
	if len(body) == 0 {
		return nil
	}

	// Try to parse as JSON
	var zoomErr ZoomAPIError
	if err := json.Unmarshal(body, &zoomErr); err != nil {
		return nil
	}

	// Validate that it looks like a Zoom error
	if zoomErr.Code == 0 && zoomErr.Message == "" {
		return nil
	}

	zoomErr.Status = statusCode
	return &zoomErr
}

// parseRetryAfter parses the Retry-After header and returns the wait duration
func (c *RetryHTTPClient) parseRetryAfter(resp *http.Response) time.Duration {
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}

	// Try parsing as seconds
	if seconds, err := strconv.Atoi(retryAfter); err == nil {
		return time.Duration(seconds) * time.Second
	}

	// Try parsing as HTTP date
	if t, err := http.ParseTime(retryAfter); err == nil {
		duration := time.Until(t)
		if duration > 0 {
			return duration
		}
	}

	return 0
}

// waitForRetry implements exponential backoff with jitter
func (c *RetryHTTPClient) waitForRetry(attempt int, retryAfter time.Duration) {
	var waitTime time.Duration

	// If we have a Retry-After header, respect it
	if retryAfter > 0 {
		waitTime = retryAfter
		if waitTime > c.config.RetryWaitMax {
			waitTime = c.config.RetryWaitMax
		}
	} else {
		// Exponential backoff: 2^attempt * base + jitter
		base := float64(c.config.RetryWaitMin)
		exponential := base * math.Pow(2, float64(attempt))

		// Jitter of up to a quarter either way
		jitter := exponential * 0.25 * (rand.Float64()*2 - 1)
		waitTime = time.Duration(exponential + jitter)

		if waitTime > c.config.RetryWaitMax {
			waitTime = c.config.RetryWaitMax
		}
		if waitTime < c.config.RetryWaitMin {
			waitTime = c.config.RetryWaitMin
		}
	}

	time.Sleep(waitTime)
}

// Client returns the underlying HTTP client
func (c *RetryHTTPClient) Client() *http.Client {
	return c.client
}

// AuthenticatedRetryClient combines retry logic with authentication
type AuthenticatedRetryClient struct {
	retryClient *RetryHTTPClient
	auth        Authenticator
}

// NewAuthenticatedRetryClient creates a client with both retry logic and authentication
func NewAuthenticatedRetryClient(retryClient *RetryHTTPClient, auth Authenticator) *AuthenticatedRetryClient {
	return &AuthenticatedRetryClient{
		retryClient: retryClient,
		auth:        auth,
	}
}

// Do executes an HTTP request with both authentication and retry logic
func (c *AuthenticatedRetryClient) Do(req *http.Request) (*http.Response, error) {
	// Get access token
	token, err := c.auth.GetAccessToken(req.Context())
	if err != nil {
		return nil, fmt.Errorf("failed to get access token for request: %w", err)
	}

	// Add Authorization header
	req.Header.Set("Authorization", token.TokenType+" "+token.AccessToken)

	// Execute request with retry logic
	return c.retryClient.Do(req)
}
