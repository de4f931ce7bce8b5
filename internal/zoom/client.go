// Package zoom provides API client for Zoom Cloud Recording endpoints
package zoom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/zoomvault/zoomvault/internal/logging"
)

// CloudRecordingClient defines the interface for Zoom Cloud Recording API operations
type CloudRecordingClient interface {
	ListUsers(ctx context.Context) ([]User, error)
	ListUserRecordings(ctx context.Context, userID string, params ListRecordingsParams) (*ListRecordingsResponse, error)
	ListAllRecordings(ctx context.Context, userID, from, to string) ([]Recording, error)
}

// ListRecordingsParams holds parameters for listing recordings
type ListRecordingsParams struct {
	From          string // Start date for the date range (YYYY-MM-DD)
	To            string // End date for the date range (YYYY-MM-DD)
	PageSize      int    // Number of records per page (default: 100, max: 300)
	NextPageToken string // Next page token for pagination
}

// ZoomClient implements the CloudRecordingClient interface
type ZoomClient struct {
	httpClient *AuthenticatedRetryClient
	baseURL    string
	pageSize   int
}

// NewZoomClient creates a new Zoom API client
func NewZoomClient(httpClient *AuthenticatedRetryClient, baseURL string, pageSize int) *ZoomClient {
	// Remove trailing slash from baseURL
	baseURL = strings.TrimSuffix(baseURL, "/")

	if pageSize <= 0 {
		pageSize = 100
	}

	return &ZoomClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		pageSize:   pageSize,
	}
}

// ListUsers retrieves the members of the Zoom account
func (c *ZoomClient) ListUsers(ctx context.Context) ([]User, error) {
	endpoint := fmt.Sprintf("%s/users", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list users request failed: %w", err)
	}
	defer resp.Body.Close()

	var result ListUsersResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode users response: %w", err)
	}

	logging.DebugWithContext(ctx, "Found %d users in account", len(result.Users))
	return result.Users, nil
}

// ListUserRecordings retrieves one page of cloud recordings for a user
func (c *ZoomClient) ListUserRecordings(ctx context.Context, userID string, params ListRecordingsParams) (*ListRecordingsResponse, error) {
	// Build URL
	endpoint := fmt.Sprintf("%s/users/%s/recordings", c.baseURL, url.PathEscape(userID))

	// Build query parameters
	queryParams := url.Values{}

	if params.From != "" {
		queryParams.Set("from", params.From)
	}
	if params.To != "" {
		queryParams.Set("to", params.To)
	}
	pageSize := params.PageSize
	if pageSize == 0 {
		pageSize = c.pageSize
	}
	queryParams.Set("page_size", strconv.Itoa(pageSize))
	if params.NextPageToken != "" {
		queryParams.Set("next_page_token", params.NextPageToken)
	}

	endpoint += "?" + queryParams.Encode()

	// Create request
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Execute request
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// Parse response
	var result ListRecordingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// ListAllRecordings retrieves all recordings for a user within a date range,
// following next_page_token until the listing is exhausted.
//
// A page that comes back non-200 (after the transport-level retries) ends
// pagination: whatever was accumulated so far is returned without error and
// the failure is logged. Transport failures are returned to the caller.
func (c *ZoomClient) ListAllRecordings(ctx context.Context, userID, from, to string) ([]Recording, error) {
	var recordings []Recording
	nextPageToken := ""

	for {
		params := ListRecordingsParams{
			From:          from,
			To:            to,
			NextPageToken: nextPageToken,
		}

		response, err := c.ListUserRecordings(ctx, userID, params)
		if err != nil {
			if isStatusError(err) {
				logging.WarnWithContext(ctx, "Failed to get recordings for %s (%s to %s): %v", userID, from, to, err)
				return recordings, nil
			}
			return nil, fmt.Errorf("failed to list recordings (page token: %s): %w", nextPageToken, err)
		}

		recordings = append(recordings, response.Meetings...)

		// Check if there are more pages
		if response.NextPageToken == "" {
			break
		}
		nextPageToken = response.NextPageToken
	}

	return recordings, nil
}

// isStatusError reports whether err is a non-200 API response as opposed to
// a transport failure
func isStatusError(err error) bool {
	var httpErr *HTTPError
	var zoomErr *ZoomAPIError
	return errors.As(err, &httpErr) || errors.As(err, &zoomErr)
}
