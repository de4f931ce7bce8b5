// Package zoom defines data structures for Zoom Cloud Recording API
package zoom

// User represents one member of the Zoom account
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Type      int    `json:"type,omitempty"`
	Status    string `json:"status,omitempty"`
}

// ListUsersResponse represents the response from the list users API endpoint
type ListUsersResponse struct {
	PageCount    int    `json:"page_count"`
	PageNumber   int    `json:"page_number"`
	PageSize     int    `json:"page_size"`
	TotalRecords int    `json:"total_records"`
	Users        []User `json:"users"`
}

// RecordingFile represents a single recording file within a meeting recording
type RecordingFile struct {
	ID             string `json:"id"`
	MeetingID      string `json:"meeting_id"`
	RecordingStart string `json:"recording_start"`
	RecordingEnd   string `json:"recording_end"`
	FileType       string `json:"file_type"`
	FileExtension  string `json:"file_extension,omitempty"`
	FileSize       int64  `json:"file_size"`
	DownloadURL    string `json:"download_url"`
	PlayURL        string `json:"play_url,omitempty"`
	Status         string `json:"status"`
	RecordingType  string `json:"recording_type,omitempty"`
}

// Recording represents a meeting or webinar recording with all associated files
//
// StartTime is kept as the raw ISO 8601 string the API returned; the
// recording date is derived by truncating at the first 'T'.
type Recording struct {
	UUID                  string          `json:"uuid"`
	ID                    int64           `json:"id"`
	AccountID             string          `json:"account_id"`
	HostID                string          `json:"host_id"`
	Topic                 string          `json:"topic"`
	Type                  int             `json:"type"`
	StartTime             string          `json:"start_time"`
	Duration              int             `json:"duration"`
	TotalSize             int64           `json:"total_size"`
	RecordingCount        int             `json:"recording_count"`
	RecordingPlayPasscode string          `json:"recording_play_passcode,omitempty"`
	Password              string          `json:"password,omitempty"`
	Passcode              string          `json:"passcode,omitempty"`
	RecordingFiles        []RecordingFile `json:"recording_files"`
}

// PlayPasscode returns the first non-empty passcode field. The API has
// shipped the passcode under several names over time, so the precedence
// recording_play_passcode > password > passcode matters.
func (r Recording) PlayPasscode() string {
	if r.RecordingPlayPasscode != "" {
		return r.RecordingPlayPasscode
	}
	if r.Password != "" {
		return r.Password
	}
	return r.Passcode
}

// ListRecordingsResponse represents the response from the list recordings API endpoint
type ListRecordingsResponse struct {
	From          string      `json:"from"`
	To            string      `json:"to"`
	PageCount     int         `json:"page_count"`
	PageSize      int         `json:"page_size"`
	TotalRecords  int         `json:"total_records"`
	NextPageToken string      `json:"next_page_token,omitempty"`
	Meetings      []Recording `json:"meetings"`
}
