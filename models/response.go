package models

// FetchResponse is the response for POST /api/v1/fetch.
type FetchResponse struct {
	// Success indicates whether the fetch (and save, when requested)
	// completed without errors.
	Success bool `json:"success"`

	// URL is the resolved request URL.
	URL string `json:"url,omitempty"`

	// FinalURL is the URL after following all redirects.
	FinalURL string `json:"final_url,omitempty"`

	// StatusCode is the HTTP status code of the successful attempt.
	StatusCode int `json:"status_code,omitempty"`

	// Title is the page <title>, if any.
	Title string `json:"title,omitempty"`

	// Attempts is the number of attempts made.
	Attempts int `json:"attempts,omitempty"`

	// Bytes is the size of the fetched content.
	Bytes int `json:"bytes"`

	// Path is where the content was written. Empty when not saved.
	Path string `json:"path,omitempty"`

	// Content is the raw page, only returned when save is false.
	Content string `json:"content,omitempty"`

	// ContentEncoding is "base64" when Content holds a body that is not
	// valid UTF-8, empty otherwise.
	ContentEncoding string `json:"content_encoding,omitempty"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`

	// FetchMs covers pacing, attempts and backoff.
	FetchMs int64 `json:"fetch_ms"`

	// SaveMs is the time spent writing the file.
	SaveMs int64 `json:"save_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}
