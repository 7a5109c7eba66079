package models

// FetchRequest is the payload for POST /api/v1/fetch.
type FetchRequest struct {
	// URL is the page to fetch: absolute, or a path relative to the
	// configured base URL. Required.
	URL string `json:"url" binding:"required"`

	// RetryCount is the maximum number of attempts.
	// Default: server configuration (3). Range: 1-10.
	RetryCount int `json:"retry_count,omitempty" binding:"omitempty,min=1,max=10"`

	// DelayMs is the pacing delay before each attempt and the unit of the
	// linear backoff, in milliseconds.
	// Default: server configuration (2000). Max: 60000.
	DelayMs *int `json:"delay_ms,omitempty" binding:"omitempty,min=0,max=60000"`

	// Save writes the content to the output directory instead of
	// returning it in the response.
	// Default: true.
	Save *bool `json:"save,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *FetchRequest) Defaults(retryCount, delayMs int) {
	if r.RetryCount == 0 {
		r.RetryCount = retryCount
	}
	if r.DelayMs == nil {
		r.DelayMs = &delayMs
	}
	if r.Save == nil {
		t := true
		r.Save = &t
	}
}
