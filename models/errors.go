package models

import (
	"errors"
	"fmt"
)

// Error codes used in API responses and internal error handling.
const (
	ErrCodeNetwork      = "NETWORK_ERROR"
	ErrCodeHTTPStatus   = "HTTP_STATUS_ERROR"
	ErrCodeFetchFailed  = "FETCH_FAILED"
	ErrCodeIO           = "IO_ERROR"
	ErrCodeBodyTooLarge = "BODY_TOO_LARGE"
	ErrCodeTimeout      = "FETCH_TIMEOUT"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ScrapeError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ScrapeError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// NewScrapeError creates a new ScrapeError.
func NewScrapeError(code, message string, err error) *ScrapeError {
	return &ScrapeError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *ScrapeError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// ErrBodyTooLarge is wrapped by the NetworkError returned when a response
// body exceeds the configured cap.
var ErrBodyTooLarge = errors.New("response body exceeds size limit")

// NetworkError reports a transport-level failure of a single attempt:
// DNS, connect, TLS, timeout or a broken body read.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error fetching %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Timeout reports whether the underlying failure was a deadline or timeout.
func (e *NetworkError) Timeout() bool {
	var t interface{ Timeout() bool }
	return errors.As(e.Err, &t) && t.Timeout()
}

// HTTPStatusError reports a response whose status is outside 2xx.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d (%s)", e.StatusCode, e.URL)
}

// FetchError is returned once every attempt has failed. Err is the
// failure of the last attempt.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to retrieve %s after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IOError reports a filesystem failure while persisting content.
type IOError struct {
	Op   string // "mkdir" or "write"
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Code returns the most specific error code found in err's chain.
// Errors that carry no code map to ErrCodeInternal.
func Code(err error) string {
	var (
		scrapeErr *ScrapeError
		ioErr     *IOError
		statusErr *HTTPStatusError
		netErr    *NetworkError
		fetchErr  *FetchError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &scrapeErr):
		return scrapeErr.Code
	case errors.As(err, &ioErr):
		return ErrCodeIO
	case errors.As(err, &statusErr):
		return ErrCodeHTTPStatus
	case errors.Is(err, ErrBodyTooLarge):
		return ErrCodeBodyTooLarge
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			return ErrCodeTimeout
		}
		return ErrCodeNetwork
	case errors.As(err, &fetchErr):
		return ErrCodeFetchFailed
	default:
		return ErrCodeInternal
	}
}
