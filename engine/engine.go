package engine

import (
	"context"
)

// Engine is the interface that fetch engines must implement.
type Engine interface {
	// Name returns the engine identifier (e.g. "http").
	Name() string

	// Fetch performs a single GET for the request. It makes no retries.
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// FetchRequest contains everything an engine needs to fetch a page.
type FetchRequest struct {
	URL     string
	Headers map[string]string
}

// FetchResult is the output of a successful engine fetch.
type FetchResult struct {
	// Body is the response body exactly as received.
	Body       []byte
	Title      string
	StatusCode int
	FinalURL   string
	EngineName string
}
