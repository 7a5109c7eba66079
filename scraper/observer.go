package scraper

import (
	"log/slog"
	"time"
)

// Observer receives progress events from Fetch. Events are informational;
// they never change the outcome of a fetch.
type Observer interface {
	AttemptStarted(url string, attempt, total int)
	// AttemptFailed reports a failed attempt. backoff is zero after the last one.
	AttemptFailed(url string, attempt, total int, err error, backoff time.Duration)
	Succeeded(url string, page *Page)
	Exhausted(url string, attempts int, err error)
}

// LogObserver writes events to a slog.Logger (slog.Default when nil).
type LogObserver struct {
	Logger *slog.Logger
}

func (o LogObserver) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o LogObserver) AttemptStarted(url string, attempt, total int) {
	o.logger().Info("fetching", "url", url, "attempt", attempt, "of", total)
}

func (o LogObserver) AttemptFailed(url string, attempt, total int, err error, backoff time.Duration) {
	o.logger().Warn("attempt failed",
		"url", url,
		"attempt", attempt,
		"of", total,
		"error", err,
		"backoff", backoff,
	)
}

func (o LogObserver) Succeeded(url string, page *Page) {
	o.logger().Info("content retrieved",
		"url", url,
		"attempts", page.Attempts,
		"status", page.StatusCode,
		"bytes", len(page.Content),
		"title", page.Title,
	)
}

func (o LogObserver) Exhausted(url string, attempts int, err error) {
	o.logger().Error("fetch exhausted", "url", url, "attempts", attempts, "error", err)
}

// NopObserver discards all events.
type NopObserver struct{}

func (NopObserver) AttemptStarted(string, int, int) {}
func (NopObserver) AttemptFailed(string, int, int, error, time.Duration) {}
func (NopObserver) Succeeded(string, *Page) {}
func (NopObserver) Exhausted(string, int, error) {}
