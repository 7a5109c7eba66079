package scraper

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/use-agent/pagegrab/engine"
	"github.com/use-agent/pagegrab/models"
	"github.com/use-agent/pagegrab/store"
)

// Default fetch parameters.
const (
	DefaultRetryCount = 3
	DefaultBaseDelay  = 2 * time.Second
)

// SleepFunc suspends the caller for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Options configures a Scraper at construction.
type Options struct {
	// BaseURL is prepended to targets that carry no scheme.
	BaseURL string

	// Headers is the fixed header set sent with every attempt.
	Headers map[string]string

	// Observer receives progress events. Nil means LogObserver.
	Observer Observer

	// Sleep is used for pacing and backoff. Nil means a timer that
	// honours context cancellation.
	Sleep SleepFunc
}

// FetchOptions are fixed for the duration of one Fetch call.
type FetchOptions struct {
	// RetryCount is the maximum number of attempts. Must be >= 1.
	RetryCount int

	// BaseDelay is paused before every attempt, and multiplied by
	// attempt+1 between a failed attempt and the next one.
	BaseDelay time.Duration
}

// DefaultFetchOptions returns 3 attempts paced at 2s.
func DefaultFetchOptions() FetchOptions {
	return FetchOptions{RetryCount: DefaultRetryCount, BaseDelay: DefaultBaseDelay}
}

// Scraper fetches single pages with pacing and linear backoff.
// It holds no mutable state and is safe for concurrent use.
type Scraper struct {
	engine   engine.Engine
	baseURL  string
	headers  map[string]string
	observer Observer
	sleep    SleepFunc
}

// New creates a Scraper that issues requests through eng.
func New(eng engine.Engine, opts Options) *Scraper {
	headers := make(map[string]string, len(opts.Headers))
	for k, v := range opts.Headers {
		headers[k] = v
	}

	s := &Scraper{
		engine:   eng,
		baseURL:  opts.BaseURL,
		headers:  headers,
		observer: opts.Observer,
		sleep:    opts.Sleep,
	}
	if s.observer == nil {
		s.observer = LogObserver{}
	}
	if s.sleep == nil {
		s.sleep = sleepContext
	}
	return s
}

// Fetch retrieves target, retrying up to opts.RetryCount times.
//
// Every attempt is preceded by a pause of opts.BaseDelay. After failed
// attempt i (0-based) the scraper waits a further opts.BaseDelay*(i+1)
// before the next one. The first successful response is returned as is.
// When all attempts fail the result is a *models.FetchError wrapping the
// last attempt's *models.NetworkError or *models.HTTPStatusError.
func (s *Scraper) Fetch(ctx context.Context, target string, opts FetchOptions) (*Page, error) {
	if opts.RetryCount < 1 {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "retry count must be at least 1", nil)
	}
	if opts.BaseDelay < 0 {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "base delay must not be negative", nil)
	}

	fullURL, err := s.Resolve(target)
	if err != nil {
		return nil, err
	}

	req := &engine.FetchRequest{URL: fullURL, Headers: s.headers}
	total := opts.RetryCount

	for attempt := 0; attempt < total; attempt++ {
		// Pacing, independent of the attempt index.
		if err := s.sleep(ctx, opts.BaseDelay); err != nil {
			return nil, &models.FetchError{URL: fullURL, Attempts: attempt, Err: err}
		}

		s.observer.AttemptStarted(fullURL, attempt+1, total)
		result, err := s.engine.Fetch(ctx, req)
		if err == nil {
			page := &Page{
				URL:        fullURL,
				FinalURL:   result.FinalURL,
				StatusCode: result.StatusCode,
				Title:      result.Title,
				Content:    result.Body,
				Attempts:   attempt + 1,
				EngineName: result.EngineName,
			}
			s.observer.Succeeded(fullURL, page)
			return page, nil
		}

		if attempt == total-1 {
			s.observer.AttemptFailed(fullURL, attempt+1, total, err, 0)
			s.observer.Exhausted(fullURL, total, err)
			return nil, &models.FetchError{URL: fullURL, Attempts: total, Err: err}
		}

		backoff := opts.BaseDelay * time.Duration(attempt+1)
		s.observer.AttemptFailed(fullURL, attempt+1, total, err, backoff)
		if err := s.sleep(ctx, backoff); err != nil {
			return nil, &models.FetchError{URL: fullURL, Attempts: attempt + 1, Err: err}
		}
	}

	// Unreachable: total >= 1 and the last iteration always returns.
	return nil, models.NewScrapeError(models.ErrCodeInternal, "retry loop ended without a result", nil)
}

// Grab fetches target and, on success, saves the content to the path
// produced by namer. Nothing is written when the fetch fails.
func (s *Scraper) Grab(ctx context.Context, target string, opts FetchOptions, namer store.Namer) (*Page, string, error) {
	page, err := s.Fetch(ctx, target, opts)
	if err != nil {
		return nil, "", err
	}

	path := namer.Path()
	if err := store.Save(page.Content, path); err != nil {
		return page, "", err
	}
	return page, path, nil
}

// Resolve turns target into an absolute URL. Targets that already carry a
// scheme are used as is; anything else is appended to the base URL.
func (s *Scraper) Resolve(target string) (string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", models.NewScrapeError(models.ErrCodeInvalidInput, "target is empty", nil)
	}

	full := target
	if u, err := url.Parse(target); err != nil || u.Scheme == "" {
		full = s.baseURL + target
	}

	u, err := url.Parse(full)
	if err != nil {
		return "", models.NewScrapeError(models.ErrCodeInvalidInput, "invalid url "+full, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", models.NewScrapeError(models.ErrCodeInvalidInput, "unsupported url "+full, nil)
	}
	return full, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
