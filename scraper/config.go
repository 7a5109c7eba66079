package scraper

import (
	"github.com/use-agent/pagegrab/config"
	"github.com/use-agent/pagegrab/engine"
)

// NewFromConfig wires an HTTPEngine and a Scraper from application config.
// Events go to the default slog logger.
func NewFromConfig(cfg *config.Config) (*Scraper, error) {
	eng, err := engine.NewHTTPEngine(cfg.Engine)
	if err != nil {
		return nil, err
	}
	return New(eng, Options{
		BaseURL: cfg.Fetch.BaseURL,
		Headers: cfg.Fetch.Headers,
	}), nil
}

// FetchOptionsFromConfig returns the configured retry count and base delay.
func FetchOptionsFromConfig(cfg *config.Config) FetchOptions {
	return FetchOptions{RetryCount: cfg.Fetch.RetryCount, BaseDelay: cfg.Fetch.BaseDelay}
}
