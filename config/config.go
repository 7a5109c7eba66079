package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Fetch     FetchConfig
	Engine    EngineConfig
	Output    OutputConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// FetchConfig controls the retrying fetcher.
type FetchConfig struct {
	// BaseURL is prepended to targets that carry no scheme.
	BaseURL string // default: "https://www.tripadvisor.com"

	// Target is the page fetched by the one-shot command.
	Target string

	// RetryCount is the number of attempts before giving up.
	RetryCount int // default: 3

	// BaseDelay is the pacing pause before every attempt and the unit of
	// the linear backoff between attempts.
	BaseDelay time.Duration // default: 2s

	// Headers is the fixed header set sent with every request.
	Headers map[string]string
}

// EngineConfig controls the HTTP transport.
type EngineConfig struct {
	// Timeout bounds a single GET, including reading the body.
	Timeout time.Duration // default: 30s

	// MaxBodyBytes caps the response body read into memory.
	MaxBodyBytes int64 // default: 10 MB

	// TLSFingerprint dials HTTPS with a Chrome ClientHello (utls).
	TLSFingerprint bool // default: true

	// Proxy is an optional http(s):// or socks5:// proxy URL.
	Proxy string
}

// OutputConfig controls where fetched pages are written.
type OutputConfig struct {
	Dir    string // default: "scraped_data"
	Prefix string // default: "tripadvisor"
}

// ServerConfig controls the HTTP API server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// RateLimitConfig controls per-client rate limiting on the API.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per client.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per client.
	Burst int // default: 10
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Browser-like defaults for the fixed header set.
const (
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultAccept         = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
	DefaultAcceptLanguage = "en-US,en;q=0.5"

	DefaultBaseURL = "https://www.tripadvisor.com"
	DefaultTarget  = "/Hotel_Review-g60763-d1218720-Reviews-The_Standard_High_Line-New_York_City_New_York.html"
)

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("PAGEGRAB_HOST", "0.0.0.0"),
			Port: envIntOr("PAGEGRAB_PORT", 8080),
			Mode: envOr("PAGEGRAB_MODE", "release"),
		},
		Fetch: FetchConfig{
			BaseURL:    envOr("PAGEGRAB_BASE_URL", DefaultBaseURL),
			Target:     envOr("PAGEGRAB_TARGET", DefaultTarget),
			RetryCount: envIntOr("PAGEGRAB_RETRY_COUNT", 3),
			BaseDelay:  envDurationOr("PAGEGRAB_BASE_DELAY", 2*time.Second),
			Headers: map[string]string{
				"User-Agent":      envOr("PAGEGRAB_USER_AGENT", DefaultUserAgent),
				"Accept":          envOr("PAGEGRAB_ACCEPT", DefaultAccept),
				"Accept-Language": envOr("PAGEGRAB_ACCEPT_LANGUAGE", DefaultAcceptLanguage),
			},
		},
		Engine: EngineConfig{
			Timeout:        envDurationOr("PAGEGRAB_HTTP_TIMEOUT", 30*time.Second),
			MaxBodyBytes:   int64(envIntOr("PAGEGRAB_MAX_BODY_BYTES", 10<<20)),
			TLSFingerprint: envBoolOr("PAGEGRAB_TLS_FINGERPRINT", true),
			Proxy:          os.Getenv("PAGEGRAB_PROXY"),
		},
		Output: OutputConfig{
			Dir:    envOr("PAGEGRAB_OUTPUT_DIR", "scraped_data"),
			Prefix: envOr("PAGEGRAB_FILE_PREFIX", "tripadvisor"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("PAGEGRAB_RATE_RPS", 5.0),
			Burst:             envIntOr("PAGEGRAB_RATE_BURST", 10),
		},
		Log: LogConfig{
			Level:  envOr("PAGEGRAB_LOG_LEVEL", "info"),
			Format: envOr("PAGEGRAB_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
