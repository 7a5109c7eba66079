package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/pagegrab/config"
	"github.com/use-agent/pagegrab/logging"
	"github.com/use-agent/pagegrab/models"
	"github.com/use-agent/pagegrab/scraper"
	"github.com/use-agent/pagegrab/store"
)

// fetchPageResult is the JSON text returned by the fetch_page tool.
type fetchPageResult struct {
	URL        string `json:"url"`
	FinalURL   string `json:"final_url"`
	StatusCode int    `json:"status_code"`
	Title      string `json:"title,omitempty"`
	Attempts   int    `json:"attempts"`
	Bytes      int    `json:"bytes"`
	Path       string `json:"path,omitempty"`
	Content    string `json:"content,omitempty"`

	// ContentEncoding is "base64" when the body is not valid UTF-8.
	ContentEncoding string `json:"content_encoding,omitempty"`
}

func main() {
	cfg := config.Load()
	// stdout carries the MCP protocol.
	logging.Init(cfg.Log, os.Stderr)

	sc, err := scraper.NewFromConfig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise scraper: %v\n", err)
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"pagegrab",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	s.AddTool(fetchPageTool(), handleFetchPage(
		sc,
		scraper.FetchOptionsFromConfig(cfg),
		store.NewNamer(cfg.Output.Dir, cfg.Output.Prefix),
	))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func fetchPageTool() mcp.Tool {
	return mcp.NewTool("fetch_page",
		mcp.WithDescription("Fetch a web page over HTTP with browser-like headers, pacing and linear backoff retries. Saves the raw HTML to a timestamped file, or returns it when save is false."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Absolute URL, or a path relative to the configured base URL"),
		),
		mcp.WithNumber("retry_count",
			mcp.Description("Maximum number of attempts (default from PAGEGRAB_RETRY_COUNT, min 1, max 10)"),
		),
		mcp.WithNumber("delay_ms",
			mcp.Description("Pacing delay before each attempt and backoff unit, in milliseconds (default from PAGEGRAB_BASE_DELAY, max 60000)"),
		),
		mcp.WithBoolean("save",
			mcp.Description("Write the page to the output directory (default: true)"),
		),
	)
}

func handleFetchPage(sc *scraper.Scraper, defaults scraper.FetchOptions, namer store.Namer) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		retryCount := request.GetInt("retry_count", defaults.RetryCount)
		if retryCount < 1 || retryCount > 10 {
			return mcp.NewToolResultError("retry_count must be between 1 and 10"), nil
		}
		delayMs := request.GetInt("delay_ms", int(defaults.BaseDelay/time.Millisecond))
		if delayMs < 0 || delayMs > 60000 {
			return mcp.NewToolResultError("delay_ms must be between 0 and 60000"), nil
		}
		save := request.GetBool("save", true)

		opts := scraper.FetchOptions{
			RetryCount: retryCount,
			BaseDelay:  time.Duration(delayMs) * time.Millisecond,
		}

		var (
			page *scraper.Page
			path string
		)
		if save {
			page, path, err = sc.Grab(ctx, url, opts, namer)
		} else {
			page, err = sc.Fetch(ctx, url, opts)
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("%s: %v", models.Code(err), err)), nil
		}

		out := fetchPageResult{
			URL:        page.URL,
			FinalURL:   page.FinalURL,
			StatusCode: page.StatusCode,
			Title:      page.Title,
			Attempts:   page.Attempts,
			Bytes:      len(page.Content),
			Path:       path,
		}
		if !save {
			out.Content, out.ContentEncoding = models.EncodeContent(page.Content)
		}

		body, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
		}
		return mcp.NewToolResultText(string(body)), nil
	}
}
