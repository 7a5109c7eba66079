package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/use-agent/pagegrab/config"
	"github.com/use-agent/pagegrab/logging"
	"github.com/use-agent/pagegrab/scraper"
	"github.com/use-agent/pagegrab/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load()
	logging.Init(cfg.Log, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sc, err := scraper.NewFromConfig(cfg)
	if err != nil {
		slog.Error("failed to initialise scraper", "error", err)
		return 1
	}

	namer := store.NewNamer(cfg.Output.Dir, cfg.Output.Prefix)
	page, path, err := sc.Grab(ctx, cfg.Fetch.Target, scraper.FetchOptionsFromConfig(cfg), namer)
	if err != nil {
		slog.Error("scraping failed", "target", cfg.Fetch.Target, "error", err)
		return 1
	}

	slog.Info("content saved", "path", path, "bytes", len(page.Content))
	return 0
}
