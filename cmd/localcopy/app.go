package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/feed-localcopy/internal/aggregator"
	"github.com/jonathan/feed-localcopy/internal/config"
	"github.com/jonathan/feed-localcopy/internal/db"
	"github.com/jonathan/feed-localcopy/internal/extract"
	"github.com/jonathan/feed-localcopy/internal/feed"
	"github.com/jonathan/feed-localcopy/internal/fetch"
	"github.com/jonathan/feed-localcopy/internal/localcopy"
	"github.com/jonathan/feed-localcopy/internal/observability"
	"github.com/jonathan/feed-localcopy/internal/plugins"
	"github.com/jonathan/feed-localcopy/internal/rendering"
)

// app is what every command needs: configuration, logging and the
// plugin hooks with the local-copy manager attached.
type app struct {
	cfg     *config.Config
	logger  *zap.SugaredLogger
	hooks   *plugins.Registry
	manager *localcopy.Manager
	timeout time.Duration
}

func loadApp() (*app, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if useBrowser {
		cfg.Fetch.Browser = true
	}

	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	logger, err := observability.NewLogger(level, devLogs)
	if err != nil {
		return nil, err
	}

	timeout, err := cfg.Fetch.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	extractor, err := extract.New(cfg.Fetch.Extractor)
	if err != nil {
		return nil, err
	}

	hooks := plugins.NewRegistry()
	manager := localcopy.New(nil, newFetcher(cfg.Fetch, timeout, logger), extractor,
		localcopy.WithLogger(logger.Named("localcopy")))
	manager.Register(hooks)

	for _, name := range cfg.Plugins.Apply(hooks.ConfigOption) {
		logger.Warnw("unrecognised plugin option", "option", name)
	}

	if opts := manager.Options(); opts.Inline == localcopy.InlineOff {
		if err := os.MkdirAll(opts.DownloadDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating download directory: %w", err)
		}
	}

	return &app{cfg: cfg, logger: logger, hooks: hooks, manager: manager, timeout: timeout}, nil
}

func newFetcher(cfg config.FetchConfig, timeout time.Duration, logger *zap.SugaredLogger) localcopy.Fetcher {
	opts := fetch.DefaultOptions()
	opts.Timeout = timeout
	if cfg.UserAgent != "" {
		opts.UserAgent = cfg.UserAgent
	}
	httpFetcher := fetch.NewHTTPFetcher(opts)
	if !cfg.Browser {
		return httpFetcher
	}
	browser := fetch.NewBrowserFetcher(logger.Named("browser"))
	if timeout > 0 {
		browser.Timeout = timeout
	}
	return fetch.Fallback(httpFetcher, browser, fetch.MinBodyLength, logger)
}

// openAggregator opens the article store and builds the aggregator. The
// returned store must be closed by the caller.
func (a *app) openAggregator(ctx context.Context) (*aggregator.Aggregator, db.Store, error) {
	store, err := db.Open(ctx, a.cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	renderer, err := rendering.NewRenderer(a.cfg.PageTemplate, a.cfg.ItemTemplate)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	userAgent := a.cfg.Fetch.UserAgent
	if userAgent == "" {
		userAgent = fetch.DefaultUserAgent
	}
	poller := feed.NewPoller(
		feed.WithHTTPClient(&http.Client{Timeout: a.timeout}),
		feed.WithUserAgent(userAgent),
		feed.WithLogger(a.logger.Named("feed")),
	)

	agg := aggregator.New(a.cfg.Feeds, poller, store, a.hooks,
		aggregator.WithRenderer(renderer),
		aggregator.WithTitle(a.cfg.Title),
		aggregator.WithLimit(a.cfg.ArticleLimit()),
		aggregator.WithLogger(a.logger.Named("aggregator")),
	)
	return agg, store, nil
}

// writeOutput renders the page to path, or to stdout for "-". The file is
// replaced only once rendering succeeded.
func writeOutput(ctx context.Context, agg *aggregator.Aggregator, path string, stdout io.Writer) error {
	if path == "-" {
		return agg.Render(ctx, stdout)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".localcopy-*.html")
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // already renamed on success

	if err := agg.Render(ctx, tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}
