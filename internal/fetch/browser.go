// Package fetch - browser.go renders script-heavy pages in a headless browser.
package fetch

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// DefaultBrowserTimeout bounds a single browser render.
const DefaultBrowserTimeout = 30 * time.Second

// MinBodyLength is the body size below which Fallback assumes the page is
// rendered client-side.
const MinBodyLength = 500

// BrowserFetcher renders pages with headless Chrome and returns the final DOM.
// Requires Chrome/Chromium to be installed on the system.
type BrowserFetcher struct {
	Timeout time.Duration
	Settle  time.Duration
	Logger  *zap.SugaredLogger
}

// NewBrowserFetcher returns a browser fetcher with default timings.
func NewBrowserFetcher(logger *zap.SugaredLogger) *BrowserFetcher {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &BrowserFetcher{
		Timeout: DefaultBrowserTimeout,
		Settle:  2 * time.Second,
		Logger:  logger,
	}
}

// Get navigates to url and returns the rendered HTML.
func (b *BrowserFetcher) Get(ctx context.Context, url string) (string, error) {
	b.Logger.Debugw("starting headless browser", "url", url)

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	if b.Timeout > 0 {
		browserCtx, cancel = context.WithTimeout(browserCtx, b.Timeout)
		defer cancel()
	}

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(b.Settle),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", &Error{URL: url, Message: "browser rendering failed", Cause: err}
	}

	b.Logger.Debugw("rendered page", "url", url, "bytes", len(html))
	return html, nil
}

// Getter is anything that returns a page body for a URL.
type Getter interface {
	Get(ctx context.Context, url string) (string, error)
}

// FetchFunc adapts a function to the fetcher interface.
type FetchFunc func(ctx context.Context, url string) (string, error)

// Get calls f.
func (f FetchFunc) Get(ctx context.Context, url string) (string, error) {
	return f(ctx, url)
}

// Fallback tries primary and, when the page looks empty, renders it with secondary.
// A secondary failure keeps the primary body.
func Fallback(primary, secondary Getter, minLength int, logger *zap.SugaredLogger) FetchFunc {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return func(ctx context.Context, url string) (string, error) {
		body, err := primary.Get(ctx, url)
		if err != nil {
			return "", err
		}
		if len(body) >= minLength {
			return body, nil
		}
		rendered, rerr := secondary.Get(ctx, url)
		if rerr != nil {
			logger.Warnw("browser fallback failed, using HTTP body", "url", url, "error", rerr)
			return body, nil
		}
		return rendered, nil
	}
}
