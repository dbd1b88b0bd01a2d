// Package aggregator is the feed host: it polls feeds, decides which entries
// are new or changed, runs the plugin hooks on them, persists the result and
// renders the article page.
package aggregator

import (
	"context"
	"fmt"
	"html"
	"io"
	"maps"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/feed-localcopy/internal/db"
	"github.com/jonathan/feed-localcopy/internal/feed"
	"github.com/jonathan/feed-localcopy/internal/plugins"
	"github.com/jonathan/feed-localcopy/internal/rendering"
	"github.com/jonathan/feed-localcopy/internal/types"
)

// DefaultTitle is the page title when none is configured.
const DefaultTitle = "Feeds"

// Poller fetches the configured feeds.
type Poller interface {
	Poll(ctx context.Context, feeds []types.Feed) ([]feed.Result, error)
}

// Aggregator ties feeds, storage and plugins together.
type Aggregator struct {
	feeds    []types.Feed
	poller   Poller
	store    db.Store
	hooks    *plugins.Registry
	renderer *rendering.Renderer
	title    string
	limit    int
	now      func() time.Time
	logger   *zap.SugaredLogger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithRenderer sets the page renderer used by Render.
func WithRenderer(r *rendering.Renderer) Option {
	return func(a *Aggregator) { a.renderer = r }
}

// WithTitle sets the page title.
func WithTitle(title string) Option {
	return func(a *Aggregator) { a.title = title }
}

// WithLimit caps the number of articles rendered; zero renders all.
func WithLimit(n int) Option {
	return func(a *Aggregator) { a.limit = n }
}

// WithClock overrides the time passed to hooks and stored on articles.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(a *Aggregator) { a.logger = l }
}

// New creates an Aggregator. A nil hooks registry behaves as one without hooks.
func New(feeds []types.Feed, poller Poller, store db.Store, hooks *plugins.Registry, opts ...Option) *Aggregator {
	if hooks == nil {
		hooks = plugins.NewRegistry()
	}
	a := &Aggregator{
		feeds:  feeds,
		poller: poller,
		store:  store,
		hooks:  hooks,
		title:  DefaultTitle,
		now:    time.Now,
		logger: zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Update polls every feed and processes their entries in feed order. A feed
// that cannot be fetched, or an article whose hooks fail, is recorded in the
// summary and skipped; store errors and cancellation abort the update.
func (a *Aggregator) Update(ctx context.Context) (types.UpdateSummary, error) {
	summary := types.UpdateSummary{Feeds: len(a.feeds)}

	results, err := a.poller.Poll(ctx, a.feeds)
	if err != nil {
		return summary, fmt.Errorf("polling feeds: %w", err)
	}

	for _, res := range results {
		if res.Err != nil {
			summary.FeedErrors++
			summary.Errors = append(summary.Errors, res.Err.Error())
			continue
		}
		for _, article := range res.Articles {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			if err := a.process(ctx, article, &summary); err != nil {
				return summary, err
			}
		}
	}

	a.logger.Infow("update finished",
		"feeds", summary.Feeds,
		"feed_errors", summary.FeedErrors,
		"added", summary.Added,
		"updated", summary.Updated,
		"unchanged", summary.Unchanged,
		"failed", summary.Failed,
	)
	return summary, nil
}

// process handles one polled article. Only store failures are returned.
func (a *Aggregator) process(ctx context.Context, article *types.Article, summary *types.UpdateSummary) error {
	existing, err := a.store.GetArticle(ctx, article.ID)
	if err != nil {
		return fmt.Errorf("loading article %s: %w", article.ID, err)
	}

	now := a.now()
	var hookErr error
	switch {
	case existing == nil:
		article.AddedAt = now
		article.UpdatedAt = now
		hookErr = a.hooks.ArticleAdded(ctx, article, now)
	case existing.ContentHash != article.ContentHash:
		article.AddedAt = existing.AddedAt
		article.UpdatedAt = now
		article.Attributes = maps.Clone(existing.Attributes)
		hookErr = a.hooks.ArticleUpdated(ctx, article, now)
	default:
		summary.Unchanged++
		return nil
	}

	if hookErr != nil {
		a.logger.Errorw("article hooks failed", "title", article.Title, "link", article.Link, "error", hookErr)
		summary.Failed++
		summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", article.Title, hookErr))
		return nil
	}

	if err := a.store.SaveArticle(ctx, article); err != nil {
		return fmt.Errorf("saving article %s: %w", article.ID, err)
	}
	if existing == nil {
		summary.Added++
	} else {
		summary.Updated++
	}
	return nil
}

// Render writes the article page to w, newest articles first.
func (a *Aggregator) Render(ctx context.Context, w io.Writer) error {
	if a.renderer == nil {
		r, err := rendering.NewRenderer("", "")
		if err != nil {
			return err
		}
		a.renderer = r
	}

	articles, err := a.store.ListArticles(ctx, a.limit)
	if err != nil {
		return fmt.Errorf("listing articles: %w", err)
	}

	names := make(map[string]string, len(a.feeds))
	for _, f := range a.feeds {
		names[f.URL] = f.Name
	}

	items := make([]string, 0, len(articles))
	for _, article := range articles {
		bits := rendering.BaseBits(article)
		if name := names[article.FeedURL]; name != "" {
			bits["feed"] = html.EscapeString(name)
		}
		a.hooks.RenderItem(article, bits)

		item, err := a.renderer.RenderItem(bits)
		if err != nil {
			return err
		}
		items = append(items, item)
	}

	return a.renderer.RenderPage(w, rendering.PageData{
		Title:     a.title,
		Items:     items,
		Generated: a.now(),
	})
}
