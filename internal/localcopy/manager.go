// Package localcopy keeps a readable local copy of each article's linked page
// and exposes it to item templates through the "localcopy" bit.
//
// Copies are either written to DownloadDir as <sha1(title)>.html (UTF-8 with a
// byte-order mark) or stored inline on the article. Files are keyed by title,
// so two articles sharing a title share a cache file.
package localcopy

import (
	"context"
	"crypto/sha1" //nolint:gosec // file naming only
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/jonathan/feed-localcopy/internal/plugins"
	"github.com/jonathan/feed-localcopy/internal/types"
)

// AttributeLocalCopy is the article attribute holding either the cache file
// path relative to DownloadDir or the inline content.
const AttributeLocalCopy = "download_articles_local_copy"

// BitLocalCopy is the template variable written by RenderItem.
const BitLocalCopy = "localcopy"

// Fetcher retrieves the body of a page as text.
type Fetcher interface {
	Get(ctx context.Context, url string) (string, error)
}

// Extractor turns a full page into its readable HTML fragment.
type Extractor interface {
	Summary(html, pageURL string) (string, error)
}

// Option mutates a Manager at construction.
type Option func(*Manager)

// WithLogger sets the log sink.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Manager implements the local-copy hooks.
type Manager struct {
	opts      *Options
	fetcher   Fetcher
	extractor Extractor
	logger    *zap.SugaredLogger
	create    func(name string) (io.WriteCloser, error)
}

// New builds a Manager. A nil opts uses DefaultOptions.
func New(opts *Options, fetcher Fetcher, extractor Extractor, options ...Option) *Manager {
	if opts == nil {
		opts = DefaultOptions()
	}
	m := &Manager{
		opts:      opts,
		fetcher:   fetcher,
		extractor: extractor,
		logger:    zap.NewNop().Sugar(),
		create:    createFile,
	}
	for _, option := range options {
		option(m)
	}
	return m
}

// Options returns the manager's configuration.
func (m *Manager) Options() *Options {
	return m.opts
}

// Register attaches the manager's hooks to a registry.
func (m *Manager) Register(r *plugins.Registry) {
	r.OnConfigOption(m.ConfigOption)
	r.OnArticleAdded(m.ArticleAdded)
	r.OnArticleUpdated(m.ArticleUpdated)
	r.OnRenderItem(m.RenderItem)
}

// ConfigOption claims the four recognised keys.
func (m *Manager) ConfigOption(name, value string) bool {
	return m.opts.Set(name, value)
}

// ArticleAdded downloads a local copy of every new article.
func (m *Manager) ArticleAdded(ctx context.Context, article *types.Article, _ time.Time) (bool, error) {
	if err := m.DownloadArticle(ctx, article); err != nil && !recoverable(err) {
		return true, err
	}
	return true, nil
}

// ArticleUpdated downloads again only when DownloadUpdates is set.
func (m *Manager) ArticleUpdated(ctx context.Context, article *types.Article, _ time.Time) (bool, error) {
	if !m.opts.DownloadUpdates {
		return true, nil
	}
	if err := m.DownloadArticle(ctx, article); err != nil && !recoverable(err) {
		return true, err
	}
	return true, nil
}

// DownloadArticle fetches, extracts and stores a local copy of the article's link.
//
// An article without a link is skipped. Fetch errors are returned as-is.
// Extraction failures are logged and returned as *ExtractionError with no
// attribute written. Write failures are logged and returned as *WriteError,
// but the attribute is still set.
func (m *Manager) DownloadArticle(ctx context.Context, article *types.Article) error {
	link := article.Link
	if link == "" {
		return nil
	}

	page, err := m.fetcher.Get(ctx, link)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", link, err)
	}

	summary, err := m.extractor.Summary(page, link)
	if err != nil {
		m.logger.Errorw("error parsing article", "title", article.Title, "error", err)
		return &ExtractionError{Title: article.Title, Cause: err}
	}

	if m.opts.Inline != InlineOff {
		m.logger.Infow("Downloaded:", "title", article.Title)
		article.SetAttribute(AttributeLocalCopy, summary)
		return nil
	}

	relPath, err := m.writeLocalCopy(article.Title, summary)
	if relPath == "" {
		return err
	}
	if err != nil {
		m.logger.Errorw("html failed to parse for article", "title", article.Title, "error", err)
	}
	m.logger.Infow("Downloaded:", "title", article.Title, "local_copy", relPath)
	article.SetAttribute(AttributeLocalCopy, relPath)
	return err
}

// CacheFileName returns the file name used for an article title.
func CacheFileName(title string) string {
	sum := sha1.Sum([]byte(title)) //nolint:gosec // file naming only
	return hex.EncodeToString(sum[:]) + ".html"
}

// writeLocalCopy truncates and writes the cache file. It returns an empty
// path when the file could not be opened.
func (m *Manager) writeLocalCopy(title, content string) (string, error) {
	name := CacheFileName(title)
	path := filepath.Join(m.opts.DownloadDir, name)

	f, err := m.create(path)
	if err != nil {
		return "", fmt.Errorf("opening local copy %s: %w", path, err)
	}

	w := transform.NewWriter(f, unicode.UTF8BOM.NewEncoder())
	_, werr := io.WriteString(w, content)
	if werr == nil {
		werr = w.Close()
	}
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return name, &WriteError{Title: title, Path: path, Cause: werr}
	}
	return name, nil
}

func createFile(name string) (io.WriteCloser, error) {
	return os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644) //nolint:gosec // path built from a hash
}
