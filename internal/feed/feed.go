// Package feed polls RSS and Atom feeds and maps their entries to articles.
package feed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/feed-localcopy/internal/types"
)

// DefaultConcurrency bounds how many feeds are fetched at once.
const DefaultConcurrency = 4

// articleNamespace scopes article IDs so they never collide with other SHA1 UUIDs.
var articleNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("feed-localcopy/article"))

// Result is the outcome of polling one feed. Err is set when the feed could not
// be fetched or parsed; Articles keeps the feed's item order.
type Result struct {
	Feed     types.Feed
	Articles []*types.Article
	Err      error
}

// Poller fetches feeds with gofeed. gofeed.Parser is not safe for concurrent
// use, so each fetch gets its own.
type Poller struct {
	client      *http.Client
	userAgent   string
	concurrency int
	now         func() time.Time
	logger      *zap.SugaredLogger
}

// Option configures a Poller.
type Option func(*Poller)

// WithHTTPClient sets the client used to download feeds.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Poller) { p.client = c }
}

// WithUserAgent sets the User-Agent header sent with feed requests.
func WithUserAgent(ua string) Option {
	return func(p *Poller) { p.userAgent = ua }
}

// WithConcurrency bounds the number of feeds fetched in parallel.
func WithConcurrency(n int) Option {
	return func(p *Poller) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(p *Poller) { p.logger = l }
}

// WithClock overrides the time source used for undated items.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) { p.now = now }
}

// NewPoller creates a Poller.
func NewPoller(opts ...Option) *Poller {
	p := &Poller{
		concurrency: DefaultConcurrency,
		now:         time.Now,
		logger:      zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Poller) newParser() *gofeed.Parser {
	parser := gofeed.NewParser()
	if p.client != nil {
		parser.Client = p.client
	}
	if p.userAgent != "" {
		parser.UserAgent = p.userAgent
	}
	return parser
}

// Poll fetches every feed concurrently. Results are returned in the order of
// feeds; a failing feed does not stop the others. The returned error is only
// non-nil when ctx is done.
func (p *Poller) Poll(ctx context.Context, feeds []types.Feed) ([]Result, error) {
	results := make([]Result, len(feeds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, f := range feeds {
		g.Go(func() error {
			articles, err := p.Fetch(gctx, f)
			if err != nil {
				p.logger.Warnw("feed fetch failed", "feed", f.URL, "error", err)
			}
			results[i] = Result{Feed: f, Articles: articles, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// Fetch downloads and parses a single feed.
func (p *Poller) Fetch(ctx context.Context, f types.Feed) ([]*types.Article, error) {
	parsed, err := p.newParser().ParseURLWithContext(f.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching feed %s: %w", f.URL, err)
	}
	return p.articles(f, parsed), nil
}

// Parse maps an already downloaded feed body.
func (p *Poller) Parse(f types.Feed, body string) ([]*types.Article, error) {
	parsed, err := p.newParser().ParseString(body)
	if err != nil {
		return nil, fmt.Errorf("parsing feed %s: %w", f.URL, err)
	}
	return p.articles(f, parsed), nil
}

func (p *Poller) articles(f types.Feed, parsed *gofeed.Feed) []*types.Article {
	now := p.now()
	out := make([]*types.Article, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		a := FromItem(f.URL, item, now)
		if a == nil {
			continue
		}
		out = append(out, a)
	}
	return out
}

// FromItem converts a gofeed item. Items with neither a GUID nor a link nor a
// title cannot be identified and yield nil.
func FromItem(feedURL string, item *gofeed.Item, now time.Time) *types.Article {
	key := itemKey(item)
	if key == "" {
		return nil
	}

	published := now
	if item.PublishedParsed != nil {
		published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = *item.UpdatedParsed
	}

	description := item.Description
	if description == "" {
		description = item.Content
	}

	a := &types.Article{
		ID:          ArticleID(feedURL, key),
		FeedURL:     feedURL,
		GUID:        item.GUID,
		Title:       strings.TrimSpace(item.Title),
		Link:        strings.TrimSpace(item.Link),
		Description: description,
		Published:   published.UTC(),
	}
	a.ContentHash = ContentHash(item)
	return a
}

// itemKey picks the most stable identifier an item offers.
func itemKey(item *gofeed.Item) string {
	switch {
	case item.GUID != "":
		return item.GUID
	case item.Link != "":
		return item.Link
	default:
		return item.Title
	}
}

// ArticleID derives a stable article ID from the feed URL and item key.
func ArticleID(feedURL, key string) uuid.UUID {
	return uuid.NewSHA1(articleNamespace, []byte(feedURL+"\n"+key))
}

// ContentHash fingerprints the parts of an item whose change makes it an update.
func ContentHash(item *gofeed.Item) string {
	h := sha256.New()
	for _, part := range []string{item.Title, item.Link, item.Description, item.Content} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
