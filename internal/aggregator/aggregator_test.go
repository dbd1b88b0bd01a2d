package aggregator

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jonathan/feed-localcopy/internal/db"
	"github.com/jonathan/feed-localcopy/internal/feed"
	"github.com/jonathan/feed-localcopy/internal/localcopy"
	"github.com/jonathan/feed-localcopy/internal/plugins"
	"github.com/jonathan/feed-localcopy/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	testFeed = types.Feed{URL: "https://example.com/feed.xml", Name: "Example & Co"}
	fixedNow = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
)

type stubPoller struct {
	results []feed.Result
	err     error
}

func (p *stubPoller) Poll(context.Context, []types.Feed) ([]feed.Result, error) {
	// Hand out copies so a second update sees fresh articles, like a real poll.
	out := make([]feed.Result, len(p.results))
	for i, r := range p.results {
		out[i] = feed.Result{Feed: r.Feed, Err: r.Err}
		for _, a := range r.Articles {
			c := *a
			out[i].Articles = append(out[i].Articles, &c)
		}
	}
	return out, p.err
}

type stubFetcher struct {
	pages map[string]string
	err   error
	calls int
}

func (f *stubFetcher) Get(_ context.Context, url string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.pages[url], nil
}

type echoExtractor struct{}

func (echoExtractor) Summary(page, _ string) (string, error) {
	return page, nil
}

func article(key, title, hash string, published time.Time) *types.Article {
	return &types.Article{
		ID:          feed.ArticleID(testFeed.URL, key),
		FeedURL:     testFeed.URL,
		GUID:        key,
		Title:       title,
		Link:        "https://example.com/" + key,
		Description: "<p>" + title + "</p>",
		Published:   published,
		ContentHash: hash,
	}
}

func newStore(t *testing.T) db.Store {
	t.Helper()
	s, err := db.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUpdate_AddsNewArticles(t *testing.T) {
	store := newStore(t)
	poller := &stubPoller{results: []feed.Result{{
		Feed: testFeed,
		Articles: []*types.Article{
			article("a", "First", "h1", fixedNow.Add(-time.Hour)),
			article("b", "Second", "h2", fixedNow.Add(-2*time.Hour)),
		},
	}}}

	var seen []string
	hooks := plugins.NewRegistry()
	hooks.OnArticleAdded(func(_ context.Context, a *types.Article, now time.Time) (bool, error) {
		assert.Equal(t, fixedNow, now)
		seen = append(seen, a.Title)
		a.SetAttribute("seen", "yes")
		return true, nil
	})

	agg := New([]types.Feed{testFeed}, poller, store, hooks, WithClock(func() time.Time { return fixedNow }))
	summary, err := agg.Update(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Added)
	assert.Equal(t, 0, summary.Updated)
	assert.Equal(t, 2, summary.Total())
	assert.Equal(t, []string{"First", "Second"}, seen)

	got, err := store.GetArticle(context.Background(), feed.ArticleID(testFeed.URL, "a"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, fixedNow, got.AddedAt)
	assert.Equal(t, "yes", got.Attributes["seen"])
}

func TestUpdate_UnchangedAndUpdated(t *testing.T) {
	store := newStore(t)
	poller := &stubPoller{results: []feed.Result{{
		Feed:     testFeed,
		Articles: []*types.Article{article("a", "First", "h1", fixedNow)},
	}}}

	var added, updated int
	hooks := plugins.NewRegistry()
	hooks.OnArticleAdded(func(_ context.Context, a *types.Article, _ time.Time) (bool, error) {
		added++
		a.SetAttribute("download_articles_local_copy", "old.html")
		return true, nil
	})
	hooks.OnArticleUpdated(func(_ context.Context, a *types.Article, _ time.Time) (bool, error) {
		updated++
		v, ok := a.Attribute("download_articles_local_copy")
		assert.True(t, ok, "previous attributes are carried over")
		assert.Equal(t, "old.html", v)
		return true, nil
	})

	clock := fixedNow
	agg := New([]types.Feed{testFeed}, poller, store, hooks, WithClock(func() time.Time { return clock }))

	_, err := agg.Update(context.Background())
	require.NoError(t, err)

	clock = fixedNow.Add(time.Hour)
	summary, err := agg.Update(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Unchanged)
	assert.Equal(t, 1, added)
	assert.Equal(t, 0, updated)

	poller.results[0].Articles[0].ContentHash = "h2"
	poller.results[0].Articles[0].Description = "<p>edited</p>"
	summary, err = agg.Update(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 1, updated)

	got, err := store.GetArticle(context.Background(), feed.ArticleID(testFeed.URL, "a"))
	require.NoError(t, err)
	assert.Equal(t, "<p>edited</p>", got.Description)
	assert.Equal(t, fixedNow, got.AddedAt)
	assert.Equal(t, clock, got.UpdatedAt)
}

func TestUpdate_HookErrorSkipsOnlyThatArticle(t *testing.T) {
	store := newStore(t)
	poller := &stubPoller{results: []feed.Result{{
		Feed: testFeed,
		Articles: []*types.Article{
			article("bad", "Broken", "h1", fixedNow),
			article("good", "Fine", "h2", fixedNow),
		},
	}}}

	hooks := plugins.NewRegistry()
	hooks.OnArticleAdded(func(_ context.Context, a *types.Article, _ time.Time) (bool, error) {
		if a.Title == "Broken" {
			return true, errors.New("connection refused")
		}
		return true, nil
	})

	core, logs := observer.New(zap.DebugLevel)
	agg := New([]types.Feed{testFeed}, poller, store, hooks, WithLogger(zap.New(core).Sugar()))
	summary, err := agg.Update(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Added)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0], "connection refused")
	assert.Equal(t, 1, logs.FilterMessage("article hooks failed").Len())

	// The failed article was not stored, so the next update retries it.
	got, err := store.GetArticle(context.Background(), feed.ArticleID(testFeed.URL, "bad"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpdate_FeedErrorIsCounted(t *testing.T) {
	store := newStore(t)
	other := types.Feed{URL: "https://other.example/rss"}
	poller := &stubPoller{results: []feed.Result{
		{Feed: other, Err: errors.New("fetching feed: 503")},
		{Feed: testFeed, Articles: []*types.Article{article("a", "First", "h1", fixedNow)}},
	}}

	agg := New([]types.Feed{other, testFeed}, poller, store, nil)
	summary, err := agg.Update(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Feeds)
	assert.Equal(t, 1, summary.FeedErrors)
	assert.Equal(t, 1, summary.Added)
}

func TestUpdate_PollError(t *testing.T) {
	agg := New(nil, &stubPoller{err: context.Canceled}, newStore(t), nil)
	_, err := agg.Update(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUpdate_CanceledContext(t *testing.T) {
	poller := &stubPoller{results: []feed.Result{{
		Feed:     testFeed,
		Articles: []*types.Article{article("a", "First", "h1", fixedNow)},
	}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New([]types.Feed{testFeed}, poller, newStore(t), nil).Update(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRender_NewestFirstWithHooks(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	older := article("a", "Older", "h1", fixedNow.Add(-time.Hour))
	newer := article("b", "Newer <b>", "h2", fixedNow)
	require.NoError(t, store.SaveArticle(ctx, older))
	require.NoError(t, store.SaveArticle(ctx, newer))

	hooks := plugins.NewRegistry()
	hooks.OnRenderItem(func(a *types.Article, bits types.Bits) bool {
		bits["localcopy"] = "cache/" + a.GUID + ".html"
		return true
	})

	agg := New([]types.Feed{testFeed}, &stubPoller{}, store, hooks,
		WithTitle("My Feeds"), WithClock(func() time.Time { return fixedNow }))

	var buf bytes.Buffer
	require.NoError(t, agg.Render(ctx, &buf))
	out := buf.String()

	assert.Contains(t, out, "<title>My Feeds</title>")
	assert.Contains(t, out, "Newer &lt;b&gt;")
	assert.Contains(t, out, `href="cache/a.html"`)
	assert.Contains(t, out, "Example &amp; Co")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("Newer")), bytes.Index(buf.Bytes(), []byte("Older")))
}

func TestRender_Limit(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		a := article(uuid.NewString(), "Post", "h", fixedNow.Add(time.Duration(i)*time.Minute))
		require.NoError(t, store.SaveArticle(ctx, a))
	}

	var buf bytes.Buffer
	require.NoError(t, New(nil, &stubPoller{}, store, nil, WithLimit(2)).Render(ctx, &buf))
	assert.Contains(t, buf.String(), "2 articles")
}

// End to end: the local-copy manager downloads on add and the rendered page
// links to the cache file.
func TestLocalCopyEndToEnd(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	dir := t.TempDir()

	first := article("a", "Hello", "h1", fixedNow)
	poller := &stubPoller{results: []feed.Result{{Feed: testFeed, Articles: []*types.Article{first}}}}
	fetcher := &stubFetcher{pages: map[string]string{first.Link: "<p>cached body</p>"}}

	hooks := plugins.NewRegistry()
	manager := localcopy.New(nil, fetcher, echoExtractor{})
	manager.Register(hooks)
	require.True(t, hooks.ConfigOption(localcopy.OptionDownloadDir, dir))
	require.True(t, hooks.ConfigOption(localcopy.OptionDownloadURL, "https://example.com/cache"))

	agg := New([]types.Feed{testFeed}, poller, store, hooks, WithClock(func() time.Time { return fixedNow }))
	summary, err := agg.Update(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Added)
	assert.Equal(t, 1, fetcher.calls)

	name := localcopy.CacheFileName("Hello")
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, "\ufeff<p>cached body</p>", string(data))

	stored, err := store.GetArticle(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, name, stored.Attributes[localcopy.AttributeLocalCopy])

	var buf bytes.Buffer
	require.NoError(t, agg.Render(ctx, &buf))
	assert.Contains(t, buf.String(), `href="https://example.com/cache/`+name+`"`)
}

func TestLocalCopyEndToEnd_FetchFailureAbortsArticle(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	poller := &stubPoller{results: []feed.Result{{Feed: testFeed, Articles: []*types.Article{article("a", "Hello", "h1", fixedNow)}}}}
	hooks := plugins.NewRegistry()
	localcopy.New(nil, &stubFetcher{err: errors.New("dial tcp: refused")}, echoExtractor{}).Register(hooks)
	hooks.ConfigOption(localcopy.OptionDownloadDir, t.TempDir())

	summary, err := New([]types.Feed{testFeed}, poller, store, hooks).Update(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 0, summary.Added)
}
