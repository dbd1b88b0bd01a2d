package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/feed-localcopy/internal/types"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testArticle(title string, published time.Time) *types.Article {
	return &types.Article{
		ID:          uuid.NewSHA1(uuid.NameSpaceURL, []byte(title)),
		FeedURL:     "https://example.com/feed.xml",
		GUID:        "guid-" + title,
		Title:       title,
		Link:        "https://example.com/" + title,
		Description: "<p>" + title + "</p>",
		Published:   published,
		ContentHash: "hash-" + title,
		AddedAt:     published.Add(time.Minute),
		UpdatedAt:   published.Add(time.Minute),
	}
}

func TestSQLite_SaveAndGet(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	a := testArticle("hello", time.Date(2024, 3, 1, 10, 0, 0, 123, time.UTC))
	a.SetAttribute("download_articles_local_copy", "f7ff9e8b7bb2e09b70935a5d785e0cc5d9d0abf0.html")

	require.NoError(t, s.SaveArticle(ctx, a))

	got, err := s.GetArticle(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, a, got)
}

func TestSQLite_GetMissing(t *testing.T) {
	s := newTestSQLite(t)

	got, err := s.GetArticle(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_SaveReplaces(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	a := testArticle("post", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, s.SaveArticle(ctx, a))

	updated := *a
	updated.Description = "<p>edited</p>"
	updated.ContentHash = "hash-2"
	updated.UpdatedAt = a.UpdatedAt.Add(time.Hour)
	updated.Attributes = map[string]string{"download_articles_local_copy": "<p>inline</p>"}
	require.NoError(t, s.SaveArticle(ctx, &updated))

	got, err := s.GetArticle(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "<p>edited</p>", got.Description)
	assert.Equal(t, "hash-2", got.ContentHash)
	assert.Equal(t, updated.UpdatedAt, got.UpdatedAt)
	assert.Equal(t, "<p>inline</p>", got.Attributes["download_articles_local_copy"])

	all, err := s.ListArticles(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSQLite_ListArticles(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	// Sub-second differences must still order correctly.
	for i, title := range []string{"oldest", "middle", "newest"} {
		require.NoError(t, s.SaveArticle(ctx, testArticle(title, base.Add(time.Duration(i)*500*time.Millisecond))))
	}

	all, err := s.ListArticles(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "newest", all[0].Title)
	assert.Equal(t, "middle", all[1].Title)
	assert.Equal(t, "oldest", all[2].Title)

	limited, err := s.ListArticles(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "newest", limited[0].Title)
}

func TestSQLite_ListEmpty(t *testing.T) {
	s := newTestSQLite(t)

	all, err := s.ListArticles(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSQLite_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "articles.db")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	a := testArticle("kept", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	a.SetAttribute("download_articles_local_copy", "x.html")
	require.NoError(t, s.SaveArticle(ctx, a))
	require.NoError(t, s.Close())

	reopened, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetArticle(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	v, ok := got.Attribute("download_articles_local_copy")
	assert.True(t, ok)
	assert.Equal(t, "x.html", v)
}

func TestOpen_SelectsSQLite(t *testing.T) {
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "a.db"))
	require.NoError(t, err)
	defer store.Close()

	_, ok := store.(*SQLite)
	assert.True(t, ok)
}

func TestIsPostgres(t *testing.T) {
	tests := []struct {
		dsn  string
		want bool
	}{
		{"postgres://user@localhost/feeds", true},
		{"postgresql://localhost/feeds?sslmode=disable", true},
		{"/var/lib/feeds/articles.db", false},
		{":memory:", false},
		{"file:articles.db", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isPostgres(tt.dsn), tt.dsn)
	}
}

func TestAttributesJSON(t *testing.T) {
	data, err := marshalAttributes(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	attrs, err := unmarshalAttributes(data)
	require.NoError(t, err)
	assert.Nil(t, attrs)

	_, err = unmarshalAttributes([]byte("{not json"))
	assert.Error(t, err)
}
