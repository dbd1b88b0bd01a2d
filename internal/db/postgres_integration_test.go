//go:build integration

package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	db, err := Connect(context.Background(), dsn)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	return db
}

func cleanupArticle(t *testing.T, db *DB, id uuid.UUID) {
	t.Helper()
	_, _ = db.pool.Exec(context.Background(), "DELETE FROM articles WHERE id = $1", id)
}

func TestIntegration_Article_CRUD(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()
	ctx := context.Background()

	a := testArticle("integration-"+uuid.New().String(), time.Now().UTC().Truncate(time.Microsecond))
	defer cleanupArticle(t, db, a.ID)

	t.Run("missing article", func(t *testing.T) {
		got, err := db.GetArticle(ctx, a.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("save and get", func(t *testing.T) {
		a.SetAttribute("download_articles_local_copy", "abc.html")
		require.NoError(t, db.SaveArticle(ctx, a))

		got, err := db.GetArticle(ctx, a.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, a.Title, got.Title)
		assert.Equal(t, "abc.html", got.Attributes["download_articles_local_copy"])
		assert.True(t, a.Published.Equal(got.Published))
	})

	t.Run("upsert replaces attributes", func(t *testing.T) {
		a.Attributes = map[string]string{"download_articles_local_copy": "<p>inline</p>"}
		a.ContentHash = "changed"
		require.NoError(t, db.SaveArticle(ctx, a))

		got, err := db.GetArticle(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "changed", got.ContentHash)
		assert.Equal(t, "<p>inline</p>", got.Attributes["download_articles_local_copy"])
	})

	t.Run("list includes article", func(t *testing.T) {
		list, err := db.ListArticles(ctx, 0)
		require.NoError(t, err)
		found := false
		for _, got := range list {
			if got.ID == a.ID {
				found = true
			}
		}
		assert.True(t, found)
	})
}
