package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/feed-localcopy/internal/types"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS articles (
	id           UUID PRIMARY KEY,
	feed_url     TEXT NOT NULL,
	guid         TEXT NOT NULL DEFAULT '',
	title        TEXT NOT NULL DEFAULT '',
	link         TEXT NOT NULL DEFAULT '',
	description  TEXT NOT NULL DEFAULT '',
	published    TIMESTAMPTZ NOT NULL,
	content_hash TEXT NOT NULL DEFAULT '',
	attributes   JSONB NOT NULL DEFAULT '{}',
	added_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS articles_published_idx ON articles (published DESC);
`

const articleColumns = `id, feed_url, guid, title, link, description, published, content_hash, attributes, added_at, updated_at`

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database and makes sure the
// articles table exists.
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() error {
	if db.pool != nil {
		db.pool.Close()
	}
	return nil
}

// GetArticle retrieves an article by ID
func (db *DB) GetArticle(ctx context.Context, id uuid.UUID) (*types.Article, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE id = $1`,
		id,
	)
	a, err := scanPostgresArticle(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get article %s: %w", id, err)
	}
	return a, nil
}

// SaveArticle upserts an article and its attributes
func (db *DB) SaveArticle(ctx context.Context, a *types.Article) error {
	attrs, err := marshalAttributes(a.Attributes)
	if err != nil {
		return err
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO articles (`+articleColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (id) DO UPDATE SET
			feed_url = $2, guid = $3, title = $4, link = $5, description = $6,
			published = $7, content_hash = $8, attributes = $9, updated_at = $11`,
		a.ID, a.FeedURL, a.GUID, a.Title, a.Link, a.Description,
		a.Published, a.ContentHash, attrs, a.AddedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save article %s: %w", a.ID, err)
	}
	return nil
}

// ListArticles retrieves articles newest first
func (db *DB) ListArticles(ctx context.Context, limit int) ([]*types.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles ORDER BY published DESC, added_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	defer rows.Close()

	var articles []*types.Article
	for rows.Next() {
		a, err := scanPostgresArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	return articles, nil
}

func scanPostgresArticle(row pgx.Row) (*types.Article, error) {
	var a types.Article
	var attrs []byte
	err := row.Scan(&a.ID, &a.FeedURL, &a.GUID, &a.Title, &a.Link, &a.Description,
		&a.Published, &a.ContentHash, &attrs, &a.AddedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if a.Attributes, err = unmarshalAttributes(attrs); err != nil {
		return nil, err
	}
	return &a, nil
}
