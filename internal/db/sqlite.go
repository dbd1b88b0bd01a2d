package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/jonathan/feed-localcopy/internal/types"
)

// sqliteTime sorts lexicographically in chronological order.
const sqliteTime = "2006-01-02T15:04:05.000000000Z"

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS articles (
		id TEXT PRIMARY KEY,
		feed_url TEXT NOT NULL,
		guid TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		link TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		published TEXT NOT NULL,
		content_hash TEXT NOT NULL DEFAULT '',
		attributes TEXT NOT NULL DEFAULT '{}',
		added_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published);`,
}

// SQLite stores articles in a local database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path. The special
// path ":memory:" keeps everything in memory.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db}
	if err := s.init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) init(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, stmt := range sqliteSchema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// GetArticle returns the article with id, or nil when it is unknown.
func (s *SQLite) GetArticle(ctx context.Context, id uuid.UUID) (*types.Article, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE id = ?`, id.String())
	a, err := scanSQLiteArticle(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get article %s: %w", id, err)
	}
	return a, nil
}

// SaveArticle inserts or updates an article.
func (s *SQLite) SaveArticle(ctx context.Context, a *types.Article) error {
	attrs, err := marshalAttributes(a.Attributes)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO articles (`+articleColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			feed_url = excluded.feed_url,
			guid = excluded.guid,
			title = excluded.title,
			link = excluded.link,
			description = excluded.description,
			published = excluded.published,
			content_hash = excluded.content_hash,
			attributes = excluded.attributes,
			updated_at = excluded.updated_at`,
		a.ID.String(), a.FeedURL, a.GUID, a.Title, a.Link, a.Description,
		formatTime(a.Published), a.ContentHash, string(attrs),
		formatTime(a.AddedAt), formatTime(a.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save article %s: %w", a.ID, err)
	}
	return nil
}

// ListArticles returns up to limit articles, newest first.
func (s *SQLite) ListArticles(ctx context.Context, limit int) ([]*types.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles ORDER BY published DESC, added_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	var articles []*types.Article
	for rows.Next() {
		a, err := scanSQLiteArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	return articles, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteArticle(row rowScanner) (*types.Article, error) {
	var (
		a                         types.Article
		id, attrs                 string
		published, added, updated string
	)
	err := row.Scan(&id, &a.FeedURL, &a.GUID, &a.Title, &a.Link, &a.Description,
		&published, &a.ContentHash, &attrs, &added, &updated)
	if err != nil {
		return nil, err
	}

	if a.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid article id %q: %w", id, err)
	}
	if a.Published, err = parseTime(published); err != nil {
		return nil, err
	}
	if a.AddedAt, err = parseTime(added); err != nil {
		return nil, err
	}
	if a.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	if a.Attributes, err = unmarshalAttributes([]byte(attrs)); err != nil {
		return nil, err
	}
	return &a, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTime)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(sqliteTime, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}
