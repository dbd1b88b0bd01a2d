// Package db persists aggregator articles, including the attributes plugins
// attach to them. SQLite is the default backend; PostgreSQL is used when the
// DSN is a postgres URL.
package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/feed-localcopy/internal/types"
)

// Store is the article persistence used by the aggregator.
type Store interface {
	// GetArticle returns the article with id, or nil when it is unknown.
	GetArticle(ctx context.Context, id uuid.UUID) (*types.Article, error)
	// SaveArticle inserts or replaces an article.
	SaveArticle(ctx context.Context, a *types.Article) error
	// ListArticles returns up to limit articles, newest first. A limit of zero
	// or less returns all of them.
	ListArticles(ctx context.Context, limit int) ([]*types.Article, error)
	Close() error
}

// Open picks a backend from dsn: postgres:// and postgresql:// URLs connect to
// PostgreSQL, anything else is treated as a SQLite file path.
func Open(ctx context.Context, dsn string) (Store, error) {
	if isPostgres(dsn) {
		pg, err := Connect(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return pg, nil
	}
	lite, err := OpenSQLite(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return lite, nil
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func marshalAttributes(attrs map[string]string) ([]byte, error) {
	if attrs == nil {
		attrs = map[string]string{}
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal attributes: %w", err)
	}
	return data, nil
}

func unmarshalAttributes(data []byte) (map[string]string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var attrs map[string]string
	if err := json.Unmarshal(data, &attrs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal attributes: %w", err)
	}
	if len(attrs) == 0 {
		return nil, nil
	}
	return attrs, nil
}
