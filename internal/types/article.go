// Package types provides type definitions for the feed and article records shared across the aggregator.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"time"

	"github.com/google/uuid"
)

// Article is a single feed entry owned by the aggregator.
// Plugins may read and write Attributes but never create or delete articles.
type Article struct {
	ID          uuid.UUID         `json:"id"`
	FeedURL     string            `json:"feed_url"`
	GUID        string            `json:"guid,omitempty"`
	Title       string            `json:"title"`
	Link        string            `json:"link,omitempty"`
	Description string            `json:"description,omitempty"`
	Published   time.Time         `json:"published"`
	ContentHash string            `json:"content_hash"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	AddedAt     time.Time         `json:"added_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Attribute returns the named attribute and whether it is present.
func (a *Article) Attribute(name string) (string, bool) {
	if a.Attributes == nil {
		return "", false
	}
	v, ok := a.Attributes[name]
	return v, ok
}

// SetAttribute stores an attribute, allocating the map on first use.
func (a *Article) SetAttribute(name, value string) {
	if a.Attributes == nil {
		a.Attributes = make(map[string]string)
	}
	a.Attributes[name] = value
}

// Bits holds the named HTML fragments substituted into an item template.
type Bits map[string]string

// Feed is a subscribed feed as listed in the configuration.
type Feed struct {
	URL  string `yaml:"url" json:"url" validate:"required,url"`
	Name string `yaml:"name" json:"name,omitempty"`
}
