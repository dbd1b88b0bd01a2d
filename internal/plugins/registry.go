// Package plugins provides the aggregator's hook registry. Plugins attach
// handlers explicitly through a Registry value owned by the host; there is no
// process-wide registry.
package plugins

import (
	"context"
	"fmt"
	"time"

	"github.com/jonathan/feed-localcopy/internal/types"
)

// ConfigOptionHook is offered every configuration option the host does not
// understand itself. It reports whether it consumed the option.
type ConfigOptionHook func(name, value string) (consumed bool)

// ArticleHook is called when an article is added or updated. Returning false
// stops the remaining hooks for this event.
type ArticleHook func(ctx context.Context, article *types.Article, now time.Time) (bool, error)

// RenderItemHook may add bits for an article before its item template is
// rendered. Returning false stops the remaining hooks.
type RenderItemHook func(article *types.Article, bits types.Bits) bool

// Registry holds hooks in registration order.
type Registry struct {
	configOption   []ConfigOptionHook
	articleAdded   []ArticleHook
	articleUpdated []ArticleHook
	renderItem     []RenderItemHook
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// OnConfigOption attaches a config option hook.
func (r *Registry) OnConfigOption(h ConfigOptionHook) {
	r.configOption = append(r.configOption, h)
}

// OnArticleAdded attaches a hook for new articles.
func (r *Registry) OnArticleAdded(h ArticleHook) {
	r.articleAdded = append(r.articleAdded, h)
}

// OnArticleUpdated attaches a hook for changed articles.
func (r *Registry) OnArticleUpdated(h ArticleHook) {
	r.articleUpdated = append(r.articleUpdated, h)
}

// OnRenderItem attaches a render hook.
func (r *Registry) OnRenderItem(h RenderItemHook) {
	r.renderItem = append(r.renderItem, h)
}

// ConfigOption offers an option to each hook until one consumes it.
func (r *Registry) ConfigOption(name, value string) bool {
	for _, h := range r.configOption {
		if h(name, value) {
			return true
		}
	}
	return false
}

// ArticleAdded dispatches an added article.
func (r *Registry) ArticleAdded(ctx context.Context, article *types.Article, now time.Time) error {
	return runArticleHooks(ctx, "article_added", r.articleAdded, article, now)
}

// ArticleUpdated dispatches an updated article.
func (r *Registry) ArticleUpdated(ctx context.Context, article *types.Article, now time.Time) error {
	return runArticleHooks(ctx, "article_updated", r.articleUpdated, article, now)
}

// RenderItem lets every render hook contribute bits for an article.
func (r *Registry) RenderItem(article *types.Article, bits types.Bits) {
	for _, h := range r.renderItem {
		if !h(article, bits) {
			return
		}
	}
}

func runArticleHooks(ctx context.Context, event string, hooks []ArticleHook, article *types.Article, now time.Time) error {
	for i, h := range hooks {
		cont, err := h(ctx, article, now)
		if err != nil {
			return &HookError{Event: event, Index: i, Cause: err}
		}
		if !cont {
			return nil
		}
	}
	return nil
}

// HookError reports a hook that returned an error.
type HookError struct {
	Event string
	Index int
	Cause error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s hook %d: %v", e.Event, e.Index, e.Cause)
}

func (e *HookError) Unwrap() error {
	return e.Cause
}
