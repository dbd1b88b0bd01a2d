// Package extract reduces a full web page to its readable main content,
// returned as an HTML fragment.
package extract

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// ErrNoContent is returned when a page yields no readable content.
var ErrNoContent = errors.New("no readable content")

// Readability extracts the main article with go-readability.
type Readability struct{}

// Summary returns the cleaned article HTML of page.
func (Readability) Summary(page, pageURL string) (string, error) {
	var parsedURL *url.URL
	if pageURL != "" {
		u, err := url.Parse(pageURL)
		if err != nil {
			return "", fmt.Errorf("invalid page URL %q: %w", pageURL, err)
		}
		parsedURL = u
	}

	article, err := readability.FromReader(strings.NewReader(page), parsedURL)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}

	content := strings.TrimSpace(article.Content)
	if content == "" {
		return "", ErrNoContent
	}
	return content, nil
}

// noiseSelector matches boilerplate removed before selector extraction.
const noiseSelector = "nav, footer, header, script, style, noscript, iframe, form, " +
	".ad, .ads, .advertisement, .sidebar, .cookie-banner, .popup, .share, .comments"

// Selectors extracts the first element matching one of ContentSelectors after
// removing common boilerplate. It falls back to <body>.
type Selectors struct {
	ContentSelectors []string
}

// DefaultContentSelectors returns standard selectors for article pages.
func DefaultContentSelectors() []string {
	return []string{
		"article",
		"main",
		"[role='main']",
		".post-content",
		".entry-content",
		".article-body",
		".content",
		"#content",
	}
}

// Summary returns the outer HTML of the main content element.
func (s Selectors) Summary(page, _ string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find(noiseSelector).Remove()

	selectors := s.ContentSelectors
	if len(selectors) == 0 {
		selectors = DefaultContentSelectors()
	}

	var main *goquery.Selection
	for _, selector := range selectors {
		if selection := doc.Find(selector); selection.Length() > 0 {
			main = selection.First()
			break
		}
	}
	if main == nil {
		body := doc.Find("body")
		if strings.TrimSpace(body.Text()) == "" {
			return "", ErrNoContent
		}
		html, err := body.Html()
		if err != nil {
			return "", fmt.Errorf("failed to render body: %w", err)
		}
		return "<div>" + strings.TrimSpace(html) + "</div>", nil
	}

	if strings.TrimSpace(main.Text()) == "" {
		return "", ErrNoContent
	}
	html, err := goquery.OuterHtml(main)
	if err != nil {
		return "", fmt.Errorf("failed to render content: %w", err)
	}
	return strings.TrimSpace(html), nil
}

// Extractor is the interface both extractors satisfy.
type Extractor interface {
	Summary(page, pageURL string) (string, error)
}

// Chain tries each extractor in order and returns the first success.
type Chain []Extractor

// Summary returns the first successful extraction, or the joined errors.
func (c Chain) Summary(page, pageURL string) (string, error) {
	if len(c) == 0 {
		return "", ErrNoContent
	}
	var errs []error
	for _, e := range c {
		content, err := e.Summary(page, pageURL)
		if err == nil {
			return content, nil
		}
		errs = append(errs, err)
	}
	return "", errors.Join(errs...)
}

// New returns the extractor named by name: "readability", "selectors" or
// "auto" (readability, then selectors).
func New(name string) (Extractor, error) {
	switch name {
	case "", "auto":
		return Chain{Readability{}, Selectors{}}, nil
	case "readability":
		return Readability{}, nil
	case "selectors":
		return Selectors{}, nil
	}
	return nil, fmt.Errorf("unknown extractor %q (valid: auto, readability, selectors)", name)
}
