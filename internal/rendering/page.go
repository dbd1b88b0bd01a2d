package rendering

import (
	"fmt"
	"html"
	"io"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/jonathan/feed-localcopy/internal/types"
)

// DateFormat is used for the date bit.
const DateFormat = "2006-01-02 15:04"

// DefaultItemTemplate renders one article. Bits are already HTML, so they are
// substituted verbatim.
const DefaultItemTemplate = `<div class="item">
<h3 class="title">{{if .url}}<a href="{{.url}}">{{.title}}</a>{{else}}{{.title}}{{end}}</h3>
{{- if .localcopy}}
<p class="localcopy"><a href="{{.localcopy}}">local copy</a></p>
{{- end}}
{{- if .description}}
<div class="description">{{.description}}</div>
{{- end}}
<p class="date">{{.date}}{{if .feed}} &middot; {{.feed}}{{end}}</p>
</div>
`

// DefaultPageTemplate wraps the rendered items.
const DefaultPageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{escape .Title}}</title>
</head>
<body>
<h1>{{escape .Title}}</h1>
{{range .Items}}{{.}}{{end}}
<p class="generated">{{len .Items}} articles, generated {{.Generated.Format "2006-01-02 15:04 MST"}}</p>
</body>
</html>
`

// PageData is passed to the page template.
type PageData struct {
	Title     string
	Items     []string
	Generated time.Time
}

// Renderer executes the page and item templates.
type Renderer struct {
	page *template.Template
	item *template.Template
}

// NewRenderer loads templates from the given paths; an empty path selects the
// built-in template.
func NewRenderer(pagePath, itemPath string) (*Renderer, error) {
	page, err := loadTemplate("page", pagePath, DefaultPageTemplate)
	if err != nil {
		return nil, err
	}
	item, err := loadTemplate("item", itemPath, DefaultItemTemplate)
	if err != nil {
		return nil, err
	}
	return &Renderer{page: page, item: item}, nil
}

func loadTemplate(name, path, fallback string) (*template.Template, error) {
	content := fallback
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, &TemplateError{
					Message: fmt.Sprintf("template file not found: %s", path),
					Cause:   err,
				}
			}
			return nil, &TemplateError{
				Message: fmt.Sprintf("failed to read template file: %s", path),
				Cause:   err,
			}
		}
		content = string(data)
	}
	return parseTemplate(name, content)
}

func parseTemplate(name, content string) (*template.Template, error) {
	// Missing bits render as empty rather than "<no value>".
	tmpl, err := template.New(name).Option("missingkey=zero").Funcs(template.FuncMap{
		"escape": html.EscapeString,
	}).Parse(content)
	if err != nil {
		return nil, &TemplateError{
			Message: fmt.Sprintf("failed to parse %s template", name),
			Cause:   err,
		}
	}
	return tmpl, nil
}

// RenderItem executes the item template over bits.
func (r *Renderer) RenderItem(bits types.Bits) (string, error) {
	var sb strings.Builder
	if err := r.item.Execute(&sb, map[string]string(bits)); err != nil {
		return "", &TemplateError{
			Message: "failed to execute item template",
			Cause:   err,
		}
	}
	return sb.String(), nil
}

// RenderPage writes the full page.
func (r *Renderer) RenderPage(w io.Writer, data PageData) error {
	if err := r.page.Execute(w, data); err != nil {
		return &RenderError{
			Message: "failed to write page",
			Cause:   err,
		}
	}
	return nil
}

// BaseBits builds the bits every article starts with. Text from the feed is
// escaped; the description is feed-supplied HTML and is kept as is.
func BaseBits(a *types.Article) types.Bits {
	bits := types.Bits{
		"id":          a.ID.String(),
		"title":       html.EscapeString(a.Title),
		"url":         html.EscapeString(a.Link),
		"description": a.Description,
		"date":        a.Published.Format(DateFormat),
		"feed_url":    html.EscapeString(a.FeedURL),
	}
	if bits["title"] == "" {
		bits["title"] = "(untitled)"
	}
	return bits
}
