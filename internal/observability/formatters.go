// Package observability provides the CLI logger and formatted summaries for
// verbose mode.
package observability

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/jonathan/feed-localcopy/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

// PrintUpdateSummary outputs the counts of one update run and its first errors.
func (p *Printer) PrintUpdateSummary(s types.UpdateSummary) {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Feeds:      %d", s.Feeds))
	if s.FeedErrors > 0 {
		sb.WriteString(fmt.Sprintf(" (%d failed)", s.FeedErrors))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Added:      %d\n", s.Added))
	sb.WriteString(fmt.Sprintf("Updated:    %d\n", s.Updated))
	sb.WriteString(fmt.Sprintf("Unchanged:  %d\n", s.Unchanged))
	sb.WriteString(fmt.Sprintf("Failed:     %d\n", s.Failed))

	if len(s.Errors) > 0 {
		sb.WriteString("\nErrors:\n")
		count := min(len(s.Errors), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", s.Errors[i]))
		}
		if len(s.Errors) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(s.Errors)-maxItemsToShow))
		}
	}

	p.printBox("UPDATE SUMMARY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintArticle outputs an article and the attributes plugins stored on it.
func (p *Printer) PrintArticle(a *types.Article) {
	if a == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Title:  %s\n", a.Title))
	sb.WriteString(fmt.Sprintf("Link:   %s\n", a.Link))
	if len(a.Attributes) > 0 {
		sb.WriteString("\nAttributes:\n")
		for _, name := range slices.Sorted(maps.Keys(a.Attributes)) {
			sb.WriteString(fmt.Sprintf("  • %s\n", name))
			sb.WriteString(fmt.Sprintf("    %s\n", strings.Join(strings.Fields(a.Attributes[name]), " ")))
		}
	}

	p.printBox("ARTICLE", strings.TrimSuffix(sb.String(), "\n"))
}
