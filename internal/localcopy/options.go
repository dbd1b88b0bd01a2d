package localcopy

import (
	"strings"
)

// Recognised configuration keys.
const (
	OptionDownloadDir     = "downloaddir"
	OptionDownloadURL     = "downloadurl"
	OptionDownloadUpdates = "downloadupdates"
	OptionInlineContent   = "inlinecontent"
)

// InlineMode selects where extracted content is kept.
type InlineMode int

const (
	// InlineOff writes content to a file under DownloadDir.
	InlineOff InlineMode = iota
	// InlineRaw stores content on the article and renders it unescaped.
	InlineRaw
	// InlineURL stores content on the article and renders it as a data: URL.
	InlineURL
)

func (m InlineMode) String() string {
	switch m {
	case InlineRaw:
		return "true"
	case InlineURL:
		return "url"
	default:
		return "false"
	}
}

// Options is the plugin configuration. It is filled once at startup and read
// only afterwards.
type Options struct {
	DownloadDir     string
	DownloadURL     string
	DownloadUpdates bool
	Inline          InlineMode
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() *Options {
	return &Options{
		DownloadDir:     "local-cache",
		DownloadURL:     "local-cache",
		DownloadUpdates: true,
		Inline:          InlineOff,
	}
}

// Set stores a recognised option and reports whether name was recognised.
// Values are not validated: anything that is not a boolean spelling is read
// by string truthiness, so "nope" enables downloadupdates.
func (o *Options) Set(name, value string) bool {
	switch name {
	case OptionDownloadDir:
		o.DownloadDir = value
	case OptionDownloadURL:
		o.DownloadURL = value
	case OptionDownloadUpdates:
		o.DownloadUpdates = truthy(value)
	case OptionInlineContent:
		o.Inline = parseInline(value)
	default:
		return false
	}
	return true
}

func parseInline(value string) InlineMode {
	if value == "url" {
		return InlineURL
	}
	if truthy(value) {
		return InlineRaw
	}
	return InlineOff
}

func truthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off", "":
		return false
	}
	return true
}
