package localcopy

import (
	"html"
	"strings"

	"github.com/jonathan/feed-localcopy/internal/types"
)

// DataURLPrefix starts every localcopy bit rendered in InlineURL mode.
const DataURLPrefix = "data:text/html;charset=utf-8, "

// RenderItem sets the localcopy bit for articles that have a local copy.
// Articles without one leave bits untouched.
func (m *Manager) RenderItem(article *types.Article, bits types.Bits) bool {
	localCopy, ok := article.Attribute(AttributeLocalCopy)
	if !ok {
		return true
	}

	switch m.opts.Inline {
	case InlineURL:
		bits[BitLocalCopy] = DataURLPrefix + Quote(localCopy)
	case InlineRaw:
		bits[BitLocalCopy] = localCopy
	default:
		bits[BitLocalCopy] = html.EscapeString(m.opts.DownloadURL + "/" + localCopy)
	}
	return true
}

const upperhex = "0123456789ABCDEF"

// Quote percent-encodes the UTF-8 bytes of s. Letters, digits, '_', '.', '-'
// and '/' are left as-is.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isSafe(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&0x0f])
	}
	return b.String()
}

func isSafe(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '_', c == '.', c == '-', c == '/':
		return true
	}
	return false
}
