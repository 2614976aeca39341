package feeds

import (
	"html"
	"regexp"
	"strings"
)

var (
	itemPattern     = regexp.MustCompile(`(?s)<item(?:\s[^>]*)?>(.*?)</item>`)
	categoryPattern = regexp.MustCompile(`(?s)<category(?:\s[^>]*)?>(?:\s*<!\[CDATA\[(.*?)\]\]>\s*|(.*?))</category>`)

	titleField   = newFieldPattern("title")
	linkField    = newFieldPattern("link")
	pubDateField = newFieldPattern("pubDate")
	contentField = newFieldPattern("content:encoded")
)

// fieldPattern matches one named element in both of its RSS spellings.
type fieldPattern struct {
	cdata *regexp.Regexp
	plain *regexp.Regexp
}

func newFieldPattern(name string) fieldPattern {
	tag := regexp.QuoteMeta(name)
	return fieldPattern{
		cdata: regexp.MustCompile(`(?s)<` + tag + `>\s*<!\[CDATA\[(.*?)\]\]>\s*</` + tag + `>`),
		plain: regexp.MustCompile(`(?s)<` + tag + `>(.*?)</` + tag + `>`),
	}
}

// extract returns the CDATA-wrapped value when present, else the plain value
// with XML entities decoded, else "".
func (p fieldPattern) extract(block string) string {
	if m := p.cdata.FindStringSubmatch(block); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := p.plain.FindStringSubmatch(block); m != nil {
		return strings.TrimSpace(html.UnescapeString(m[1]))
	}
	return ""
}

// extractEntries pulls up to limit <item> blocks out of markup that a
// structured parser could not handle.
func extractEntries(markup string, limit int) []entry {
	blocks := itemPattern.FindAllStringSubmatch(markup, limit)

	entries := make([]entry, 0, len(blocks))
	for _, b := range blocks {
		block := b[1]
		entries = append(entries, entry{
			Title:      titleField.extract(block),
			Link:       linkField.extract(block),
			Published:  pubDateField.extract(block),
			Categories: extractCategories(block),
			Content:    contentField.extract(block),
		})
	}
	return entries
}

// extractCategories returns every category label in document order.
func extractCategories(block string) []string {
	var labels []string
	for _, m := range categoryPattern.FindAllStringSubmatch(block, -1) {
		label := m[1]
		if !strings.Contains(m[0], "<![CDATA[") {
			label = html.UnescapeString(m[2])
		}
		labels = append(labels, strings.TrimSpace(label))
	}
	return labels
}
