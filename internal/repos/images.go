package repos

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	markdownImagePattern = regexp.MustCompile(`!\[[^\]]*\]\(([^)]+)\)`)
	imgTagPattern        = regexp.MustCompile(`(?i)<img\b[^>]*>`)
)

// imageCandidates returns every image reference in a README: markdown
// images first, then HTML <img> tags, each group in document order.
func imageCandidates(readme string) []string {
	var refs []string

	for _, m := range markdownImagePattern.FindAllStringSubmatch(readme, -1) {
		// ![alt](url "title") and ![alt](<url>) carry more than the URL.
		fields := strings.Fields(m[1])
		if len(fields) == 0 {
			continue
		}
		refs = append(refs, strings.Trim(fields[0], "<>"))
	}

	// Each tag is parsed on its own so prose like "<title>" or "<!--" cannot
	// hide the tags after it.
	for _, tag := range imgTagPattern.FindAllString(readme, -1) {
		if src := imgSrc(tag); src != "" {
			refs = append(refs, src)
		}
	}

	return refs
}

// imgSrc returns the trimmed src attribute of a single <img> tag.
func imgSrc(tag string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(tag))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img").First().Attr("src")
	return strings.TrimSpace(src)
}

// badgeFilter recognizes status badge and metrics icon URLs.
type badgeFilter []*regexp.Regexp

// newBadgeFilter compiles each pattern as a case-insensitive regular
// expression matched anywhere in the URL.
func newBadgeFilter(patterns []string) (badgeFilter, error) {
	f := make(badgeFilter, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("compiling badge pattern %q: %w", p, err)
		}
		f = append(f, re)
	}
	return f, nil
}

func (f badgeFilter) matches(imageURL string) bool {
	for _, re := range f {
		if re.MatchString(imageURL) {
			return true
		}
	}
	return false
}

// resolveImage makes a README image reference absolute. References that
// already start with "http" pass through; protocol-relative ones get https;
// anything else is a path inside the repository under base.
func resolveImage(ref, base string) string {
	switch {
	case strings.HasPrefix(ref, "http"):
		return ref
	case strings.HasPrefix(ref, "//"):
		return "https:" + ref
	}
	ref = strings.TrimPrefix(ref, "./")
	ref = strings.TrimLeft(ref, "/")
	return base + ref
}
