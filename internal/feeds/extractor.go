package feeds

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
)

// imagePolicy keeps only <img> elements whose src is an http, https or
// relative URL.
var imagePolicy = newImagePolicy()

func newImagePolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowImages()
	return p
}

// firstImage returns the src of the first <img> in an HTML fragment, or ""
// when the fragment is empty or has no usable image. Sources with other
// schemes, such as data: or javascript:, are skipped.
func firstImage(content string) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(imagePolicy.Sanitize(content)))
	if err != nil {
		return ""
	}

	var src string
	doc.Find("img").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if v, ok := s.Attr("src"); ok && strings.TrimSpace(v) != "" {
			src = strings.TrimSpace(v)
			return false
		}
		return true
	})
	return src
}

// pageImage fetches the article page and returns the lead image that
// go-readability reports for it. An empty string with a nil error means the
// page has no lead image.
func (f *Fetcher) pageImage(ctx context.Context, pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parsing page url %q: %w", pageURL, err)
	}

	body, err := get(ctx, f.client, pageURL)
	if err != nil {
		return "", err
	}

	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		return "", fmt.Errorf("readability extraction: %w", err)
	}
	return article.Image, nil
}
